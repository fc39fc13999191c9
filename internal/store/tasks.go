package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

// OpenTaskStatuses are the statuses that can become overdue.
var OpenTaskStatuses = []models.TaskStatus{models.TaskPending, models.TaskInProgress}

type TaskStore struct {
	col *mongo.Collection
}

func NewTaskStore(db *mongo.Database) *TaskStore {
	return &TaskStore{col: db.Collection(TasksCollection)}
}

func (s *TaskStore) Find(ctx context.Context, q TaskQuery) ([]models.Task, int64, error) {
	filter := TaskFilter(q)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(TaskSort(q.Order))
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	tasks := make([]models.Task, 0)
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *TaskStore) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.col.FindOne(ctx, bson.M{"_id": id, "userId": owner}).Decode(&t); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *TaskStore) Insert(ctx context.Context, t *models.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, t)
	return mapErr(err)
}

func (s *TaskStore) Save(ctx context.Context, t *models.Task) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": t.ID, "userId": t.UserID}, t)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "userId": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkSetStatus moves the owner's tasks in ids to status in one write.
// Tasks entering completed get completedAt = now, tasks already completed
// keep theirs, and tasks leaving completed lose it.
func (s *TaskStore) BulkSetStatus(ctx context.Context, owner primitive.ObjectID, ids []primitive.ObjectID, status models.TaskStatus, now time.Time) (int64, int64, error) {
	set := bson.M{"status": status, "lastModified": now}
	if status == models.TaskCompleted {
		set["completedAt"] = bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$status", string(models.TaskCompleted)}},
			"$completedAt",
			now,
		}}
	} else {
		set["completedAt"] = "$$REMOVE"
	}

	filter := bson.M{"_id": bson.M{"$in": objectIDs(ids)}, "userId": owner}
	res, err := s.col.UpdateMany(ctx, filter, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return 0, 0, err
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

// Stats builds the histograms and the today/overdue counts for owner.
// Today is [dayStart, dayEnd).
func (s *TaskStore) Stats(ctx context.Context, owner primitive.ObjectID, dayStart, dayEnd, now time.Time) (*models.TaskStats, error) {
	open := bson.A{string(models.TaskPending), string(models.TaskInProgress)}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": owner}}},
		{{Key: "$facet", Value: bson.M{
			"status":   bson.A{groupCount("status")},
			"priority": bson.A{groupCount("priority")},
			"total":    bson.A{bson.M{"$count": "count"}},
			"today": bson.A{
				bson.M{"$match": bson.M{
					"dueDate": bson.M{"$gte": dayStart, "$lt": dayEnd},
					"status":  bson.M{"$ne": string(models.TaskCompleted)},
				}},
				bson.M{"$count": "count"},
			},
			"overdue": bson.A{
				bson.M{"$match": bson.M{
					"dueDate": bson.M{"$lt": now},
					"status":  bson.M{"$in": open},
				}},
				bson.M{"$count": "count"},
			},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status   []bucket    `bson:"status"`
		Priority []bucket    `bson:"priority"`
		Total    []countOnly `bson:"total"`
		Today    []countOnly `bson:"today"`
		Overdue  []countOnly `bson:"overdue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := &models.TaskStats{StatusStats: map[string]int64{}, PriorityStats: map[string]int64{}}
	if len(rows) > 0 {
		r := rows[0]
		stats.StatusStats = bucketsToMap(r.Status)
		stats.PriorityStats = bucketsToMap(r.Priority)
		stats.TotalTasks = firstCount(r.Total)
		stats.TodayTasks = firstCount(r.Today)
		stats.OverdueTasks = firstCount(r.Overdue)
	}
	return stats, nil
}
