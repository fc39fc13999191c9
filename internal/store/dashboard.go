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

type LeadCounts struct {
	Total  int64
	Active int64
	Won    int64
}

type TaskCounts struct {
	Total     int64
	Pending   int64
	Completed int64
	Overdue   int64
}

// DashboardStore reads across the entity collections for one user and
// owns the dashboard snapshot collection. Leads are attributed to their
// creator.
type DashboardStore struct {
	leads     *LeadStore
	contacts  *ContactStore
	tasks     *TaskStore
	snapshots *mongo.Collection
}

func NewDashboardStore(db *mongo.Database) *DashboardStore {
	return &DashboardStore{
		leads:     NewLeadStore(db),
		contacts:  NewContactStore(db),
		tasks:     NewTaskStore(db),
		snapshots: db.Collection(DashboardStatsCollection),
	}
}

func (s *DashboardStore) LeadCounts(ctx context.Context, owner primitive.ObjectID) (LeadCounts, error) {
	closed := bson.A{string(models.LeadClosedWon), string(models.LeadClosedLost)}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdBy": owner}}},
		{{Key: "$facet", Value: bson.M{
			"total":  bson.A{bson.M{"$count": "count"}},
			"active": bson.A{bson.M{"$match": bson.M{"status": bson.M{"$nin": closed}}}, bson.M{"$count": "count"}},
			"won":    bson.A{bson.M{"$match": bson.M{"status": string(models.LeadClosedWon)}}, bson.M{"$count": "count"}},
		}}},
	}
	cur, err := s.leads.col.Aggregate(ctx, pipeline)
	if err != nil {
		return LeadCounts{}, err
	}
	var rows []struct {
		Total  []countOnly `bson:"total"`
		Active []countOnly `bson:"active"`
		Won    []countOnly `bson:"won"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return LeadCounts{}, err
	}
	if len(rows) == 0 {
		return LeadCounts{}, nil
	}
	return LeadCounts{
		Total:  firstCount(rows[0].Total),
		Active: firstCount(rows[0].Active),
		Won:    firstCount(rows[0].Won),
	}, nil
}

// LeadBreakdown groups the owner's leads by field.
func (s *DashboardStore) LeadBreakdown(ctx context.Context, owner primitive.ObjectID, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdBy": owner}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.leads.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []bucket
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return bucketsToMap(rows), nil
}

func (s *DashboardStore) ContactCount(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	return s.contacts.col.CountDocuments(ctx, ContactFilter(ContactQuery{OwnerID: owner}))
}

// TaskCountsPipeline facets a user's tasks into total, open (pending or
// in progress), completed and overdue counts.
func TaskCountsPipeline(owner primitive.ObjectID, now time.Time) mongo.Pipeline {
	open := bson.A{string(models.TaskPending), string(models.TaskInProgress)}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": owner}}},
		{{Key: "$facet", Value: bson.M{
			"total":     bson.A{bson.M{"$count": "count"}},
			"pending":   bson.A{bson.M{"$match": bson.M{"status": bson.M{"$in": open}}}, bson.M{"$count": "count"}},
			"completed": bson.A{bson.M{"$match": bson.M{"status": string(models.TaskCompleted)}}, bson.M{"$count": "count"}},
			"overdue": bson.A{
				bson.M{"$match": bson.M{"dueDate": bson.M{"$lt": now}, "status": bson.M{"$in": open}}},
				bson.M{"$count": "count"},
			},
		}}},
	}
}

func (s *DashboardStore) TaskCounts(ctx context.Context, owner primitive.ObjectID, now time.Time) (TaskCounts, error) {
	pipeline := TaskCountsPipeline(owner, now)
	cur, err := s.tasks.col.Aggregate(ctx, pipeline)
	if err != nil {
		return TaskCounts{}, err
	}
	var rows []struct {
		Total     []countOnly `bson:"total"`
		Pending   []countOnly `bson:"pending"`
		Completed []countOnly `bson:"completed"`
		Overdue   []countOnly `bson:"overdue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return TaskCounts{}, err
	}
	if len(rows) == 0 {
		return TaskCounts{}, nil
	}
	return TaskCounts{
		Total:     firstCount(rows[0].Total),
		Pending:   firstCount(rows[0].Pending),
		Completed: firstCount(rows[0].Completed),
		Overdue:   firstCount(rows[0].Overdue),
	}, nil
}

// SaveSnapshot upserts the user's dashboard snapshot.
func (s *DashboardStore) SaveSnapshot(ctx context.Context, snap *models.DashboardStats) error {
	_, err := s.snapshots.ReplaceOne(ctx,
		bson.M{"userId": snap.UserID},
		snap,
		options.Replace().SetUpsert(true),
	)
	return err
}

// LeadSeries counts the owner's leads created per day since since.
func (s *DashboardStore) LeadSeries(ctx context.Context, owner primitive.ObjectID, since time.Time) ([]models.LeadDayPoint, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdBy": owner, "createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   dayKey("$createdAt"),
			"total": bson.M{"$sum": 1},
			"won": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", string(models.LeadClosedWon)}}, 1, 0,
			}}},
			"value": bson.M{"$sum": "$value"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.leads.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	points := make([]models.LeadDayPoint, 0)
	if err := cur.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// TaskSeries counts the owner's tasks created per day since since.
func (s *DashboardStore) TaskSeries(ctx context.Context, owner primitive.ObjectID, since time.Time) ([]models.TaskDayPoint, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": owner, "createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   dayKey("$createdAt"),
			"total": bson.M{"$sum": 1},
			"completed": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", string(models.TaskCompleted)}}, 1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.tasks.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	points := make([]models.TaskDayPoint, 0)
	if err := cur.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func dayKey(field string) bson.M {
	return bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": field}}
}

func (s *DashboardStore) RecentLeads(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Lead, error) {
	leads, _, err := s.leads.Find(ctx, LeadQuery{CreatedBy: &owner, Limit: limit})
	return leads, err
}

func (s *DashboardStore) RecentTasks(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Task, error) {
	tasks, _, err := s.tasks.Find(ctx, TaskQuery{UserID: owner, Limit: limit})
	return tasks, err
}

func (s *DashboardStore) RecentContacts(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Contact, error) {
	contacts, _, err := s.contacts.Find(ctx, ContactQuery{OwnerID: owner, Limit: limit})
	return contacts, err
}

func (s *DashboardStore) SearchLeads(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Lead, error) {
	leads, _, err := s.leads.Find(ctx, LeadQuery{CreatedBy: &owner, Search: term, Limit: limit})
	return leads, err
}

func (s *DashboardStore) SearchTasks(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Task, error) {
	tasks, _, err := s.tasks.Find(ctx, TaskQuery{UserID: owner, Search: term, Limit: limit})
	return tasks, err
}

func (s *DashboardStore) SearchContacts(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Contact, error) {
	contacts, _, err := s.contacts.Find(ctx, ContactQuery{OwnerID: owner, Search: term, Limit: limit})
	return contacts, err
}
