package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

// hotStatuses are the early pipeline stages counted as hot for high
// priority leads.
var hotStatuses = bson.A{string(models.LeadNew), string(models.LeadContacted), string(models.LeadQualified)}

type LeadStore struct {
	col *mongo.Collection
}

func NewLeadStore(db *mongo.Database) *LeadStore {
	return &LeadStore{col: db.Collection(LeadsCollection)}
}

func (s *LeadStore) Find(ctx context.Context, q LeadQuery) ([]models.Lead, int64, error) {
	filter := LeadFilter(q)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(LeadSort(q))
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
	leads := make([]models.Lead, 0)
	if err := cur.All(ctx, &leads); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (s *LeadStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	var l models.Lead
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

// EmailInUse checks the whole collection; lead emails are unique globally.
func (s *LeadStore) EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": strings.ToLower(email)}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *LeadStore) Insert(ctx context.Context, l *models.Lead) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, l)
	return mapErr(err)
}

func (s *LeadStore) Save(ctx context.Context, l *models.Lead) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": l.ID}, l)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LeadStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendNote pushes note onto the history and refreshes lastContacted.
// A non-empty status is set in the same write.
func (s *LeadStore) AppendNote(ctx context.Context, id primitive.ObjectID, note models.Note, status models.LeadStatus) (*models.Lead, error) {
	set := bson.M{
		"lastContacted": note.CreatedAt,
		"updatedAt":     note.CreatedAt,
	}
	if status != "" {
		set["status"] = status
	}
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$set":  set,
		"$push": bson.M{"notes": note},
	})
}

// SetStatus changes the status without touching the notes.
func (s *LeadStore) SetStatus(ctx context.Context, id primitive.ObjectID, status models.LeadStatus, now time.Time) (*models.Lead, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{"status": status, "updatedAt": now}})
}

func (s *LeadStore) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Lead, error) {
	var l models.Lead
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&l); err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

// LeadBulkFields are the only fields that may be mass-assigned.
type LeadBulkFields struct {
	Status     *models.LeadStatus
	AssignedTo *primitive.ObjectID
	Priority   *models.Priority
	Source     *models.LeadSource
}

func (f LeadBulkFields) Empty() bool {
	return f.Status == nil && f.AssignedTo == nil && f.Priority == nil && f.Source == nil
}

func (f LeadBulkFields) setDoc(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if f.Status != nil {
		set["status"] = *f.Status
	}
	if f.AssignedTo != nil {
		set["assignedTo"] = *f.AssignedTo
	}
	if f.Priority != nil {
		set["priority"] = *f.Priority
	}
	if f.Source != nil {
		set["source"] = *f.Source
	}
	return set
}

func (s *LeadStore) BulkUpdate(ctx context.Context, ids []primitive.ObjectID, fields LeadBulkFields, now time.Time) (int64, int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": objectIDs(ids)}},
		bson.M{"$set": fields.setDoc(now)},
	)
	if err != nil {
		return 0, 0, err
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

// Facets reads the distinct status, source and priority values across
// every lead, plus a count per status.
func (s *LeadStore) Facets(ctx context.Context) (*models.LeadFacets, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"status":   bson.A{groupCount("status")},
			"source":   bson.A{groupCount("source")},
			"priority": bson.A{groupCount("priority")},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status   []bucket `bson:"status"`
		Source   []bucket `bson:"source"`
		Priority []bucket `bson:"priority"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	facets := &models.LeadFacets{
		Statuses:   []string{},
		Sources:    []string{},
		Priorities: []string{},
		ByStatus:   map[string]int64{},
	}
	if len(rows) > 0 {
		facets.ByStatus = bucketsToMap(rows[0].Status)
		facets.Statuses = bucketKeys(rows[0].Status)
		facets.Sources = bucketKeys(rows[0].Source)
		facets.Priorities = bucketKeys(rows[0].Priority)
	}
	return facets, nil
}

func bucketKeys(in []bucket) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		if b.ID != "" {
			out = append(out, b.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Stats runs the faceted summary over every lead. Month buckets start at
// since. ConversionRate is left for the caller.
func (s *LeadStore) Stats(ctx context.Context, since time.Time) (*models.LeadStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"total":      bson.A{bson.M{"$count": "count"}},
			"byStatus":   bson.A{groupCount("status")},
			"bySource":   bson.A{groupCount("source")},
			"byPriority": bson.A{groupCount("priority")},
			"byMonth": bson.A{
				bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
				bson.M{"$group": bson.M{
					"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$createdAt"}},
					"count": bson.M{"$sum": 1},
				}},
				bson.M{"$sort": bson.M{"_id": 1}},
			},
			"hot": bson.A{
				bson.M{"$match": bson.M{"priority": string(models.PriorityHigh), "status": bson.M{"$in": hotStatuses}}},
				bson.M{"$count": "count"},
			},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Total      []countOnly `bson:"total"`
		ByStatus   []bucket    `bson:"byStatus"`
		BySource   []bucket    `bson:"bySource"`
		ByPriority []bucket    `bson:"byPriority"`
		ByMonth    []bucket    `bson:"byMonth"`
		Hot        []countOnly `bson:"hot"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := &models.LeadStats{
		ByStatus:   map[string]int64{},
		BySource:   map[string]int64{},
		ByPriority: map[string]int64{},
		ByMonth:    []models.MonthCount{},
	}
	if len(rows) == 0 {
		return stats, nil
	}
	r := rows[0]
	stats.TotalLeads = firstCount(r.Total)
	stats.ByStatus = bucketsToMap(r.ByStatus)
	stats.BySource = bucketsToMap(r.BySource)
	stats.ByPriority = bucketsToMap(r.ByPriority)
	stats.HotLeads = firstCount(r.Hot)
	for _, m := range r.ByMonth {
		stats.ByMonth = append(stats.ByMonth, models.MonthCount{Month: m.ID, Count: m.Count})
	}
	return stats, nil
}
