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

type ContactStore struct {
	col *mongo.Collection
}

func NewContactStore(db *mongo.Database) *ContactStore {
	return &ContactStore{col: db.Collection(ContactsCollection)}
}

// Find returns a page of live contacts and the total match count.
// A zero Limit returns every match.
func (s *ContactStore) Find(ctx context.Context, q ContactQuery) ([]models.Contact, int64, error) {
	filter := ContactFilter(q)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(ContactSort(q.Sort))
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
	contacts := make([]models.Contact, 0)
	if err := cur.All(ctx, &contacts); err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (s *ContactStore) Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Contact, error) {
	var c models.Contact
	filter := bson.M{"_id": id, "userId": owner, "isDeleted": bson.M{"$ne": true}}
	if err := s.col.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// EmailInUse reports whether another live contact of owner has email.
// Pass primitive.NilObjectID as exclude when creating.
func (s *ContactStore) EmailInUse(ctx context.Context, owner primitive.ObjectID, email string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"userId":    owner,
		"email":     strings.ToLower(email),
		"isDeleted": bson.M{"$ne": true},
	}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *ContactStore) Insert(ctx context.Context, c *models.Contact) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, c)
	return mapErr(err)
}

// Save replaces a live contact owned by c.OwnerID.
func (s *ContactStore) Save(ctx context.Context, c *models.Contact) error {
	filter := bson.M{"_id": c.ID, "userId": c.OwnerID}
	res, err := s.col.ReplaceOne(ctx, filter, c)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ContactStore) Stats(ctx context.Context, owner primitive.ObjectID, now time.Time) (*models.ContactStats, error) {
	match := bson.M{"userId": owner, "isDeleted": bson.M{"$ne": true}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"total":       bson.A{bson.M{"$count": "count"}},
			"recentWeek":  bson.A{bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": now.AddDate(0, 0, -7)}}}, bson.M{"$count": "count"}},
			"recentMonth": bson.A{bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": now.AddDate(0, 0, -30)}}}, bson.M{"$count": "count"}},
			"favorites":   bson.A{bson.M{"$match": bson.M{"isFavorite": true}}, bson.M{"$count": "count"}},
			"bySource":    bson.A{groupCount("source")},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Total       []countOnly `bson:"total"`
		RecentWeek  []countOnly `bson:"recentWeek"`
		RecentMonth []countOnly `bson:"recentMonth"`
		Favorites   []countOnly `bson:"favorites"`
		BySource    []bucket    `bson:"bySource"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := &models.ContactStats{BySource: map[string]int64{}}
	if len(rows) > 0 {
		r := rows[0]
		stats.Total = firstCount(r.Total)
		stats.RecentWeek = firstCount(r.RecentWeek)
		stats.RecentMonth = firstCount(r.RecentMonth)
		stats.Favorites = firstCount(r.Favorites)
		stats.BySource = bucketsToMap(r.BySource)
	}
	return stats, nil
}

// TagStats returns the most used tags, highest count first.
func (s *ContactStore) TagStats(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.TagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": owner, "isDeleted": bson.M{"$ne": true}}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	tags := make([]models.TagCount, 0)
	if err := cur.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Distinct returns the sorted non-empty values of field across the
// owner's live contacts.
func (s *ContactStore) Distinct(ctx context.Context, owner primitive.ObjectID, field string) ([]string, error) {
	raw, err := s.col.Distinct(ctx, field, bson.M{"userId": owner, "isDeleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			out = append(out, str)
		}
	}
	sort.Strings(out)
	return out, nil
}
