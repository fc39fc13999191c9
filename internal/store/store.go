// Package store holds the MongoDB repositories and the PostgreSQL
// activity feed.
package store

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	UsersCollection          = "users"
	ContactsCollection       = "contacts"
	LeadsCollection          = "leads"
	TasksCollection          = "tasks"
	DashboardStatsCollection = "dashboardstats"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// bucket is a $group result keyed by a string value.
type bucket struct {
	ID    string `bson:"_id"`
	Count int64  `bson:"count"`
}

type countOnly struct {
	Count int64 `bson:"count"`
}

func bucketsToMap(in []bucket) map[string]int64 {
	out := make(map[string]int64, len(in))
	for _, b := range in {
		if b.ID == "" {
			continue
		}
		out[b.ID] = b.Count
	}
	return out
}

func firstCount(in []countOnly) int64 {
	if len(in) == 0 {
		return 0
	}
	return in[0].Count
}

func groupCount(field string) bson.M {
	return bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}
}

func objectIDs(ids []primitive.ObjectID) bson.A {
	out := make(bson.A, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
