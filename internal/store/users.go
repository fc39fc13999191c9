package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(UsersCollection)}
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// FindByEmail matches the stored lower-cased address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, u)
	return mapErr(err)
}

// Save replaces the whole document, embedded addresses included.
func (s *UserStore) Save(ctx context.Context, u *models.User) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users newest first, without password hashes.
func (s *UserStore) List(ctx context.Context, skip, limit int64) ([]models.User, int64, error) {
	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(skip).
		SetLimit(limit).
		SetProjection(bson.M{"password": 0})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	users := make([]models.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserStore) Stats(ctx context.Context, dayStart time.Time) (*models.UserStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"total":  bson.A{bson.M{"$count": "count"}},
			"admins": bson.A{bson.M{"$match": bson.M{"role": models.RoleAdmin}}, bson.M{"$count": "count"}},
			"active": bson.A{bson.M{"$match": bson.M{"isActive": true}}, bson.M{"$count": "count"}},
			"today":  bson.A{bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": dayStart}}}, bson.M{"$count": "count"}},
		}}},
	}
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Total  []countOnly `bson:"total"`
		Admins []countOnly `bson:"admins"`
		Active []countOnly `bson:"active"`
		Today  []countOnly `bson:"today"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := &models.UserStats{}
	if len(rows) > 0 {
		stats.TotalUsers = firstCount(rows[0].Total)
		stats.TotalAdmins = firstCount(rows[0].Admins)
		stats.TotalActiveUsers = firstCount(rows[0].Active)
		stats.NewUsersToday = firstCount(rows[0].Today)
	}
	return stats, nil
}
