package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

// ActivityFeed is the optional timeline store. A nil feed means no
// activity source is configured: nothing is recorded and reads are empty.
type ActivityFeed interface {
	Record(ctx context.Context, a models.Activity) error
	Recent(ctx context.Context, userID string, limit int) ([]models.Activity, error)
	Since(ctx context.Context, userID string, since time.Time) ([]models.Activity, error)
}

type activityRecorder struct {
	feed ActivityFeed
	log  *zap.Logger
}

// record writes an activity and only logs failures.
func (r activityRecorder) record(ctx context.Context, userID primitive.ObjectID, typ models.ActivityType, entityType string, entityID primitive.ObjectID, description string) {
	if r.feed == nil {
		return
	}
	err := r.feed.Record(ctx, models.Activity{
		UserID:      userID.Hex(),
		Type:        typ,
		Description: description,
		EntityType:  entityType,
		EntityID:    entityID.Hex(),
		CreatedAt:   utcNow(),
	})
	if err != nil {
		r.log.Warn("failed to record activity",
			zap.String("type", string(typ)),
			zap.String("entity_id", entityID.Hex()),
			zap.Error(err),
		)
	}
}

func (r activityRecorder) recent(ctx context.Context, userID primitive.ObjectID, limit int) ([]models.Activity, error) {
	if r.feed == nil {
		return []models.Activity{}, nil
	}
	return r.feed.Recent(ctx, userID.Hex(), limit)
}

func (r activityRecorder) since(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]models.Activity, error) {
	if r.feed == nil {
		return []models.Activity{}, nil
	}
	return r.feed.Since(ctx, userID.Hex(), since)
}
