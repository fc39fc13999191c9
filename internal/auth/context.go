package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

type contextKey struct{}

// Identity is the resolved caller attached to an authenticated request.
type Identity struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
	Role   models.Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the caller stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}
