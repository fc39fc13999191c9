package auth

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

// UserLookup is the read the resolver needs from the user store.
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Resolver turns a bearer token into an Identity.
type Resolver struct {
	tokens *TokenIssuer
	users  UserLookup
}

func NewResolver(tokens *TokenIssuer, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve verifies token and loads its subject. It fails with
// MissingCredential, InvalidCredential, UnknownSubject or AccountDisabled.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.ErrMissingCredential
	}

	subject, err := r.tokens.Parse(token)
	if err != nil {
		return nil, apperr.ErrInvalidCredential
	}
	id, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, apperr.ErrInvalidCredential
	}

	user, err := r.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUnknownSubject
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}

	return &Identity{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireAdmin is the role predicate applied after Resolve.
func RequireAdmin(id *Identity) error {
	if !id.IsAdmin() {
		return apperr.ErrAdminRequired
	}
	return nil
}
