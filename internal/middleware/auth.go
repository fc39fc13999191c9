package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/auth"
)

// CredentialResolver resolves a bearer token to the caller.
type CredentialResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// Authenticate rejects requests without a valid bearer token and stores
// the resolved caller in the request context.
func Authenticate(resolver CredentialResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				ae, ok := apperr.As(err)
				if !ok || ae.Kind == apperr.KindInternal {
					writeError(w, http.StatusInternalServerError, "Server error")
					return
				}
				writeError(w, ae.Kind.HTTPStatus(), ae.Message)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFrom(r.Context())
		if err := auth.RequireAdmin(id); err != nil {
			writeError(w, http.StatusForbidden, apperr.ErrAdminRequired.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}
