package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

// validEmail checks syntax with checkmail and also requires a dotted
// domain, so "a@b" is rejected.
func validEmail(email string) bool {
	if checkmail.ValidateFormat(email) != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

func utcNow() time.Time { return time.Now().UTC() }

// ParseID converts a hex path parameter to an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return id, nil
}

// ParseIDs validates every id before returning any of them.
func ParseIDs(hexes []string) ([]primitive.ObjectID, error) {
	if len(hexes) == 0 {
		return nil, apperr.Invalid("Please provide at least one id")
	}
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := ParseID(h)
		if err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidID, "Invalid id: "+h)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalID(hex *string) (*primitive.ObjectID, error) {
	if hex == nil || strings.TrimSpace(*hex) == "" {
		return nil, nil
	}
	id, err := ParseID(*hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// storeErr translates repository errors into the service taxonomy.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Duplicate(what + " with this email already exists")
	}
	return apperr.Internal(err)
}

// Page is a clamped page/limit pair.
type Page struct {
	Page  int64
	Limit int64
}

// NewPage clamps page to >= 1 and limit to [1, max]. Zero values select
// page 1 and def.
func NewPage(page, limit, def, max int64) Page {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Skip() int64 { return (p.Page - 1) * p.Limit }

// Pages returns the number of pages needed for total items.
func (p Page) Pages(total int64) int64 {
	return (total + p.Limit - 1) / p.Limit
}

// FormatRate renders num/den as a percentage with two decimals, or zero
// when den is 0.
func FormatRate(num, den int64, zero string) string {
	if den == 0 {
		return zero
	}
	return fmt.Sprintf("%.2f", float64(num)/float64(den)*100)
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// normalizeTags trims entries, drops empties and duplicates, and keeps
// the first-seen order.
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
