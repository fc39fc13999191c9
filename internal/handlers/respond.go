package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/auth"
	"github.com/AnshRaj112/crm-backend/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Response is the envelope every endpoint writes.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// Responder turns service errors into envelope responses. Internal
// failures are logged and reported to Sentry; their cause is only echoed
// outside production.
type Responder struct {
	log        *zap.Logger
	production bool
}

func NewResponder(log *zap.Logger, production bool) *Responder {
	return &Responder{log: log, production: production}
}

func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae, isApp := apperr.As(err)
	if isApp && ae.Kind != apperr.KindInternal {
		writeJSON(w, ae.Kind.HTTPStatus(), Response{Success: false, Message: ae.Message, Errors: ae.Fields})
		return
	}

	message := "Server error"
	if isApp && ae.Code == apperr.CodeServiceUnavailable {
		message = ae.Message
	}
	rs.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", r.URL.Path)
		scope.SetTag("request_id", middleware.RequestIDFrom(r.Context()))
		if id, found := auth.IdentityFrom(r.Context()); found {
			scope.SetUser(sentry.User{ID: id.UserID.Hex()})
		}
		sentry.CaptureException(err)
	})

	resp := Response{Success: false, Message: message}
	if !rs.production {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Invalid("Invalid request body")
	}
	return nil
}

func caller(r *http.Request) *auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func queryInt(r *http.Request, key string) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func queryBool(r *http.Request, key string) *bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &b
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := parseFlexTime(v)
	if err != nil {
		return nil, apperr.Invalid("Invalid date: "+key, key+" must be a valid date")
	}
	return &t, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseFlexTime(v string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// flexTime accepts RFC 3339 timestamps as well as bare dates.
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := parseFlexTime(s)
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}

func (f *flexTime) ptr() *time.Time {
	if f == nil || f.IsZero() {
		return nil
	}
	t := f.Time
	return &t
}

// optionalTime tells an explicit null apart from an absent field.
type optionalTime struct {
	present bool
	value   flexTime
}

func (o *optionalTime) UnmarshalJSON(b []byte) error {
	o.present = true
	return o.value.UnmarshalJSON(b)
}
