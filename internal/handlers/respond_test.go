package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestFailMapsKinds(t *testing.T) {
	rs := NewResponder(zap.NewNop(), false)
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperr.Invalid("Validation failed", "title is required"), http.StatusBadRequest, "Validation failed"},
		{"duplicate", apperr.Duplicate("Lead with this email already exists"), http.StatusBadRequest, "Lead with this email already exists"},
		{"not found", apperr.NotFound("Task"), http.StatusNotFound, "Task not found"},
		{"unauthorized", apperr.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"forbidden", apperr.ErrSelfModification, http.StatusForbidden, apperr.ErrSelfModification.Message},
		{"internal", errors.New("mongo down"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rs.fail(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.msg, resp.Message)
		})
	}
}

func TestFailHidesCauseInProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	rec := httptest.NewRecorder()
	NewResponder(zap.NewNop(), false).fail(rec, req, errors.New("mongo down"))
	assert.Equal(t, "mongo down", decodeResponse(t, rec).Error)

	rec = httptest.NewRecorder()
	NewResponder(zap.NewNop(), true).fail(rec, req, errors.New("mongo down"))
	assert.Empty(t, decodeResponse(t, rec).Error)
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ann"}`))
	require.NoError(t, decode(req, &dst))
	assert.Equal(t, "Ann", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decode(req, &dst)))
}

func TestFlexTime(t *testing.T) {
	var body struct {
		Due  *flexTime `json:"due"`
		Skip *flexTime `json:"skip"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-03-10","skip":null}`), &body))
	require.NotNil(t, body.Due.ptr())
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *body.Due.ptr())
	assert.Nil(t, body.Skip.ptr())

	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-03-10T09:30:00+05:30"}`), &body))
	assert.Equal(t, time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC), *body.Due.ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"next tuesday"}`), &body))
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&fav=true&bad=x&from=2026-01-02", nil)
	assert.Equal(t, int64(3), queryInt(req, "page"))
	assert.Equal(t, int64(0), queryInt(req, "bad"))
	require.NotNil(t, queryBool(req, "fav"))
	assert.True(t, *queryBool(req, "fav"))
	assert.Nil(t, queryBool(req, "bad"))

	from, err := queryTime(req, "from")
	require.NoError(t, err)
	assert.Equal(t, 2, from.Day())
	_, err = queryTime(req, "bad")
	assert.Error(t, err)
}

func TestValidateStruct(t *testing.T) {
	err := validateStruct(TaskBulkStatusRequest{Status: "done"})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Validation failed", ae.Message)
	assert.ElementsMatch(t, []string{
		"taskIds is required",
		"status must be one of pending, in_progress, completed, cancelled",
	}, ae.Fields)

	assert.NoError(t, validateStruct(TaskBulkStatusRequest{TaskIDs: []string{"x"}, Status: "completed"}))
}
