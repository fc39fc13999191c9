package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0", FormatRate(0, 0, "0"))
	assert.Equal(t, "0.00", FormatRate(5, 0, "0.00"))
	assert.Equal(t, "66.67", FormatRate(2, 3, "0"))
	assert.Equal(t, "100.00", FormatRate(4, 4, "0"))
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		page, limit int64
		wantPage    int64
		wantLimit   int64
		wantSkip    int64
	}{
		{0, 0, 1, 20, 0},
		{-3, 5, 1, 5, 0},
		{3, 10, 3, 10, 20},
		{2, 1000, 2, 100, 100},
		{1, -1, 1, 1, 0},
	}
	for _, tt := range tests {
		p := NewPage(tt.page, tt.limit, 20, 100)
		assert.Equal(t, tt.wantPage, p.Page)
		assert.Equal(t, tt.wantLimit, p.Limit)
		assert.Equal(t, tt.wantSkip, p.Skip())
	}
	assert.Equal(t, int64(3), Page{Page: 1, Limit: 10}.Pages(21))
	assert.Equal(t, int64(0), Page{Page: 1, Limit: 10}.Pages(0))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, normalizeTags([]string{" a", "b ", "a", "", "  "}))
	assert.Equal(t, []string{}, normalizeTags(nil))
}

func TestValidEmail(t *testing.T) {
	for _, email := range []string{"a@b.co", "dana.x+crm@example.com"} {
		assert.True(t, validEmail(email), email)
	}
	for _, email := range []string{"a@b", "a@b.", "a@.b", "no-at.example.com", "a b@example.com", ""} {
		assert.False(t, validEmail(email), email)
	}
}

func TestParseIDs(t *testing.T) {
	_, err := ParseIDs(nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	ids, err := ParseIDs([]string{"5f8d0d55b54764421b7156c3", " 5f8d0d55b54764421b7156c4 "})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = ParseIDs([]string{"5f8d0d55b54764421b7156c3", "xyz"})
	assert.Equal(t, apperr.CodeInvalidID, apperr.CodeOf(err))
}

func TestStoreErr(t *testing.T) {
	assert.NoError(t, storeErr(nil, "Lead"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(storeErr(store.ErrNotFound, "Lead")))
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(storeErr(store.ErrDuplicate, "Lead")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(storeErr(assert.AnError, "Lead")))
}
