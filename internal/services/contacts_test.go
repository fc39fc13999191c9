package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
)

func newTestContactService() (*ContactService, *fakeContacts, *fakeFeed) {
	repo := &fakeContacts{}
	feed := &fakeFeed{}
	svc := NewContactService(repo, feed, zap.NewNop())
	svc.now = clock(fixedNow)
	return svc, repo, feed
}

func contactInput(first, email string) ContactFields {
	return ContactFields{FirstName: strPtr(first), Email: strPtr(email)}
}

func TestCreateContact(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, feed := newTestContactService()

	c, err := svc.Create(ctx, owner, ContactFields{
		FirstName: strPtr("Jo"),
		Email:     strPtr(" JO@Example.com "),
		Tags:      []string{" vip", "vip", "", "lead "},
	})
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", c.Email)
	assert.Equal(t, models.ContactSourceOther, c.Source)
	assert.Equal(t, []string{"vip", "lead"}, c.Tags)
	assert.Equal(t, owner, c.OwnerID)
	require.Len(t, feed.recorded, 1)
	assert.Equal(t, models.ActivityContactAdded, feed.recorded[0].Type)

	_, err = svc.Create(ctx, owner, ContactFields{Email: strPtr("x@y.co")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, ContactFields{FirstName: strPtr("J")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, ContactFields{FirstName: strPtr("Jo"), Phone: strPtr("abc")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, ContactFields{FirstName: strPtr("Jo"), Source: strPtr("fax")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestContactEmailUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	svc, _, _ := newTestContactService()

	_, err := svc.Create(ctx, alice, contactInput("Ann", "same@example.com"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, alice, contactInput("Ann", "SAME@example.com"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	assert.Equal(t, "Contact with this email already exists", errorMessage(err))

	_, err = svc.Create(ctx, bob, contactInput("Ann", "same@example.com"))
	assert.NoError(t, err)
}

func TestUpdateContactKeepsOwnEmail(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestContactService()

	c, err := svc.Create(ctx, owner, contactInput("Ann", "ann@example.com"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner, c.ID.Hex(), ContactFields{Email: strPtr("ann@example.com"), Company: strPtr("Acme")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)

	_, err = svc.Update(ctx, owner, c.ID.Hex(), ContactFields{FirstName: strPtr("A"), Company: strPtr("Other")})
	require.Error(t, err)
	assert.Equal(t, "Acme", repo.items[0].Company)

	_, err = svc.Update(ctx, primitive.NewObjectID(), c.ID.Hex(), ContactFields{Company: strPtr("x")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSoftDeleteHidesContact(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestContactService()

	c, err := svc.Create(ctx, owner, contactInput("Ann", "gone@example.com"))
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, owner, c.ID.Hex()))

	require.Len(t, repo.items, 1)
	assert.True(t, repo.items[0].IsDeleted)

	_, err = svc.Get(ctx, owner, c.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	page, err := svc.List(ctx, owner, ContactListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Contacts)

	_, err = svc.Create(ctx, owner, contactInput("Ann", "gone@example.com"))
	assert.NoError(t, err, "a deleted contact's email can be reused")
}

func TestToggleFavoriteTwice(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, _ := newTestContactService()

	c, err := svc.Create(ctx, owner, contactInput("Ann", ""))
	require.NoError(t, err)

	first, err := svc.ToggleFavorite(ctx, owner, c.ID.Hex())
	require.NoError(t, err)
	assert.True(t, first.IsFavorite)

	second, err := svc.ToggleFavorite(ctx, owner, c.ID.Hex())
	require.NoError(t, err)
	assert.False(t, second.IsFavorite)
}

func TestBatchSync(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, _ := newTestContactService()

	existing, err := svc.Create(ctx, owner, contactInput("Old", "old@example.com"))
	require.NoError(t, err)

	report, err := svc.BatchSync(ctx, owner, []ContactSyncItem{
		{ContactFields: contactInput("New", "new@example.com")},
		{ContactFields: contactInput("Twin", "new@example.com")},
		{ID: existing.ID.Hex(), ContactFields: ContactFields{Company: strPtr("Acme")}},
		{ID: primitive.NewObjectID().Hex(), ContactFields: contactInput("Ghost", "ghost@example.com")},
		{ContactFields: ContactFields{}},
	})
	require.NoError(t, err)

	assert.Len(t, report.Created, 2)
	assert.Len(t, report.Updated, 1)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "new@example.com", report.Errors[0].Contact)
	assert.Equal(t, "Contact with this email already exists", report.Errors[0].Error)
	assert.Equal(t, "Unknown contact", report.Errors[1].Contact)
	assert.Equal(t, SyncSummary{TotalProcessed: 5, Successful: 3, Failed: 2}, report.Summary)
	assert.Equal(t, "Acme", report.Updated[0].Company)
}

func TestBatchSyncLimits(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestContactService()

	_, err := svc.BatchSync(ctx, primitive.NewObjectID(), nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	items := make([]ContactSyncItem, MaxBatchContacts+1)
	for i := range items {
		items[i] = ContactSyncItem{ContactFields: contactInput("Name", fmt.Sprintf("c%d@example.com", i))}
	}
	_, err = svc.BatchSync(ctx, primitive.NewObjectID(), items)
	assert.Equal(t, apperr.CodeBatchTooLarge, apperr.CodeOf(err))
}

func TestListContactsPagination(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, _ := newTestContactService()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, owner, contactInput("Name", fmt.Sprintf("p%d@example.com", i)))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, owner, ContactListParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Contacts, 2)
	assert.Equal(t, ContactPagination{Total: 3, Page: 1, Limit: 2, Pages: 2, HasMore: true}, page.Pagination)

	page, err = svc.List(ctx, owner, ContactListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.False(t, page.Pagination.HasMore)
}
