package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/auth"
	"github.com/AnshRaj112/crm-backend/internal/models"
)

func newTestUserService(allowAdmin bool) (*UserService, *fakeUsers) {
	repo := newFakeUsers()
	svc := NewUserService(repo, auth.NewTokenIssuer("test-secret", time.Hour), nil, zap.NewNop(), allowAdmin)
	svc.now = clock(fixedNow)
	return svc, repo
}

func register(t *testing.T, svc *UserService, email string, addrs ...AddressInput) *models.User {
	t.Helper()
	user, token, err := svc.Register(context.Background(), RegisterInput{
		Name:      "Alice",
		Email:     email,
		Password:  "secret1",
		Addresses: addrs,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and stores", func(t *testing.T) {
		svc, repo := newTestUserService(false)
		user := register(t, svc, "  Alice@Example.com ")
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.Equal(t, models.ThemeLight, user.Theme)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "secret1", repo.byID[user.ID].Password)
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _ := newTestUserService(false)
		_, _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.co", Password: "12345"})
		assert.ErrorIs(t, err, apperr.ErrWeakPassword)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, _ := newTestUserService(false)
		register(t, svc, "dup@example.com")
		_, _, err := svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "secret1"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	})

	t.Run("admin role needs the signup switch", func(t *testing.T) {
		svc, _ := newTestUserService(false)
		user, _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.co", Password: "secret1", Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, user.Role)

		svc, _ = newTestUserService(true)
		user, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.co", Password: "secret1", Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestUserService(false)
	user := register(t, svc, "bob@example.com")

	_, _, unknown := svc.Authenticate(ctx, "nobody@example.com", "secret1")
	_, _, wrong := svc.Authenticate(ctx, "bob@example.com", "nope-nope")
	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.Equal(t, unknown.Error(), wrong.Error())
	assert.ErrorIs(t, wrong, apperr.ErrInvalidCredentials)

	got, token, err := svc.Authenticate(ctx, "BOB@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, fixedNow, *repo.byID[user.ID].LastLogin)

	stored := repo.byID[user.ID]
	stored.IsActive = false
	repo.byID[user.ID] = stored
	_, _, err = svc.Authenticate(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrAccountDisabled)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(false)
	user := register(t, svc, "carol@example.com")

	err := svc.ChangePassword(ctx, user.ID, "wrong-one", "another1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "secret1", "123"), apperr.ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "secret1", "another1"))
	_, _, err = svc.Authenticate(ctx, "carol@example.com", "another1")
	assert.NoError(t, err)
}

func TestAddressLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestUserService(false)
	user := register(t, svc, "alice@example.com", homeInput("1 Main"))

	list, err := svc.AddAddress(ctx, user.ID, AddressInput{Street: "2 Side", City: "Pune", State: "MH", ZipCode: "411002", AddressType: models.AddressWork, IsDefault: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	list, err = svc.DeleteAddress(ctx, user.ID, list[1].ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	before := repo.byID[user.ID].Addresses
	_, err = svc.DeleteAddress(ctx, user.ID, list[0].ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrLastAddress)
	assert.Equal(t, before, repo.byID[user.ID].Addresses)

	_, err = svc.SetDefaultAddress(ctx, user.ID, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrInvalidID)
}

func TestAdminSelfModification(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestUserService(true)
	admin := register(t, svc, "root@example.com")
	other := register(t, svc, "other@example.com")

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, admin.ID.Hex()), apperr.ErrSelfModification)
	_, err := svc.ToggleActive(ctx, admin.ID, admin.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrSelfModification)

	_, err = svc.UpdateUser(ctx, admin.ID, admin.ID.Hex(), AdminUserUpdate{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, apperr.ErrSelfModification)
	_, err = svc.UpdateUser(ctx, admin.ID, admin.ID.Hex(), AdminUserUpdate{Role: strPtr("admin")})
	assert.ErrorIs(t, err, apperr.ErrSelfModification)
	self, err := svc.GetUser(ctx, admin.ID.Hex())
	require.NoError(t, err)
	assert.True(t, self.IsActive)
	assert.Equal(t, models.RoleUser, self.Role)

	renamed, err := svc.UpdateUser(ctx, admin.ID, admin.ID.Hex(), AdminUserUpdate{Name: strPtr("Root"), IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "Root", renamed.Name)

	deactivated, err := svc.UpdateUser(ctx, admin.ID, other.ID.Hex(), AdminUserUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	_, err = svc.ToggleActive(ctx, admin.ID, other.ID.Hex())
	require.NoError(t, err)

	toggled, err := svc.ToggleActive(ctx, admin.ID, other.ID.Hex())
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	require.NoError(t, svc.DeleteUser(ctx, admin.ID, other.ID.Hex()))
	_, err = svc.GetUser(ctx, other.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUploadProfileImageWithoutUploader(t *testing.T) {
	svc, _ := newTestUserService(false)
	user := register(t, svc, "img@example.com")
	_, err := svc.UploadProfileImage(context.Background(), user.ID, nil)
	assert.Equal(t, apperr.CodeServiceUnavailable, apperr.CodeOf(err))
}

func TestListUsersClampsPaging(t *testing.T) {
	svc, _ := newTestUserService(false)
	register(t, svc, "u1@example.com")
	register(t, svc, "u2@example.com")

	page, err := svc.ListUsers(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(100), page.Limit)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(1), page.Pages)
}
