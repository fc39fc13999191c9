package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/auth"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

const minPasswordLength = 6

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, skip, limit int64) ([]models.User, int64, error)
	Stats(ctx context.Context, dayStart time.Time) (*models.UserStats, error)
}

type RegisterInput struct {
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	Phone     string         `json:"phone"`
	Role      models.Role    `json:"role"`
	Addresses []AddressInput `json:"addresses"`
}

type ProfileUpdate struct {
	Name                   *string `json:"name"`
	Phone                  *string `json:"phone"`
	ProfileImage           *string `json:"profileImage"`
	Theme                  *string `json:"theme"`
	NewsletterSubscription *bool   `json:"newsletterSubscription"`
}

// AdminUserUpdate lists the fields an admin may override. Email and
// password are deliberately absent.
type AdminUserUpdate struct {
	Name                   *string `json:"name"`
	Phone                  *string `json:"phone"`
	ProfileImage           *string `json:"profileImage"`
	Theme                  *string `json:"theme"`
	Role                   *string `json:"role"`
	IsActive               *bool   `json:"isActive"`
	EmailVerified          *bool   `json:"emailVerified"`
	NewsletterSubscription *bool   `json:"newsletterSubscription"`
}

type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int64         `json:"page"`
	Pages int64         `json:"pages"`
	Limit int64         `json:"limit"`
}

type UserService struct {
	users            UserRepository
	tokens           *auth.TokenIssuer
	uploader         ImageUploader
	log              *zap.Logger
	allowAdminSignup bool
	now              func() time.Time
}

func NewUserService(users UserRepository, tokens *auth.TokenIssuer, uploader ImageUploader, log *zap.Logger, allowAdminSignup bool) *UserService {
	return &UserService{
		users:            users,
		tokens:           tokens,
		uploader:         uploader,
		log:              log,
		allowAdminSignup: allowAdminSignup,
		now:              utcNow,
	}
}

// Register creates an account and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, "", apperr.Invalid("Please provide name, email and password")
	}
	if !validEmail(email) {
		return nil, "", apperr.Invalid("Please provide a valid email", "email must be a valid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", apperr.ErrWeakPassword
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", apperr.Duplicate("User already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.Internal(err)
	}

	role := models.RoleUser
	if in.Role == models.RoleAdmin && s.allowAdminSignup {
		role = models.RoleAdmin
	}

	addresses := normalizeAddresses(in.Addresses)
	for _, a := range addresses {
		if err := validateAddress(a); err != nil {
			return nil, "", err
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	now := s.now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		Email:     email,
		Password:  hash,
		Phone:     strings.TrimSpace(in.Phone),
		Theme:     models.ThemeLight,
		Addresses: addresses,
		Role:      role,
		IsActive:  true,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", apperr.Duplicate("User already exists")
		}
		return nil, "", apperr.Internal(err)
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return user, token, nil
}

// Authenticate fails with the same InvalidCredentials error for an unknown
// email and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apperr.Invalid("Please provide email and password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	ok, err := auth.VerifyPassword(password, user.Password)
	if err != nil && !errors.Is(err, auth.ErrInvalidHash) {
		return nil, "", apperr.Internal(err)
	}
	if !ok {
		return nil, "", apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", apperr.ErrAccountDisabled
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, "", storeErr(err, "User")
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return user, token, nil
}

func (s *UserService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Invalid("Name cannot be empty", "name is required")
		}
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*in.ProfileImage)
	}
	if in.Theme != nil {
		theme, err := parseTheme(*in.Theme)
		if err != nil {
			return nil, err
		}
		user.Theme = theme
	}
	if in.NewsletterSubscription != nil {
		user.NewsletterSubscription = *in.NewsletterSubscription
	}
	return s.save(ctx, user)
}

func parseTheme(v string) (models.Theme, error) {
	switch t := models.Theme(strings.TrimSpace(v)); t {
	case models.ThemeLight, models.ThemeDark:
		return t, nil
	}
	return "", apperr.Invalid("Theme must be light or dark", "theme must be one of light, dark")
}

func (s *UserService) save(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = s.now()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, storeErr(err, "User")
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	if current == "" || next == "" {
		return apperr.Invalid("Please provide current and new password")
	}
	if len(next) < minPasswordLength {
		return apperr.ErrWeakPassword
	}
	user, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	ok, err := auth.VerifyPassword(current, user.Password)
	if err != nil && !errors.Is(err, auth.ErrInvalidHash) {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Unauthorized(apperr.CodeInvalidCredentials, "Current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return apperr.Internal(err)
	}
	user.Password = hash
	_, err = s.save(ctx, user)
	return err
}

// DeleteAccount removes the caller's own document, addresses included.
// Contacts, leads and tasks are left in place.
func (s *UserService) DeleteAccount(ctx context.Context, id primitive.ObjectID) error {
	return storeErr(s.users.Delete(ctx, id), "User")
}

func (s *UserService) RefreshToken(ctx context.Context, id primitive.ObjectID) (string, error) {
	if _, err := s.Profile(ctx, id); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(id.Hex())
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

func (s *UserService) TouchLastSync(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user.LastSync = &now
	return s.save(ctx, user)
}

// UploadProfileImage stores the image and saves its URL on the profile.
func (s *UserService) UploadProfileImage(ctx context.Context, id primitive.ObjectID, file io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, &apperr.Error{Kind: apperr.KindInternal, Code: apperr.CodeServiceUnavailable, Message: "File upload service not available"}
	}
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.UploadImage(ctx, file, ProfileImageFolder, id.Hex())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user.ProfileImage = url
	return s.save(ctx, user)
}

func (s *UserService) ListAddresses(ctx context.Context, id primitive.ObjectID) ([]models.Address, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

func (s *UserService) AddAddress(ctx context.Context, id primitive.ObjectID, in AddressInput) ([]models.Address, error) {
	return s.mutateAddresses(ctx, id, func(list []models.Address) ([]models.Address, error) {
		out, _, err := appendAddress(list, in)
		return out, err
	})
}

func (s *UserService) UpdateAddress(ctx context.Context, id primitive.ObjectID, addressID string, p AddressPatch) ([]models.Address, error) {
	aid, err := ParseID(addressID)
	if err != nil {
		return nil, err
	}
	return s.mutateAddresses(ctx, id, func(list []models.Address) ([]models.Address, error) {
		return patchAddress(list, aid, p)
	})
}

func (s *UserService) DeleteAddress(ctx context.Context, id primitive.ObjectID, addressID string) ([]models.Address, error) {
	aid, err := ParseID(addressID)
	if err != nil {
		return nil, err
	}
	return s.mutateAddresses(ctx, id, func(list []models.Address) ([]models.Address, error) {
		return removeAddress(list, aid)
	})
}

func (s *UserService) SetDefaultAddress(ctx context.Context, id primitive.ObjectID, addressID string) ([]models.Address, error) {
	aid, err := ParseID(addressID)
	if err != nil {
		return nil, err
	}
	return s.mutateAddresses(ctx, id, func(list []models.Address) ([]models.Address, error) {
		return markDefaultAddress(list, aid)
	})
}

// mutateAddresses loads the user, applies fn and saves only on success.
func (s *UserService) mutateAddresses(ctx context.Context, id primitive.ObjectID, fn func([]models.Address) ([]models.Address, error)) ([]models.Address, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(user.Addresses)
	if err != nil {
		return nil, err
	}
	user.Addresses = next
	if _, err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int64) (*UserPage, error) {
	p := NewPage(page, limit, 10, 100)
	users, total, err := s.users.List(ctx, p.Skip(), p.Limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &UserPage{Users: users, Total: total, Page: p.Page, Pages: p.Pages(total), Limit: p.Limit}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	uid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, uid)
}

// UpdateUser applies an admin override. Callers may not deactivate or
// change the role of their own account.
func (s *UserService) UpdateUser(ctx context.Context, caller primitive.ObjectID, id string, in AdminUserUpdate) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == caller {
		if in.IsActive != nil && !*in.IsActive {
			return nil, apperr.ErrSelfModification
		}
		if in.Role != nil && models.Role(*in.Role) != user.Role {
			return nil, apperr.ErrSelfModification
		}
	}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			user.Name = name
		}
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*in.ProfileImage)
	}
	if in.Theme != nil {
		theme, err := parseTheme(*in.Theme)
		if err != nil {
			return nil, err
		}
		user.Theme = theme
	}
	if in.Role != nil {
		switch r := models.Role(*in.Role); r {
		case models.RoleUser, models.RoleAdmin:
			user.Role = r
		default:
			return nil, apperr.Invalid("Role must be user or admin", "role must be one of user, admin")
		}
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.EmailVerified != nil {
		user.EmailVerified = *in.EmailVerified
	}
	if in.NewsletterSubscription != nil {
		user.NewsletterSubscription = *in.NewsletterSubscription
	}
	return s.save(ctx, user)
}

func (s *UserService) DeleteUser(ctx context.Context, caller primitive.ObjectID, id string) error {
	uid, err := ParseID(id)
	if err != nil {
		return err
	}
	if uid == caller {
		return apperr.ErrSelfModification
	}
	return storeErr(s.users.Delete(ctx, uid), "User")
}

// ToggleActive flips the target's active flag.
func (s *UserService) ToggleActive(ctx context.Context, caller primitive.ObjectID, id string) (*models.User, error) {
	uid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if uid == caller {
		return nil, apperr.ErrSelfModification
	}
	user, err := s.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	return s.save(ctx, user)
}

func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	stats, err := s.users.Stats(ctx, store.StartOfDay(s.now()))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}
