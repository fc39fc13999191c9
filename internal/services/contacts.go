package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

const (
	MaxBatchContacts = 100
	maxContactNotes  = 2000
	topTagsLimit     = 20
)

var phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]{10,20}$`)

type ContactRepository interface {
	Find(ctx context.Context, q store.ContactQuery) ([]models.Contact, int64, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Contact, error)
	EmailInUse(ctx context.Context, owner primitive.ObjectID, email string, exclude primitive.ObjectID) (bool, error)
	Insert(ctx context.Context, c *models.Contact) error
	Save(ctx context.Context, c *models.Contact) error
	Stats(ctx context.Context, owner primitive.ObjectID, now time.Time) (*models.ContactStats, error)
	TagStats(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.TagCount, error)
	Distinct(ctx context.Context, owner primitive.ObjectID, field string) ([]string, error)
}

// ContactFields is the set of fields a caller may write. Anything else in
// the request body is ignored.
type ContactFields struct {
	FirstName     *string                `json:"firstName"`
	LastName      *string                `json:"lastName"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	Company       *string                `json:"company"`
	JobTitle      *string                `json:"jobTitle"`
	Address       *models.ContactAddress `json:"address"`
	Tags          []string               `json:"tags"`
	Notes         *string                `json:"notes"`
	Source        *string                `json:"source"`
	IsFavorite    *bool                  `json:"isFavorite"`
	LastContacted *time.Time             `json:"lastContacted"`
}

// ContactSyncItem is one entry of a batch sync. Items with an ID are
// updated in place when they exist.
type ContactSyncItem struct {
	ID string `json:"_id"`
	ContactFields
}

type ContactListParams struct {
	Search   string
	Company  string
	Tag      string
	Source   string
	Favorite *bool
	Sort     string
	Page     int64
	Limit    int64
}

type ContactPagination struct {
	Total   int64 `json:"total"`
	Page    int64 `json:"page"`
	Limit   int64 `json:"limit"`
	Pages   int64 `json:"pages"`
	HasMore bool  `json:"hasMore"`
}

type ContactPage struct {
	Contacts   []models.Contact  `json:"contacts"`
	Pagination ContactPagination `json:"pagination"`
}

type SyncError struct {
	Contact string `json:"contact"`
	Error   string `json:"error"`
}

type SyncSummary struct {
	TotalProcessed int `json:"totalProcessed"`
	Successful     int `json:"successful"`
	Failed         int `json:"failed"`
}

type SyncReport struct {
	Created []models.Contact `json:"created"`
	Updated []models.Contact `json:"updated"`
	Errors  []SyncError      `json:"errors"`
	Summary SyncSummary      `json:"summary"`
}

type ContactService struct {
	contacts ContactRepository
	activity activityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewContactService(contacts ContactRepository, feed ActivityFeed, log *zap.Logger) *ContactService {
	return &ContactService{
		contacts: contacts,
		activity: activityRecorder{feed: feed, log: log},
		log:      log,
		now:      utcNow,
	}
}

func (s *ContactService) List(ctx context.Context, owner primitive.ObjectID, p ContactListParams) (*ContactPage, error) {
	page := NewPage(p.Page, p.Limit, 20, 100)
	contacts, total, err := s.contacts.Find(ctx, store.ContactQuery{
		OwnerID:  owner,
		Search:   p.Search,
		Company:  p.Company,
		Tag:      p.Tag,
		Source:   p.Source,
		Favorite: p.Favorite,
		Sort:     p.Sort,
		Skip:     page.Skip(),
		Limit:    page.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ContactPage{
		Contacts: contacts,
		Pagination: ContactPagination{
			Total:   total,
			Page:    page.Page,
			Limit:   page.Limit,
			Pages:   page.Pages(total),
			HasMore: page.Page*page.Limit < total,
		},
	}, nil
}

func (s *ContactService) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.Contact, error) {
	cid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.contacts.Get(ctx, owner, cid)
	if err != nil {
		return nil, storeErr(err, "Contact")
	}
	return c, nil
}

func (s *ContactService) Create(ctx context.Context, owner primitive.ObjectID, in ContactFields) (*models.Contact, error) {
	now := s.now()
	c := &models.Contact{
		OwnerID:      owner,
		Tags:         []string{},
		Source:       models.ContactSourceOther,
		CreatedAt:    now,
		LastModified: now,
	}
	if in.FirstName == nil {
		return nil, apperr.Invalid("First name is required", "firstName is required")
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.contacts.Insert(ctx, c); err != nil {
		return nil, storeErr(err, "Contact")
	}
	s.activity.record(ctx, owner, models.ActivityContactAdded, "contact", c.ID, "Contact created: "+c.FullName())
	return c, nil
}

func (s *ContactService) Update(ctx context.Context, owner primitive.ObjectID, id string, in ContactFields) (*models.Contact, error) {
	c, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, c, in)
}

func (s *ContactService) update(ctx context.Context, c *models.Contact, in ContactFields) (*models.Contact, error) {
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	c.LastModified = s.now()
	if err := s.contacts.Save(ctx, c); err != nil {
		return nil, storeErr(err, "Contact")
	}
	return c, nil
}

// apply validates in and merges it into c. Nothing is written when it
// fails.
func (s *ContactService) apply(ctx context.Context, c *models.Contact, in ContactFields) error {
	next := *c
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if len([]rune(name)) < 2 {
			return apperr.Invalid("First name must be at least 2 characters", "firstName must be at least 2 characters")
		}
		next.FirstName = name
	}
	if in.LastName != nil {
		next.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Company != nil {
		next.Company = strings.TrimSpace(*in.Company)
	}
	if in.JobTitle != nil {
		next.JobTitle = strings.TrimSpace(*in.JobTitle)
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return apperr.Invalid("Please provide a valid phone number", "phone must be a valid phone number")
		}
		next.Phone = phone
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		if len([]rune(notes)) > maxContactNotes {
			return apperr.Invalid("Notes cannot exceed 2000 characters", "notes must be at most 2000 characters")
		}
		next.Notes = notes
	}
	if in.Source != nil {
		src := models.ContactSource(strings.TrimSpace(*in.Source))
		if src == "" {
			src = models.ContactSourceOther
		}
		if !models.ValidContactSource(src) {
			return apperr.Invalid("Invalid contact source", "source must be one of website, referral, social, event, other")
		}
		next.Source = src
	}
	if in.Address != nil {
		addr := models.ContactAddress{
			Street:  strings.TrimSpace(in.Address.Street),
			City:    strings.TrimSpace(in.Address.City),
			State:   strings.TrimSpace(in.Address.State),
			ZipCode: strings.TrimSpace(in.Address.ZipCode),
			Country: strings.TrimSpace(in.Address.Country),
		}
		next.Address = &addr
	}
	if in.Tags != nil {
		next.Tags = normalizeTags(in.Tags)
	}
	if in.IsFavorite != nil {
		next.IsFavorite = *in.IsFavorite
	}
	if in.LastContacted != nil {
		t := in.LastContacted.UTC()
		next.LastContacted = &t
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != "" {
			if !validEmail(email) {
				return apperr.Invalid("Please provide a valid email", "email must be a valid email")
			}
			if email != c.Email || c.ID.IsZero() {
				taken, err := s.contacts.EmailInUse(ctx, c.OwnerID, email, c.ID)
				if err != nil {
					return apperr.Internal(err)
				}
				if taken {
					return apperr.Duplicate("Contact with this email already exists")
				}
			}
		}
		next.Email = email
	}
	*c = next
	return nil
}

// ToggleFavorite flips the favorite flag.
func (s *ContactService) ToggleFavorite(ctx context.Context, owner primitive.ObjectID, id string) (*models.Contact, error) {
	c, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	c.IsFavorite = !c.IsFavorite
	c.LastModified = s.now()
	if err := s.contacts.Save(ctx, c); err != nil {
		return nil, storeErr(err, "Contact")
	}
	return c, nil
}

// SoftDelete hides the contact from every read. Tasks and leads that
// reference it keep the reference.
func (s *ContactService) SoftDelete(ctx context.Context, owner primitive.ObjectID, id string) error {
	c, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	c.IsDeleted = true
	c.LastModified = s.now()
	return storeErr(s.contacts.Save(ctx, c), "Contact")
}

// BatchSync processes items in order so each duplicate-email check sees
// the items written before it. One item's failure never stops the rest.
func (s *ContactService) BatchSync(ctx context.Context, owner primitive.ObjectID, items []ContactSyncItem) (*SyncReport, error) {
	if len(items) == 0 {
		return nil, apperr.Invalid("Please provide an array of contacts")
	}
	if len(items) > MaxBatchContacts {
		return nil, apperr.Validation(apperr.CodeBatchTooLarge, "Maximum 100 contacts allowed per batch")
	}

	report := &SyncReport{
		Created: []models.Contact{},
		Updated: []models.Contact{},
		Errors:  []SyncError{},
	}
	for _, item := range items {
		created, c, err := s.syncOne(ctx, owner, item)
		switch {
		case err != nil:
			report.Errors = append(report.Errors, SyncError{Contact: syncLabel(item), Error: errorMessage(err)})
		case created:
			report.Created = append(report.Created, *c)
		default:
			report.Updated = append(report.Updated, *c)
		}
	}
	report.Summary = SyncSummary{
		TotalProcessed: len(items),
		Successful:     len(report.Created) + len(report.Updated),
		Failed:         len(report.Errors),
	}
	return report, nil
}

func (s *ContactService) syncOne(ctx context.Context, owner primitive.ObjectID, item ContactSyncItem) (bool, *models.Contact, error) {
	if strings.TrimSpace(item.ID) != "" {
		existing, err := s.Get(ctx, owner, item.ID)
		if err == nil {
			c, err := s.update(ctx, existing, item.ContactFields)
			return false, c, err
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return false, nil, err
		}
	}
	c, err := s.Create(ctx, owner, item.ContactFields)
	return true, c, err
}

func syncLabel(item ContactSyncItem) string {
	if e := trimPtr(item.Email); e != "" {
		return e
	}
	if n := trimPtr(item.FirstName); n != "" {
		return n
	}
	return "Unknown contact"
}

func errorMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func (s *ContactService) Stats(ctx context.Context, owner primitive.ObjectID) (*models.ContactStats, error) {
	stats, err := s.contacts.Stats(ctx, owner, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}

func (s *ContactService) TagStats(ctx context.Context, owner primitive.ObjectID) ([]models.TagCount, error) {
	tags, err := s.contacts.TagStats(ctx, owner, topTagsLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return tags, nil
}

func (s *ContactService) Companies(ctx context.Context, owner primitive.ObjectID) ([]string, error) {
	return s.distinct(ctx, owner, "company")
}

func (s *ContactService) Tags(ctx context.Context, owner primitive.ObjectID) ([]string, error) {
	return s.distinct(ctx, owner, "tags")
}

func (s *ContactService) distinct(ctx context.Context, owner primitive.ObjectID, field string) ([]string, error) {
	values, err := s.contacts.Distinct(ctx, owner, field)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return values, nil
}

// All returns every live contact of the owner, oldest first, for export.
func (s *ContactService) All(ctx context.Context, owner primitive.ObjectID) ([]models.Contact, error) {
	contacts, _, err := s.contacts.Find(ctx, store.ContactQuery{OwnerID: owner, Sort: "createdAt"})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return contacts, nil
}
