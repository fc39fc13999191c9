package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

// leadStatsMonths is the number of calendar months, the current one
// included, covered by the monthly breakdown.
const leadStatsMonths = 6

type LeadRepository interface {
	Find(ctx context.Context, q store.LeadQuery) ([]models.Lead, int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Lead, error)
	EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error)
	Insert(ctx context.Context, l *models.Lead) error
	Save(ctx context.Context, l *models.Lead) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AppendNote(ctx context.Context, id primitive.ObjectID, note models.Note, status models.LeadStatus) (*models.Lead, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.LeadStatus, now time.Time) (*models.Lead, error)
	BulkUpdate(ctx context.Context, ids []primitive.ObjectID, fields store.LeadBulkFields, now time.Time) (int64, int64, error)
	Facets(ctx context.Context) (*models.LeadFacets, error)
	Stats(ctx context.Context, since time.Time) (*models.LeadStats, error)
}

// LeadFields is the allow-list of writable lead fields.
type LeadFields struct {
	FirstName    *string                `json:"firstName"`
	LastName     *string                `json:"lastName"`
	Email        *string                `json:"email"`
	Phone        *string                `json:"phone"`
	Company      *string                `json:"company"`
	JobTitle     *string                `json:"jobTitle"`
	Source       *string                `json:"source"`
	Status       *string                `json:"status"`
	Priority     *string                `json:"priority"`
	Value        *float64               `json:"value"`
	Budget       *float64               `json:"budget"`
	AssignedTo   *string                `json:"assignedTo"`
	NextFollowUp *time.Time             `json:"nextFollowUp"`
	CustomFields map[string]interface{} `json:"customFields"`
}

// LeadBulkInput carries the only fields bulk update may assign.
type LeadBulkInput struct {
	Status     *string `json:"status"`
	AssignedTo *string `json:"assignedTo"`
	Priority   *string `json:"priority"`
	Source     *string `json:"source"`
}

type LeadListParams struct {
	Status     string
	Source     string
	Priority   string
	AssignedTo string
	Search     string
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortOrder  string
	Page       int64
	Limit      int64
}

type LeadPagination struct {
	CurrentPage  int64 `json:"currentPage"`
	TotalPages   int64 `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int64 `json:"itemsPerPage"`
}

type LeadPage struct {
	Leads      []models.Lead      `json:"leads"`
	Pagination LeadPagination     `json:"pagination"`
	Stats      map[string]int64   `json:"stats"`
	Filters    *models.LeadFacets `json:"filters"`
}

type BulkResult struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

type LeadService struct {
	leads    LeadRepository
	activity activityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewLeadService(leads LeadRepository, feed ActivityFeed, log *zap.Logger) *LeadService {
	return &LeadService{
		leads:    leads,
		activity: activityRecorder{feed: feed, log: log},
		log:      log,
		now:      utcNow,
	}
}

// List returns a page of leads plus the status breakdown and distinct
// filter values of the whole collection.
func (s *LeadService) List(ctx context.Context, p LeadListParams) (*LeadPage, error) {
	page := NewPage(p.Page, p.Limit, 10, 100)
	q := store.LeadQuery{
		Status:   p.Status,
		Source:   p.Source,
		Priority: p.Priority,
		Search:   p.Search,
		From:     p.From,
		To:       p.To,
		SortBy:   p.SortBy,
		SortDesc: !strings.EqualFold(p.SortOrder, "asc"),
		Skip:     page.Skip(),
		Limit:    page.Limit,
	}
	if p.AssignedTo != "" {
		id, err := ParseID(p.AssignedTo)
		if err != nil {
			return nil, err
		}
		q.AssignedTo = &id
	}

	var (
		leads  []models.Lead
		total  int64
		facets *models.LeadFacets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, total, err = s.leads.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		facets, err = s.leads.Facets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	return &LeadPage{
		Leads: leads,
		Pagination: LeadPagination{
			CurrentPage:  page.Page,
			TotalPages:   page.Pages(total),
			TotalItems:   total,
			ItemsPerPage: page.Limit,
		},
		Stats:   facets.ByStatus,
		Filters: facets,
	}, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	lid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	l, err := s.leads.Get(ctx, lid)
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	return l, nil
}

func (s *LeadService) Create(ctx context.Context, author primitive.ObjectID, in LeadFields) (*models.Lead, error) {
	if trimPtr(in.FirstName) == "" || trimPtr(in.Email) == "" {
		return nil, apperr.Invalid("Please provide first name and email", "firstName is required", "email is required")
	}
	now := s.now()
	l := &models.Lead{
		Source:    models.LeadSourceWebsite,
		Status:    models.LeadNew,
		Priority:  models.PriorityMedium,
		Notes:     []models.Note{},
		CreatedBy: author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, l, in); err != nil {
		return nil, err
	}
	if err := s.leads.Insert(ctx, l); err != nil {
		return nil, storeErr(err, "Lead")
	}
	s.activity.record(ctx, author, models.ActivityLeadCreated, "lead", l.ID,
		fmt.Sprintf("Lead created: %s %s", l.FirstName, l.LastName))
	return l, nil
}

func (s *LeadService) Update(ctx context.Context, id string, in LeadFields) (*models.Lead, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, l, in); err != nil {
		return nil, err
	}
	l.UpdatedAt = s.now()
	if err := s.leads.Save(ctx, l); err != nil {
		return nil, storeErr(err, "Lead")
	}
	return l, nil
}

func (s *LeadService) apply(ctx context.Context, l *models.Lead, in LeadFields) error {
	next := *l
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if name == "" {
			return apperr.Invalid("First name is required", "firstName is required")
		}
		next.FirstName = name
	}
	if in.LastName != nil {
		next.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		next.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Company != nil {
		next.Company = strings.TrimSpace(*in.Company)
	}
	if in.JobTitle != nil {
		next.JobTitle = strings.TrimSpace(*in.JobTitle)
	}
	if in.Source != nil {
		src, err := parseLeadSource(*in.Source)
		if err != nil {
			return err
		}
		next.Source = src
	}
	if in.Status != nil {
		st, err := parseLeadStatus(*in.Status)
		if err != nil {
			return err
		}
		next.Status = st
	}
	if in.Priority != nil {
		pr, err := parsePriority(*in.Priority)
		if err != nil {
			return err
		}
		next.Priority = pr
	}
	if in.Value != nil {
		next.Value = *in.Value
	}
	if in.Budget != nil {
		if *in.Budget < 0 {
			return apperr.Invalid("Budget cannot be negative", "budget must be at least 0")
		}
		next.Budget = *in.Budget
	}
	if in.AssignedTo != nil {
		id, err := optionalID(in.AssignedTo)
		if err != nil {
			return err
		}
		next.AssignedTo = id
	}
	if in.NextFollowUp != nil {
		t := in.NextFollowUp.UTC()
		next.NextFollowUp = &t
	}
	if in.CustomFields != nil {
		next.CustomFields = in.CustomFields
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validEmail(email) {
			return apperr.Invalid("Please provide a valid email", "email must be a valid email")
		}
		if email != l.Email || l.ID.IsZero() {
			taken, err := s.leads.EmailInUse(ctx, email, l.ID)
			if err != nil {
				return apperr.Internal(err)
			}
			if taken {
				return apperr.Duplicate("Lead with this email already exists")
			}
		}
		next.Email = email
	}
	*l = next
	return nil
}

func parseLeadStatus(v string) (models.LeadStatus, error) {
	st := models.LeadStatus(strings.TrimSpace(v))
	if !models.ValidLeadStatus(st) {
		return "", apperr.Invalid("Invalid lead status", "status must be one of new, contacted, qualified, proposal, negotiation, closed_won, closed_lost")
	}
	return st, nil
}

func parseLeadSource(v string) (models.LeadSource, error) {
	src := models.LeadSource(strings.TrimSpace(v))
	if !models.ValidLeadSource(src) {
		return "", apperr.Invalid("Invalid lead source", "source must be one of website, referral, social_media, advertisement, event, other")
	}
	return src, nil
}

func parsePriority(v string) (models.Priority, error) {
	p := models.Priority(strings.TrimSpace(v))
	if p.Rank() == 0 {
		return "", apperr.Invalid("Invalid priority", "priority must be one of low, medium, high, urgent")
	}
	return p, nil
}

func (s *LeadService) Delete(ctx context.Context, id string) error {
	lid, err := ParseID(id)
	if err != nil {
		return err
	}
	return storeErr(s.leads.Delete(ctx, lid), "Lead")
}

// UpdateStatus moves the lead to status. With a note, a system note is
// appended in the same write, which also refreshes lastContacted.
func (s *LeadService) UpdateStatus(ctx context.Context, author primitive.ObjectID, id, status, note string) (*models.Lead, error) {
	lid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	st, err := parseLeadStatus(status)
	if err != nil {
		return nil, err
	}

	var l *models.Lead
	if note = strings.TrimSpace(note); note != "" {
		l, err = s.leads.AppendNote(ctx, lid, s.newNote(author, fmt.Sprintf("Status changed to %s: %s", st, note)), st)
	} else {
		l, err = s.leads.SetStatus(ctx, lid, st, s.now())
	}
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	s.activity.record(ctx, author, models.ActivityLeadStatus, "lead", l.ID,
		fmt.Sprintf("Lead %s moved to %s", l.FirstName, st))
	return l, nil
}

func (s *LeadService) AddNote(ctx context.Context, author primitive.ObjectID, id, content string) (*models.Lead, error) {
	lid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Invalid("Note content is required", "content is required")
	}
	l, err := s.leads.AppendNote(ctx, lid, s.newNote(author, content), "")
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	s.activity.record(ctx, author, models.ActivityLeadNote, "lead", l.ID, "Note added to lead "+l.FirstName)
	return l, nil
}

func (s *LeadService) newNote(author primitive.ObjectID, content string) models.Note {
	return models.Note{
		ID:        primitive.NewObjectID(),
		Content:   content,
		CreatedBy: author,
		CreatedAt: s.now(),
	}
}

func (s *LeadService) BulkUpdate(ctx context.Context, ids []string, in LeadBulkInput) (*BulkResult, error) {
	oids, err := ParseIDs(ids)
	if err != nil {
		return nil, err
	}
	var fields store.LeadBulkFields
	if in.Status != nil {
		st, err := parseLeadStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		fields.Status = &st
	}
	if in.Priority != nil {
		p, err := parsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		fields.Priority = &p
	}
	if in.Source != nil {
		src, err := parseLeadSource(*in.Source)
		if err != nil {
			return nil, err
		}
		fields.Source = &src
	}
	if in.AssignedTo != nil {
		id, err := ParseID(*in.AssignedTo)
		if err != nil {
			return nil, err
		}
		fields.AssignedTo = &id
	}
	if fields.Empty() {
		return nil, apperr.Invalid("No valid fields to update")
	}

	matched, modified, err := s.leads.BulkUpdate(ctx, oids, fields, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &BulkResult{Matched: matched, Modified: modified}, nil
}

// Stats summarises the whole pipeline. The conversion rate is closed_won
// over all leads.
func (s *LeadService) Stats(ctx context.Context) (*models.LeadStats, error) {
	now := s.now()
	since := time.Date(now.Year(), now.Month()-(leadStatsMonths-1), 1, 0, 0, 0, 0, time.UTC)
	stats, err := s.leads.Stats(ctx, since)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	stats.ConversionRate = FormatRate(stats.ByStatus[string(models.LeadClosedWon)], stats.TotalLeads, "0.00")
	return stats, nil
}

// MyLeads returns the leads assigned to the caller, most urgent first.
func (s *LeadService) MyLeads(ctx context.Context, caller primitive.ObjectID) ([]models.Lead, error) {
	leads, _, err := s.leads.Find(ctx, store.LeadQuery{AssignedTo: &caller, SortBy: "createdAt", SortDesc: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.SliceStable(leads, func(i, j int) bool {
		ri, rj := leads[i].Priority.Rank(), leads[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
	return leads, nil
}
