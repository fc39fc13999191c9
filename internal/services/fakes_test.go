package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeUsers struct {
	byID    map[primitive.ObjectID]models.User
	saveErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[primitive.ObjectID]models.User{}}
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Addresses = cloneAddresses(u.Addresses)
	return &u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == strings.ToLower(email) {
			u.Addresses = cloneAddresses(u.Addresses)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) Insert(_ context.Context, u *models.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) Save(_ context.Context, u *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.byID[u.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *u
	cp.Addresses = cloneAddresses(u.Addresses)
	f.byID[u.ID] = cp
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, skip, limit int64) ([]models.User, int64, error) {
	all := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		all = append(all, u)
	}
	total := int64(len(all))
	if skip >= total {
		return []models.User{}, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return all[skip:end], total, nil
}

func (f *fakeUsers) Stats(_ context.Context, dayStart time.Time) (*models.UserStats, error) {
	var s models.UserStats
	for _, u := range f.byID {
		s.TotalUsers++
		if u.Role == models.RoleAdmin {
			s.TotalAdmins++
		}
		if u.IsActive {
			s.TotalActiveUsers++
		}
		if !u.CreatedAt.Before(dayStart) {
			s.NewUsersToday++
		}
	}
	return &s, nil
}

// fakeContacts keeps every contact, soft-deleted ones included, so tests
// can inspect storage directly.
type fakeContacts struct {
	items []models.Contact
}

func (f *fakeContacts) live(owner primitive.ObjectID) []models.Contact {
	out := []models.Contact{}
	for _, c := range f.items {
		if c.OwnerID == owner && !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeContacts) Find(_ context.Context, q store.ContactQuery) ([]models.Contact, int64, error) {
	all := f.live(q.OwnerID)
	total := int64(len(all))
	if q.Limit == 0 {
		return all, total, nil
	}
	if q.Skip >= total {
		return []models.Contact{}, total, nil
	}
	end := q.Skip + q.Limit
	if end > total {
		end = total
	}
	return all[q.Skip:end], total, nil
}

func (f *fakeContacts) Get(_ context.Context, owner, id primitive.ObjectID) (*models.Contact, error) {
	for _, c := range f.live(owner) {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeContacts) EmailInUse(_ context.Context, owner primitive.ObjectID, email string, exclude primitive.ObjectID) (bool, error) {
	for _, c := range f.live(owner) {
		if c.ID != exclude && strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContacts) Insert(_ context.Context, c *models.Contact) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeContacts) Save(_ context.Context, c *models.Contact) error {
	for i := range f.items {
		if f.items[i].ID == c.ID && f.items[i].OwnerID == c.OwnerID {
			f.items[i] = *c
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeContacts) Stats(_ context.Context, owner primitive.ObjectID, _ time.Time) (*models.ContactStats, error) {
	return &models.ContactStats{Total: int64(len(f.live(owner))), BySource: map[string]int64{}}, nil
}

func (f *fakeContacts) TagStats(context.Context, primitive.ObjectID, int64) ([]models.TagCount, error) {
	return []models.TagCount{}, nil
}

func (f *fakeContacts) Distinct(_ context.Context, owner primitive.ObjectID, field string) ([]string, error) {
	seen := map[string]bool{}
	for _, c := range f.live(owner) {
		switch field {
		case "company":
			seen[c.Company] = true
		case "tags":
			for _, t := range c.Tags {
				seen[t] = true
			}
		}
	}
	out := []string{}
	for v := range seen {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeLeads struct {
	items []models.Lead
}

func (f *fakeLeads) index(id primitive.ObjectID) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeLeads) Find(_ context.Context, q store.LeadQuery) ([]models.Lead, int64, error) {
	out := []models.Lead{}
	for _, l := range f.items {
		if q.AssignedTo != nil && (l.AssignedTo == nil || *l.AssignedTo != *q.AssignedTo) {
			continue
		}
		if q.Status != "" && string(l.Status) != q.Status {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeLeads) Get(_ context.Context, id primitive.ObjectID) (*models.Lead, error) {
	if i := f.index(id); i >= 0 {
		l := f.items[i]
		return &l, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeLeads) EmailInUse(_ context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	for _, l := range f.items {
		if l.ID != exclude && strings.EqualFold(l.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeads) Insert(_ context.Context, l *models.Lead) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	f.items = append(f.items, *l)
	return nil
}

func (f *fakeLeads) Save(_ context.Context, l *models.Lead) error {
	i := f.index(l.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	f.items[i] = *l
	return nil
}

func (f *fakeLeads) Delete(_ context.Context, id primitive.ObjectID) error {
	i := f.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

func (f *fakeLeads) AppendNote(_ context.Context, id primitive.ObjectID, note models.Note, status models.LeadStatus) (*models.Lead, error) {
	i := f.index(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	l := &f.items[i]
	l.Notes = append(l.Notes, note)
	at := note.CreatedAt
	l.LastContacted = &at
	l.UpdatedAt = at
	if status != "" {
		l.Status = status
	}
	out := *l
	return &out, nil
}

func (f *fakeLeads) SetStatus(_ context.Context, id primitive.ObjectID, status models.LeadStatus, now time.Time) (*models.Lead, error) {
	i := f.index(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	f.items[i].Status = status
	f.items[i].UpdatedAt = now
	out := f.items[i]
	return &out, nil
}

func (f *fakeLeads) BulkUpdate(_ context.Context, ids []primitive.ObjectID, fields store.LeadBulkFields, now time.Time) (int64, int64, error) {
	var matched int64
	for _, id := range ids {
		i := f.index(id)
		if i < 0 {
			continue
		}
		matched++
		if fields.Status != nil {
			f.items[i].Status = *fields.Status
		}
		if fields.Priority != nil {
			f.items[i].Priority = *fields.Priority
		}
		if fields.Source != nil {
			f.items[i].Source = *fields.Source
		}
		if fields.AssignedTo != nil {
			a := *fields.AssignedTo
			f.items[i].AssignedTo = &a
		}
		f.items[i].UpdatedAt = now
	}
	return matched, matched, nil
}

func (f *fakeLeads) Facets(context.Context) (*models.LeadFacets, error) {
	by := map[string]int64{}
	for _, l := range f.items {
		by[string(l.Status)]++
	}
	return &models.LeadFacets{Statuses: []string{}, Sources: []string{}, Priorities: []string{}, ByStatus: by}, nil
}

func (f *fakeLeads) Stats(context.Context, time.Time) (*models.LeadStats, error) {
	s := &models.LeadStats{
		ByStatus:   map[string]int64{},
		BySource:   map[string]int64{},
		ByPriority: map[string]int64{},
		ByMonth:    []models.MonthCount{},
	}
	for _, l := range f.items {
		s.TotalLeads++
		s.ByStatus[string(l.Status)]++
	}
	return s, nil
}

type fakeTasks struct {
	items []models.Task
}

func (f *fakeTasks) index(owner, id primitive.ObjectID) int {
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == owner {
			return i
		}
	}
	return -1
}

func (f *fakeTasks) Find(_ context.Context, q store.TaskQuery) ([]models.Task, int64, error) {
	out := []models.Task{}
	for _, t := range f.items {
		if t.UserID != q.UserID {
			continue
		}
		if q.ExcludeStatus != "" && t.Status == q.ExcludeStatus {
			continue
		}
		if len(q.StatusIn) > 0 && !containsStatus(q.StatusIn, t.Status) {
			continue
		}
		if q.DueFrom != nil && t.DueDate.Before(*q.DueFrom) {
			continue
		}
		if q.DueBefore != nil && !t.DueDate.Before(*q.DueBefore) {
			continue
		}
		if q.DueUntil != nil && t.DueDate.After(*q.DueUntil) {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func containsStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fakeTasks) Get(_ context.Context, owner, id primitive.ObjectID) (*models.Task, error) {
	if i := f.index(owner, id); i >= 0 {
		t := f.items[i]
		return &t, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeTasks) Insert(_ context.Context, t *models.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	f.items = append(f.items, *t)
	return nil
}

func (f *fakeTasks) Save(_ context.Context, t *models.Task) error {
	i := f.index(t.UserID, t.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	f.items[i] = *t
	return nil
}

func (f *fakeTasks) Delete(_ context.Context, owner, id primitive.ObjectID) error {
	i := f.index(owner, id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

func (f *fakeTasks) BulkSetStatus(_ context.Context, owner primitive.ObjectID, ids []primitive.ObjectID, status models.TaskStatus, now time.Time) (int64, int64, error) {
	var matched int64
	for _, id := range ids {
		i := f.index(owner, id)
		if i < 0 {
			continue
		}
		matched++
		t := &f.items[i]
		switch {
		case status == models.TaskCompleted && t.Status != models.TaskCompleted:
			at := now
			t.CompletedAt = &at
		case status != models.TaskCompleted:
			t.CompletedAt = nil
		}
		t.Status = status
		t.LastModified = now
	}
	return matched, matched, nil
}

func (f *fakeTasks) Stats(context.Context, primitive.ObjectID, time.Time, time.Time, time.Time) (*models.TaskStats, error) {
	return &models.TaskStats{StatusStats: map[string]int64{}, PriorityStats: map[string]int64{}}, nil
}

type fakeFeed struct {
	recorded []models.Activity
}

func (f *fakeFeed) Record(_ context.Context, a models.Activity) error {
	f.recorded = append(f.recorded, a)
	return nil
}

func (f *fakeFeed) Recent(_ context.Context, _ string, limit int) ([]models.Activity, error) {
	if limit < len(f.recorded) {
		return f.recorded[:limit], nil
	}
	return f.recorded, nil
}

func (f *fakeFeed) Since(_ context.Context, _ string, since time.Time) ([]models.Activity, error) {
	out := []models.Activity{}
	for _, a := range f.recorded {
		if !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }
