package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

const (
	minTaskTitle       = 3
	maxTaskTitle       = 200
	maxTaskDescription = 1000
	upcomingDays       = 7
)

type TaskRepository interface {
	Find(ctx context.Context, q store.TaskQuery) ([]models.Task, int64, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Task, error)
	Insert(ctx context.Context, t *models.Task) error
	Save(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, owner, id primitive.ObjectID) error
	BulkSetStatus(ctx context.Context, owner primitive.ObjectID, ids []primitive.ObjectID, status models.TaskStatus, now time.Time) (int64, int64, error)
	Stats(ctx context.Context, owner primitive.ObjectID, dayStart, dayEnd, now time.Time) (*models.TaskStats, error)
}

type TaskFields struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"dueDate"`
	ReminderDate *time.Time `json:"reminderDate"`
	Priority     *string    `json:"priority"`
	Status       *string    `json:"status"`
	ContactID    *string    `json:"contactId"`
	LeadID       *string    `json:"leadId"`

	// ClearReminder removes the reminder. ReminderDate wins when both are set.
	ClearReminder bool `json:"-"`
}

type TaskListParams struct {
	Status   string
	Priority string
	Search   string
	Page     int64
	Limit    int64
}

type TaskPage struct {
	Tasks      []models.Task  `json:"tasks"`
	Pagination LeadPagination `json:"pagination"`
}

type TaskService struct {
	tasks    TaskRepository
	activity activityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewTaskService(tasks TaskRepository, feed ActivityFeed, log *zap.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		activity: activityRecorder{feed: feed, log: log},
		log:      log,
		now:      utcNow,
	}
}

func (s *TaskService) List(ctx context.Context, owner primitive.ObjectID, p TaskListParams) (*TaskPage, error) {
	page := NewPage(p.Page, p.Limit, 10, 100)
	tasks, total, err := s.tasks.Find(ctx, store.TaskQuery{
		UserID:   owner,
		Status:   p.Status,
		Priority: p.Priority,
		Search:   p.Search,
		Skip:     page.Skip(),
		Limit:    page.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &TaskPage{
		Tasks: tasks,
		Pagination: LeadPagination{
			CurrentPage:  page.Page,
			TotalPages:   page.Pages(total),
			TotalItems:   total,
			ItemsPerPage: page.Limit,
		},
	}, nil
}

func (s *TaskService) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.Task, error) {
	tid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.Get(ctx, owner, tid)
	if err != nil {
		return nil, storeErr(err, "Task")
	}
	return t, nil
}

// Create requires a title and a due date that is not before today.
func (s *TaskService) Create(ctx context.Context, owner primitive.ObjectID, in TaskFields) (*models.Task, error) {
	if in.Title == nil || in.DueDate == nil {
		return nil, apperr.Invalid("Please provide title and due date", "title is required", "dueDate is required")
	}
	now := s.now()
	t := &models.Task{
		UserID:       owner,
		Priority:     models.PriorityMedium,
		Status:       models.TaskPending,
		CreatedAt:    now,
		LastModified: now,
	}
	if err := s.apply(t, in, true); err != nil {
		return nil, err
	}
	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, storeErr(err, "Task")
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, owner primitive.ObjectID, id string, in TaskFields) (*models.Task, error) {
	t, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := t.Status == models.TaskCompleted
	if err := s.apply(t, in, false); err != nil {
		return nil, err
	}
	t.LastModified = s.now()
	if err := s.tasks.Save(ctx, t); err != nil {
		return nil, storeErr(err, "Task")
	}
	if !wasCompleted && t.Status == models.TaskCompleted {
		s.activity.record(ctx, owner, models.ActivityTaskCompleted, "task", t.ID, "Task completed: "+t.Title)
	}
	return t, nil
}

// apply validates in and merges it into t. The due date floor only
// applies when the due date is being set.
func (s *TaskService) apply(t *models.Task, in TaskFields, creating bool) error {
	next := *t
	now := s.now()

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if n := len([]rune(title)); n < minTaskTitle || n > maxTaskTitle {
			return apperr.Invalid("Title must be between 3 and 200 characters", "title must be between 3 and 200 characters")
		}
		next.Title = title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if len([]rune(desc)) > maxTaskDescription {
			return apperr.Invalid("Description cannot exceed 1000 characters", "description must be at most 1000 characters")
		}
		next.Description = desc
	}
	if in.Priority != nil {
		p, err := parsePriority(*in.Priority)
		if err != nil {
			return err
		}
		next.Priority = p
	}
	if in.Status != nil {
		st := models.TaskStatus(strings.TrimSpace(*in.Status))
		if !models.ValidTaskStatus(st) {
			return apperr.Invalid("Invalid task status", "status must be one of pending, in_progress, completed, cancelled")
		}
		next.Status = st
	}
	if in.ContactID != nil {
		id, err := optionalID(in.ContactID)
		if err != nil {
			return err
		}
		next.ContactID = id
	}
	if in.LeadID != nil {
		id, err := optionalID(in.LeadID)
		if err != nil {
			return err
		}
		next.LeadID = id
	}

	if in.DueDate != nil {
		due := in.DueDate.UTC()
		if store.StartOfDay(due).Before(store.StartOfDay(now)) {
			return apperr.ErrInvalidDueDate
		}
		next.DueDate = due
	}
	switch {
	case in.ReminderDate != nil:
		r := in.ReminderDate.UTC()
		next.ReminderDate = &r
		next.IsReminderSent = false
	case in.ClearReminder:
		next.ReminderDate = nil
		next.IsReminderSent = false
	}
	if (creating || in.DueDate != nil || in.ReminderDate != nil) && next.ReminderDate != nil {
		if !next.ReminderDate.Before(next.DueDate) {
			return apperr.ErrInvalidReminder
		}
	}

	switch {
	case next.Status == models.TaskCompleted && t.Status != models.TaskCompleted:
		next.CompletedAt = &now
	case next.Status != models.TaskCompleted:
		next.CompletedAt = nil
	}

	*t = next
	return nil
}

func (s *TaskService) Delete(ctx context.Context, owner primitive.ObjectID, id string) error {
	tid, err := ParseID(id)
	if err != nil {
		return err
	}
	return storeErr(s.tasks.Delete(ctx, owner, tid), "Task")
}

// BulkStatus validates every id before writing anything, then applies the
// status in a single write.
func (s *TaskService) BulkStatus(ctx context.Context, owner primitive.ObjectID, ids []string, status string) (*BulkResult, error) {
	oids, err := ParseIDs(ids)
	if err != nil {
		return nil, err
	}
	st := models.TaskStatus(strings.TrimSpace(status))
	if !models.ValidTaskStatus(st) {
		return nil, apperr.Invalid("Invalid task status", "status must be one of pending, in_progress, completed, cancelled")
	}
	matched, modified, err := s.tasks.BulkSetStatus(ctx, owner, oids, st, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &BulkResult{Matched: matched, Modified: modified}, nil
}

// Today returns tasks due today that are not completed, highest priority
// first.
func (s *TaskService) Today(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	start := store.StartOfDay(s.now())
	end := start.AddDate(0, 0, 1)
	tasks, _, err := s.tasks.Find(ctx, store.TaskQuery{
		UserID:        owner,
		ExcludeStatus: models.TaskCompleted,
		DueFrom:       &start,
		DueBefore:     &end,
		Order:         store.TaskOrderDueAsc,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})
	return tasks, nil
}

func (s *TaskService) Overdue(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	now := s.now()
	tasks, _, err := s.tasks.Find(ctx, store.TaskQuery{
		UserID:    owner,
		StatusIn:  store.OpenTaskStatuses,
		DueBefore: &now,
		Order:     store.TaskOrderDueAsc,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return tasks, nil
}

// Upcoming covers today's midnight through midnight seven days later,
// both ends included.
func (s *TaskService) Upcoming(ctx context.Context, owner primitive.ObjectID) ([]models.Task, error) {
	start := store.StartOfDay(s.now())
	end := start.AddDate(0, 0, upcomingDays)
	tasks, _, err := s.tasks.Find(ctx, store.TaskQuery{
		UserID:   owner,
		StatusIn: store.OpenTaskStatuses,
		DueFrom:  &start,
		DueUntil: &end,
		Order:    store.TaskOrderDueAsc,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return tasks, nil
}

func (s *TaskService) Stats(ctx context.Context, owner primitive.ObjectID) (*models.TaskStats, error) {
	now := s.now()
	start := store.StartOfDay(now)
	stats, err := s.tasks.Stats(ctx, owner, start, start.AddDate(0, 0, 1), now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}
