package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

func newTestTaskService() (*TaskService, *fakeTasks, *fakeFeed) {
	repo := &fakeTasks{}
	feed := &fakeFeed{}
	svc := NewTaskService(repo, feed, zap.NewNop())
	svc.now = clock(fixedNow)
	return svc, repo, feed
}

func taskInput(title string, due time.Time) TaskFields {
	return TaskFields{Title: strPtr(title), DueDate: timePtr(due)}
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, _ := newTestTaskService()

	task, err := svc.Create(ctx, owner, taskInput("Call Dana", fixedNow.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)

	// earlier today is still a valid due date
	_, err = svc.Create(ctx, owner, taskInput("Morning call", fixedNow.Add(-3*time.Hour)))
	assert.NoError(t, err)
}

func TestCreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()
	due := fixedNow.Add(24 * time.Hour)

	_, err := svc.Create(ctx, owner, TaskFields{Title: strPtr("Call")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, taskInput("ab", due))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, taskInput(strings.Repeat("x", 201), due))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, taskInput("Call Dana", fixedNow.AddDate(0, 0, -1)))
	assert.ErrorIs(t, err, apperr.ErrInvalidDueDate)

	in := taskInput("Call Dana", due)
	in.ReminderDate = timePtr(due)
	_, err = svc.Create(ctx, owner, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidReminder)

	in.ReminderDate = timePtr(due.Add(time.Hour))
	_, err = svc.Create(ctx, owner, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidReminder)

	in = taskInput("Call Dana", due)
	in.LeadID = strPtr("not-hex")
	_, err = svc.Create(ctx, owner, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidID)

	assert.Empty(t, repo.items)
}

func TestUpdateTaskCompletion(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, _, feed := newTestTaskService()

	task, err := svc.Create(ctx, owner, taskInput("Send deck", fixedNow.Add(24*time.Hour)))
	require.NoError(t, err)

	done, err := svc.Update(ctx, owner, task.ID.Hex(), TaskFields{Status: strPtr("completed")})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	require.Len(t, feed.recorded, 1)
	assert.Equal(t, models.ActivityTaskCompleted, feed.recorded[0].Type)

	reopened, err := svc.Update(ctx, owner, task.ID.Hex(), TaskFields{Status: strPtr("in_progress")})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	later := fixedNow.Add(2 * time.Hour)
	svc.now = clock(later)
	again, err := svc.Update(ctx, owner, task.ID.Hex(), TaskFields{Status: strPtr("completed")})
	require.NoError(t, err)
	require.NotNil(t, again.CompletedAt)
	assert.Equal(t, later, *again.CompletedAt)
}

func TestUpdateTaskReminderOnlyCheckedWhenDatesChange(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()

	in := taskInput("Send deck", fixedNow.Add(48*time.Hour))
	in.ReminderDate = timePtr(fixedNow.Add(24 * time.Hour))
	task, err := svc.Create(ctx, owner, in)
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, task.ID.Hex(), TaskFields{DueDate: timePtr(fixedNow.Add(12 * time.Hour))})
	assert.ErrorIs(t, err, apperr.ErrInvalidReminder)
	assert.Equal(t, fixedNow.Add(48*time.Hour), repo.items[0].DueDate)

	repo.items[0].IsReminderSent = true
	updated, err := svc.Update(ctx, owner, task.ID.Hex(), TaskFields{ReminderDate: timePtr(fixedNow.Add(30 * time.Hour))})
	require.NoError(t, err)
	assert.False(t, updated.IsReminderSent)

	_, err = svc.Update(ctx, owner, task.ID.Hex(), TaskFields{Title: strPtr("Send the deck")})
	assert.NoError(t, err)
}

func TestUpdateTaskClearsReminder(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()

	in := taskInput("Send deck", fixedNow.Add(48*time.Hour))
	in.ReminderDate = timePtr(fixedNow.Add(24 * time.Hour))
	task, err := svc.Create(ctx, owner, in)
	require.NoError(t, err)
	repo.items[0].IsReminderSent = true

	cleared, err := svc.Update(ctx, owner, task.ID.Hex(), TaskFields{ClearReminder: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ReminderDate)
	assert.False(t, cleared.IsReminderSent)
	assert.Nil(t, repo.items[0].ReminderDate)

	// A due date earlier than the old reminder is fine once it is gone.
	_, err = svc.Update(ctx, owner, task.ID.Hex(), TaskFields{DueDate: timePtr(fixedNow.Add(12 * time.Hour))})
	assert.NoError(t, err)
}

func TestTasksAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestTaskService()
	owner := primitive.NewObjectID()
	task, err := svc.Create(ctx, owner, taskInput("Private", fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	_, err = svc.Get(ctx, primitive.NewObjectID(), task.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	err = svc.Delete(ctx, primitive.NewObjectID(), task.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestBulkCompleteRemovesFromToday(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()

	dueToday := fixedNow.Add(time.Hour)
	var ids []string
	for _, title := range []string{"One task", "Two task", "Three task"} {
		task, err := svc.Create(ctx, owner, taskInput(title, dueToday))
		require.NoError(t, err)
		ids = append(ids, task.ID.Hex())
	}

	today, err := svc.Today(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, today, 3)

	res, err := svc.BulkStatus(ctx, owner, ids[:2], "completed")
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Matched: 2, Modified: 2}, res)
	for _, task := range repo.items[:2] {
		require.NotNil(t, task.CompletedAt)
	}

	today, err = svc.Today(ctx, owner)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, ids[2], today[0].ID.Hex())
}

func TestBulkStatusValidatesEverythingFirst(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()
	task, err := svc.Create(ctx, owner, taskInput("Only task", fixedNow.Add(time.Hour)))
	require.NoError(t, err)

	_, err = svc.BulkStatus(ctx, owner, []string{task.ID.Hex(), "bad"}, "completed")
	assert.Equal(t, apperr.CodeInvalidID, apperr.CodeOf(err))

	_, err = svc.BulkStatus(ctx, owner, []string{task.ID.Hex()}, "done")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Equal(t, models.TaskPending, repo.items[0].Status)
}

func TestTodaySortsByPriority(t *testing.T) {
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()
	due := fixedNow.Add(time.Hour)
	repo.items = []models.Task{
		{ID: primitive.NewObjectID(), UserID: owner, Title: "low", Priority: models.PriorityLow, Status: models.TaskPending, DueDate: due},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "urgent", Priority: models.PriorityUrgent, Status: models.TaskInProgress, DueDate: due},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "tomorrow", Priority: models.PriorityUrgent, Status: models.TaskPending, DueDate: due.Add(24 * time.Hour)},
	}

	tasks, err := svc.Today(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "urgent", tasks[0].Title)
	assert.Equal(t, "low", tasks[1].Title)
}

func TestOverdueAndUpcoming(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	svc, repo, _ := newTestTaskService()
	repo.items = []models.Task{
		{ID: primitive.NewObjectID(), UserID: owner, Title: "late", Status: models.TaskPending, DueDate: fixedNow.Add(-time.Hour)},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "late-done", Status: models.TaskCompleted, DueDate: fixedNow.Add(-time.Hour)},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "week", Status: models.TaskPending, DueDate: store.StartOfDay(fixedNow).AddDate(0, 0, 7)},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "week-afternoon", Status: models.TaskPending, DueDate: fixedNow.AddDate(0, 0, 7)},
		{ID: primitive.NewObjectID(), UserID: owner, Title: "far", Status: models.TaskPending, DueDate: fixedNow.AddDate(0, 0, 9)},
	}

	overdue, err := svc.Overdue(ctx, owner)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].Title)

	upcoming, err := svc.Upcoming(ctx, owner)
	require.NoError(t, err)
	titles := []string{}
	for _, task := range upcoming {
		titles = append(titles, task.Title)
	}
	assert.ElementsMatch(t, []string{"late", "week"}, titles)
}
