package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
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

type fakeDashboard struct {
	mu          sync.Mutex
	leads       store.LeadCounts
	contacts    int64
	tasks       store.TaskCounts
	leadSeries  []models.LeadDayPoint
	taskSeries  []models.TaskDayPoint
	snapshotErr error
	snapshots   int
	since       time.Time
	reads       int
}

func (f *fakeDashboard) LeadCounts(context.Context, primitive.ObjectID) (store.LeadCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.leads, nil
}

func (f *fakeDashboard) LeadBreakdown(_ context.Context, _ primitive.ObjectID, field string) (map[string]int64, error) {
	return map[string]int64{field: 1}, nil
}

func (f *fakeDashboard) ContactCount(context.Context, primitive.ObjectID) (int64, error) {
	return f.contacts, nil
}

func (f *fakeDashboard) TaskCounts(context.Context, primitive.ObjectID, time.Time) (store.TaskCounts, error) {
	return f.tasks, nil
}

func (f *fakeDashboard) SaveSnapshot(context.Context, *models.DashboardStats) error {
	f.snapshots++
	return f.snapshotErr
}

func (f *fakeDashboard) LeadSeries(_ context.Context, _ primitive.ObjectID, since time.Time) ([]models.LeadDayPoint, error) {
	f.mu.Lock()
	f.since = since
	f.mu.Unlock()
	return f.leadSeries, nil
}

func (f *fakeDashboard) TaskSeries(context.Context, primitive.ObjectID, time.Time) ([]models.TaskDayPoint, error) {
	return f.taskSeries, nil
}

func (f *fakeDashboard) RecentLeads(context.Context, primitive.ObjectID, int64) ([]models.Lead, error) {
	return []models.Lead{{FirstName: "recent"}}, nil
}

func (f *fakeDashboard) RecentTasks(context.Context, primitive.ObjectID, int64) ([]models.Task, error) {
	return []models.Task{}, nil
}

func (f *fakeDashboard) RecentContacts(context.Context, primitive.ObjectID, int64) ([]models.Contact, error) {
	return []models.Contact{}, nil
}

func (f *fakeDashboard) SearchLeads(context.Context, primitive.ObjectID, string, int64) ([]models.Lead, error) {
	return []models.Lead{{FirstName: "Dana"}}, nil
}

func (f *fakeDashboard) SearchTasks(context.Context, primitive.ObjectID, string, int64) ([]models.Task, error) {
	return []models.Task{{Title: "Call Dana"}, {Title: "Email Dana"}}, nil
}

func (f *fakeDashboard) SearchContacts(context.Context, primitive.ObjectID, string, int64) ([]models.Contact, error) {
	return []models.Contact{}, nil
}

// memCache stores JSON like the Redis cache does.
type memCache struct {
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetWithTTL(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func newTestDashboard(repo *fakeDashboard, feed ActivityFeed, cache Cache) *DashboardService {
	svc := NewDashboardService(repo, feed, cache, time.Minute, zap.NewNop())
	svc.now = clock(fixedNow)
	return svc
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()

	t.Run("zero leads give a zero rate", func(t *testing.T) {
		svc := newTestDashboard(&fakeDashboard{}, nil, nil)
		snap, err := svc.Summary(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, "0", snap.ConversionRate)
		assert.Empty(t, snap.RecentActivities)
		assert.Equal(t, owner, snap.UserID)
	})

	t.Run("snapshot failure is not surfaced", func(t *testing.T) {
		repo := &fakeDashboard{
			leads:       store.LeadCounts{Total: 4, Active: 2, Won: 1},
			contacts:    9,
			tasks:       store.TaskCounts{Pending: 3, Overdue: 1},
			snapshotErr: errors.New("write conflict"),
		}
		svc := newTestDashboard(repo, &fakeFeed{}, nil)
		snap, err := svc.Summary(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, repo.snapshots)
		assert.Equal(t, "25.00", snap.ConversionRate)
		assert.Equal(t, int64(9), snap.TotalContacts)
		assert.Equal(t, int64(1), snap.OverdueTasks)
		assert.Equal(t, map[string]int64{"status": 1}, snap.LeadByStatus)
		assert.Equal(t, fixedNow, snap.LastUpdated)
	})
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	repo := &fakeDashboard{
		leadSeries: []models.LeadDayPoint{{Date: "2026-03-09", Total: 3, Won: 1, Value: 100}, {Date: "2026-03-10", Total: 1, Won: 1, Value: 50}},
		taskSeries: []models.TaskDayPoint{{Date: "2026-03-10", Total: 4, Completed: 1}},
	}
	svc := newTestDashboard(repo, nil, nil)

	m, err := svc.Metrics(ctx, primitive.NewObjectID(), "week")
	require.NoError(t, err)
	assert.Equal(t, "week", m.Period)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), repo.since)
	assert.Equal(t, int64(4), m.Summary.TotalLeads)
	assert.Equal(t, 150.0, m.Summary.TotalValue)
	assert.Equal(t, "50.00", m.Summary.ConversionRate)
	assert.Equal(t, "25.00", m.Summary.CompletionRate)

	m, err = svc.Metrics(ctx, primitive.NewObjectID(), "decade")
	require.NoError(t, err)
	assert.Equal(t, "month", m.Period)
	assert.Equal(t, time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC), m.StartDate)

	m, err = svc.Metrics(ctx, primitive.NewObjectID(), "year")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC), m.StartDate)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestDashboard(&fakeDashboard{}, nil, nil)

	_, err := svc.Search(ctx, primitive.NewObjectID(), " a ")
	assert.ErrorIs(t, err, apperr.ErrQueryTooShort)

	res, err := svc.Search(ctx, primitive.NewObjectID(), "Dana")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
}

func TestRecent(t *testing.T) {
	svc := newTestDashboard(&fakeDashboard{}, nil, nil)
	res, err := svc.Recent(context.Background(), primitive.NewObjectID(), 0)
	require.NoError(t, err)
	assert.Len(t, res.Leads, 1)
	assert.NotNil(t, res.Activities)
}

func TestTimeline(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()

	svc := newTestDashboard(&fakeDashboard{}, nil, nil)
	tl, err := svc.Timeline(ctx, owner, 0)
	require.NoError(t, err)
	assert.Empty(t, tl.Days)
	assert.NotEmpty(t, tl.Message)

	feed := &fakeFeed{recorded: []models.Activity{
		{Description: "c", CreatedAt: fixedNow},
		{Description: "b", CreatedAt: fixedNow.Add(-time.Hour)},
		{Description: "a", CreatedAt: fixedNow.AddDate(0, 0, -1)},
		{Description: "old", CreatedAt: fixedNow.AddDate(0, 0, -60)},
	}}
	svc = newTestDashboard(&fakeDashboard{}, feed, nil)
	tl, err = svc.Timeline(ctx, owner, 7)
	require.NoError(t, err)
	require.Len(t, tl.Days, 2)
	assert.Equal(t, "2026-03-10", tl.Days[0].Date)
	assert.Len(t, tl.Days[0].Activities, 2)
	assert.Equal(t, "2026-03-09", tl.Days[1].Date)
}

func TestQuickStatsCaching(t *testing.T) {
	ctx := context.Background()
	owner := primitive.NewObjectID()
	repo := &fakeDashboard{
		leads: store.LeadCounts{Total: 2, Won: 1},
		tasks: store.TaskCounts{Total: 0},
	}
	cache := &memCache{data: map[string][]byte{}}
	svc := newTestDashboard(repo, nil, cache)

	first, err := svc.QuickStats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "50.00", first.ConversionRate)
	assert.Equal(t, "0", first.TaskCompletionRate)
	assert.Equal(t, 1, repo.reads)

	repo.leads = store.LeadCounts{Total: 10, Won: 10}
	second, err := svc.QuickStats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.reads)

	require.NoError(t, svc.InvalidateQuickStats(ctx, owner))
	third, err := svc.QuickStats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "100.00", third.ConversionRate)
	assert.Equal(t, 2, repo.reads)
}
