package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
	"github.com/AnshRaj112/crm-backend/internal/store"
)

const (
	summaryActivities = 10
	searchLimit       = 10
	minSearchLength   = 2
	defaultRecent     = 5
	defaultTimeline   = 30
)

type DashboardRepository interface {
	LeadCounts(ctx context.Context, owner primitive.ObjectID) (store.LeadCounts, error)
	LeadBreakdown(ctx context.Context, owner primitive.ObjectID, field string) (map[string]int64, error)
	ContactCount(ctx context.Context, owner primitive.ObjectID) (int64, error)
	TaskCounts(ctx context.Context, owner primitive.ObjectID, now time.Time) (store.TaskCounts, error)
	SaveSnapshot(ctx context.Context, snap *models.DashboardStats) error
	LeadSeries(ctx context.Context, owner primitive.ObjectID, since time.Time) ([]models.LeadDayPoint, error)
	TaskSeries(ctx context.Context, owner primitive.ObjectID, since time.Time) ([]models.TaskDayPoint, error)
	RecentLeads(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Lead, error)
	RecentTasks(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Task, error)
	RecentContacts(ctx context.Context, owner primitive.ObjectID, limit int64) ([]models.Contact, error)
	SearchLeads(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Lead, error)
	SearchTasks(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Task, error)
	SearchContacts(ctx context.Context, owner primitive.ObjectID, term string, limit int64) ([]models.Contact, error)
}

// lookback is a calendar offset subtracted from now.
type lookback struct{ years, months, days int }

// periodWindows maps a metrics period to its lookback window. Months and
// years are calendar offsets.
var periodWindows = map[string]lookback{
	"day":   {days: 1},
	"week":  {days: 7},
	"month": {months: 1},
	"year":  {years: 1},
}

type Timeline struct {
	Days    []models.TimelineDay `json:"timeline"`
	Message string               `json:"message,omitempty"`
}

type DashboardService struct {
	repo     DashboardRepository
	activity activityRecorder
	cache    Cache
	cacheTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewDashboardService builds the aggregator. feed and cache may be nil.
func NewDashboardService(repo DashboardRepository, feed ActivityFeed, cache Cache, cacheTTL time.Duration, log *zap.Logger) *DashboardService {
	return &DashboardService{
		repo:     repo,
		activity: activityRecorder{feed: feed, log: log},
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
		now:      utcNow,
	}
}

// Summary reads every count concurrently and refreshes the snapshot. A
// failed snapshot write is logged and does not fail the call.
func (s *DashboardService) Summary(ctx context.Context, owner primitive.ObjectID) (*models.DashboardStats, error) {
	now := s.now()
	var (
		leads      store.LeadCounts
		contacts   int64
		tasks      store.TaskCounts
		activities []models.Activity
		byStatus   map[string]int64
		bySource   map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.repo.LeadCounts(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = s.repo.ContactCount(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.repo.TaskCounts(gctx, owner, now)
		return err
	})
	g.Go(func() (err error) {
		activities, err = s.activity.recent(gctx, owner, summaryActivities)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.repo.LeadBreakdown(gctx, owner, "status")
		return err
	})
	g.Go(func() (err error) {
		bySource, err = s.repo.LeadBreakdown(gctx, owner, "source")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	snap := &models.DashboardStats{
		UserID:           owner,
		TotalLeads:       leads.Total,
		ActiveLeads:      leads.Active,
		WonLeads:         leads.Won,
		TotalContacts:    contacts,
		PendingTasks:     tasks.Pending,
		OverdueTasks:     tasks.Overdue,
		ConversionRate:   FormatRate(leads.Won, leads.Total, "0"),
		LeadByStatus:     byStatus,
		LeadBySource:     bySource,
		RecentActivities: activities,
		LastUpdated:      now,
	}
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		s.log.Warn("failed to save dashboard snapshot",
			zap.String("user_id", owner.Hex()),
			zap.Error(err),
		)
	}
	return snap, nil
}

// Metrics builds per-day series over the period's window. Unknown periods
// fall back to month.
func (s *DashboardService) Metrics(ctx context.Context, owner primitive.ObjectID, period string) (*models.DashboardMetrics, error) {
	window, ok := periodWindows[period]
	if !ok {
		period, window = "month", periodWindows["month"]
	}
	end := s.now()
	start := end.AddDate(-window.years, -window.months, -window.days)

	var (
		leadSeries []models.LeadDayPoint
		taskSeries []models.TaskDayPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leadSeries, err = s.repo.LeadSeries(gctx, owner, start)
		return err
	})
	g.Go(func() (err error) {
		taskSeries, err = s.repo.TaskSeries(gctx, owner, start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	var sum models.MetricsSummary
	for _, p := range leadSeries {
		sum.TotalLeads += p.Total
		sum.WonLeads += p.Won
		sum.TotalValue += p.Value
	}
	for _, p := range taskSeries {
		sum.TotalTasks += p.Total
		sum.CompletedTasks += p.Completed
	}
	sum.ConversionRate = FormatRate(sum.WonLeads, sum.TotalLeads, "0")
	sum.CompletionRate = FormatRate(sum.CompletedTasks, sum.TotalTasks, "0")

	return &models.DashboardMetrics{
		Period:    period,
		StartDate: start,
		EndDate:   end,
		Leads:     leadSeries,
		Tasks:     taskSeries,
		Summary:   sum,
	}, nil
}

// Search fans out to leads, tasks and contacts concurrently, at most ten
// hits each.
func (s *DashboardService) Search(ctx context.Context, owner primitive.ObjectID, query string) (*models.SearchResults, error) {
	term := strings.TrimSpace(query)
	if len([]rune(term)) < minSearchLength {
		return nil, apperr.ErrQueryTooShort
	}

	res := &models.SearchResults{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Leads, err = s.repo.SearchLeads(gctx, owner, term, searchLimit)
		return err
	})
	g.Go(func() (err error) {
		res.Tasks, err = s.repo.SearchTasks(gctx, owner, term, searchLimit)
		return err
	})
	g.Go(func() (err error) {
		res.Contacts, err = s.repo.SearchContacts(gctx, owner, term, searchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	res.TotalCount = len(res.Leads) + len(res.Tasks) + len(res.Contacts)
	return res, nil
}

func (s *DashboardService) Recent(ctx context.Context, owner primitive.ObjectID, limit int64) (*models.RecentItems, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	res := &models.RecentItems{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Leads, err = s.repo.RecentLeads(gctx, owner, limit)
		return err
	})
	g.Go(func() (err error) {
		res.Tasks, err = s.repo.RecentTasks(gctx, owner, limit)
		return err
	})
	g.Go(func() (err error) {
		res.Contacts, err = s.repo.RecentContacts(gctx, owner, limit)
		return err
	})
	g.Go(func() (err error) {
		res.Activities, err = s.activity.recent(gctx, owner, int(limit))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return res, nil
}

// Timeline groups the activities of the last days by calendar day, most
// recent day first.
func (s *DashboardService) Timeline(ctx context.Context, owner primitive.ObjectID, days int) (*Timeline, error) {
	if days <= 0 {
		days = defaultTimeline
	}
	if s.activity.feed == nil {
		return &Timeline{Days: []models.TimelineDay{}, Message: "Activity tracking is not configured"}, nil
	}
	since := store.StartOfDay(s.now()).AddDate(0, 0, -days)
	activities, err := s.activity.since(ctx, owner, since)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Timeline{Days: groupByDay(activities)}, nil
}

// groupByDay expects activities newest first and keeps that order.
func groupByDay(activities []models.Activity) []models.TimelineDay {
	out := []models.TimelineDay{}
	for _, a := range activities {
		day := a.CreatedAt.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Activities = append(out[n-1].Activities, a)
			continue
		}
		out = append(out, models.TimelineDay{Date: day, Activities: []models.Activity{a}})
	}
	return out
}

func quickStatsKey(owner primitive.ObjectID) string {
	return CacheKey("quick-stats", owner.Hex())
}

// QuickStats is served from the cache when one is configured. Cache
// failures fall through to a fresh read.
func (s *DashboardService) QuickStats(ctx context.Context, owner primitive.ObjectID) (*models.QuickStats, error) {
	key := quickStatsKey(owner)
	if s.cache != nil {
		var cached models.QuickStats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("quick stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	now := s.now()
	var (
		leads    store.LeadCounts
		contacts int64
		tasks    store.TaskCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.repo.LeadCounts(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = s.repo.ContactCount(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.repo.TaskCounts(gctx, owner, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	qs := &models.QuickStats{
		TotalLeads:         leads.Total,
		ActiveLeads:        leads.Active,
		WonLeads:           leads.Won,
		TotalContacts:      contacts,
		TotalTasks:         tasks.Total,
		CompletedTasks:     tasks.Completed,
		PendingTasks:       tasks.Pending,
		OverdueTasks:       tasks.Overdue,
		ConversionRate:     FormatRate(leads.Won, leads.Total, "0"),
		TaskCompletionRate: FormatRate(tasks.Completed, tasks.Total, "0"),
	}
	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, key, qs, s.cacheTTL); err != nil {
			s.log.Warn("quick stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return qs, nil
}

// InvalidateQuickStats drops the cached quick stats of owner.
func (s *DashboardService) InvalidateQuickStats(ctx context.Context, owner primitive.ObjectID) error {
	if s.cache == nil {
		return nil
	}
	return apperr.Internal(s.cache.Delete(ctx, quickStatsKey(owner)))
}
