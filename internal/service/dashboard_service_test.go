package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type dashboardDepsStub struct {
	active       int
	byStatus     map[models.AttendanceStatus]int
	pending      int
	penaltyTotal float64
	summaries    []models.AttendanceSummary
	calls        int
}

func (s *dashboardDepsStub) CountActive(ctx context.Context) (int, error) {
	s.calls++
	return s.active, nil
}

func (s *dashboardDepsStub) CountByStatusOnDate(ctx context.Context, date time.Time) (map[models.AttendanceStatus]int, error) {
	return s.byStatus, nil
}

func (s *dashboardDepsStub) MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error) {
	return s.summaries, nil
}

func (s *dashboardDepsStub) CountPending(ctx context.Context) (int, error) {
	return s.pending, nil
}

func (s *dashboardDepsStub) TotalHours(ctx context.Context, reasonPrefix string, from, to time.Time) (float64, error) {
	return s.penaltyTotal, nil
}

type cacheRepoStub struct {
	store map[string][]byte
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(c.store, pattern)
	return nil
}

func newDashboardService(deps *dashboardDepsStub, cache *CacheService) *DashboardService {
	return NewDashboardService(deps, deps, deps, deps, cache, time.Minute, nil)
}

func TestDashboardServiceSummary(t *testing.T) {
	deps := &dashboardDepsStub{
		active: 40,
		byStatus: map[models.AttendanceStatus]int{
			models.AttendanceStatusPresent: 30,
			models.AttendanceStatusLate:    5,
			models.AttendanceStatusAbsent:  5,
		},
		pending:      2,
		penaltyTotal: -12.5,
		summaries: []models.AttendanceSummary{
			{EmployeeID: "emp-1", Late: 3},
			{EmployeeID: "emp-2", Late: 4},
		},
	}
	svc := newDashboardService(deps, nil)

	summary, err := svc.Summary(context.Background(), "2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-01", summary.Month)
	assert.Equal(t, 40, summary.ActiveEmployees)
	assert.Equal(t, 30, summary.PresentToday)
	assert.Equal(t, 5, summary.LateToday)
	assert.Equal(t, 5, summary.AbsentToday)
	assert.Equal(t, 2, summary.PendingLeaves)
	assert.InDelta(t, -12.5, summary.PenaltyHoursMonth, 0.0001)
	assert.Equal(t, 7, summary.LateCountMonth)
}

func TestDashboardServiceSummaryServesFromCache(t *testing.T) {
	deps := &dashboardDepsStub{active: 40, byStatus: map[models.AttendanceStatus]int{}}
	cache := NewCacheService(&cacheRepoStub{store: map[string][]byte{}}, nil, time.Minute, nil, true)
	svc := newDashboardService(deps, cache)

	first, err := svc.Summary(context.Background(), "2026-01-15")
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), "2026-01-15")
	require.NoError(t, err)

	assert.Equal(t, first.ActiveEmployees, second.ActiveEmployees)
	assert.Equal(t, 1, deps.calls)
}

func TestDashboardServiceInvalidateDate(t *testing.T) {
	deps := &dashboardDepsStub{active: 40, byStatus: map[models.AttendanceStatus]int{}}
	cache := NewCacheService(&cacheRepoStub{store: map[string][]byte{}}, nil, time.Minute, nil, true)
	svc := newDashboardService(deps, cache)

	_, err := svc.Summary(context.Background(), "2026-01-15")
	require.NoError(t, err)
	svc.InvalidateDate(context.Background(), "2026-01-15")

	_, err = svc.Summary(context.Background(), "2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, 2, deps.calls)
}

func TestDashboardServiceSummaryRejectsBadDate(t *testing.T) {
	svc := newDashboardService(&dashboardDepsStub{}, nil)

	_, err := svc.Summary(context.Background(), "January 15")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
