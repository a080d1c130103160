package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type dashboardEmployeeReader interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardAttendanceReader interface {
	CountByStatusOnDate(ctx context.Context, date time.Time) (map[models.AttendanceStatus]int, error)
	MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error)
}

type dashboardLeaveReader interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardLedgerReader interface {
	TotalHours(ctx context.Context, reasonPrefix string, from, to time.Time) (float64, error)
}

// DashboardService composes the cached company-wide summary.
type DashboardService struct {
	employees  dashboardEmployeeReader
	attendance dashboardAttendanceReader
	leaves     dashboardLeaveReader
	ledger     dashboardLedgerReader
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(employees dashboardEmployeeReader, attendance dashboardAttendanceReader, leaves dashboardLeaveReader, ledger dashboardLedgerReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &DashboardService{
		employees:  employees,
		attendance: attendance,
		leaves:     leaves,
		ledger:     ledger,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Summary returns the dashboard snapshot for the given date, serving
// from cache when possible.
func (s *DashboardService) Summary(ctx context.Context, dateStr string) (*models.DashboardSummary, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	cacheKey := "dash:summary:" + dateStr
	var cached models.DashboardSummary
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	summary, err := s.compose(ctx, date)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}

// InvalidateDate drops the cached snapshot for one date.
func (s *DashboardService) InvalidateDate(ctx context.Context, dateStr string) {
	if err := s.cache.Invalidate(ctx, "dash:summary:"+dateStr); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("date", dateStr), zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, date time.Time) (*models.DashboardSummary, error) {
	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	active, err := s.employees.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count employees")
	}
	byStatus, err := s.attendance.CountByStatusOnDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	pending, err := s.leaves.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending leaves")
	}
	penaltyHours, err := s.ledger.TotalHours(ctx, "Late arrival penalty", monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total penalty hours")
	}
	summaries, err := s.attendance.MonthlySummary(ctx, "", monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise month")
	}
	lateCount := 0
	for _, summary := range summaries {
		lateCount += summary.Late
	}

	return &models.DashboardSummary{
		Month:             date.Format("2006-01"),
		ActiveEmployees:   active,
		PresentToday:      byStatus[models.AttendanceStatusPresent],
		LateToday:         byStatus[models.AttendanceStatusLate],
		AbsentToday:       byStatus[models.AttendanceStatusAbsent],
		PendingLeaves:     pending,
		PenaltyHoursMonth: penaltyHours,
		LateCountMonth:    lateCount,
	}, nil
}
