package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceBulkConflict, error)
	FinalizeByDate(ctx context.Context, date time.Time) (int, error)
	MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error)
}

type attendanceSettingsReader interface {
	Get(ctx context.Context) (*models.PenaltySettings, error)
}

// AttendanceListRequest filters attendance listings.
type AttendanceListRequest struct {
	EmployeeID string  `json:"employee_id"`
	Status     *string `json:"status" validate:"omitempty,attendance_status"`
	Source     *string `json:"source"`
	DateFrom   *string `json:"date_from"`
	DateTo     *string `json:"date_to"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	SortBy     string  `json:"sort_by"`
	SortOrder  string  `json:"sort_order"`
}

// BulkAttendanceResult summarises a bulk write.
type BulkAttendanceResult struct {
	Processed int                             `json:"processed"`
	Success   int                             `json:"success"`
	Conflicts []models.AttendanceBulkConflict `json:"conflicts,omitempty"`
}

// AttendanceService coordinates daily attendance workflows.
type AttendanceService struct {
	repo      attendanceRepository
	settings  attendanceSettingsReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, settings attendanceSettingsReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerSharedRules(validate)
	return &AttendanceService{repo: repo, settings: settings, validator: validate, logger: logger}
}

// List returns paginated attendance records.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.AttendanceFilter{
		EmployeeID: req.EmployeeID,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if req.Status != nil {
		status := models.AttendanceStatus(*req.Status)
		filter.Status = &status
	}
	if req.Source != nil {
		source := models.AttendanceSource(*req.Source)
		filter.Source = &source
	}
	if req.DateFrom != nil {
		from, err := parseDate(*req.DateFrom)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_from, expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != nil {
		to, err := parseDate(*req.DateTo)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_to, expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Mark upserts a single attendance record. A record submitted as
// Present with a time-in past the grace window is normalized to Late so
// manual entry cannot sidestep the penalty rules.
func (s *AttendanceService) Mark(ctx context.Context, req models.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	status, err := s.normalizeStatus(ctx, models.AttendanceStatus(req.Status), req.TimeIn)
	if err != nil {
		return nil, err
	}
	record := &models.AttendanceRecord{
		EmployeeID: req.EmployeeID,
		Date:       date,
		TimeIn:     req.TimeIn,
		TimeOut:    req.TimeOut,
		Status:     status,
		Source:     models.AttendanceSourceManual,
		Remarks:    req.Remarks,
	}
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "attendance record is finalized and cannot be changed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return stored, nil
}

// BulkMark writes attendance for multiple employees in one call.
func (s *AttendanceService) BulkMark(ctx context.Context, req models.BulkMarkAttendanceRequest) (*BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	mode := req.Mode
	if mode == "" {
		mode = models.BulkModeAtomic
	}
	if mode != models.BulkModeAtomic && mode != models.BulkModePartialOnError {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mode must be atomic or partialOnError")
	}

	seen := map[string]struct{}{}
	records := make([]models.AttendanceRecord, len(req.Records))
	for i, item := range req.Records {
		date, err := parseDate(item.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", item.Date))
		}
		key := item.EmployeeID + "|" + item.Date
		if _, ok := seen[key]; ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate employee/date in payload")
		}
		seen[key] = struct{}{}
		status, err := s.normalizeStatus(ctx, models.AttendanceStatus(item.Status), item.TimeIn)
		if err != nil {
			return nil, err
		}
		records[i] = models.AttendanceRecord{
			EmployeeID: item.EmployeeID,
			Date:       date,
			TimeIn:     item.TimeIn,
			TimeOut:    item.TimeOut,
			Status:     status,
			Source:     models.AttendanceSourceManual,
			Remarks:    item.Remarks,
		}
	}

	conflicts, err := s.repo.BulkUpsert(ctx, records, mode == models.BulkModeAtomic)
	if err != nil {
		if mode == models.BulkModeAtomic {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk mark failed")
	}
	result := &BulkAttendanceResult{Processed: len(records), Success: len(records) - len(conflicts)}
	if len(conflicts) > 0 {
		result.Conflicts = conflicts
	}
	return result, nil
}

// Finalize locks all records for a date against further edits.
func (s *AttendanceService) Finalize(ctx context.Context, req models.FinalizeAttendanceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	count, err := s.repo.FinalizeByDate(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize attendance")
	}
	s.logger.Info("attendance finalized", zap.String("date", req.Date), zap.Int("records", count))
	return count, nil
}

// MonthlySummary aggregates status counts for a month. An empty
// employee ID covers every employee.
func (s *AttendanceService) MonthlySummary(ctx context.Context, employeeID, month string) ([]models.AttendanceSummary, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month format, expected YYYY-MM")
	}
	monthEnd := monthStart.AddDate(0, 1, 0)
	summaries, err := s.repo.MonthlySummary(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return summaries, nil
}

// normalizeStatus upgrades Present to Late when the time-in falls past
// the configured grace window. Without a configured rule set the status
// is taken as submitted.
func (s *AttendanceService) normalizeStatus(ctx context.Context, status models.AttendanceStatus, timeIn *string) (models.AttendanceStatus, error) {
	if !status.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
	}
	if status != models.AttendanceStatusPresent || timeIn == nil || s.settings == nil {
		return status, nil
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status, nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty settings")
	}
	arrival, err := ParseClock(*timeIn)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "time_in must be a valid HH:MM time")
	}
	threshold, err := ParseClock(settings.LateTimeInThreshold)
	if err != nil {
		return status, nil
	}
	if arrival >= threshold+settings.GracePeriodMinutes {
		return models.AttendanceStatusLate, nil
	}
	return status, nil
}
