package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type penaltySettingsRepository interface {
	Get(ctx context.Context) (*models.PenaltySettings, error)
	Replace(ctx context.Context, settings *models.PenaltySettings) error
}

type penaltyAttendanceReader interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecordDetail, error)
	MonthlyLateInstances(ctx context.Context, employeeID string, monthStart, end time.Time) ([]models.LateInstance, error)
}

type penaltyShortLeaveReader interface {
	ApprovedSet(ctx context.Context, from, to time.Time) (map[string]struct{}, error)
}

type penaltyLedgerWriter interface {
	Exists(ctx context.Context, employeeID string, date time.Time, reason string) (bool, error)
	Create(ctx context.Context, entry *models.LedgerEntry) error
}

type penaltyAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PenaltyService drives the late-arrival penalty workflow: rule-set
// management, per-date calculation runs, and persisting results to the
// bonus hours ledger.
type PenaltyService struct {
	settings   penaltySettingsRepository
	attendance penaltyAttendanceReader
	leaves     penaltyShortLeaveReader
	ledger     penaltyLedgerWriter
	audit      penaltyAuditLogger
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPenaltyService constructs the penalty service.
func NewPenaltyService(settings penaltySettingsRepository, attendance penaltyAttendanceReader, leaves penaltyShortLeaveReader, ledger penaltyLedgerWriter, audit penaltyAuditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PenaltyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerSharedRules(validate)
	return &PenaltyService{
		settings:   settings,
		attendance: attendance,
		leaves:     leaves,
		ledger:     ledger,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// GetSettings returns the active rule set.
func (s *PenaltyService) GetSettings(ctx context.Context) (*models.PenaltySettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "penalty settings not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty settings")
	}
	return settings, nil
}

// SaveSettings replaces the active rule set after validating its
// internal consistency.
func (s *PenaltyService) SaveSettings(ctx context.Context, req models.PenaltySettingsRequest, actor *models.JWTClaims) (*models.PenaltySettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := ValidatePenaltySettings(req); err != nil {
		return nil, err
	}

	prev, err := s.settings.Get(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current settings")
	}

	settings := &models.PenaltySettings{
		LateTimeInThreshold:   req.LateTimeInThreshold,
		GracePeriodMinutes:    req.GracePeriodMinutes,
		LateIgnoreCount:       req.LateIgnoreCount,
		DoublePenaltyStart:    req.DoublePenaltyStart,
		DoublePenaltyEnd:      req.DoublePenaltyEnd,
		QuadruplePenaltyStart: req.QuadruplePenaltyStart,
		QuadruplePenaltyEnd:   req.QuadruplePenaltyEnd,
		ShortLeaveExempt:      req.ShortLeaveExempt,
		RetroactivePenalty:    req.RetroactivePenalty,
		UpdatedBy:             actorIDPtr(actor),
	}
	if err := s.settings.Replace(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save penalty settings")
	}

	s.emitSettingsAudit(ctx, actor, prev, settings)
	return settings, nil
}

// CalculateForDate runs the engine over every late arrival on the given
// date. Nothing is persisted; the caller reviews the result and submits
// it through SaveEntries.
func (s *PenaltyService) CalculateForDate(ctx context.Context, req models.PenaltyCalculateRequest) (*models.PenaltyCalculationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calculate payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "penalty settings must be configured before calculation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty settings")
	}

	records, err := s.attendance.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance for date")
	}

	monthStart := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowEnd := date.AddDate(0, 0, 1)
	approved, err := s.leaves.ApprovedSet(ctx, monthStart, windowEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved short leaves")
	}

	results := make([]models.PenaltyComputation, 0, len(records))
	for _, record := range records {
		if record.Status != models.AttendanceStatusLate {
			continue
		}
		if record.TimeIn == nil || *record.TimeIn == "" {
			// Late without a recorded time cannot be scored; surface
			// it rather than silently skipping.
			results = append(results, ComputePenalty(PenaltyInput{
				EmployeeID:   record.EmployeeID,
				EmployeeName: record.EmployeeName,
				Date:         record.Date.Format("2006-01-02"),
				Status:       models.AttendanceStatusLate,
				TimeIn:       "",
			}, *settings))
			continue
		}

		computed, err := s.evaluateEmployee(ctx, record, *settings, monthStart, windowEnd, approved)
		if err != nil {
			return nil, err
		}
		results = append(results, computed...)
	}

	summary := Summarize(req.Date, len(records), results)
	s.metrics.RecordPenaltyRun(0)
	return &models.PenaltyCalculationResult{Results: results, Summary: summary}, nil
}

func (s *PenaltyService) evaluateEmployee(ctx context.Context, record models.AttendanceRecordDetail, settings models.PenaltySettings, monthStart, windowEnd time.Time, approved map[string]struct{}) ([]models.PenaltyComputation, error) {
	instances, err := s.attendance.MonthlyLateInstances(ctx, record.EmployeeID, monthStart, windowEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load late history")
	}

	inputs := make([]PenaltyInput, len(instances))
	currentIdx := -1
	for i, instance := range instances {
		dateKey := instance.Date.Format("2006-01-02")
		_, onLeave := approved[leaveKey(instance.EmployeeID, dateKey)]
		inputs[i] = PenaltyInput{
			EmployeeID:         instance.EmployeeID,
			EmployeeName:       record.EmployeeName,
			Date:               dateKey,
			Status:             models.AttendanceStatusLate,
			TimeIn:             instance.TimeIn,
			MonthlyLateOrdinal: i + 1,
			IsShortLeave:       onLeave,
		}
		if instance.RecordID == record.ID {
			currentIdx = i
		}
	}
	if currentIdx < 0 {
		// The record is Late on this date but missing from the monthly
		// ordering; treat it as the most recent instance.
		s.logger.Warn("late record missing from monthly ordering",
			zap.String("record_id", record.ID),
			zap.String("employee_id", record.EmployeeID))
		dateKey := record.Date.Format("2006-01-02")
		_, onLeave := approved[leaveKey(record.EmployeeID, dateKey)]
		inputs = append(inputs, PenaltyInput{
			EmployeeID:         record.EmployeeID,
			EmployeeName:       record.EmployeeName,
			Date:               dateKey,
			Status:             models.AttendanceStatusLate,
			TimeIn:             derefString(record.TimeIn),
			MonthlyLateOrdinal: len(inputs) + 1,
			IsShortLeave:       onLeave,
		})
		currentIdx = len(inputs) - 1
	}
	return EvaluateInstances(inputs, currentIdx, settings), nil
}

// SaveEntries persists reviewed penalties as negative ledger hours.
// Duplicates against (employee, date, reason) are skipped and reported.
func (s *PenaltyService) SaveEntries(ctx context.Context, req models.PenaltySaveRequest, actor *models.JWTClaims) (*models.PenaltySaveResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save payload")
	}

	createdBy := req.AwardedBy
	if createdBy == nil {
		createdBy = actorIDPtr(actor)
	}

	result := &models.PenaltySaveResult{SkippedDuplicates: []models.PenaltySkippedEntry{}}
	var totalHours float64
	for _, entry := range req.Entries {
		date, err := parseDate(entry.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", entry.Date))
		}
		exists, err := s.ledger.Exists(ctx, entry.EmployeeID, date, req.Reason)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ledger")
		}
		if exists {
			result.SkippedDuplicates = append(result.SkippedDuplicates, models.PenaltySkippedEntry{
				EmployeeID: entry.EmployeeID,
				Date:       entry.Date,
				Reason:     "entry already recorded",
			})
			continue
		}
		ledgerEntry := &models.LedgerEntry{
			EmployeeID: entry.EmployeeID,
			Date:       date,
			Hours:      -entry.PenaltyHours,
			Reason:     req.Reason,
			CreatedBy:  createdBy,
		}
		if err := s.ledger.Create(ctx, ledgerEntry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write ledger entry")
		}
		result.SavedCount++
		totalHours += entry.PenaltyHours
	}

	s.metrics.RecordPenaltyRun(totalHours)
	s.emitSaveAudit(ctx, actor, req, result)
	return result, nil
}

func (s *PenaltyService) emitSettingsAudit(ctx context.Context, actor *models.JWTClaims, prev, next *models.PenaltySettings) {
	if s.audit == nil {
		return
	}
	var oldBytes []byte
	if prev != nil {
		oldBytes, _ = json.Marshal(prev)
	}
	newBytes, _ := json.Marshal(next)
	log := &models.AuditLog{
		UserID:    actorIDPtr(actor),
		Action:    models.AuditActionPenaltySettingsUpdate,
		Resource:  "penalty_settings",
		OldValues: oldBytes,
		NewValues: newBytes,
		IPAddress: "system",
		UserAgent: "penalty-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record settings audit", zap.Error(err))
	}
}

func (s *PenaltyService) emitSaveAudit(ctx context.Context, actor *models.JWTClaims, req models.PenaltySaveRequest, result *models.PenaltySaveResult) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"reason":  req.Reason,
		"entries": len(req.Entries),
		"saved":   result.SavedCount,
		"skipped": len(result.SkippedDuplicates),
	})
	log := &models.AuditLog{
		UserID:    actorIDPtr(actor),
		Action:    models.AuditActionPenaltySave,
		Resource:  "bonus_hours",
		NewValues: payload,
		IPAddress: "system",
		UserAgent: "penalty-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record penalty save audit", zap.Error(err))
	}
}

func leaveKey(employeeID, date string) string {
	return employeeID + "|" + date
}

func actorIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
