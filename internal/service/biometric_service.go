package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type biometricLogRepository interface {
	Create(ctx context.Context, log *models.BiometricLog) error
	BulkCreate(ctx context.Context, logs []models.BiometricLog) (int, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.BiometricLog, error)
	MarkImported(ctx context.Context, ids []string) error
}

type biometricEmployeeReader interface {
	MapByDeviceUserID(ctx context.Context) (map[string]models.Employee, error)
}

type biometricAttendanceWriter interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
}

// BiometricConfig holds device connection parameters.
type BiometricConfig struct {
	DeviceURL string
	Timeout   time.Duration
}

const (
	biometricSourceDevice   = "device"
	biometricSourceFallback = "fallback"
)

// BiometricService pulls punches from the fingerprint device and turns
// them into attendance records.
type BiometricService struct {
	logs       biometricLogRepository
	employees  biometricEmployeeReader
	attendance biometricAttendanceWriter
	settings   attendanceSettingsReader
	client     *http.Client
	cfg        BiometricConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewBiometricService constructs the biometric service.
func NewBiometricService(logs biometricLogRepository, employees biometricEmployeeReader, attendance biometricAttendanceWriter, settings attendanceSettingsReader, cfg BiometricConfig, validate *validator.Validate, logger *zap.Logger) *BiometricService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BiometricService{
		logs:       logs,
		employees:  employees,
		attendance: attendance,
		settings:   settings,
		client:     &http.Client{Timeout: timeout},
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// Poll fetches punches for a date from the device and upserts the
// matching attendance records. When the device is unreachable the pull
// degrades to replaying punches already stored for that date.
func (s *BiometricService) Poll(ctx context.Context, req models.BiometricPollRequest) (*models.BiometricPollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	result := &models.BiometricPollResult{Date: req.Date, Source: biometricSourceDevice}

	logs, err := s.fetchFromDevice(ctx, req.Date, date)
	if err != nil {
		s.logger.Warn("device pull failed, replaying stored punches", zap.String("date", req.Date), zap.Error(err))
		stored, fallbackErr := s.logs.ListByDate(ctx, date)
		if fallbackErr != nil {
			return nil, appErrors.Wrap(fallbackErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stored punches")
		}
		if len(stored) == 0 {
			return nil, appErrors.Clone(appErrors.ErrDeviceUnreachable, "biometric device unreachable and no stored punches for the date")
		}
		logs = stored
		result.Source = biometricSourceFallback
		result.Degraded = true
	}
	result.PunchCount = len(logs)

	marked, unmapped, err := s.applyPunches(ctx, date, logs, result.Degraded)
	if err != nil {
		return nil, err
	}
	result.RecordsMarked = marked
	result.Unmapped = unmapped
	return result, nil
}

// Punch stores a single punch reported out of band, for example from a
// device webhook or a manual replay.
func (s *BiometricService) Punch(ctx context.Context, req models.BiometricPunchRequest) (*models.BiometricLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	punchedAt, err := time.Parse(time.RFC3339, req.PunchedAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "punched_at must be an RFC3339 timestamp")
	}
	log := &models.BiometricLog{
		DeviceUserID: req.DeviceUserID,
		PunchedAt:    punchedAt.UTC(),
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store punch")
	}
	return log, nil
}

// Logs lists stored punches for a date.
func (s *BiometricService) Logs(ctx context.Context, dateStr string) ([]models.BiometricLog, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	logs, err := s.logs.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list punches")
	}
	return logs, nil
}

func (s *BiometricService) fetchFromDevice(ctx context.Context, dateStr string, date time.Time) ([]models.BiometricLog, error) {
	if s.cfg.DeviceURL == "" {
		return nil, errors.New("no device url configured")
	}
	endpoint := fmt.Sprintf("%s/punches?date=%s", s.cfg.DeviceURL, url.QueryEscape(dateStr))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device returned status %d", resp.StatusCode)
	}
	var punches []models.DevicePunch
	if err := json.NewDecoder(resp.Body).Decode(&punches); err != nil {
		return nil, fmt.Errorf("decode device response: %w", err)
	}

	logs := make([]models.BiometricLog, 0, len(punches))
	for _, punch := range punches {
		punchedAt, err := time.Parse(time.RFC3339, punch.Timestamp)
		if err != nil {
			s.logger.Warn("skipping punch with unparseable timestamp",
				zap.String("device_user_id", punch.DeviceUserID),
				zap.String("timestamp", punch.Timestamp))
			continue
		}
		raw, _ := json.Marshal(punch)
		payload := string(raw)
		logs = append(logs, models.BiometricLog{
			DeviceUserID: punch.DeviceUserID,
			PunchedAt:    punchedAt.UTC(),
			RawPayload:   &payload,
		})
	}
	if _, err := s.logs.BulkCreate(ctx, logs); err != nil {
		return nil, fmt.Errorf("persist punches: %w", err)
	}

	// Re-read so fallback replays and fresh pulls walk the same rows,
	// duplicates already collapsed by the store.
	stored, err := s.logs.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *BiometricService) applyPunches(ctx context.Context, date time.Time, logs []models.BiometricLog, fallback bool) (marked, unmapped int, err error) {
	employees, err := s.employees.MapByDeviceUserID(ctx)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to map device users")
	}

	type window struct {
		first time.Time
		last  time.Time
		ids   []string
	}
	windows := map[string]*window{}
	for _, log := range logs {
		emp, ok := employees[log.DeviceUserID]
		if !ok {
			unmapped++
			continue
		}
		w, ok := windows[emp.ID]
		if !ok {
			w = &window{first: log.PunchedAt, last: log.PunchedAt}
			windows[emp.ID] = w
		} else {
			if log.PunchedAt.Before(w.first) {
				w.first = log.PunchedAt
			}
			if log.PunchedAt.After(w.last) {
				w.last = log.PunchedAt
			}
		}
		w.ids = append(w.ids, log.ID)
	}

	threshold := -1
	if settings, err := s.settings.Get(ctx); err == nil {
		if base, perr := ParseClock(settings.LateTimeInThreshold); perr == nil {
			threshold = base + settings.GracePeriodMinutes
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty settings")
	}

	source := models.AttendanceSourceDevice
	if fallback {
		source = models.AttendanceSourceFallback
	}

	employeeIDs := make([]string, 0, len(windows))
	for id := range windows {
		employeeIDs = append(employeeIDs, id)
	}
	sort.Strings(employeeIDs)

	var importedIDs []string
	for _, employeeID := range employeeIDs {
		w := windows[employeeID]
		timeIn := w.first.Format("15:04")
		status := models.AttendanceStatusPresent
		if threshold >= 0 {
			if arrival, perr := ParseClock(timeIn); perr == nil && arrival >= threshold {
				status = models.AttendanceStatusLate
			}
		}
		record := &models.AttendanceRecord{
			EmployeeID: employeeID,
			Date:       date,
			TimeIn:     &timeIn,
			Status:     status,
			Source:     source,
		}
		if w.last.After(w.first) {
			timeOut := w.last.Format("15:04")
			record.TimeOut = &timeOut
		}
		if _, err := s.attendance.Upsert(ctx, record); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Info("skipping finalized attendance record",
					zap.String("employee_id", employeeID),
					zap.String("date", date.Format("2006-01-02")))
				continue
			}
			return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert attendance")
		}
		marked++
		importedIDs = append(importedIDs, w.ids...)
	}

	if len(importedIDs) > 0 {
		if err := s.logs.MarkImported(ctx, importedIDs); err != nil {
			s.logger.Warn("failed to mark punches imported", zap.Error(err))
		}
	}
	return marked, unmapped, nil
}
