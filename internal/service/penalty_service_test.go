package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type penaltySettingsRepoStub struct {
	settings *models.PenaltySettings
	err      error
	replaced *models.PenaltySettings
}

func (s *penaltySettingsRepoStub) Get(ctx context.Context) (*models.PenaltySettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.settings == nil {
		return nil, sql.ErrNoRows
	}
	return s.settings, nil
}

func (s *penaltySettingsRepoStub) Replace(ctx context.Context, settings *models.PenaltySettings) error {
	s.replaced = settings
	s.settings = settings
	return nil
}

type penaltyAttendanceStub struct {
	records   []models.AttendanceRecordDetail
	instances map[string][]models.LateInstance
}

func (s *penaltyAttendanceStub) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecordDetail, error) {
	return s.records, nil
}

func (s *penaltyAttendanceStub) MonthlyLateInstances(ctx context.Context, employeeID string, monthStart, end time.Time) ([]models.LateInstance, error) {
	return s.instances[employeeID], nil
}

type penaltyLeaveStub struct {
	approved map[string]struct{}
}

func (s *penaltyLeaveStub) ApprovedSet(ctx context.Context, from, to time.Time) (map[string]struct{}, error) {
	if s.approved == nil {
		return map[string]struct{}{}, nil
	}
	return s.approved, nil
}

type penaltyLedgerStub struct {
	existing map[string]bool
	created  []models.LedgerEntry
}

func (s *penaltyLedgerStub) Exists(ctx context.Context, employeeID string, date time.Time, reason string) (bool, error) {
	return s.existing[employeeID+"|"+date.Format("2006-01-02")], nil
}

func (s *penaltyLedgerStub) Create(ctx context.Context, entry *models.LedgerEntry) error {
	s.created = append(s.created, *entry)
	return nil
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newPenaltyService(settings *penaltySettingsRepoStub, attendance *penaltyAttendanceStub, leaves *penaltyLeaveStub, ledger *penaltyLedgerStub, audit *auditLoggerStub) *PenaltyService {
	return NewPenaltyService(settings, attendance, leaves, ledger, audit, nil, validator.New(), nil)
}

func lateDetail(recordID, employeeID, name, date, timeIn string) models.AttendanceRecordDetail {
	d, _ := time.Parse("2006-01-02", date)
	ti := timeIn
	return models.AttendanceRecordDetail{
		AttendanceRecord: models.AttendanceRecord{
			ID:         recordID,
			EmployeeID: employeeID,
			Date:       d,
			TimeIn:     &ti,
			Status:     models.AttendanceStatusLate,
		},
		EmployeeName: name,
	}
}

func lateHistory(employeeID string, entries ...[2]string) []models.LateInstance {
	instances := make([]models.LateInstance, len(entries))
	for i, entry := range entries {
		d, _ := time.Parse("2006-01-02", entry[0])
		instances[i] = models.LateInstance{
			RecordID:   employeeID + "-" + entry[0],
			EmployeeID: employeeID,
			Date:       d,
			TimeIn:     entry[1],
		}
	}
	return instances
}

func TestPenaltyServiceCalculateRequiresSettings(t *testing.T) {
	svc := newPenaltyService(&penaltySettingsRepoStub{}, &penaltyAttendanceStub{}, &penaltyLeaveStub{}, &penaltyLedgerStub{}, &auditLoggerStub{})

	_, err := svc.CalculateForDate(context.Background(), models.PenaltyCalculateRequest{Date: "2026-01-15"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPenaltyServiceCalculateForDate(t *testing.T) {
	settings := testSettings()
	attendance := &penaltyAttendanceStub{
		records: []models.AttendanceRecordDetail{
			lateDetail("emp-1-2026-01-15", "emp-1", "Ana Silva", "2026-01-15", "09:30"),
		},
		instances: map[string][]models.LateInstance{
			"emp-1": lateHistory("emp-1",
				[2]string{"2026-01-02", "09:20"},
				[2]string{"2026-01-05", "09:40"},
				[2]string{"2026-01-09", "10:30"},
				[2]string{"2026-01-15", "09:30"},
			),
		},
	}
	svc := newPenaltyService(&penaltySettingsRepoStub{settings: &settings}, attendance, &penaltyLeaveStub{}, &penaltyLedgerStub{}, &auditLoggerStub{})

	result, err := svc.CalculateForDate(context.Background(), models.PenaltyCalculateRequest{Date: "2026-01-15"})
	require.NoError(t, err)

	// 4th late of the month crossing the ignore count with retroactive
	// enabled: current plus three retroactive computations.
	require.Len(t, result.Results, 4)
	current := result.Results[0]
	assert.Equal(t, "Ana Silva", current.EmployeeName)
	assert.True(t, current.ApplyPenalty)
	assert.InDelta(t, 0.25, current.PenaltyHours, 0.0001)
	assert.False(t, current.Retroactive)
	for _, prior := range result.Results[1:] {
		assert.True(t, prior.Retroactive)
	}

	assert.Equal(t, 1, result.Summary.TotalEmployees)
	assert.Equal(t, 4, result.Summary.EligibleForPenalty)
}

func TestPenaltyServiceCalculateShortLeaveExempts(t *testing.T) {
	settings := testSettings()
	settings.RetroactivePenalty = false
	attendance := &penaltyAttendanceStub{
		records: []models.AttendanceRecordDetail{
			lateDetail("emp-1-2026-01-15", "emp-1", "Ana Silva", "2026-01-15", "09:30"),
		},
		instances: map[string][]models.LateInstance{
			"emp-1": lateHistory("emp-1",
				[2]string{"2026-01-02", "09:20"},
				[2]string{"2026-01-05", "09:40"},
				[2]string{"2026-01-09", "10:30"},
				[2]string{"2026-01-15", "09:30"},
			),
		},
	}
	leaves := &penaltyLeaveStub{approved: map[string]struct{}{"emp-1|2026-01-15": {}}}
	svc := newPenaltyService(&penaltySettingsRepoStub{settings: &settings}, attendance, leaves, &penaltyLedgerStub{}, &auditLoggerStub{})

	result, err := svc.CalculateForDate(context.Background(), models.PenaltyCalculateRequest{Date: "2026-01-15"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].ApplyPenalty)
	assert.True(t, result.Results[0].Exempted)
	assert.Equal(t, 1, result.Summary.ExemptedDueToShortLeave)
}

func TestPenaltyServiceCalculateSurfacesMissingTimeIn(t *testing.T) {
	settings := testSettings()
	record := lateDetail("rec-1", "emp-2", "Bruno Costa", "2026-01-15", "")
	record.TimeIn = nil
	attendance := &penaltyAttendanceStub{records: []models.AttendanceRecordDetail{record}}
	svc := newPenaltyService(&penaltySettingsRepoStub{settings: &settings}, attendance, &penaltyLeaveStub{}, &penaltyLedgerStub{}, &auditLoggerStub{})

	result, err := svc.CalculateForDate(context.Background(), models.PenaltyCalculateRequest{Date: "2026-01-15"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Computable)
	assert.Equal(t, 1, result.Summary.NonComputable)
}

func TestPenaltyServiceSaveEntriesSkipsDuplicates(t *testing.T) {
	ledger := &penaltyLedgerStub{existing: map[string]bool{"22222222-2222-2222-2222-222222222222|2026-01-15": true}}
	audit := &auditLoggerStub{}
	svc := newPenaltyService(&penaltySettingsRepoStub{}, &penaltyAttendanceStub{}, &penaltyLeaveStub{}, ledger, audit)

	req := models.PenaltySaveRequest{
		Entries: []models.PenaltySaveEntry{
			{EmployeeID: "11111111-1111-1111-1111-111111111111", Date: "2026-01-15", PenaltyHours: 0.25},
			{EmployeeID: "22222222-2222-2222-2222-222222222222", Date: "2026-01-15", PenaltyHours: 3.0},
		},
		Reason: "Late arrival penalty 2026-01-15",
	}

	result, err := svc.SaveEntries(context.Background(), req, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	require.Len(t, result.SkippedDuplicates, 1)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", result.SkippedDuplicates[0].EmployeeID)

	require.Len(t, ledger.created, 1)
	assert.InDelta(t, -0.25, ledger.created[0].Hours, 0.0001)
	assert.Equal(t, "Late arrival penalty 2026-01-15", ledger.created[0].Reason)
	require.NotEmpty(t, audit.logs)
}

func TestPenaltyServiceSaveSettingsRejectsOverlappingWindows(t *testing.T) {
	svc := newPenaltyService(&penaltySettingsRepoStub{}, &penaltyAttendanceStub{}, &penaltyLeaveStub{}, &penaltyLedgerStub{}, &auditLoggerStub{})

	req := models.PenaltySettingsRequest{
		LateTimeInThreshold:   "09:00",
		GracePeriodMinutes:    15,
		LateIgnoreCount:       3,
		DoublePenaltyStart:    "09:15",
		DoublePenaltyEnd:      "10:30",
		QuadruplePenaltyStart: "10:00",
		QuadruplePenaltyEnd:   "12:00",
	}
	_, err := svc.SaveSettings(context.Background(), req, &models.JWTClaims{UserID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPenaltyServiceSaveSettingsPersistsAndAudits(t *testing.T) {
	settingsRepo := &penaltySettingsRepoStub{}
	audit := &auditLoggerStub{}
	svc := newPenaltyService(settingsRepo, &penaltyAttendanceStub{}, &penaltyLeaveStub{}, &penaltyLedgerStub{}, audit)

	req := models.PenaltySettingsRequest{
		LateTimeInThreshold:   "09:00",
		GracePeriodMinutes:    15,
		LateIgnoreCount:       3,
		DoublePenaltyStart:    "09:15",
		DoublePenaltyEnd:      "10:00",
		QuadruplePenaltyStart: "10:00",
		QuadruplePenaltyEnd:   "12:00",
		ShortLeaveExempt:      true,
		RetroactivePenalty:    true,
	}
	saved, err := svc.SaveSettings(context.Background(), req, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	require.NotNil(t, settingsRepo.replaced)
	assert.Equal(t, "09:00", saved.LateTimeInThreshold)
	require.NotNil(t, saved.UpdatedBy)
	assert.Equal(t, "admin-1", *saved.UpdatedBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPenaltySettingsUpdate, audit.logs[0].Action)
}
