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

type attendanceRepoStub struct {
	upserted   []models.AttendanceRecord
	upsertErr  error
	conflicts  []models.AttendanceBulkConflict
	bulkErr    error
	bulkAtomic bool
	finalized  int
	summaries  []models.AttendanceSummary
}

func (s *attendanceRepoStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	return nil, 0, nil
}

func (s *attendanceRepoStub) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upserted = append(s.upserted, *record)
	return record, nil
}

func (s *attendanceRepoStub) BulkUpsert(ctx context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceBulkConflict, error) {
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	s.bulkAtomic = atomic
	s.upserted = append(s.upserted, records...)
	return s.conflicts, nil
}

func (s *attendanceRepoStub) FinalizeByDate(ctx context.Context, date time.Time) (int, error) {
	return s.finalized, nil
}

func (s *attendanceRepoStub) MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error) {
	return s.summaries, nil
}

func newAttendanceService(repo *attendanceRepoStub, settings *penaltySettingsRepoStub) *AttendanceService {
	return NewAttendanceService(repo, settings, validator.New(), nil)
}

func TestAttendanceServiceMarkNormalizesPresentPastGrace(t *testing.T) {
	settings := testSettings()
	repo := &attendanceRepoStub{}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{settings: &settings})

	timeIn := "09:30"
	record, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		TimeIn:     &timeIn,
		Status:     string(models.AttendanceStatusPresent),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.Equal(t, models.AttendanceSourceManual, record.Source)
}

func TestAttendanceServiceMarkKeepsPresentWithinGrace(t *testing.T) {
	settings := testSettings()
	repo := &attendanceRepoStub{}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{settings: &settings})

	timeIn := "09:10"
	record, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		TimeIn:     &timeIn,
		Status:     string(models.AttendanceStatusPresent),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
}

func TestAttendanceServiceMarkWithoutSettingsKeepsStatus(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{})

	timeIn := "11:00"
	record, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		TimeIn:     &timeIn,
		Status:     string(models.AttendanceStatusPresent),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
}

func TestAttendanceServiceMarkFinalizedConflict(t *testing.T) {
	repo := &attendanceRepoStub{upsertErr: sql.ErrNoRows}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{})

	_, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		Status:     string(models.AttendanceStatusAbsent),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceBulkMarkRejectsDuplicates(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{})

	req := models.BulkMarkAttendanceRequest{
		Records: []models.MarkAttendanceRequest{
			{EmployeeID: "11111111-1111-1111-1111-111111111111", Date: "2026-01-15", Status: "Absent"},
			{EmployeeID: "11111111-1111-1111-1111-111111111111", Date: "2026-01-15", Status: "Present"},
		},
	}
	_, err := svc.BulkMark(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceBulkMarkPartialReportsConflicts(t *testing.T) {
	repo := &attendanceRepoStub{
		conflicts: []models.AttendanceBulkConflict{
			{EmployeeID: "22222222-2222-2222-2222-222222222222", Date: "2026-01-15", Reason: "record already finalized"},
		},
	}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{})

	req := models.BulkMarkAttendanceRequest{
		Records: []models.MarkAttendanceRequest{
			{EmployeeID: "11111111-1111-1111-1111-111111111111", Date: "2026-01-15", Status: "Absent"},
			{EmployeeID: "22222222-2222-2222-2222-222222222222", Date: "2026-01-15", Status: "Absent"},
		},
		Mode: models.BulkModePartialOnError,
	}
	result, err := svc.BulkMark(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, repo.bulkAtomic)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Success)
	require.Len(t, result.Conflicts, 1)
}

func TestAttendanceServiceFinalize(t *testing.T) {
	repo := &attendanceRepoStub{finalized: 12}
	svc := newAttendanceService(repo, &penaltySettingsRepoStub{})

	count, err := svc.Finalize(context.Background(), models.FinalizeAttendanceRequest{Date: "2026-01-15"})
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestAttendanceServiceMonthlySummaryValidatesMonth(t *testing.T) {
	svc := newAttendanceService(&attendanceRepoStub{}, &penaltySettingsRepoStub{})

	_, err := svc.MonthlySummary(context.Background(), "", "2026-13")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
