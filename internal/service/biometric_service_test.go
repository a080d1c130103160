package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type biometricLogRepoStub struct {
	stored   []models.BiometricLog
	created  []models.BiometricLog
	imported []string
}

func (s *biometricLogRepoStub) Create(ctx context.Context, log *models.BiometricLog) error {
	log.ID = "log-new"
	s.created = append(s.created, *log)
	return nil
}

func (s *biometricLogRepoStub) BulkCreate(ctx context.Context, logs []models.BiometricLog) (int, error) {
	for i, log := range logs {
		log.ID = "log-" + log.DeviceUserID + "-" + log.PunchedAt.Format("150405")
		s.stored = append(s.stored, log)
		logs[i] = log
	}
	return len(logs), nil
}

func (s *biometricLogRepoStub) ListByDate(ctx context.Context, date time.Time) ([]models.BiometricLog, error) {
	return s.stored, nil
}

func (s *biometricLogRepoStub) MarkImported(ctx context.Context, ids []string) error {
	s.imported = append(s.imported, ids...)
	return nil
}

type biometricEmployeeStub struct {
	mapped map[string]models.Employee
}

func (s *biometricEmployeeStub) MapByDeviceUserID(ctx context.Context) (map[string]models.Employee, error) {
	return s.mapped, nil
}

func newBiometricService(logs *biometricLogRepoStub, employees *biometricEmployeeStub, attendance *attendanceRepoStub, settings *penaltySettingsRepoStub, deviceURL string) *BiometricService {
	cfg := BiometricConfig{DeviceURL: deviceURL, Timeout: time.Second}
	return NewBiometricService(logs, employees, attendance, settings, cfg, validator.New(), nil)
}

func devicePunchServer(t *testing.T, punches []models.DevicePunch) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/punches", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(punches))
	}))
}

func TestBiometricServicePollMarksAttendance(t *testing.T) {
	server := devicePunchServer(t, []models.DevicePunch{
		{DeviceUserID: "dev-1", Timestamp: "2026-01-15T08:45:00Z"},
		{DeviceUserID: "dev-1", Timestamp: "2026-01-15T17:05:00Z"},
		{DeviceUserID: "dev-2", Timestamp: "2026-01-15T09:40:00Z"},
		{DeviceUserID: "dev-unknown", Timestamp: "2026-01-15T09:00:00Z"},
	})
	defer server.Close()

	settings := testSettings()
	logs := &biometricLogRepoStub{}
	employees := &biometricEmployeeStub{mapped: map[string]models.Employee{
		"dev-1": {ID: "emp-1", FullName: "Ana Silva"},
		"dev-2": {ID: "emp-2", FullName: "Bruno Costa"},
	}}
	attendance := &attendanceRepoStub{}
	svc := newBiometricService(logs, employees, attendance, &penaltySettingsRepoStub{settings: &settings}, server.URL)

	result, err := svc.Poll(context.Background(), models.BiometricPollRequest{Date: "2026-01-15"})
	require.NoError(t, err)
	assert.Equal(t, "device", result.Source)
	assert.False(t, result.Degraded)
	assert.Equal(t, 4, result.PunchCount)
	assert.Equal(t, 2, result.RecordsMarked)
	assert.Equal(t, 1, result.Unmapped)

	require.Len(t, attendance.upserted, 2)
	byEmployee := map[string]models.AttendanceRecord{}
	for _, rec := range attendance.upserted {
		byEmployee[rec.EmployeeID] = rec
	}
	first := byEmployee["emp-1"]
	require.NotNil(t, first.TimeIn)
	assert.Equal(t, "08:45", *first.TimeIn)
	require.NotNil(t, first.TimeOut)
	assert.Equal(t, "17:05", *first.TimeOut)
	assert.Equal(t, models.AttendanceStatusPresent, first.Status)
	assert.Equal(t, models.AttendanceSourceDevice, first.Source)

	second := byEmployee["emp-2"]
	assert.Equal(t, models.AttendanceStatusLate, second.Status)
	assert.Nil(t, second.TimeOut)

	assert.NotEmpty(t, logs.imported)
}

func TestBiometricServicePollFallsBackToStoredPunches(t *testing.T) {
	logs := &biometricLogRepoStub{stored: []models.BiometricLog{
		{ID: "log-1", DeviceUserID: "dev-1", PunchedAt: time.Date(2026, 1, 15, 9, 50, 0, 0, time.UTC)},
	}}
	employees := &biometricEmployeeStub{mapped: map[string]models.Employee{
		"dev-1": {ID: "emp-1", FullName: "Ana Silva"},
	}}
	attendance := &attendanceRepoStub{}
	settings := testSettings()
	svc := newBiometricService(logs, employees, attendance, &penaltySettingsRepoStub{settings: &settings}, "http://127.0.0.1:1")

	result, err := svc.Poll(context.Background(), models.BiometricPollRequest{Date: "2026-01-15"})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, "fallback", result.Source)
	assert.Equal(t, 1, result.RecordsMarked)

	require.Len(t, attendance.upserted, 1)
	assert.Equal(t, models.AttendanceSourceFallback, attendance.upserted[0].Source)
	assert.Equal(t, models.AttendanceStatusLate, attendance.upserted[0].Status)
}

func TestBiometricServicePollUnreachableWithoutStoredPunches(t *testing.T) {
	svc := newBiometricService(&biometricLogRepoStub{}, &biometricEmployeeStub{}, &attendanceRepoStub{}, &penaltySettingsRepoStub{}, "http://127.0.0.1:1")

	_, err := svc.Poll(context.Background(), models.BiometricPollRequest{Date: "2026-01-15"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeviceUnreachable.Code, appErrors.FromError(err).Code)
}

func TestBiometricServicePunch(t *testing.T) {
	logs := &biometricLogRepoStub{}
	svc := newBiometricService(logs, &biometricEmployeeStub{}, &attendanceRepoStub{}, &penaltySettingsRepoStub{}, "")

	log, err := svc.Punch(context.Background(), models.BiometricPunchRequest{
		DeviceUserID: "dev-1",
		PunchedAt:    "2026-01-15T08:45:00+02:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", log.DeviceUserID)
	assert.Equal(t, time.Date(2026, 1, 15, 6, 45, 0, 0, time.UTC), log.PunchedAt)
	require.Len(t, logs.created, 1)
}

func TestBiometricServicePunchRejectsBadTimestamp(t *testing.T) {
	svc := newBiometricService(&biometricLogRepoStub{}, &biometricEmployeeStub{}, &attendanceRepoStub{}, &penaltySettingsRepoStub{}, "")

	_, err := svc.Punch(context.Background(), models.BiometricPunchRequest{
		DeviceUserID: "dev-1",
		PunchedAt:    "yesterday",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
