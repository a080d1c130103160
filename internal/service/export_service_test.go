package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
)

type exportStorageStub struct {
	saved map[string][]byte
}

func (s *exportStorageStub) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[filename] = data
	return filename, nil
}

type exportAttendanceStub struct {
	summaries []models.AttendanceSummary
}

func (s *exportAttendanceStub) MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error) {
	return s.summaries, nil
}

type exportLedgerStub struct {
	entries []models.LedgerEntryDetail
}

func (s *exportLedgerStub) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, int, error) {
	return s.entries, len(s.entries), nil
}

func ledgerDetail(name, serviceNumber, date string, hours float64, reason string) models.LedgerEntryDetail {
	d, _ := time.Parse("2006-01-02", date)
	return models.LedgerEntryDetail{
		LedgerEntry:   models.LedgerEntry{Date: d, Hours: hours, Reason: reason},
		ServiceNumber: serviceNumber,
		EmployeeName:  name,
	}
}

func TestExportServiceGenerateAttendanceCSV(t *testing.T) {
	attendance := &exportAttendanceStub{summaries: []models.AttendanceSummary{
		{EmployeeName: "Ana Silva", Month: "2026-01", Present: 18, Late: 4, Absent: 1, Total: 23},
	}}
	store := &exportStorageStub{}
	svc := NewExportService(attendance, &exportLedgerStub{}, store, nil)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeAttendanceMonthly,
		Format: models.ReportFormatCSV,
		Month:  "2026-01",
	}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(relPath, "2026-01/attendance_monthly_2026-01_"))
	assert.True(t, strings.HasSuffix(relPath, ".csv"))

	content := string(store.saved[relPath])
	assert.Contains(t, content, "Employee,Month,Present,Late")
	assert.Contains(t, content, "Ana Silva,2026-01,18,4,1")
}

func TestExportServiceGeneratePenaltyMonthlyFiltersCredits(t *testing.T) {
	ledger := &exportLedgerStub{entries: []models.LedgerEntryDetail{
		ledgerDetail("Ana Silva", "SN-1001", "2026-01-15", -0.25, "Late arrival penalty 2026-01-15"),
		ledgerDetail("Bruno Costa", "SN-1002", "2026-01-20", 2.0, "Weekend duty credit"),
	}}
	store := &exportStorageStub{}
	svc := NewExportService(&exportAttendanceStub{}, ledger, store, nil)

	job := &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypePenaltyMonthly,
		Format: models.ReportFormatCSV,
		Month:  "2026-01",
	}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	content := string(store.saved[relPath])
	assert.Contains(t, content, "Ana Silva")
	assert.Contains(t, content, "-0.25")
	assert.NotContains(t, content, "Bruno Costa")
}

func TestExportServiceGenerateLedgerKeepsAllEntries(t *testing.T) {
	ledger := &exportLedgerStub{entries: []models.LedgerEntryDetail{
		ledgerDetail("Ana Silva", "SN-1001", "2026-01-15", -0.25, "Late arrival penalty 2026-01-15"),
		ledgerDetail("Bruno Costa", "SN-1002", "2026-01-20", 2.0, "Weekend duty credit"),
	}}
	store := &exportStorageStub{}
	svc := NewExportService(&exportAttendanceStub{}, ledger, store, nil)

	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeLedger,
		Format: models.ReportFormatCSV,
		Month:  "2026-01",
	}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	content := string(store.saved[relPath])
	assert.Contains(t, content, "Ana Silva")
	assert.Contains(t, content, "Bruno Costa")
}

func TestExportServiceGenerateRejectsBadMonth(t *testing.T) {
	svc := NewExportService(&exportAttendanceStub{}, &exportLedgerStub{}, &exportStorageStub{}, nil)

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeLedger,
		Format: models.ReportFormatCSV,
		Month:  "January",
	})
	require.Error(t, err)
}

func TestExportServiceGenerateXLSX(t *testing.T) {
	attendance := &exportAttendanceStub{summaries: []models.AttendanceSummary{
		{EmployeeName: "Ana Silva", Month: "2026-01", Present: 18, Total: 18},
	}}
	store := &exportStorageStub{}
	svc := NewExportService(attendance, &exportLedgerStub{}, store, nil)

	job := &models.ReportJob{
		ID:     "job-5",
		Type:   models.ReportTypeAttendanceMonthly,
		Format: models.ReportFormatXLSX,
		Month:  "2026-01",
	}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, ".xlsx"))
	assert.NotEmpty(t, store.saved[relPath])
}
