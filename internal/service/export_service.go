package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	"github.com/garrison-hr/hrms-api/pkg/export"
)

type exportAttendanceReader interface {
	MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error)
}

type exportLedgerReader interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, int, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportService renders report datasets into downloadable files.
type ExportService struct {
	attendance exportAttendanceReader
	ledger     exportLedgerReader
	storage    exportStorage
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	xlsx       *export.ExcelExporter
	logger     *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(attendance exportAttendanceReader, ledger exportLedgerReader, store exportStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		ledger:     ledger,
		storage:    store,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewExcelExporter(),
		logger:     logger,
	}
}

// Generate builds the dataset for a job, renders it in the requested
// format, and stores the file. It returns the stored relative path.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (string, error) {
	monthStart, err := time.Parse("2006-01", job.Month)
	if err != nil {
		return "", fmt.Errorf("invalid report month %q: %w", job.Month, err)
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	dataset, err := s.buildDataset(ctx, job, monthStart, monthEnd)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, reportTitle(job))
	case models.ReportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, job.Month)
	default:
		return "", fmt.Errorf("unsupported report format %q", job.Format)
	}
	if err != nil {
		return "", fmt.Errorf("render %s report: %w", job.Format, err)
	}

	relPath, err := s.storage.Save(buildFilename(job), payload)
	if err != nil {
		return "", fmt.Errorf("store report file: %w", err)
	}
	s.logger.Info("report generated",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("file", relPath),
		zap.Int("rows", len(dataset.Rows)))
	return relPath, nil
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob, monthStart, monthEnd time.Time) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypeAttendanceMonthly:
		return s.attendanceDataset(ctx, job, monthStart, monthEnd)
	case models.ReportTypePenaltyMonthly:
		return s.ledgerDataset(ctx, job, monthStart, monthEnd, true)
	case models.ReportTypeLedger:
		return s.ledgerDataset(ctx, job, monthStart, monthEnd, false)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %q", job.Type)
	}
}

func (s *ExportService) attendanceDataset(ctx context.Context, job *models.ReportJob, monthStart, monthEnd time.Time) (export.Dataset, error) {
	employeeID := ""
	if job.EmployeeID != nil {
		employeeID = *job.EmployeeID
	}
	summaries, err := s.attendance.MonthlySummary(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load attendance summaries: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Employee", "Month", "Present", "Late", "Absent", "Leave", "Half Day", "Holiday Work", "Total"},
	}
	for _, summary := range summaries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Employee":     summary.EmployeeName,
			"Month":        summary.Month,
			"Present":      strconv.Itoa(summary.Present),
			"Late":         strconv.Itoa(summary.Late),
			"Absent":       strconv.Itoa(summary.Absent),
			"Leave":        strconv.Itoa(summary.Leave),
			"Half Day":     strconv.Itoa(summary.HalfDay),
			"Holiday Work": strconv.Itoa(summary.HolidayWork),
			"Total":        strconv.Itoa(summary.Total),
		})
	}
	return dataset, nil
}

func (s *ExportService) ledgerDataset(ctx context.Context, job *models.ReportJob, monthStart, monthEnd time.Time, penaltiesOnly bool) (export.Dataset, error) {
	filter := models.LedgerFilter{
		DateFrom: &monthStart,
		DateTo:   &monthEnd,
		Page:     1,
		PageSize: 10000,
	}
	if job.EmployeeID != nil {
		filter.EmployeeID = *job.EmployeeID
	}
	entries, _, err := s.ledger.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load ledger entries: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Employee", "Service Number", "Date", "Hours", "Reason"},
	}
	for _, entry := range entries {
		if penaltiesOnly && entry.Hours >= 0 {
			continue
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Employee":       entry.EmployeeName,
			"Service Number": entry.ServiceNumber,
			"Date":           entry.Date.Format("2006-01-02"),
			"Hours":          strconv.FormatFloat(entry.Hours, 'f', 2, 64),
			"Reason":         entry.Reason,
		})
	}
	return dataset, nil
}

func reportTitle(job *models.ReportJob) string {
	switch job.Type {
	case models.ReportTypeAttendanceMonthly:
		return "Monthly Attendance Report " + job.Month
	case models.ReportTypePenaltyMonthly:
		return "Monthly Penalty Report " + job.Month
	case models.ReportTypeLedger:
		return "Bonus Hours Ledger " + job.Month
	default:
		return "Report " + job.Month
	}
}

func buildFilename(job *models.ReportJob) string {
	base := strings.ToLower(string(job.Type))
	return fmt.Sprintf("%s/%s_%s_%s.%s", job.Month, base, job.Month, sanitizeFilename(job.ID), job.Format)
}

func sanitizeFilename(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
