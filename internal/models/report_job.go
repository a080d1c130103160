package models

import "time"

// ReportType enumerates supported report datasets.
type ReportType string

const (
	ReportTypeAttendanceMonthly ReportType = "ATTENDANCE_MONTHLY"
	ReportTypePenaltyMonthly    ReportType = "PENALTY_MONTHLY"
	ReportTypeLedger            ReportType = "LEDGER"
)

// Valid returns true when the report type is supported.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeAttendanceMonthly, ReportTypePenaltyMonthly, ReportTypeLedger:
		return true
	default:
		return false
	}
}

// ReportFormat enumerates supported output formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// Valid returns true when the format is supported.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatCSV, ReportFormatPDF, ReportFormatXLSX:
		return true
	default:
		return false
	}
}

// ReportJobStatus tracks async job progress.
type ReportJobStatus string

const (
	ReportJobStatusQueued     ReportJobStatus = "QUEUED"
	ReportJobStatusProcessing ReportJobStatus = "PROCESSING"
	ReportJobStatusFinished   ReportJobStatus = "FINISHED"
	ReportJobStatusFailed     ReportJobStatus = "FAILED"
)

// ReportJob is a persisted report generation job.
type ReportJob struct {
	ID          string          `db:"id" json:"id"`
	Type        ReportType      `db:"type" json:"type"`
	Format      ReportFormat    `db:"format" json:"format"`
	Month       string          `db:"month" json:"month"`
	EmployeeID  *string         `db:"employee_id" json:"employee_id,omitempty"`
	Status      ReportJobStatus `db:"status" json:"status"`
	Progress    int             `db:"progress" json:"progress"`
	FilePath    *string         `db:"file_path" json:"-"`
	ErrorDetail *string         `db:"error_detail" json:"error_detail,omitempty"`
	RequestedBy *string         `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	StartedAt   *time.Time      `db:"started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}

// CreateReportRequest enqueues a report job.
type CreateReportRequest struct {
	Type       string  `json:"type" validate:"required"`
	Format     string  `json:"format" validate:"required,report_format"`
	Month      string  `json:"month" validate:"required"`
	EmployeeID *string `json:"employee_id,omitempty" validate:"omitempty,uuid"`
}

// ReportJobResponse is the job plus a download URL when finished.
type ReportJobResponse struct {
	ReportJob
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
