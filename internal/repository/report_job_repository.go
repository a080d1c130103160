package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/garrison-hr/hrms-api/internal/models"
)

// ReportJobRepository persists async report generation jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs the repository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

const reportJobColumns = `id, type, format, month, employee_id, status, progress, file_path, error_detail, requested_by, created_at, started_at, finished_at`

// Create inserts a queued job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, type, format, month, employee_id, status, progress, file_path, error_detail, requested_by, created_at, started_at, finished_at)
VALUES (:id, :type, :format, :month, :employee_id, :status, :progress, :file_path, :error_detail, :requested_by, :created_at, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a job by identifier.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE id = $1 LIMIT 1`, reportJobColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report job: %w", err)
	}
	return &job, nil
}

// MarkProcessing transitions a job to PROCESSING.
func (r *ReportJobRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, started_at = $3, progress = 10 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobStatusProcessing, startedAt); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}
	return nil
}

// UpdateProgress stores a progress percentage for a running job.
func (r *ReportJobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	const query = `UPDATE report_jobs SET progress = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress); err != nil {
		return fmt.Errorf("update report job progress: %w", err)
	}
	return nil
}

// MarkFinished transitions a job to FINISHED with its file path.
func (r *ReportJobRepository) MarkFinished(ctx context.Context, id, filePath string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, finished_at = $4, progress = 100, error_detail = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobStatusFinished, filePath, finishedAt); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	return nil
}

// MarkFailed transitions a job to FAILED with an error message.
func (r *ReportJobRepository) MarkFailed(ctx context.Context, id, detail string, finishedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, error_detail = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobStatusFailed, detail, finishedAt); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}

// ListUnfinished returns jobs left QUEUED or PROCESSING from before the
// cutoff, used on startup to recover work lost to a restart.
func (r *ReportJobRepository) ListUnfinished(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE status IN ($1, $2) AND created_at < $3 ORDER BY created_at ASC`, reportJobColumns)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportJobStatusQueued, models.ReportJobStatusProcessing, cutoff); err != nil {
		return nil, fmt.Errorf("list unfinished report jobs: %w", err)
	}
	return jobs, nil
}
