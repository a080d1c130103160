package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
	"github.com/garrison-hr/hrms-api/pkg/jobs"
	"github.com/garrison-hr/hrms-api/pkg/storage"
)

type reportJobRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkFinished(ctx context.Context, id, filePath string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, detail string, finishedAt time.Time) error
	ListUnfinished(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error)
}

type reportQueue interface {
	Enqueue(job jobs.Job) error
}

type reportFileStore interface {
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ReportService manages async report jobs and their signed downloads.
type ReportService struct {
	repo           reportJobRepository
	queue          reportQueue
	signer         *storage.SignedURLSigner
	files          reportFileStore
	downloadPrefix string
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewReportService constructs the report service. downloadPrefix is the
// public route prefix the download token gets appended to.
func NewReportService(repo reportJobRepository, queue reportQueue, signer *storage.SignedURLSigner, files reportFileStore, downloadPrefix string, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerSharedRules(validate)
	return &ReportService{
		repo:           repo,
		queue:          queue,
		signer:         signer,
		files:          files,
		downloadPrefix: strings.TrimSuffix(downloadPrefix, "/"),
		validator:      validate,
		logger:         logger,
	}
}

// CreateJob validates the request, persists a queued job, and hands it
// to the worker pool.
func (s *ReportService) CreateJob(ctx context.Context, req models.CreateReportRequest, actor *models.JWTClaims) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	reportType := models.ReportType(strings.ToUpper(req.Type))
	if !reportType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be ATTENDANCE_MONTHLY, PENALTY_MONTHLY, or LEDGER")
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month format, expected YYYY-MM")
	}

	job := &models.ReportJob{
		Type:        reportType,
		Format:      models.ReportFormat(strings.ToLower(req.Format)),
		Month:       req.Month,
		EmployeeID:  req.EmployeeID,
		Status:      models.ReportJobStatusQueued,
		RequestedBy: actorIDPtr(actor),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
		detail := "failed to enqueue: " + err.Error()
		if markErr := s.repo.MarkFailed(ctx, job.ID, detail, time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark unqueued job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus returns the job state plus a signed download URL once the
// file is ready.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*models.ReportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}

	resp := &models.ReportJobResponse{ReportJob: *job}
	if job.Status == models.ReportJobStatusFinished && job.FilePath != nil && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			url := s.downloadPrefix + "/reports/download/" + token
			resp.DownloadURL = &url
			resp.ExpiresAt = &expiresAt
		}
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the report file
// for streaming. The caller must close the returned file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*os.File, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportJobStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report file is not available")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file is missing")
	}
	return file, job, nil
}

// RecoverPendingJobs re-enqueues jobs left queued or processing by a
// previous run.
func (s *ReportService) RecoverPendingJobs(ctx context.Context, cutoff time.Time) error {
	unfinished, err := s.repo.ListUnfinished(ctx, cutoff)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unfinished jobs")
	}
	for _, job := range unfinished {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report"}); err != nil {
			s.logger.Error("failed to re-enqueue report job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		s.logger.Info("re-enqueued report job", zap.String("job_id", job.ID))
	}
	return nil
}

// StartCleanup deletes stored report files older than ttl on a ticker
// until the context is cancelled.
func (s *ReportService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || s.files == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.files.CleanupOlderThan(ttl)
				if err != nil {
					s.logger.Warn("report cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("removed expired report files", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

type reportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (string, error)
}

// ReportWorker consumes report jobs from the queue.
type ReportWorker struct {
	repo      reportJobRepository
	generator reportGenerator
	logger    *zap.Logger
}

// NewReportWorker constructs the worker.
func NewReportWorker(repo reportJobRepository, generator reportGenerator, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{repo: repo, generator: generator, logger: logger}
}

// Handle processes one queued report job. A returned error triggers a
// queue retry; a retried job moves back from FAILED to PROCESSING.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("report job vanished", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	if record.Status == models.ReportJobStatusFinished {
		return nil
	}

	if err := w.repo.MarkProcessing(ctx, record.ID, time.Now().UTC()); err != nil {
		return err
	}
	if err := w.repo.UpdateProgress(ctx, record.ID, 10); err != nil {
		w.logger.Warn("failed to update job progress", zap.String("job_id", record.ID), zap.Error(err))
	}

	relPath, err := w.generator.Generate(ctx, record)
	if err != nil {
		if markErr := w.repo.MarkFailed(ctx, record.ID, err.Error(), time.Now().UTC()); markErr != nil {
			w.logger.Error("failed to mark job failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return err
	}

	if err := w.repo.MarkFinished(ctx, record.ID, relPath, time.Now().UTC()); err != nil {
		return err
	}
	w.logger.Info("report job finished", zap.String("job_id", record.ID), zap.String("file", relPath))
	return nil
}
