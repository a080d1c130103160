package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
	"github.com/garrison-hr/hrms-api/pkg/jobs"
	"github.com/garrison-hr/hrms-api/pkg/storage"
)

type reportJobRepoStub struct {
	byID       map[string]*models.ReportJob
	failed     map[string]string
	finished   map[string]string
	processing []string
	unfinished []models.ReportJob
}

func newReportJobRepoStub(jobsIn ...*models.ReportJob) *reportJobRepoStub {
	stub := &reportJobRepoStub{
		byID:     map[string]*models.ReportJob{},
		failed:   map[string]string{},
		finished: map[string]string{},
	}
	for _, j := range jobsIn {
		stub.byID[j.ID] = j
	}
	return stub
}

func (s *reportJobRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	job.ID = "job-new"
	job.CreatedAt = time.Now().UTC()
	s.byID[job.ID] = job
	return nil
}

func (s *reportJobRepoStub) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (s *reportJobRepoStub) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	s.processing = append(s.processing, id)
	if job, ok := s.byID[id]; ok {
		job.Status = models.ReportJobStatusProcessing
	}
	return nil
}

func (s *reportJobRepoStub) UpdateProgress(ctx context.Context, id string, progress int) error {
	return nil
}

func (s *reportJobRepoStub) MarkFinished(ctx context.Context, id, filePath string, finishedAt time.Time) error {
	s.finished[id] = filePath
	if job, ok := s.byID[id]; ok {
		job.Status = models.ReportJobStatusFinished
		job.FilePath = &filePath
	}
	return nil
}

func (s *reportJobRepoStub) MarkFailed(ctx context.Context, id, detail string, finishedAt time.Time) error {
	s.failed[id] = detail
	if job, ok := s.byID[id]; ok {
		job.Status = models.ReportJobStatusFailed
	}
	return nil
}

func (s *reportJobRepoStub) ListUnfinished(ctx context.Context, cutoff time.Time) ([]models.ReportJob, error) {
	return s.unfinished, nil
}

type reportQueueStub struct {
	enqueued []jobs.Job
	err      error
}

func (q *reportQueueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type reportGeneratorStub struct {
	relPath string
	err     error
	calls   int
}

func (g *reportGeneratorStub) Generate(ctx context.Context, job *models.ReportJob) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.relPath, nil
}

func testSigner() *storage.SignedURLSigner {
	return storage.NewSignedURLSigner("test-signing-secret", time.Hour)
}

func newReportService(repo *reportJobRepoStub, queue *reportQueueStub, files reportFileStore) *ReportService {
	return NewReportService(repo, queue, testSigner(), files, "/api/v1", validator.New(), nil)
}

func TestReportServiceCreateJobEnqueues(t *testing.T) {
	repo := newReportJobRepoStub()
	queue := &reportQueueStub{}
	svc := newReportService(repo, queue, nil)

	job, err := svc.CreateJob(context.Background(), models.CreateReportRequest{
		Type:   "attendance_monthly",
		Format: "CSV",
		Month:  "2026-01",
	}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportTypeAttendanceMonthly, job.Type)
	assert.Equal(t, models.ReportFormatCSV, job.Format)
	assert.Equal(t, models.ReportJobStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestReportServiceCreateJobRejectsBadType(t *testing.T) {
	svc := newReportService(newReportJobRepoStub(), &reportQueueStub{}, nil)

	_, err := svc.CreateJob(context.Background(), models.CreateReportRequest{
		Type:   "PAYROLL",
		Format: "csv",
		Month:  "2026-01",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobMarksFailedOnEnqueueError(t *testing.T) {
	repo := newReportJobRepoStub()
	queue := &reportQueueStub{err: errors.New("queue stopped")}
	svc := newReportService(repo, queue, nil)

	_, err := svc.CreateJob(context.Background(), models.CreateReportRequest{
		Type:   "LEDGER",
		Format: "pdf",
		Month:  "2026-01",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, repo.failed["job-new"], "failed to enqueue")
}

func TestReportServiceGetStatusSignsFinishedJob(t *testing.T) {
	filePath := "2026-01/ledger_2026-01_job-1.csv"
	repo := newReportJobRepoStub(&models.ReportJob{
		ID:       "job-1",
		Type:     models.ReportTypeLedger,
		Format:   models.ReportFormatCSV,
		Month:    "2026-01",
		Status:   models.ReportJobStatusFinished,
		FilePath: &filePath,
	})
	svc := newReportService(repo, &reportQueueStub{}, nil)

	resp, err := svc.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, resp.DownloadURL)
	assert.Contains(t, *resp.DownloadURL, "/api/v1/reports/download/")
	require.NotNil(t, resp.ExpiresAt)

	jobID, relPath, _, err := testSigner().Parse((*resp.DownloadURL)[len("/api/v1/reports/download/"):], false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, filePath, relPath)
}

func TestReportServiceGetStatusQueuedHasNoURL(t *testing.T) {
	repo := newReportJobRepoStub(&models.ReportJob{ID: "job-1", Status: models.ReportJobStatusQueued})
	svc := newReportService(repo, &reportQueueStub{}, nil)

	resp, err := svc.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, resp.DownloadURL)
}

func TestReportServiceResolveDownloadRejectsForgedToken(t *testing.T) {
	svc := newReportService(newReportJobRepoStub(), &reportQueueStub{}, nil)

	_, _, err := svc.ResolveDownload(context.Background(), "job-1.9999999999.cGF0aA.deadbeef")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestReportServiceResolveDownloadStreamsFile(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	relPath, err := store.Save("2026-01/report.csv", []byte("Employee,Hours\n"))
	require.NoError(t, err)

	repo := newReportJobRepoStub(&models.ReportJob{
		ID:       "job-1",
		Status:   models.ReportJobStatusFinished,
		FilePath: &relPath,
	})
	svc := newReportService(repo, &reportQueueStub{}, store)

	token, _, err := testSigner().Generate("job-1", relPath)
	require.NoError(t, err)

	file, job, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "job-1", job.ID)

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	repo := newReportJobRepoStub()
	repo.unfinished = []models.ReportJob{
		{ID: "job-1", Status: models.ReportJobStatusQueued},
		{ID: "job-2", Status: models.ReportJobStatusProcessing},
	}
	queue := &reportQueueStub{}
	svc := newReportService(repo, queue, nil)

	err := svc.RecoverPendingJobs(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, queue.enqueued, 2)
}

func TestReportWorkerHandleFinishesJob(t *testing.T) {
	job := &models.ReportJob{ID: "job-1", Type: models.ReportTypeLedger, Format: models.ReportFormatCSV, Month: "2026-01", Status: models.ReportJobStatusQueued}
	repo := newReportJobRepoStub(job)
	generator := &reportGeneratorStub{relPath: "2026-01/ledger.csv"}
	worker := NewReportWorker(repo, generator, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, repo.processing)
	assert.Equal(t, "2026-01/ledger.csv", repo.finished["job-1"])
	assert.Equal(t, models.ReportJobStatusFinished, job.Status)
}

func TestReportWorkerHandleMarksFailure(t *testing.T) {
	job := &models.ReportJob{ID: "job-1", Status: models.ReportJobStatusQueued}
	repo := newReportJobRepoStub(job)
	generator := &reportGeneratorStub{err: errors.New("render failed")}
	worker := NewReportWorker(repo, generator, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, "render failed", repo.failed["job-1"])
}

func TestReportWorkerHandleSkipsFinishedJob(t *testing.T) {
	job := &models.ReportJob{ID: "job-1", Status: models.ReportJobStatusFinished}
	repo := newReportJobRepoStub(job)
	generator := &reportGeneratorStub{}
	worker := NewReportWorker(repo, generator, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	assert.Zero(t, generator.calls)
	assert.Empty(t, repo.processing)
}

var _ reportFileStore = (*storage.LocalStorage)(nil)

func TestReportWorkerHandleMissingJobIsNoop(t *testing.T) {
	worker := NewReportWorker(newReportJobRepoStub(), &reportGeneratorStub{}, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "missing"})
	require.NoError(t, err)
}
