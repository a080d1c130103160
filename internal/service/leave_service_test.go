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

type shortLeaveRepoStub struct {
	byID    map[string]*models.ShortLeave
	created []*models.ShortLeave
	updates []string
}

func (s *shortLeaveRepoStub) List(ctx context.Context, filter models.ShortLeaveFilter) ([]models.ShortLeaveDetail, int, error) {
	return nil, 0, nil
}

func (s *shortLeaveRepoStub) FindByID(ctx context.Context, id string) (*models.ShortLeave, error) {
	leave, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return leave, nil
}

func (s *shortLeaveRepoStub) Create(ctx context.Context, leave *models.ShortLeave) error {
	leave.ID = "leave-new"
	s.created = append(s.created, leave)
	return nil
}

func (s *shortLeaveRepoStub) UpdateStatus(ctx context.Context, id string, status models.ShortLeaveStatus, decidedBy string, decidedAt time.Time) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	s.updates = append(s.updates, id+":"+string(status))
	return nil
}

func newLeaveService(repo *shortLeaveRepoStub, audit *auditLoggerStub) *LeaveService {
	return NewLeaveService(repo, audit, validator.New(), nil)
}

func TestLeaveServiceRequest(t *testing.T) {
	repo := &shortLeaveRepoStub{byID: map[string]*models.ShortLeave{}}
	svc := newLeaveService(repo, &auditLoggerStub{})

	from := "10:00"
	to := "12:00"
	leave, err := svc.Request(context.Background(), models.CreateShortLeaveRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		FromTime:   &from,
		ToTime:     &to,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ShortLeaveStatusPending, leave.Status)
	require.Len(t, repo.created, 1)
}

func TestLeaveServiceRequestRejectsInvertedWindow(t *testing.T) {
	svc := newLeaveService(&shortLeaveRepoStub{}, &auditLoggerStub{})

	from := "12:00"
	to := "10:00"
	_, err := svc.Request(context.Background(), models.CreateShortLeaveRequest{
		EmployeeID: "11111111-1111-1111-1111-111111111111",
		Date:       "2026-01-15",
		FromTime:   &from,
		ToTime:     &to,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceApprove(t *testing.T) {
	repo := &shortLeaveRepoStub{byID: map[string]*models.ShortLeave{
		"leave-1": {ID: "leave-1", EmployeeID: "emp-1", Status: models.ShortLeaveStatusPending},
	}}
	audit := &auditLoggerStub{}
	svc := newLeaveService(repo, audit)

	leave, err := svc.Approve(context.Background(), "leave-1", &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ShortLeaveStatusApproved, leave.Status)
	require.NotNil(t, leave.DecidedBy)
	assert.Equal(t, "admin-1", *leave.DecidedBy)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLeaveApprove, audit.logs[0].Action)
}

func TestLeaveServiceRejectAlreadyDecided(t *testing.T) {
	repo := &shortLeaveRepoStub{byID: map[string]*models.ShortLeave{
		"leave-1": {ID: "leave-1", EmployeeID: "emp-1", Status: models.ShortLeaveStatusApproved},
	}}
	svc := newLeaveService(repo, &auditLoggerStub{})

	_, err := svc.Reject(context.Background(), "leave-1", &models.JWTClaims{UserID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updates)
}

func TestLeaveServiceApproveNotFound(t *testing.T) {
	svc := newLeaveService(&shortLeaveRepoStub{byID: map[string]*models.ShortLeave{}}, &auditLoggerStub{})

	_, err := svc.Approve(context.Background(), "missing", &models.JWTClaims{UserID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
