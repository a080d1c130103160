package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type employeeRepoStub struct {
	byID        map[string]*models.Employee
	byService   map[string]*models.Employee
	created     []*models.Employee
	updated     []*models.Employee
	deactivated []string
}

func (s *employeeRepoStub) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	var out []models.Employee
	for _, emp := range s.byID {
		out = append(out, *emp)
	}
	return out, len(out), nil
}

func (s *employeeRepoStub) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	emp, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return emp, nil
}

func (s *employeeRepoStub) FindByServiceNumber(ctx context.Context, serviceNumber string) (*models.Employee, error) {
	emp, ok := s.byService[serviceNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return emp, nil
}

func (s *employeeRepoStub) Create(ctx context.Context, emp *models.Employee) error {
	emp.ID = "emp-new"
	s.created = append(s.created, emp)
	return nil
}

func (s *employeeRepoStub) Update(ctx context.Context, emp *models.Employee) error {
	s.updated = append(s.updated, emp)
	return nil
}

func (s *employeeRepoStub) Deactivate(ctx context.Context, id string) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

func newEmployeeService(repo *employeeRepoStub, audit *auditLoggerStub) *EmployeeService {
	return NewEmployeeService(repo, audit, validator.New(), nil)
}

func TestEmployeeServiceCreate(t *testing.T) {
	repo := &employeeRepoStub{byID: map[string]*models.Employee{}, byService: map[string]*models.Employee{}}
	audit := &auditLoggerStub{}
	svc := newEmployeeService(repo, audit)

	emp, err := svc.Create(context.Background(), models.CreateEmployeeRequest{
		ServiceNumber: "SN-1001",
		FullName:      "Ana Silva",
	}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "SN-1001", emp.ServiceNumber)
	assert.True(t, emp.Active)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEmployeeCreate, audit.logs[0].Action)
}

func TestEmployeeServiceCreateDuplicateServiceNumber(t *testing.T) {
	existing := &models.Employee{ID: "emp-1", ServiceNumber: "SN-1001", FullName: "Ana Silva"}
	repo := &employeeRepoStub{
		byID:      map[string]*models.Employee{"emp-1": existing},
		byService: map[string]*models.Employee{"SN-1001": existing},
	}
	svc := newEmployeeService(repo, &auditLoggerStub{})

	_, err := svc.Create(context.Background(), models.CreateEmployeeRequest{
		ServiceNumber: "SN-1001",
		FullName:      "Bruno Costa",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestEmployeeServiceCreateRejectsBadJoinedOn(t *testing.T) {
	repo := &employeeRepoStub{byID: map[string]*models.Employee{}, byService: map[string]*models.Employee{}}
	svc := newEmployeeService(repo, &auditLoggerStub{})

	joined := "15-01-2026"
	_, err := svc.Create(context.Background(), models.CreateEmployeeRequest{
		ServiceNumber: "SN-1002",
		FullName:      "Bruno Costa",
		JoinedOn:      &joined,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceUpdateAppliesPartialChanges(t *testing.T) {
	existing := &models.Employee{ID: "emp-1", ServiceNumber: "SN-1001", FullName: "Ana Silva", Active: true}
	repo := &employeeRepoStub{byID: map[string]*models.Employee{"emp-1": existing}}
	audit := &auditLoggerStub{}
	svc := newEmployeeService(repo, audit)

	name := "Ana S. Oliveira"
	unit := "Logistics"
	emp, err := svc.Update(context.Background(), "emp-1", models.UpdateEmployeeRequest{
		FullName: &name,
		Unit:     &unit,
	}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana S. Oliveira", emp.FullName)
	require.NotNil(t, emp.Unit)
	assert.Equal(t, "Logistics", *emp.Unit)
	assert.Equal(t, "SN-1001", emp.ServiceNumber)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEmployeeUpdate, audit.logs[0].Action)
}

func TestEmployeeServiceUpdateNotFound(t *testing.T) {
	repo := &employeeRepoStub{byID: map[string]*models.Employee{}}
	svc := newEmployeeService(repo, &auditLoggerStub{})

	name := "Nobody"
	_, err := svc.Update(context.Background(), "missing", models.UpdateEmployeeRequest{FullName: &name}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceDeactivate(t *testing.T) {
	existing := &models.Employee{ID: "emp-1", ServiceNumber: "SN-1001", FullName: "Ana Silva", Active: true}
	repo := &employeeRepoStub{byID: map[string]*models.Employee{"emp-1": existing}}
	audit := &auditLoggerStub{}
	svc := newEmployeeService(repo, audit)

	err := svc.Deactivate(context.Background(), "emp-1", &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"emp-1"}, repo.deactivated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEmployeeDeactivate, audit.logs[0].Action)
}
