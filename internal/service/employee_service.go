package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByServiceNumber(ctx context.Context, serviceNumber string) (*models.Employee, error)
	Create(ctx context.Context, emp *models.Employee) error
	Update(ctx context.Context, emp *models.Employee) error
	Deactivate(ctx context.Context, id string) error
}

type employeeAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EmployeeListRequest filters employee listings.
type EmployeeListRequest struct {
	Search    string `json:"search"`
	Unit      string `json:"unit"`
	Active    *bool  `json:"active"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// EmployeeService manages the employee registry.
type EmployeeService struct {
	repo      employeeRepository
	audit     employeeAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs the employee service.
func NewEmployeeService(repo employeeRepository, audit employeeAuditLogger, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated employees.
func (s *EmployeeService) List(ctx context.Context, req EmployeeListRequest) ([]models.Employee, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.EmployeeFilter{
		Search:    req.Search,
		Unit:      req.Unit,
		Active:    req.Active,
		Page:      page,
		PageSize:  size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Get returns one employee by identifier.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return emp, nil
}

// Create registers a new employee with a unique service number.
func (s *EmployeeService) Create(ctx context.Context, req models.CreateEmployeeRequest, actor *models.JWTClaims) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	existing, err := s.repo.FindByServiceNumber(ctx, req.ServiceNumber)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check service number")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "service number already registered")
	}

	emp := &models.Employee{
		ServiceNumber: req.ServiceNumber,
		FullName:      req.FullName,
		Rank:          req.Rank,
		Unit:          req.Unit,
		Email:         req.Email,
		Phone:         req.Phone,
		DeviceUserID:  req.DeviceUserID,
		Active:        true,
	}
	if req.JoinedOn != nil {
		joined, err := parseDate(*req.JoinedOn)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid joined_on, expected YYYY-MM-DD")
		}
		emp.JoinedOn = &joined
	}
	if err := s.repo.Create(ctx, emp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	s.emitAudit(ctx, actor, models.AuditActionEmployeeCreate, emp.ID, nil, emp)
	return emp, nil
}

// Update applies partial changes to an employee.
func (s *EmployeeService) Update(ctx context.Context, id string, req models.UpdateEmployeeRequest, actor *models.JWTClaims) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	emp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *emp

	if req.FullName != nil {
		emp.FullName = *req.FullName
	}
	if req.Rank != nil {
		emp.Rank = req.Rank
	}
	if req.Unit != nil {
		emp.Unit = req.Unit
	}
	if req.Email != nil {
		emp.Email = req.Email
	}
	if req.Phone != nil {
		emp.Phone = req.Phone
	}
	if req.DeviceUserID != nil {
		emp.DeviceUserID = req.DeviceUserID
	}
	if req.Active != nil {
		emp.Active = *req.Active
	}
	if err := s.repo.Update(ctx, emp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	s.emitAudit(ctx, actor, models.AuditActionEmployeeUpdate, emp.ID, &prev, emp)
	return emp, nil
}

// Deactivate marks the employee inactive; history stays intact.
func (s *EmployeeService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	emp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate employee")
	}
	s.emitAudit(ctx, actor, models.AuditActionEmployeeDeactivate, id, emp, nil)
	return nil
}

func (s *EmployeeService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	var oldBytes, newBytes []byte
	if oldValue != nil {
		oldBytes, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		newBytes, _ = json.Marshal(newValue)
	}
	log := &models.AuditLog{
		UserID:     actorIDPtr(actor),
		Action:     action,
		Resource:   "employee",
		ResourceID: &resourceID,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "employee-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record employee audit", zap.Error(err))
	}
}
