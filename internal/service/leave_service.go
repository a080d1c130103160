package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type shortLeaveRepository interface {
	List(ctx context.Context, filter models.ShortLeaveFilter) ([]models.ShortLeaveDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ShortLeave, error)
	Create(ctx context.Context, leave *models.ShortLeave) error
	UpdateStatus(ctx context.Context, id string, status models.ShortLeaveStatus, decidedBy string, decidedAt time.Time) error
}

type leaveAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ShortLeaveListRequest filters leave listings.
type ShortLeaveListRequest struct {
	EmployeeID string  `json:"employee_id"`
	Status     *string `json:"status"`
	DateFrom   *string `json:"date_from"`
	DateTo     *string `json:"date_to"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

// LeaveService manages short leave requests and approvals.
type LeaveService struct {
	repo      shortLeaveRepository
	audit     leaveAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs the leave service.
func NewLeaveService(repo shortLeaveRepository, audit leaveAuditLogger, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerSharedRules(validate)
	return &LeaveService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated short leaves.
func (s *LeaveService) List(ctx context.Context, req ShortLeaveListRequest) ([]models.ShortLeaveDetail, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.ShortLeaveFilter{
		EmployeeID: req.EmployeeID,
		Page:       page,
		PageSize:   size,
	}
	if req.Status != nil {
		status := models.ShortLeaveStatus(*req.Status)
		filter.Status = &status
	}
	if req.DateFrom != nil {
		from, err := parseDate(*req.DateFrom)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_from, expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != nil {
		to, err := parseDate(*req.DateTo)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_to, expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list short leaves")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Request files a new short leave in PENDING state.
func (s *LeaveService) Request(ctx context.Context, req models.CreateShortLeaveRequest) (*models.ShortLeave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if req.FromTime != nil && req.ToTime != nil {
		from, err1 := ParseClock(*req.FromTime)
		to, err2 := ParseClock(*req.ToTime)
		if err1 == nil && err2 == nil && from >= to {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from_time must be before to_time")
		}
	}
	leave := &models.ShortLeave{
		EmployeeID: req.EmployeeID,
		Date:       date,
		FromTime:   req.FromTime,
		ToTime:     req.ToTime,
		Reason:     req.Reason,
		Status:     models.ShortLeaveStatusPending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create short leave")
	}
	return leave, nil
}

// Approve marks a pending leave approved, making its date exempt from
// late penalties for the employee.
func (s *LeaveService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.ShortLeave, error) {
	return s.decide(ctx, id, models.ShortLeaveStatusApproved, models.AuditActionLeaveApprove, actor)
}

// Reject marks a pending leave rejected.
func (s *LeaveService) Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.ShortLeave, error) {
	return s.decide(ctx, id, models.ShortLeaveStatusRejected, models.AuditActionLeaveReject, actor)
}

func (s *LeaveService) decide(ctx context.Context, id string, status models.ShortLeaveStatus, action string, actor *models.JWTClaims) (*models.ShortLeave, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	leave, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "short leave not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load short leave")
	}
	if leave.Status != models.ShortLeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "short leave already decided")
	}

	decidedAt := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, actor.UserID, decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "short leave not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update short leave")
	}
	leave.Status = status
	leave.DecidedBy = &actor.UserID
	leave.DecidedAt = &decidedAt

	s.emitAudit(ctx, actor, action, leave)
	return leave, nil
}

func (s *LeaveService) emitAudit(ctx context.Context, actor *models.JWTClaims, action string, leave *models.ShortLeave) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(leave)
	log := &models.AuditLog{
		UserID:     actorIDPtr(actor),
		Action:     action,
		Resource:   "short_leave",
		ResourceID: &leave.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "leave-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record leave audit", zap.Error(err))
	}
}
