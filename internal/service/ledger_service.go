package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type ledgerRepository interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, int, error)
	Exists(ctx context.Context, employeeID string, date time.Time, reason string) (bool, error)
	Create(ctx context.Context, entry *models.LedgerEntry) error
	TotalHours(ctx context.Context, reasonPrefix string, from, to time.Time) (float64, error)
	SummaryByEmployee(ctx context.Context, from, to time.Time) ([]models.LedgerSummary, error)
}

type ledgerAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LedgerListRequest filters ledger listings.
type LedgerListRequest struct {
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
}

// LedgerService manages the bonus hours ledger.
type LedgerService struct {
	repo      ledgerRepository
	audit     ledgerAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs the ledger service.
func NewLedgerService(repo ledgerRepository, audit ledgerAuditLogger, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated ledger entries, optionally scoped to a month.
func (s *LedgerService) List(ctx context.Context, req LedgerListRequest) ([]models.LedgerEntryDetail, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.LedgerFilter{
		EmployeeID: req.EmployeeID,
		Page:       page,
		PageSize:   size,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if req.Month != "" {
		monthStart, err := time.Parse("2006-01", req.Month)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid month format, expected YYYY-MM")
		}
		monthEnd := monthStart.AddDate(0, 1, 0)
		filter.DateFrom = &monthStart
		filter.DateTo = &monthEnd
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger entries")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// AwardBonus credits positive hours to an employee.
func (s *LedgerService) AwardBonus(ctx context.Context, req models.AwardBonusRequest, actor *models.JWTClaims) (*models.LedgerEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bonus payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	exists, err := s.repo.Exists(ctx, req.EmployeeID, date, req.Reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ledger")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, "an identical ledger entry already exists for this date")
	}

	entry := &models.LedgerEntry{
		EmployeeID: req.EmployeeID,
		Date:       date,
		Hours:      req.Hours,
		Reason:     req.Reason,
		CreatedBy:  actorIDPtr(actor),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ledger entry")
	}
	s.emitAudit(ctx, actor, entry)
	return entry, nil
}

// Summary totals hours per employee for a month.
func (s *LedgerService) Summary(ctx context.Context, month string) ([]models.LedgerSummary, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month format, expected YYYY-MM")
	}
	monthEnd := monthStart.AddDate(0, 1, 0)
	summaries, err := s.repo.SummaryByEmployee(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise ledger")
	}
	return summaries, nil
}

func (s *LedgerService) emitAudit(ctx context.Context, actor *models.JWTClaims, entry *models.LedgerEntry) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(entry)
	log := &models.AuditLog{
		UserID:    actorIDPtr(actor),
		Action:    models.AuditActionBonusAward,
		Resource:  "bonus_hours",
		NewValues: payload,
		IPAddress: "system",
		UserAgent: "ledger-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record ledger audit", zap.Error(err))
	}
}
