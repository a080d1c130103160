package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garrison-hr/hrms-api/internal/models"
	"github.com/garrison-hr/hrms-api/internal/service"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
	"github.com/garrison-hr/hrms-api/pkg/response"
)

type ledgerService interface {
	List(ctx context.Context, req service.LedgerListRequest) ([]models.LedgerEntryDetail, *models.Pagination, error)
	AwardBonus(ctx context.Context, req models.AwardBonusRequest, actor *models.JWTClaims) (*models.LedgerEntry, error)
	Summary(ctx context.Context, month string) ([]models.LedgerSummary, error)
}

// LedgerHandler exposes the bonus hours ledger endpoints.
type LedgerHandler struct {
	service ledgerService
}

// NewLedgerHandler builds a new handler.
func NewLedgerHandler(svc ledgerService) *LedgerHandler {
	return &LedgerHandler{service: svc}
}

// List godoc
// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Param employee_id query string false "Employee id"
// @Param month query string false "Month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /ledger [get]
func (h *LedgerHandler) List(c *gin.Context) {
	req := service.LedgerListRequest{
		EmployeeID: c.Query("employee_id"),
		Month:      c.Query("month"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	rows, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// AwardBonus godoc
// @Summary Credit bonus hours to an employee
// @Tags Ledger
// @Accept json
// @Produce json
// @Param payload body models.AwardBonusRequest true "Bonus payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ledger/bonus [post]
func (h *LedgerHandler) AwardBonus(c *gin.Context) {
	var req models.AwardBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bonus payload"))
		return
	}
	entry, err := h.service.AwardBonus(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Summary godoc
// @Summary Total hours per employee for a month
// @Tags Ledger
// @Produce json
// @Param month query string true "Month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /ledger/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	summaries, err := h.service.Summary(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}
