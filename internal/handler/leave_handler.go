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

type leaveService interface {
	List(ctx context.Context, req service.ShortLeaveListRequest) ([]models.ShortLeaveDetail, *models.Pagination, error)
	Request(ctx context.Context, req models.CreateShortLeaveRequest) (*models.ShortLeave, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.ShortLeave, error)
	Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.ShortLeave, error)
}

// LeaveHandler exposes short leave endpoints.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler builds a new handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// List godoc
// @Summary List short leaves
// @Tags Leaves
// @Produce json
// @Param employee_id query string false "Employee id"
// @Param status query string false "Leave status"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	req := service.ShortLeaveListRequest{
		EmployeeID: c.Query("employee_id"),
		Status:     queryStringPtr(c, "status"),
		DateFrom:   queryStringPtr(c, "date_from"),
		DateTo:     queryStringPtr(c, "date_to"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 50),
	}
	rows, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Request godoc
// @Summary File a short leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body models.CreateShortLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Request(c *gin.Context) {
	var req models.CreateShortLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	leave, err := h.service.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Approve godoc
// @Summary Approve a pending short leave
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	leave, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Reject godoc
// @Summary Reject a pending short leave
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	leave, err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}
