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

type attendanceService interface {
	List(ctx context.Context, req service.AttendanceListRequest) ([]models.AttendanceRecordDetail, *models.Pagination, error)
	Mark(ctx context.Context, req models.MarkAttendanceRequest) (*models.AttendanceRecord, error)
	BulkMark(ctx context.Context, req models.BulkMarkAttendanceRequest) (*service.BulkAttendanceResult, error)
	Finalize(ctx context.Context, req models.FinalizeAttendanceRequest) (int, error)
	MonthlySummary(ctx context.Context, employeeID, month string) ([]models.AttendanceSummary, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param employee_id query string false "Employee id"
// @Param status query string false "Attendance status"
// @Param source query string false "Record source"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	req := service.AttendanceListRequest{
		EmployeeID: c.Query("employee_id"),
		Status:     queryStringPtr(c, "status"),
		Source:     queryStringPtr(c, "source"),
		DateFrom:   queryStringPtr(c, "date_from"),
		DateTo:     queryStringPtr(c, "date_to"),
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

// Mark godoc
// @Summary Mark attendance for one employee
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.service.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkMark godoc
// @Summary Mark attendance for multiple employees
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.BulkMarkAttendanceRequest true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req models.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	result, err := h.service.BulkMark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Finalize godoc
// @Summary Finalize attendance for a date
// @Description Locks all records for the date against further edits
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.FinalizeAttendanceRequest true "Finalize payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/finalize [post]
func (h *AttendanceHandler) Finalize(c *gin.Context) {
	var req models.FinalizeAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid finalize payload"))
		return
	}
	count, err := h.service.Finalize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"finalized": count}, nil)
}

// Summary godoc
// @Summary Monthly attendance summary
// @Tags Attendance
// @Produce json
// @Param month query string true "Month YYYY-MM"
// @Param employee_id query string false "Employee id"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summaries, err := h.service.MonthlySummary(c.Request.Context(), c.Query("employee_id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}
