package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garrison-hr/hrms-api/internal/models"
	"github.com/garrison-hr/hrms-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, date string) (*models.DashboardSummary, error)
}

// DashboardHandler exposes the cached dashboard endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Company-wide dashboard snapshot
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	summary, err := h.service.Summary(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
