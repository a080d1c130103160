package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
	"github.com/garrison-hr/hrms-api/pkg/response"
)

type penaltyService interface {
	GetSettings(ctx context.Context) (*models.PenaltySettings, error)
	SaveSettings(ctx context.Context, req models.PenaltySettingsRequest, actor *models.JWTClaims) (*models.PenaltySettings, error)
	CalculateForDate(ctx context.Context, req models.PenaltyCalculateRequest) (*models.PenaltyCalculationResult, error)
	SaveEntries(ctx context.Context, req models.PenaltySaveRequest, actor *models.JWTClaims) (*models.PenaltySaveResult, error)
}

// PenaltyHandler exposes the late-arrival penalty endpoints.
type PenaltyHandler struct {
	service penaltyService
}

// NewPenaltyHandler builds a new handler.
func NewPenaltyHandler(svc penaltyService) *PenaltyHandler {
	return &PenaltyHandler{service: svc}
}

// GetSettings godoc
// @Summary Get penalty settings
// @Tags Penalty
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /penalty/settings [get]
func (h *PenaltyHandler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// SaveSettings godoc
// @Summary Replace penalty settings
// @Tags Penalty
// @Accept json
// @Produce json
// @Param payload body models.PenaltySettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /penalty/settings [post]
func (h *PenaltyHandler) SaveSettings(c *gin.Context) {
	var req models.PenaltySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.service.SaveSettings(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Calculate godoc
// @Summary Calculate penalties for a date
// @Description Evaluates every late arrival on the date against the configured rules without persisting anything
// @Tags Penalty
// @Accept json
// @Produce json
// @Param payload body models.PenaltyCalculateRequest true "Calculation payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /penalty/calculate [post]
func (h *PenaltyHandler) Calculate(c *gin.Context) {
	var req models.PenaltyCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calculation payload"))
		return
	}
	result, err := h.service.CalculateForDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Save penalty entries to the ledger
// @Description Writes reviewed penalties as negative hours, skipping duplicates
// @Tags Penalty
// @Accept json
// @Produce json
// @Param payload body models.PenaltySaveRequest true "Save payload"
// @Success 200 {object} response.Envelope
// @Router /penalty/save [post]
func (h *PenaltyHandler) Save(c *gin.Context) {
	var req models.PenaltySaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.SaveEntries(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
