package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
	"github.com/garrison-hr/hrms-api/pkg/response"
)

type biometricService interface {
	Poll(ctx context.Context, req models.BiometricPollRequest) (*models.BiometricPollResult, error)
	Punch(ctx context.Context, req models.BiometricPunchRequest) (*models.BiometricLog, error)
	Logs(ctx context.Context, date string) ([]models.BiometricLog, error)
}

// BiometricHandler exposes the fingerprint device endpoints.
type BiometricHandler struct {
	service biometricService
}

// NewBiometricHandler builds a new handler.
func NewBiometricHandler(svc biometricService) *BiometricHandler {
	return &BiometricHandler{service: svc}
}

// Poll godoc
// @Summary Pull punches from the biometric device
// @Description Fetches device punches for a date and upserts attendance; degrades to stored punches when the device is unreachable
// @Tags Biometric
// @Accept json
// @Produce json
// @Param payload body models.BiometricPollRequest true "Poll payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /biometric/poll [post]
func (h *BiometricHandler) Poll(c *gin.Context) {
	var req models.BiometricPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid poll payload"))
		return
	}
	result, err := h.service.Poll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Punch godoc
// @Summary Record a single device punch
// @Tags Biometric
// @Accept json
// @Produce json
// @Param payload body models.BiometricPunchRequest true "Punch payload"
// @Success 201 {object} response.Envelope
// @Router /biometric/punch [post]
func (h *BiometricHandler) Punch(c *gin.Context) {
	var req models.BiometricPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid punch payload"))
		return
	}
	log, err := h.service.Punch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// Logs godoc
// @Summary List stored punches for a date
// @Tags Biometric
// @Produce json
// @Param date query string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /biometric/logs [get]
func (h *BiometricHandler) Logs(c *gin.Context) {
	logs, err := h.service.Logs(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
