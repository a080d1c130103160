package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/middleware"
	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

type penaltyServiceMock struct {
	settings     *models.PenaltySettings
	settingsErr  error
	calcResult   *models.PenaltyCalculationResult
	calcErr      error
	saveResult   *models.PenaltySaveResult
	savedActor   *models.JWTClaims
	savedRequest models.PenaltySaveRequest
}

func (m *penaltyServiceMock) GetSettings(ctx context.Context) (*models.PenaltySettings, error) {
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	return m.settings, nil
}

func (m *penaltyServiceMock) SaveSettings(ctx context.Context, req models.PenaltySettingsRequest, actor *models.JWTClaims) (*models.PenaltySettings, error) {
	return &models.PenaltySettings{LateTimeInThreshold: req.LateTimeInThreshold}, nil
}

func (m *penaltyServiceMock) CalculateForDate(ctx context.Context, req models.PenaltyCalculateRequest) (*models.PenaltyCalculationResult, error) {
	if m.calcErr != nil {
		return nil, m.calcErr
	}
	return m.calcResult, nil
}

func (m *penaltyServiceMock) SaveEntries(ctx context.Context, req models.PenaltySaveRequest, actor *models.JWTClaims) (*models.PenaltySaveResult, error) {
	m.savedRequest = req
	m.savedActor = actor
	return m.saveResult, nil
}

func TestPenaltyHandlerGetSettingsNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPenaltyHandler(&penaltyServiceMock{settingsErr: appErrors.Clone(appErrors.ErrNotFound, "penalty settings not configured")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/penalty/settings", nil)

	handler.GetSettings(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPenaltyHandlerCalculate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &penaltyServiceMock{calcResult: &models.PenaltyCalculationResult{
		Summary: models.PenaltyCalculationSummary{Date: "2026-01-15", EligibleForPenalty: 2},
	}}
	handler := NewPenaltyHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.PenaltyCalculateRequest{Date: "2026-01-15"})
	req, _ := http.NewRequest(http.MethodPost, "/penalty/calculate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Calculate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eligible_for_penalty":2`)
}

func TestPenaltyHandlerCalculateRequiresSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &penaltyServiceMock{calcErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "penalty settings must be configured before calculation")}
	handler := NewPenaltyHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.PenaltyCalculateRequest{Date: "2026-01-15"})
	req, _ := http.NewRequest(http.MethodPost, "/penalty/calculate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Calculate(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestPenaltyHandlerSavePassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &penaltyServiceMock{saveResult: &models.PenaltySaveResult{SavedCount: 1}}
	handler := NewPenaltyHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.PenaltySaveRequest{
		Entries: []models.PenaltySaveEntry{
			{EmployeeID: "11111111-1111-1111-1111-111111111111", Date: "2026-01-15", PenaltyHours: 0.25},
		},
		Reason: "Late arrival penalty 2026-01-15",
	})
	req, _ := http.NewRequest(http.MethodPost, "/penalty/save", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Save(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.savedActor)
	assert.Equal(t, "admin-1", mock.savedActor.UserID)
	assert.Equal(t, "Late arrival penalty 2026-01-15", mock.savedRequest.Reason)
}

func TestPenaltyHandlerSaveSettingsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPenaltyHandler(&penaltyServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/penalty/settings", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SaveSettings(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
