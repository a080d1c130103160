package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

func testSettings() models.PenaltySettings {
	return models.PenaltySettings{
		LateTimeInThreshold:   "09:00",
		GracePeriodMinutes:    15,
		LateIgnoreCount:       3,
		DoublePenaltyStart:    "09:15",
		DoublePenaltyEnd:      "10:00",
		QuadruplePenaltyStart: "10:00",
		QuadruplePenaltyEnd:   "12:00",
		ShortLeaveExempt:      true,
		RetroactivePenalty:    true,
	}
}

func lateInput(timeIn string, ordinal int) PenaltyInput {
	return PenaltyInput{
		EmployeeID:         "emp-1",
		Date:               "2026-01-15",
		Status:             models.AttendanceStatusLate,
		TimeIn:             timeIn,
		MonthlyLateOrdinal: ordinal,
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	for _, invalid := range []string{"9:30", "24:00", "09:60", "0930", "", "ab:cd"} {
		_, err := ParseClock(invalid)
		assert.Error(t, err, "expected %q to be rejected", invalid)
	}
}

func TestComputePenaltyDoubleWindowScenario(t *testing.T) {
	result := ComputePenalty(lateInput("09:30", 4), testSettings())

	assert.True(t, result.Computable)
	assert.True(t, result.ApplyPenalty)
	assert.Equal(t, 15, result.LateMinutes)
	assert.Equal(t, 2, result.PenaltyFactor)
	assert.InDelta(t, 0.25, result.PenaltyHours, 0.0001)
}

func TestComputePenaltyQuadrupleWindowScenario(t *testing.T) {
	result := ComputePenalty(lateInput("10:15", 4), testSettings())

	assert.True(t, result.ApplyPenalty)
	assert.Equal(t, 60, result.LateMinutes)
	assert.Equal(t, 4, result.PenaltyFactor)
	assert.InDelta(t, 3.00, result.PenaltyHours, 0.0001)
}

func TestComputePenaltyAfterQuadrupleWindowCeiling(t *testing.T) {
	result := ComputePenalty(lateInput("13:00", 4), testSettings())

	assert.Equal(t, 4, result.PenaltyFactor)
	assert.Equal(t, 225, result.LateMinutes)
	assert.InDelta(t, 11.25, result.PenaltyHours, 0.0001)
}

func TestComputePenaltyWithinGrace(t *testing.T) {
	result := ComputePenalty(lateInput("09:10", 4), testSettings())

	assert.True(t, result.Computable)
	assert.Equal(t, 0, result.LateMinutes)
	assert.Equal(t, 1, result.PenaltyFactor)
	assert.Zero(t, result.PenaltyHours)
}

func TestComputePenaltyNonLateStatus(t *testing.T) {
	for _, status := range []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent,
		models.AttendanceStatusLeave,
		models.AttendanceStatusHalfDay,
		models.AttendanceStatusHolidayWork,
	} {
		in := lateInput("10:30", 5)
		in.Status = status
		result := ComputePenalty(in, testSettings())
		assert.False(t, result.ApplyPenalty, "status %s must not be eligible", status)
		assert.Zero(t, result.PenaltyHours, "status %s must carry no penalty", status)
	}
}

func TestComputePenaltyIgnoreCountBoundary(t *testing.T) {
	settings := testSettings()
	for ordinal := 1; ordinal <= 3; ordinal++ {
		result := ComputePenalty(lateInput("09:30", ordinal), settings)
		assert.False(t, result.ApplyPenalty, "ordinal %d is within the free allowance", ordinal)
		assert.False(t, result.Exempted)
	}
	result := ComputePenalty(lateInput("09:30", 4), settings)
	assert.True(t, result.ApplyPenalty)
}

func TestComputePenaltyShortLeaveExemption(t *testing.T) {
	in := lateInput("09:30", 4)
	in.IsShortLeave = true

	result := ComputePenalty(in, testSettings())
	assert.False(t, result.ApplyPenalty)
	assert.True(t, result.Exempted, "exemption must stay distinguishable from not-late")

	settings := testSettings()
	settings.ShortLeaveExempt = false
	result = ComputePenalty(in, settings)
	assert.True(t, result.ApplyPenalty)
	assert.False(t, result.Exempted)
}

func TestComputePenaltyInvalidTimeNonComputable(t *testing.T) {
	result := ComputePenalty(lateInput("25:70", 4), testSettings())
	assert.False(t, result.Computable)
	assert.NotEmpty(t, result.Remark)
}

func TestComputePenaltyIdempotent(t *testing.T) {
	in := lateInput("09:45", 4)
	first := ComputePenalty(in, testSettings())
	second := ComputePenalty(in, testSettings())
	assert.Equal(t, first, second)
}

func TestComputePenaltyLateMinutesNeverNegative(t *testing.T) {
	for _, timeIn := range []string{"08:00", "09:00", "09:14", "09:15", "09:16", "11:59", "23:59"} {
		result := ComputePenalty(lateInput(timeIn, 4), testSettings())
		assert.GreaterOrEqual(t, result.LateMinutes, 0, "time_in %s", timeIn)
		assert.Contains(t, []int{1, 2, 4}, result.PenaltyFactor, "time_in %s", timeIn)
	}
}

func TestEvaluateInstancesRetroactiveCrossing(t *testing.T) {
	instances := []PenaltyInput{
		lateInput("09:20", 1),
		lateInput("09:40", 2),
		lateInput("10:30", 3),
		lateInput("09:30", 4),
	}

	results := EvaluateInstances(instances, 3, testSettings())
	require.Len(t, results, 4)

	current := results[0]
	assert.True(t, current.ApplyPenalty)
	assert.False(t, current.Retroactive)

	for i, prior := range results[1:] {
		assert.True(t, prior.Retroactive, "prior instance %d must be flagged retroactive", i+1)
		assert.True(t, prior.ApplyPenalty, "prior instance %d becomes eligible", i+1)
	}
	// Each prior instance keeps its own time-in derived factor.
	assert.Equal(t, 2, results[1].PenaltyFactor)
	assert.Equal(t, 2, results[2].PenaltyFactor)
	assert.Equal(t, 4, results[3].PenaltyFactor)
}

func TestEvaluateInstancesRetroactiveDisabled(t *testing.T) {
	settings := testSettings()
	settings.RetroactivePenalty = false

	instances := []PenaltyInput{
		lateInput("09:20", 1),
		lateInput("09:40", 2),
		lateInput("10:30", 3),
		lateInput("09:30", 4),
	}
	results := EvaluateInstances(instances, 3, settings)
	require.Len(t, results, 1)
	assert.True(t, results[0].ApplyPenalty)
}

func TestEvaluateInstancesRetroactiveOnlyOnCrossing(t *testing.T) {
	instances := []PenaltyInput{
		lateInput("09:20", 1),
		lateInput("09:40", 2),
		lateInput("10:30", 3),
		lateInput("09:30", 4),
		lateInput("09:50", 5),
	}
	// The 5th instance is past the crossing point; priors were already handled.
	results := EvaluateInstances(instances, 4, testSettings())
	require.Len(t, results, 1)
	assert.True(t, results[0].ApplyPenalty)
}

func TestEvaluateInstancesRetroactivePriorShortLeave(t *testing.T) {
	priorWithLeave := lateInput("09:40", 2)
	priorWithLeave.IsShortLeave = true
	instances := []PenaltyInput{
		lateInput("09:20", 1),
		priorWithLeave,
		lateInput("10:30", 3),
		lateInput("09:30", 4),
	}

	results := EvaluateInstances(instances, 3, testSettings())
	require.Len(t, results, 4)

	// Each retroactively-surfaced instance passes through the full rule
	// set, including its own short-leave exemption.
	assert.True(t, results[1].ApplyPenalty)
	assert.False(t, results[2].ApplyPenalty)
	assert.True(t, results[2].Exempted)
	assert.True(t, results[3].ApplyPenalty)
}

func TestSummarize(t *testing.T) {
	settings := testSettings()
	shortLeave := lateInput("09:30", 5)
	shortLeave.IsShortLeave = true
	// 0.25h + 3.00h applied, one within grace, one exempted, one
	// non-computable, one inside the ignore allowance.
	results := []models.PenaltyComputation{
		ComputePenalty(lateInput("09:30", 4), settings),
		ComputePenalty(lateInput("10:15", 4), settings),
		ComputePenalty(lateInput("09:10", 4), settings),
		ComputePenalty(shortLeave, settings),
		ComputePenalty(lateInput("bogus", 4), settings),
		ComputePenalty(lateInput("09:30", 2), settings),
	}

	summary := Summarize("2026-01-15", 40, results)
	assert.Equal(t, 40, summary.TotalEmployees)
	assert.Equal(t, 3, summary.EligibleForPenalty)
	assert.InDelta(t, 3.25, summary.TotalPenaltyHours, 0.0001)
	assert.Equal(t, 1, summary.ExemptedDueToShortLeave)
	assert.Equal(t, 1, summary.NonComputable)
}

func TestValidatePenaltySettings(t *testing.T) {
	valid := models.PenaltySettingsRequest{
		LateTimeInThreshold:   "09:00",
		GracePeriodMinutes:    15,
		LateIgnoreCount:       3,
		DoublePenaltyStart:    "09:15",
		DoublePenaltyEnd:      "10:00",
		QuadruplePenaltyStart: "10:00",
		QuadruplePenaltyEnd:   "12:00",
	}
	require.NoError(t, ValidatePenaltySettings(valid))

	cases := []struct {
		name    string
		mutate  func(*models.PenaltySettingsRequest)
		message string
	}{
		{
			name:    "double window after quadruple",
			mutate:  func(r *models.PenaltySettingsRequest) { r.DoublePenaltyEnd = "11:00"; r.QuadruplePenaltyStart = "10:30" },
			message: "double penalty window must precede",
		},
		{
			name:    "double start before threshold",
			mutate:  func(r *models.PenaltySettingsRequest) { r.DoublePenaltyStart = "08:30" },
			message: "double_penalty_start must not be before",
		},
		{
			name:    "inverted double window",
			mutate:  func(r *models.PenaltySettingsRequest) { r.DoublePenaltyStart = "10:30"; r.DoublePenaltyEnd = "10:00" },
			message: "double_penalty_start must be before",
		},
		{
			name:    "bad clock",
			mutate:  func(r *models.PenaltySettingsRequest) { r.LateTimeInThreshold = "9am" },
			message: "late_time_in_threshold",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := ValidatePenaltySettings(req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Message, tc.message)
		})
	}
}
