package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/garrison-hr/hrms-api/internal/models"
	appErrors "github.com/garrison-hr/hrms-api/pkg/errors"
)

// The penalty engine is pure: no I/O, no clock reads, no hidden state.
// Recomputing with identical inputs always yields identical results.

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ParseClock converts a strict 24h HH:MM string to minutes since midnight.
func ParseClock(value string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// PenaltyInput is one employee-day snapshot fed into the engine.
type PenaltyInput struct {
	EmployeeID         string
	EmployeeName       string
	Date               string
	Status             models.AttendanceStatus
	TimeIn             string
	MonthlyLateOrdinal int
	IsShortLeave       bool
}

// ComputePenalty evaluates a single instance against the rule set.
func ComputePenalty(in PenaltyInput, settings models.PenaltySettings) models.PenaltyComputation {
	return computePenalty(in, settings, false, false)
}

// computePenalty carries the eligibility override used when a prior
// instance is retroactively surfaced: its ordinal is at or below the
// ignore count, so ordinal-based eligibility must be forced while every
// other step (grace, windows, short leave, time parsing) still applies.
func computePenalty(in PenaltyInput, settings models.PenaltySettings, forceEligible, retroactive bool) models.PenaltyComputation {
	result := models.PenaltyComputation{
		EmployeeID:         in.EmployeeID,
		EmployeeName:       in.EmployeeName,
		TimeIn:             in.TimeIn,
		TotalLateInstances: in.MonthlyLateOrdinal,
		PenaltyFactor:      1,
		Retroactive:        retroactive,
		Computable:         true,
	}
	if in.Date != "" {
		if d, err := parseDate(in.Date); err == nil {
			result.Date = d
		}
	}

	if in.Status != models.AttendanceStatusLate {
		result.Remark = "not late"
		return result
	}

	timeIn, err := ParseClock(in.TimeIn)
	if err != nil {
		result.Computable = false
		result.Remark = err.Error()
		return result
	}
	threshold, err := ParseClock(settings.LateTimeInThreshold)
	if err != nil {
		result.Computable = false
		result.Remark = fmt.Sprintf("invalid threshold in settings: %v", err)
		return result
	}
	doubleStart, err1 := ParseClock(settings.DoublePenaltyStart)
	doubleEnd, err2 := ParseClock(settings.DoublePenaltyEnd)
	quadStart, err3 := ParseClock(settings.QuadruplePenaltyStart)
	quadEnd, err4 := ParseClock(settings.QuadruplePenaltyEnd)
	for _, werr := range []error{err1, err2, err3, err4} {
		if werr != nil {
			result.Computable = false
			result.Remark = fmt.Sprintf("invalid window in settings: %v", werr)
			return result
		}
	}

	graceEnd := threshold + settings.GracePeriodMinutes
	lateMinutes := timeIn - graceEnd
	if lateMinutes < 0 {
		lateMinutes = 0
	}
	result.LateMinutes = lateMinutes

	switch {
	case timeIn < graceEnd:
		result.PenaltyFactor = 1
	case timeIn >= doubleStart && timeIn < doubleEnd:
		result.PenaltyFactor = 2
	case timeIn >= quadStart && timeIn < quadEnd:
		result.PenaltyFactor = 4
	case timeIn >= quadEnd:
		result.PenaltyFactor = 4
	default:
		result.PenaltyFactor = 1
	}

	result.PenaltyHours = roundHours(float64(lateMinutes) / 60 * float64(result.PenaltyFactor-1))

	eligible := forceEligible || in.MonthlyLateOrdinal > settings.LateIgnoreCount
	if !eligible {
		result.Remark = fmt.Sprintf("within monthly ignore allowance (%d of %d)", in.MonthlyLateOrdinal, settings.LateIgnoreCount)
		return result
	}

	if settings.ShortLeaveExempt && in.IsShortLeave {
		result.Exempted = true
		result.Remark = "exempted by approved short leave"
		return result
	}

	result.ApplyPenalty = true
	result.Remark = fmt.Sprintf("late %dm, factor %d", lateMinutes, result.PenaltyFactor)
	return result
}

// EvaluateInstances runs the engine over one employee's late instances
// for the month, ordered by date with 1-based ordinals already assigned.
// currentIdx marks the instance being calculated; when retroactive
// penalties are enabled and that instance is exactly the first to cross
// the ignore count, the prior instances are re-evaluated independently
// and appended, flagged retroactive.
func EvaluateInstances(instances []PenaltyInput, currentIdx int, settings models.PenaltySettings) []models.PenaltyComputation {
	if currentIdx < 0 || currentIdx >= len(instances) {
		return nil
	}
	current := instances[currentIdx]
	results := []models.PenaltyComputation{ComputePenalty(current, settings)}

	crossing := current.MonthlyLateOrdinal == settings.LateIgnoreCount+1
	if settings.RetroactivePenalty && crossing {
		for i := 0; i < currentIdx; i++ {
			results = append(results, computePenalty(instances[i], settings, true, true))
		}
	}
	return results
}

// Summarize aggregates a calculation run for one date.
func Summarize(date string, totalEmployees int, results []models.PenaltyComputation) models.PenaltyCalculationSummary {
	summary := models.PenaltyCalculationSummary{
		Date:           date,
		TotalEmployees: totalEmployees,
	}
	var total float64
	for _, r := range results {
		if !r.Computable {
			summary.NonComputable++
			continue
		}
		if r.Exempted {
			summary.ExemptedDueToShortLeave++
		}
		if r.ApplyPenalty {
			summary.EligibleForPenalty++
			total += r.PenaltyHours
		}
	}
	summary.TotalPenaltyHours = roundHours(total)
	return summary
}

// ValidatePenaltySettings checks the rule-set invariants, returning a
// validation error naming the violated constraint.
func ValidatePenaltySettings(req models.PenaltySettingsRequest) error {
	threshold, err := ParseClock(req.LateTimeInThreshold)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "late_time_in_threshold must be a valid HH:MM time")
	}
	doubleStart, err := ParseClock(req.DoublePenaltyStart)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "double_penalty_start must be a valid HH:MM time")
	}
	doubleEnd, err := ParseClock(req.DoublePenaltyEnd)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "double_penalty_end must be a valid HH:MM time")
	}
	quadStart, err := ParseClock(req.QuadruplePenaltyStart)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "quadruple_penalty_start must be a valid HH:MM time")
	}
	quadEnd, err := ParseClock(req.QuadruplePenaltyEnd)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "quadruple_penalty_end must be a valid HH:MM time")
	}
	if req.GracePeriodMinutes < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "grace_period_minutes must not be negative")
	}
	if req.LateIgnoreCount < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "late_ignore_count must not be negative")
	}
	if doubleStart >= doubleEnd {
		return appErrors.Clone(appErrors.ErrValidation, "double_penalty_start must be before double_penalty_end")
	}
	if quadStart >= quadEnd {
		return appErrors.Clone(appErrors.ErrValidation, "quadruple_penalty_start must be before quadruple_penalty_end")
	}
	if doubleStart < threshold {
		return appErrors.Clone(appErrors.ErrValidation, "double_penalty_start must not be before late_time_in_threshold")
	}
	if quadStart < threshold {
		return appErrors.Clone(appErrors.ErrValidation, "quadruple_penalty_start must not be before late_time_in_threshold")
	}
	if doubleEnd > quadStart {
		return appErrors.Clone(appErrors.ErrValidation, "double penalty window must precede the quadruple penalty window")
	}
	return nil
}

func roundHours(hours float64) float64 {
	return math.Round(hours*100) / 100
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
