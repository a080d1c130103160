package models

import "time"

// PenaltySettings is the single active rule set driving late-arrival
// penalty calculation. All clock fields are HH:MM strings.
type PenaltySettings struct {
	ID                    string    `db:"id" json:"id"`
	LateTimeInThreshold   string    `db:"late_time_in_threshold" json:"late_time_in_threshold"`
	GracePeriodMinutes    int       `db:"grace_period_minutes" json:"grace_period_minutes"`
	LateIgnoreCount       int       `db:"late_ignore_count" json:"late_ignore_count"`
	DoublePenaltyStart    string    `db:"double_penalty_start" json:"double_penalty_start"`
	DoublePenaltyEnd      string    `db:"double_penalty_end" json:"double_penalty_end"`
	QuadruplePenaltyStart string    `db:"quadruple_penalty_start" json:"quadruple_penalty_start"`
	QuadruplePenaltyEnd   string    `db:"quadruple_penalty_end" json:"quadruple_penalty_end"`
	ShortLeaveExempt      bool      `db:"short_leave_exempt" json:"short_leave_exempt"`
	RetroactivePenalty    bool      `db:"retroactive_penalty" json:"retroactive_penalty"`
	UpdatedBy             *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// PenaltySettingsRequest is the payload for replacing the rule set.
type PenaltySettingsRequest struct {
	LateTimeInThreshold   string `json:"late_time_in_threshold" validate:"required,clock_time"`
	GracePeriodMinutes    int    `json:"grace_period_minutes" validate:"gte=0"`
	LateIgnoreCount       int    `json:"late_ignore_count" validate:"gte=0"`
	DoublePenaltyStart    string `json:"double_penalty_start" validate:"required,clock_time"`
	DoublePenaltyEnd      string `json:"double_penalty_end" validate:"required,clock_time"`
	QuadruplePenaltyStart string `json:"quadruple_penalty_start" validate:"required,clock_time"`
	QuadruplePenaltyEnd   string `json:"quadruple_penalty_end" validate:"required,clock_time"`
	ShortLeaveExempt      bool   `json:"short_leave_exempt"`
	RetroactivePenalty    bool   `json:"retroactive_penalty"`
}

// PenaltyComputation is the outcome of evaluating one late instance
// against the rule set.
type PenaltyComputation struct {
	EmployeeID         string    `json:"employee_id"`
	EmployeeName       string    `json:"employee_name,omitempty"`
	Date               time.Time `json:"date"`
	TimeIn             string    `json:"time_in"`
	TotalLateInstances int       `json:"total_late_instances"`
	LateMinutes        int       `json:"late_minutes"`
	PenaltyFactor      int       `json:"penalty_factor"`
	PenaltyHours       float64   `json:"penalty_hours"`
	ApplyPenalty       bool      `json:"apply_penalty"`
	Exempted           bool      `json:"exempted"`
	Retroactive        bool      `json:"retroactive"`
	Computable         bool      `json:"computable"`
	Remark             string    `json:"remark,omitempty"`
}

// PenaltyCalculateRequest scopes a calculation run to one date.
type PenaltyCalculateRequest struct {
	Date string `json:"date" validate:"required"`
}

// PenaltyCalculationSummary aggregates a calculation run.
type PenaltyCalculationSummary struct {
	Date                    string  `json:"date"`
	TotalEmployees          int     `json:"total_employees"`
	EligibleForPenalty      int     `json:"eligible_for_penalty"`
	TotalPenaltyHours       float64 `json:"total_penalty_hours"`
	ExemptedDueToShortLeave int     `json:"exempted_due_to_short_leave"`
	NonComputable           int     `json:"non_computable"`
}

// PenaltyCalculationResult is the full payload of a calculation run.
type PenaltyCalculationResult struct {
	Results []PenaltyComputation      `json:"results"`
	Summary PenaltyCalculationSummary `json:"summary"`
}

// PenaltySaveEntry is one computed penalty submitted for persistence.
type PenaltySaveEntry struct {
	EmployeeID   string  `json:"employee_id" validate:"required,uuid"`
	Date         string  `json:"date" validate:"required"`
	PenaltyHours float64 `json:"penalty_hours" validate:"gt=0"`
}

// PenaltySaveRequest persists calculated penalties to the ledger.
type PenaltySaveRequest struct {
	Entries   []PenaltySaveEntry `json:"entries" validate:"required,min=1,dive"`
	AwardedBy *string            `json:"awarded_by,omitempty"`
	Reason    string             `json:"reason" validate:"required"`
}

// PenaltySkippedEntry identifies a duplicate that was not written.
type PenaltySkippedEntry struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

// PenaltySaveResult reports the outcome of persisting a run.
type PenaltySaveResult struct {
	SavedCount        int                   `json:"saved_count"`
	SkippedDuplicates []PenaltySkippedEntry `json:"skipped_duplicates"`
}
