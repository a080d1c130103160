package models

import "time"

// ShortLeaveStatus represents the approval state of a short leave.
type ShortLeaveStatus string

const (
	ShortLeaveStatusPending  ShortLeaveStatus = "PENDING"
	ShortLeaveStatusApproved ShortLeaveStatus = "APPROVED"
	ShortLeaveStatusRejected ShortLeaveStatus = "REJECTED"
)

// ShortLeave is a partial-day leave that exempts a late arrival from
// penalty when approved for the same date.
type ShortLeave struct {
	ID         string           `db:"id" json:"id"`
	EmployeeID string           `db:"employee_id" json:"employee_id"`
	Date       time.Time        `db:"date" json:"date"`
	FromTime   *string          `db:"from_time" json:"from_time,omitempty"`
	ToTime     *string          `db:"to_time" json:"to_time,omitempty"`
	Reason     *string          `db:"reason" json:"reason,omitempty"`
	Status     ShortLeaveStatus `db:"status" json:"status"`
	DecidedBy  *string          `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt  *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// ShortLeaveDetail extends the leave with employee metadata.
type ShortLeaveDetail struct {
	ShortLeave
	ServiceNumber string `db:"service_number" json:"service_number"`
	EmployeeName  string `db:"employee_name" json:"employee_name"`
}

// ShortLeaveFilter scopes leave listings.
type ShortLeaveFilter struct {
	EmployeeID string
	Status     *ShortLeaveStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// CreateShortLeaveRequest is the payload for requesting a short leave.
type CreateShortLeaveRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required"`
	FromTime   *string `json:"from_time,omitempty" validate:"omitempty,clock_time"`
	ToTime     *string `json:"to_time,omitempty" validate:"omitempty,clock_time"`
	Reason     *string `json:"reason,omitempty"`
}
