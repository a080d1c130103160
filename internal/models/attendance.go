package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent     AttendanceStatus = "Present"
	AttendanceStatusLate        AttendanceStatus = "Late"
	AttendanceStatusAbsent      AttendanceStatus = "Absent"
	AttendanceStatusLeave       AttendanceStatus = "Leave"
	AttendanceStatusHalfDay     AttendanceStatus = "Half Day"
	AttendanceStatusHolidayWork AttendanceStatus = "Holiday Work"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent,
		AttendanceStatusLeave, AttendanceStatusHalfDay, AttendanceStatusHolidayWork:
		return true
	default:
		return false
	}
}

// AttendanceSource identifies where a record originated.
type AttendanceSource string

const (
	AttendanceSourceManual   AttendanceSource = "manual"
	AttendanceSourceDevice   AttendanceSource = "device"
	AttendanceSourceFallback AttendanceSource = "fallback"
)

// BulkOperationMode controls how bulk writes behave on errors.
type BulkOperationMode string

const (
	BulkModeAtomic         BulkOperationMode = "atomic"
	BulkModePartialOnError BulkOperationMode = "partialOnError"
)

// AttendanceRecord represents a single daily attendance row.
// TimeIn and TimeOut are wall-clock strings in HH:MM, nil when not punched.
// Records stay mutable until finalized.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	EmployeeID string           `db:"employee_id" json:"employee_id"`
	Date       time.Time        `db:"date" json:"date"`
	TimeIn     *string          `db:"time_in" json:"time_in,omitempty"`
	TimeOut    *string          `db:"time_out" json:"time_out,omitempty"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Source     AttendanceSource `db:"source" json:"source"`
	Finalized  bool             `db:"finalized" json:"finalized"`
	Remarks    *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecordDetail extends the record with employee metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	ServiceNumber string `db:"service_number" json:"service_number"`
	EmployeeName  string `db:"employee_name" json:"employee_name"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	EmployeeID string
	Status     *AttendanceStatus
	Source     *AttendanceSource
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// MarkAttendanceRequest is the payload for a single manual mark.
type MarkAttendanceRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required"`
	TimeIn     *string `json:"time_in,omitempty" validate:"omitempty,clock_time"`
	TimeOut    *string `json:"time_out,omitempty" validate:"omitempty,clock_time"`
	Status     string  `json:"status" validate:"required,attendance_status"`
	Remarks    *string `json:"remarks,omitempty"`
}

// BulkMarkAttendanceRequest marks many employees in one call.
type BulkMarkAttendanceRequest struct {
	Records []MarkAttendanceRequest `json:"records" validate:"required,min=1,dive"`
	Mode    BulkOperationMode       `json:"mode,omitempty"`
}

// AttendanceBulkConflict captures entries that could not be written.
type AttendanceBulkConflict struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

// FinalizeAttendanceRequest locks records for a date.
type FinalizeAttendanceRequest struct {
	Date string `json:"date" validate:"required"`
}

// AttendanceSummary summarises monthly counts for an employee.
type AttendanceSummary struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Month        string `json:"month"`
	Present      int    `json:"present"`
	Late         int    `json:"late"`
	Absent       int    `json:"absent"`
	Leave        int    `json:"leave"`
	HalfDay      int    `json:"half_day"`
	HolidayWork  int    `json:"holiday_work"`
	Total        int    `json:"total"`
}

// LateInstance is one late arrival within a month, ordered by date.
// Ordinal is the 1-based position among the employee's late arrivals
// in that month, assigned by the caller from the returned ordering.
type LateInstance struct {
	RecordID   string    `db:"id" json:"record_id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	Date       time.Time `db:"date" json:"date"`
	TimeIn     string    `db:"time_in" json:"time_in"`
	Ordinal    int       `json:"ordinal"`
}
