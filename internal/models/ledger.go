package models

import "time"

// LedgerEntry is a row in the bonus_hours table. Negative penalties and
// positive credits share the table; Hours carries the sign.
type LedgerEntry struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	Date       time.Time `db:"date" json:"date"`
	Hours      float64   `db:"hours" json:"hours"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LedgerEntryDetail extends the entry with employee metadata.
type LedgerEntryDetail struct {
	LedgerEntry
	ServiceNumber string `db:"service_number" json:"service_number"`
	EmployeeName  string `db:"employee_name" json:"employee_name"`
}

// LedgerFilter scopes ledger listings.
type LedgerFilter struct {
	EmployeeID string
	Month      string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AwardBonusRequest is the payload for crediting hours to an employee.
type AwardBonusRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required"`
	Hours      float64 `json:"hours" validate:"required,gt=0"`
	Reason     string  `json:"reason" validate:"required"`
}

// LedgerSummary totals hours per employee for a period.
type LedgerSummary struct {
	EmployeeID   string  `db:"employee_id" json:"employee_id"`
	EmployeeName string  `db:"employee_name" json:"employee_name"`
	TotalHours   float64 `db:"total_hours" json:"total_hours"`
	EntryCount   int     `db:"entry_count" json:"entry_count"`
}
