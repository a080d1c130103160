package models

import "time"

// Employee represents a staff member tracked by attendance and payroll.
// DeviceUserID maps the employee to their biometric device enrollment.
type Employee struct {
	ID            string     `db:"id" json:"id"`
	ServiceNumber string     `db:"service_number" json:"service_number"`
	FullName      string     `db:"full_name" json:"full_name"`
	Rank          *string    `db:"rank" json:"rank,omitempty"`
	Unit          *string    `db:"unit" json:"unit,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	DeviceUserID  *string    `db:"device_user_id" json:"device_user_id,omitempty"`
	JoinedOn      *time.Time `db:"joined_on" json:"joined_on,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	Search    string
	Unit      string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateEmployeeRequest is the payload for registering an employee.
type CreateEmployeeRequest struct {
	ServiceNumber string  `json:"service_number" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	Rank          *string `json:"rank,omitempty"`
	Unit          *string `json:"unit,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	DeviceUserID  *string `json:"device_user_id,omitempty"`
	JoinedOn      *string `json:"joined_on,omitempty"`
}

// UpdateEmployeeRequest is the payload for updating an employee.
type UpdateEmployeeRequest struct {
	FullName     *string `json:"full_name,omitempty"`
	Rank         *string `json:"rank,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty"`
	DeviceUserID *string `json:"device_user_id,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}
