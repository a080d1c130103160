package models

import "time"

// DevicePunch is a single punch as reported by the biometric device API.
type DevicePunch struct {
	DeviceUserID string `json:"device_user_id"`
	Timestamp    string `json:"timestamp"`
}

// BiometricLog is a persisted punch, kept as the fallback source when
// the device cannot be reached later. EmployeeID stays nil until the
// device user id maps to a known employee.
type BiometricLog struct {
	ID           string    `db:"id" json:"id"`
	DeviceUserID string    `db:"device_user_id" json:"device_user_id"`
	EmployeeID   *string   `db:"employee_id" json:"employee_id,omitempty"`
	PunchedAt    time.Time `db:"punched_at" json:"punched_at"`
	RawPayload   *string   `db:"raw_payload" json:"raw_payload,omitempty"`
	Imported     bool      `db:"imported" json:"imported"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// BiometricPollRequest asks for a device pull covering one date.
type BiometricPollRequest struct {
	Date string `json:"date" validate:"required"`
}

// BiometricPollResult reports the outcome of a device pull.
type BiometricPollResult struct {
	Date          string `json:"date"`
	Source        string `json:"source"`
	Degraded      bool   `json:"degraded"`
	PunchCount    int    `json:"punch_count"`
	RecordsMarked int    `json:"records_marked"`
	Unmapped      int    `json:"unmapped"`
}

// BiometricPunchRequest records a manual punch for an employee.
type BiometricPunchRequest struct {
	DeviceUserID string `json:"device_user_id" validate:"required"`
	PunchedAt    string `json:"punched_at" validate:"required"`
}
