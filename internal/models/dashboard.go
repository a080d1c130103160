package models

// DashboardSummary is a cached company-wide snapshot for one month.
type DashboardSummary struct {
	Month             string  `json:"month"`
	ActiveEmployees   int     `json:"active_employees"`
	PresentToday      int     `json:"present_today"`
	LateToday         int     `json:"late_today"`
	AbsentToday       int     `json:"absent_today"`
	PendingLeaves     int     `json:"pending_leaves"`
	PenaltyHoursMonth float64 `json:"penalty_hours_month"`
	LateCountMonth    int     `json:"late_count_month"`
}
