package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garrison-hr/hrms-api/internal/models"
)

// registerSharedRules wires the custom validation tags used across
// request models. Safe to call from multiple constructors; later
// registrations overwrite with the same rule.
func registerSharedRules(v *validator.Validate) {
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
		return models.ReportFormat(strings.ToLower(fl.Field().String())).Valid()
	})
}
