package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/garrison-hr/hrms-api/internal/models"
)

// AttendanceRepository handles persistence for daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	base := `FROM attendance_records ar
JOIN employees e ON e.id = ar.employee_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("ar.employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Source != nil {
		where = append(where, fmt.Sprintf("ar.source = $%d", len(args)+1))
		args = append(args, *filter.Source)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "ar.date",
		"status":     "ar.status",
		"created_at": "ar.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "ar.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ar.id, ar.employee_id, ar.date, ar.time_in, ar.time_out, ar.status, ar.source, ar.finalized, ar.remarks, ar.created_at, ar.updated_at,
        e.service_number, e.full_name AS employee_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// FindByEmployeeAndDate returns the record for an employee on a date.
func (r *AttendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	const query = `SELECT id, employee_id, date, time_in, time_out, status, source, finalized, remarks, created_at, updated_at
FROM attendance_records WHERE employee_id = $1 AND date = $2 LIMIT 1`
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, employeeID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &rec, nil
}

// Upsert inserts or updates an attendance record keyed by employee and date.
// Finalized records are left untouched; callers detect that via zero rows.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO attendance_records (id, employee_id, date, time_in, time_out, status, source, finalized, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (employee_id, date)
DO UPDATE SET time_in = EXCLUDED.time_in, time_out = EXCLUDED.time_out, status = EXCLUDED.status,
              source = EXCLUDED.source, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
WHERE attendance_records.finalized = FALSE
RETURNING id, employee_id, date, time_in, time_out, status, source, finalized, remarks, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.EmployeeID, record.Date, record.TimeIn, record.TimeOut, record.Status, record.Source, record.Finalized, record.Remarks, record.CreatedAt, record.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// BulkUpsert writes many records; in atomic mode any conflict aborts the
// whole batch, otherwise conflicts are collected and returned.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord, atomic bool) ([]models.AttendanceBulkConflict, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	const query = `INSERT INTO attendance_records (id, employee_id, date, time_in, time_out, status, source, finalized, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (employee_id, date)
DO UPDATE SET time_in = EXCLUDED.time_in, time_out = EXCLUDED.time_out, status = EXCLUDED.status,
              source = EXCLUDED.source, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
WHERE attendance_records.finalized = FALSE
RETURNING id`
	now := time.Now().UTC()
	conflicts := make([]models.AttendanceBulkConflict, 0)
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		var insertedID string
		if err := tx.QueryRowxContext(ctx, query, rec.ID, rec.EmployeeID, rec.Date, rec.TimeIn, rec.TimeOut, rec.Status, rec.Source, rec.Finalized, rec.Remarks, rec.CreatedAt, rec.UpdatedAt).Scan(&insertedID); err != nil {
			if err == sql.ErrNoRows {
				conflict := models.AttendanceBulkConflict{
					EmployeeID: rec.EmployeeID,
					Date:       rec.Date.Format("2006-01-02"),
					Reason:     "record already finalized",
				}
				if atomic {
					return nil, fmt.Errorf("bulk attendance: finalized record for employee %s on %s", rec.EmployeeID, conflict.Date)
				}
				conflicts = append(conflicts, conflict)
				continue
			}
			return nil, fmt.Errorf("bulk attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	commit = true
	return conflicts, nil
}

// FinalizeByDate locks all records for the date and returns the count.
func (r *AttendanceRepository) FinalizeByDate(ctx context.Context, date time.Time) (int, error) {
	const query = `UPDATE attendance_records SET finalized = TRUE, updated_at = $2 WHERE date = $1 AND finalized = FALSE`
	res, err := r.db.ExecContext(ctx, query, date, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("finalize attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finalize attendance rows: %w", err)
	}
	return int(affected), nil
}

// MonthlyLateInstances returns late arrivals between monthStart (inclusive)
// and end (exclusive) ordered by employee then date. Ordinals are assigned
// by the caller from the returned ordering.
func (r *AttendanceRepository) MonthlyLateInstances(ctx context.Context, employeeID string, monthStart, end time.Time) ([]models.LateInstance, error) {
	where := []string{"ar.status = 'Late'", "ar.time_in IS NOT NULL", "ar.date >= $1", "ar.date < $2"}
	args := []interface{}{monthStart, end}
	if employeeID != "" {
		where = append(where, fmt.Sprintf("ar.employee_id = $%d", len(args)+1))
		args = append(args, employeeID)
	}
	query := fmt.Sprintf(`SELECT ar.id, ar.employee_id, ar.date, ar.time_in
FROM attendance_records ar
WHERE %s
ORDER BY ar.employee_id ASC, ar.date ASC`, strings.Join(where, " AND "))
	var rows []models.LateInstance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("monthly late instances: %w", err)
	}
	return rows, nil
}

// MonthlySummary aggregates status counts per employee within a month.
func (r *AttendanceRepository) MonthlySummary(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]models.AttendanceSummary, error) {
	where := []string{"ar.date >= $1", "ar.date < $2"}
	args := []interface{}{monthStart, monthEnd}
	if employeeID != "" {
		where = append(where, fmt.Sprintf("ar.employee_id = $%d", len(args)+1))
		args = append(args, employeeID)
	}
	query := fmt.Sprintf(`SELECT ar.employee_id, e.full_name AS employee_name, ar.status, COUNT(*) AS cnt
FROM attendance_records ar
JOIN employees e ON e.id = ar.employee_id
WHERE %s
GROUP BY ar.employee_id, e.full_name, ar.status
ORDER BY ar.employee_id ASC`, strings.Join(where, " AND "))
	rows := []struct {
		EmployeeID   string `db:"employee_id"`
		EmployeeName string `db:"employee_name"`
		Status       string `db:"status"`
		Count        int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("monthly attendance summary: %w", err)
	}

	byEmployee := map[string]*models.AttendanceSummary{}
	ordered := []string{}
	for _, row := range rows {
		summary, ok := byEmployee[row.EmployeeID]
		if !ok {
			summary = &models.AttendanceSummary{
				EmployeeID:   row.EmployeeID,
				EmployeeName: row.EmployeeName,
				Month:        monthStart.Format("2006-01"),
			}
			byEmployee[row.EmployeeID] = summary
			ordered = append(ordered, row.EmployeeID)
		}
		switch models.AttendanceStatus(row.Status) {
		case models.AttendanceStatusPresent:
			summary.Present += row.Count
		case models.AttendanceStatusLate:
			summary.Late += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		case models.AttendanceStatusLeave:
			summary.Leave += row.Count
		case models.AttendanceStatusHalfDay:
			summary.HalfDay += row.Count
		case models.AttendanceStatusHolidayWork:
			summary.HolidayWork += row.Count
		}
		summary.Total += row.Count
	}
	summaries := make([]models.AttendanceSummary, 0, len(ordered))
	for _, id := range ordered {
		summaries = append(summaries, *byEmployee[id])
	}
	return summaries, nil
}

// ListByDate returns all records for one date with employee metadata.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecordDetail, error) {
	const query = `SELECT ar.id, ar.employee_id, ar.date, ar.time_in, ar.time_out, ar.status, ar.source, ar.finalized, ar.remarks, ar.created_at, ar.updated_at,
        e.service_number, e.full_name AS employee_name
FROM attendance_records ar
JOIN employees e ON e.id = ar.employee_id
WHERE ar.date = $1
ORDER BY e.full_name ASC`
	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return rows, nil
}

// CountByStatusOnDate returns status counts for one day.
func (r *AttendanceRepository) CountByStatusOnDate(ctx context.Context, date time.Time) (map[models.AttendanceStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance_records WHERE date = $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	counts := make(map[models.AttendanceStatus]int, len(rows))
	for _, row := range rows {
		counts[models.AttendanceStatus(row.Status)] = row.Count
	}
	return counts, nil
}
