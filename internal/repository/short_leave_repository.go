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

// ShortLeaveRepository handles persistence for short leave requests.
type ShortLeaveRepository struct {
	db *sqlx.DB
}

// NewShortLeaveRepository constructs the repository.
func NewShortLeaveRepository(db *sqlx.DB) *ShortLeaveRepository {
	return &ShortLeaveRepository{db: db}
}

// List returns short leaves matching the filter with total count.
func (r *ShortLeaveRepository) List(ctx context.Context, filter models.ShortLeaveFilter) ([]models.ShortLeaveDetail, int, error) {
	base := `FROM short_leaves sl
JOIN employees e ON e.id = sl.employee_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("sl.employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("sl.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("sl.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("sl.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT sl.id, sl.employee_id, sl.date, sl.from_time, sl.to_time, sl.reason, sl.status, sl.decided_by, sl.decided_at, sl.created_at, sl.updated_at,
        e.service_number, e.full_name AS employee_name
        %s WHERE %s
        ORDER BY sl.date DESC
        LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var rows []models.ShortLeaveDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list short leaves: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count short leaves: %w", err)
	}
	return rows, total, nil
}

// FindByID returns a short leave by identifier.
func (r *ShortLeaveRepository) FindByID(ctx context.Context, id string) (*models.ShortLeave, error) {
	const query = `SELECT id, employee_id, date, from_time, to_time, reason, status, decided_by, decided_at, created_at, updated_at
FROM short_leaves WHERE id = $1 LIMIT 1`
	var leave models.ShortLeave
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find short leave: %w", err)
	}
	return &leave, nil
}

// Create inserts a pending short leave.
func (r *ShortLeaveRepository) Create(ctx context.Context, leave *models.ShortLeave) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now
	const query = `INSERT INTO short_leaves (id, employee_id, date, from_time, to_time, reason, status, decided_by, decided_at, created_at, updated_at)
VALUES (:id, :employee_id, :date, :from_time, :to_time, :reason, :status, :decided_by, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create short leave: %w", err)
	}
	return nil
}

// UpdateStatus records an approval decision.
func (r *ShortLeaveRepository) UpdateStatus(ctx context.Context, id string, status models.ShortLeaveStatus, decidedBy string, decidedAt time.Time) error {
	const query = `UPDATE short_leaves SET status = $2, decided_by = $3, decided_at = $4, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, decidedBy, decidedAt)
	if err != nil {
		return fmt.Errorf("update short leave status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApprovedSet returns the employees with an approved short leave per date
// within [from, to), keyed "employeeID|YYYY-MM-DD".
func (r *ShortLeaveRepository) ApprovedSet(ctx context.Context, from, to time.Time) (map[string]struct{}, error) {
	const query = `SELECT employee_id, date FROM short_leaves WHERE status = 'APPROVED' AND date >= $1 AND date < $2`
	rows := []struct {
		EmployeeID string    `db:"employee_id"`
		Date       time.Time `db:"date"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("approved short leave dates: %w", err)
	}
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		set[row.EmployeeID+"|"+row.Date.Format("2006-01-02")] = struct{}{}
	}
	return set, nil
}

// CountPending returns pending leave requests.
func (r *ShortLeaveRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM short_leaves WHERE status = 'PENDING'`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count pending short leaves: %w", err)
	}
	return total, nil
}
