package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/garrison-hr/hrms-api/internal/models"
)

// LedgerRepository handles persistence for bonus_hours ledger entries.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// List returns ledger entries matching the filter with total count.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, int, error) {
	base := `FROM bonus_hours bh
JOIN employees e ON e.id = bh.employee_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("bh.employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("bh.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("bh.date < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "bh.date",
		"hours":      "bh.hours",
		"created_at": "bh.created_at",
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "bh.date"
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

	query := fmt.Sprintf(`SELECT bh.id, bh.employee_id, bh.date, bh.hours, bh.reason, bh.created_by, bh.created_at,
        e.service_number, e.full_name AS employee_name
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.LedgerEntryDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return rows, total, nil
}

// Exists reports whether an entry already exists for the employee, date and reason.
func (r *LedgerRepository) Exists(ctx context.Context, employeeID string, date time.Time, reason string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM bonus_hours WHERE employee_id = $1 AND date = $2 AND reason = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, employeeID, date, reason); err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return exists, nil
}

// Create inserts a ledger entry.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO bonus_hours (id, employee_id, date, hours, reason, created_by, created_at)
VALUES (:id, :employee_id, :date, :hours, :reason, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

// TotalHours sums hours for entries whose reason carries the given prefix
// within the period. An empty prefix sums everything.
func (r *LedgerRepository) TotalHours(ctx context.Context, reasonPrefix string, from, to time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM bonus_hours WHERE date >= $1 AND date < $2 AND ($3 = '' OR reason LIKE $3 || '%')`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, from, to, reasonPrefix); err != nil {
		return 0, fmt.Errorf("total ledger hours: %w", err)
	}
	return total, nil
}

// SummaryByEmployee totals hours per employee for the period.
func (r *LedgerRepository) SummaryByEmployee(ctx context.Context, from, to time.Time) ([]models.LedgerSummary, error) {
	const query = `SELECT bh.employee_id, e.full_name AS employee_name, COALESCE(SUM(bh.hours), 0) AS total_hours, COUNT(*) AS entry_count
FROM bonus_hours bh
JOIN employees e ON e.id = bh.employee_id
WHERE bh.date >= $1 AND bh.date < $2
GROUP BY bh.employee_id, e.full_name
ORDER BY e.full_name ASC`
	var rows []models.LedgerSummary
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("ledger summary: %w", err)
	}
	return rows, nil
}
