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

// EmployeeRepository handles persistence for employee records.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, service_number, full_name, rank, unit, email, phone, device_user_id, joined_on, active, created_at, updated_at`

// List returns employees matching the provided filter with total count.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	baseQuery := `FROM employees WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(service_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Unit != "" {
		conditions = append(conditions, fmt.Sprintf("unit = $%d", len(args)+1))
		args = append(args, filter.Unit)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":      true,
		"service_number": true,
		"unit":           true,
		"created_at":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, employeeColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// FindByID returns an employee by identifier.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE id = $1 LIMIT 1`, employeeColumns)
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by id: %w", err)
	}
	return &emp, nil
}

// FindByServiceNumber returns an employee by their service number.
func (r *EmployeeRepository) FindByServiceNumber(ctx context.Context, serviceNumber string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE service_number = $1 LIMIT 1`, employeeColumns)
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, query, serviceNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee by service number: %w", err)
	}
	return &emp, nil
}

// ListActive returns all active employees ordered by name.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE active = TRUE ORDER BY full_name ASC`, employeeColumns)
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return employees, nil
}

// MapByDeviceUserID returns active employees keyed by their device user id.
func (r *EmployeeRepository) MapByDeviceUserID(ctx context.Context) (map[string]models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE active = TRUE AND device_user_id IS NOT NULL`, employeeColumns)
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query); err != nil {
		return nil, fmt.Errorf("map employees by device user id: %w", err)
	}
	byDevice := make(map[string]models.Employee, len(employees))
	for _, emp := range employees {
		if emp.DeviceUserID != nil {
			byDevice[*emp.DeviceUserID] = emp
		}
	}
	return byDevice, nil
}

// Create inserts a new employee.
func (r *EmployeeRepository) Create(ctx context.Context, emp *models.Employee) error {
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = now
	}
	emp.UpdatedAt = now

	const query = `INSERT INTO employees (id, service_number, full_name, rank, unit, email, phone, device_user_id, joined_on, active, created_at, updated_at)
VALUES (:id, :service_number, :full_name, :rank, :unit, :email, :phone, :device_user_id, :joined_on, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, emp); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update updates mutable fields of an employee.
func (r *EmployeeRepository) Update(ctx context.Context, emp *models.Employee) error {
	emp.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET full_name = :full_name, rank = :rank, unit = :unit, email = :email, phone = :phone, device_user_id = :device_user_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, emp); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// Deactivate performs a soft delete by marking the employee inactive.
func (r *EmployeeRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE employees SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	return nil
}

// CountActive returns the number of active employees.
func (r *EmployeeRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM employees WHERE active = TRUE`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count active employees: %w", err)
	}
	return total, nil
}
