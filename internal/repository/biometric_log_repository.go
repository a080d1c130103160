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

// BiometricLogRepository stores raw device punches for fallback replay.
type BiometricLogRepository struct {
	db *sqlx.DB
}

// NewBiometricLogRepository constructs the repository.
func NewBiometricLogRepository(db *sqlx.DB) *BiometricLogRepository {
	return &BiometricLogRepository{db: db}
}

// Create inserts a punch log.
func (r *BiometricLogRepository) Create(ctx context.Context, log *models.BiometricLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO biometric_logs (id, device_user_id, employee_id, punched_at, raw_payload, imported, created_at)
VALUES (:id, :device_user_id, :employee_id, :punched_at, :raw_payload, :imported, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create biometric log: %w", err)
	}
	return nil
}

// BulkCreate inserts many punch logs in a transaction, ignoring exact
// duplicates on (device_user_id, punched_at). Returns inserted count.
func (r *BiometricLogRepository) BulkCreate(ctx context.Context, logs []models.BiometricLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin biometric log tx: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	const query = `INSERT INTO biometric_logs (id, device_user_id, employee_id, punched_at, raw_payload, imported, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (device_user_id, punched_at) DO NOTHING`
	now := time.Now().UTC()
	inserted := 0
	for i := range logs {
		log := &logs[i]
		if log.ID == "" {
			log.ID = uuid.NewString()
		}
		if log.CreatedAt.IsZero() {
			log.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx, query, log.ID, log.DeviceUserID, log.EmployeeID, log.PunchedAt, log.RawPayload, log.Imported, log.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert biometric log: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit biometric log tx: %w", err)
	}
	commit = true
	return inserted, nil
}

// ListByDate returns punches recorded for a calendar date.
func (r *BiometricLogRepository) ListByDate(ctx context.Context, date time.Time) ([]models.BiometricLog, error) {
	const query = `SELECT id, device_user_id, employee_id, punched_at, raw_payload, imported, created_at
FROM biometric_logs
WHERE punched_at >= $1 AND punched_at < $2
ORDER BY device_user_id ASC, punched_at ASC`
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	var logs []models.BiometricLog
	if err := r.db.SelectContext(ctx, &logs, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("list biometric logs: %w", err)
	}
	return logs, nil
}

// MarkImported flags the given logs as consumed by attendance intake.
func (r *BiometricLogRepository) MarkImported(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE biometric_logs SET imported = TRUE WHERE id IN (%s)`, placeholders(len(ids)))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark biometric logs imported: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}
