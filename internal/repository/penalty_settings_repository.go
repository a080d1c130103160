package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/garrison-hr/hrms-api/internal/models"
)

// PenaltySettingsRepository persists the single active penalty rule set.
type PenaltySettingsRepository struct {
	db *sqlx.DB
}

// NewPenaltySettingsRepository constructs the repository.
func NewPenaltySettingsRepository(db *sqlx.DB) *PenaltySettingsRepository {
	return &PenaltySettingsRepository{db: db}
}

const penaltySettingsColumns = `id, late_time_in_threshold, grace_period_minutes, late_ignore_count, double_penalty_start, double_penalty_end, quadruple_penalty_start, quadruple_penalty_end, short_leave_exempt, retroactive_penalty, updated_by, updated_at`

// Get fetches the active settings row. Returns sql.ErrNoRows when none exist.
func (r *PenaltySettingsRepository) Get(ctx context.Context) (*models.PenaltySettings, error) {
	query := fmt.Sprintf(`SELECT %s FROM penalty_settings ORDER BY updated_at DESC LIMIT 1`, penaltySettingsColumns)
	var settings models.PenaltySettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get penalty settings: %w", err)
	}
	return &settings, nil
}

// Replace swaps the active rule set for a new one inside a transaction.
// Previous rows are removed so exactly one rule set stays active; the
// audit log keeps the history.
func (r *PenaltySettingsRepository) Replace(ctx context.Context, settings *models.PenaltySettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin penalty settings tx: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM penalty_settings`); err != nil {
		return fmt.Errorf("clear penalty settings: %w", err)
	}
	const query = `INSERT INTO penalty_settings (id, late_time_in_threshold, grace_period_minutes, late_ignore_count, double_penalty_start, double_penalty_end, quadruple_penalty_start, quadruple_penalty_end, short_leave_exempt, retroactive_penalty, updated_by, updated_at)
VALUES (:id, :late_time_in_threshold, :grace_period_minutes, :late_ignore_count, :double_penalty_start, :double_penalty_end, :quadruple_penalty_start, :quadruple_penalty_end, :short_leave_exempt, :retroactive_penalty, :updated_by, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("insert penalty settings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit penalty settings tx: %w", err)
	}
	commit = true
	return nil
}
