package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garrison-hr/hrms-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestPenaltySettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPenaltySettingsRepository(db)
	rows := sqlmock.NewRows([]string{"id", "late_time_in_threshold", "grace_period_minutes", "late_ignore_count", "double_penalty_start", "double_penalty_end", "quadruple_penalty_start", "quadruple_penalty_end", "short_leave_exempt", "retroactive_penalty", "updated_by", "updated_at"}).
		AddRow("ps-1", "09:00", 5, 3, "09:06", "10:00", "10:00", "11:00", true, true, "admin", time.Now())
	mock.ExpectQuery("SELECT id, late_time_in_threshold").
		WillReturnRows(rows)

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "09:00", settings.LateTimeInThreshold)
	assert.Equal(t, 5, settings.GracePeriodMinutes)
	assert.Equal(t, 3, settings.LateIgnoreCount)
	assert.True(t, settings.ShortLeaveExempt)
}

func TestPenaltySettingsRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPenaltySettingsRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM penalty_settings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO penalty_settings").
		WithArgs(sqlmock.AnyArg(), "09:00", 5, 3, "09:06", "10:00", "10:00", "11:00", true, false, "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	settings := &models.PenaltySettings{
		LateTimeInThreshold:   "09:00",
		GracePeriodMinutes:    5,
		LateIgnoreCount:       3,
		DoublePenaltyStart:    "09:06",
		DoublePenaltyEnd:      "10:00",
		QuadruplePenaltyStart: "10:00",
		QuadruplePenaltyEnd:   "11:00",
		ShortLeaveExempt:      true,
		RetroactivePenalty:    false,
		UpdatedBy:             strPtr("admin"),
	}
	require.NoError(t, repo.Replace(context.Background(), settings))
	assert.NotEmpty(t, settings.ID)
}

func strPtr(value string) *string {
	return &value
}
