package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkeiba/racecast/internal/domain"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return newWithDB(sqlxDB, 5*time.Second), mock
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
}

func TestOpen_MissingDSN(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestPastResults_ScansRowsAndAppliesFilters(t *testing.T) {
	repo, mock := newMockRepository(t)

	cols := []string{"horse_id", "horse_number", "bracket_number", "impost", "sex", "age", "jockey_id",
		"race_id", "race_date", "race_name", "venue", "surface", "distance",
		"track_condition", "has_condition", "total_runners", "finish_position",
		"time", "last_3f", "odds", "popularity", "passing_order", "body_weight",
		"body_weight_diff"}

	raceDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(cols).AddRow(
		"h1", 3, 2, 55.0, "c", 4, "j1",
		"r1", raceDate, "Test Race", "Tokyo", "turf", 1600,
		"good", true, 12, 1,
		"1:34.5", 34.2, 2.5, 1, "3-3-2-1", 480, -2)

	mock.ExpectQuery("SELECT .* FROM race_results").
		WithArgs("h1", sqlmock.AnyArg(), 20).
		WillReturnRows(rows)

	results, err := repo.PastResults(context.Background(), "h1", domain.Date{Year: 2026, Month: 3, Day: 15}, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "h1", results[0].HorseID)
	assert.Equal(t, 1, results[0].FinishPosition)
	assert.Equal(t, domain.ConditionGood, results[0].TrackCondition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRaceByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT .* FROM races").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := repo.RaceByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRacePayouts_AbsentBetTypesLeftZeroValue(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT .* FROM show_payouts").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"horse_number", "payout"}))
	mock.ExpectQuery("SELECT .* FROM win_payouts").
		WithArgs("r1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM quinella_payouts").
		WithArgs("r1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM trio_payouts").
		WithArgs("r1").
		WillReturnError(sql.ErrNoRows)

	payouts, err := repo.RacePayouts(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, payouts.Show)
	assert.Nil(t, payouts.Win)
	assert.Nil(t, payouts.Quinella)
	assert.Nil(t, payouts.Trio)
	assert.NoError(t, mock.ExpectationsWereMet())
}
