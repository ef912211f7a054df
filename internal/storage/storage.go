// Package storage is the PostgreSQL-backed implementation of the
// repository contracts internal/prediction and internal/backtest depend
// on (HistoryRepository, DataSource), plus the payout lookups
// internal/betting's OutcomeResolver needs. Grounded on
// internal/infrastructure/db/connection.go's Config/Manager split and
// internal/persistence/postgres's per-repo query style.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nkeiba/racecast/internal/domain"
)

// Config holds the Postgres connection and pool settings.
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns reasonable pool defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}
}

// Repository is the Postgres-backed store for races, entries, results,
// horse metadata and official payouts. It satisfies
// prediction.HistoryRepository and backtest.DataSource.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to Postgres and verifies connectivity with a ping.
func Open(cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage: DSN is required")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}

	return &Repository{db: db, timeout: cfg.QueryTimeout}, nil
}

// newWithDB wraps an already-open *sqlx.DB (used by tests to inject a
// sqlmock connection without dialing a real Postgres instance).
func newWithDB(db *sqlx.DB, timeout time.Duration) *Repository {
	return &Repository{db: db, timeout: timeout}
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports basic connectivity, for a health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// PastResults fetches a horse's results strictly before beforeDate,
// most recent first, satisfying prediction.HistoryRepository and
// backtest.DataSource.
func (r *Repository) PastResults(ctx context.Context, horseID string, beforeDate domain.Date, limit int) ([]domain.RaceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT horse_id, horse_number, bracket_number, impost, sex, age, jockey_id,
		       race_id, race_date, race_name, venue, surface, distance,
		       track_condition, has_condition, total_runners, finish_position,
		       time, last_3f, odds, popularity, passing_order, body_weight,
		       body_weight_diff
		FROM race_results
		WHERE horse_id = $1 AND race_date < $2
		ORDER BY race_date DESC
		LIMIT $3`

	rows, err := r.db.QueryxContext(ctx, query, horseID, beforeDate.ToTime(), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query past results: %w", err)
	}
	defer rows.Close()

	return scanRaceResults(rows)
}

// RacesInRange returns every race in [from, to], ordered by date then
// race number.
func (r *Repository) RacesInRange(ctx context.Context, from, to domain.Date) ([]domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, race_date, venue, race_number, surface, distance,
		       track_condition, has_condition, name
		FROM races
		WHERE race_date >= $1 AND race_date <= $2
		ORDER BY race_date ASC, race_number ASC`

	rows, err := r.db.QueryxContext(ctx, query, from.ToTime(), to.ToTime())
	if err != nil {
		return nil, fmt.Errorf("storage: query races in range: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// RaceByID returns a single race's metadata.
func (r *Repository) RaceByID(ctx context.Context, raceID string) (domain.Race, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, race_date, venue, race_number, surface, distance,
		       track_condition, has_condition, name
		FROM races
		WHERE id = $1`

	var race domain.Race
	var raceDate time.Time
	var surface, condition string
	var hasCondition bool
	err := r.db.QueryRowxContext(ctx, query, raceID).Scan(&race.ID, &raceDate,
		&race.Venue, &race.RaceNumber, &surface, &race.Distance, &condition,
		&hasCondition, &race.Name)
	if err == sql.ErrNoRows {
		return domain.Race{}, false, nil
	}
	if err != nil {
		return domain.Race{}, false, fmt.Errorf("storage: query race by id: %w", err)
	}
	race.Date = domain.DateOf(raceDate)
	race.Surface = domain.Surface(surface)
	race.TrackCondition = domain.TrackCondition(condition)
	race.HasCondition = hasCondition
	return race, true, nil
}

// RacesBefore returns every race strictly before cutoff.
func (r *Repository) RacesBefore(ctx context.Context, cutoff domain.Date) ([]domain.Race, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, race_date, venue, race_number, surface, distance,
		       track_condition, has_condition, name
		FROM races
		WHERE race_date < $1
		ORDER BY race_date ASC, race_number ASC`

	rows, err := r.db.QueryxContext(ctx, query, cutoff.ToTime())
	if err != nil {
		return nil, fmt.Errorf("storage: query races before cutoff: %w", err)
	}
	defer rows.Close()

	return scanRaces(rows)
}

// RaceResults returns the recorded outcome rows for one race.
func (r *Repository) RaceResults(ctx context.Context, raceID string) ([]domain.RaceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT horse_id, horse_number, bracket_number, impost, sex, age, jockey_id,
		       race_id, race_date, race_name, venue, surface, distance,
		       track_condition, has_condition, total_runners, finish_position,
		       time, last_3f, odds, popularity, passing_order, body_weight,
		       body_weight_diff
		FROM race_results
		WHERE race_id = $1
		ORDER BY finish_position ASC`

	rows, err := r.db.QueryxContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("storage: query race results: %w", err)
	}
	defer rows.Close()

	return scanRaceResults(rows)
}

// HorseMeta returns static pedigree metadata for a horse. The second
// return is false if no row exists.
func (r *Repository) HorseMeta(ctx context.Context, horseID string) (domain.HorseMeta, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT horse_id, name, sex, birth_year, sire, dam, dam_sire
		FROM horse_meta
		WHERE horse_id = $1`

	var meta domain.HorseMeta
	var sex string
	err := r.db.QueryRowxContext(ctx, query, horseID).Scan(
		&meta.HorseID, &meta.Name, &sex, &meta.BirthYear,
		&meta.Sire, &meta.Dam, &meta.DamSire)
	if err == sql.ErrNoRows {
		return domain.HorseMeta{}, false, nil
	}
	if err != nil {
		return domain.HorseMeta{}, false, fmt.Errorf("storage: query horse meta: %w", err)
	}
	meta.Sex = domain.Sex(sex)
	return meta, true, nil
}

// RacePayouts returns the official payout records for a race, used by
// internal/betting's OutcomeResolver. Any absent bet type is left at
// its zero value.
func (r *Repository) RacePayouts(ctx context.Context, raceID string) (domain.RacePayouts, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payouts := domain.RacePayouts{RaceID: raceID}

	if err := r.scanShowPayouts(ctx, raceID, &payouts); err != nil {
		return domain.RacePayouts{}, err
	}
	if err := r.scanWinPayout(ctx, raceID, &payouts); err != nil {
		return domain.RacePayouts{}, err
	}
	if err := r.scanQuinellaPayout(ctx, raceID, &payouts); err != nil {
		return domain.RacePayouts{}, err
	}
	if err := r.scanTrioPayout(ctx, raceID, &payouts); err != nil {
		return domain.RacePayouts{}, err
	}
	return payouts, nil
}

func (r *Repository) scanShowPayouts(ctx context.Context, raceID string, out *domain.RacePayouts) error {
	const query = `SELECT horse_number, payout FROM show_payouts WHERE race_id = $1 ORDER BY horse_number`
	rows, err := r.db.QueryxContext(ctx, query, raceID)
	if err != nil {
		return fmt.Errorf("storage: query show payouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ShowPayout
		var payout string
		if err := rows.Scan(&p.HorseNumber, &payout); err != nil {
			return fmt.Errorf("storage: scan show payout: %w", err)
		}
		dec, err := parseDecimal(payout)
		if err != nil {
			return err
		}
		p.Payout = dec
		out.Show = append(out.Show, p)
	}
	return rows.Err()
}

func (r *Repository) scanWinPayout(ctx context.Context, raceID string, out *domain.RacePayouts) error {
	const query = `SELECT horse_number, payout FROM win_payouts WHERE race_id = $1`
	var p domain.WinPayout
	var payout string
	err := r.db.QueryRowxContext(ctx, query, raceID).Scan(&p.HorseNumber, &payout)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: query win payout: %w", err)
	}
	dec, err := parseDecimal(payout)
	if err != nil {
		return err
	}
	p.Payout = dec
	out.Win = &p
	return nil
}

func (r *Repository) scanQuinellaPayout(ctx context.Context, raceID string, out *domain.RacePayouts) error {
	const query = `SELECT horse_number_1, horse_number_2, payout FROM quinella_payouts WHERE race_id = $1`
	var p domain.QuinellaPayout
	var payout string
	err := r.db.QueryRowxContext(ctx, query, raceID).Scan(&p.HorseNumbers[0], &p.HorseNumbers[1], &payout)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: query quinella payout: %w", err)
	}
	dec, err := parseDecimal(payout)
	if err != nil {
		return err
	}
	p.Payout = dec
	out.Quinella = &p
	return nil
}

func (r *Repository) scanTrioPayout(ctx context.Context, raceID string, out *domain.RacePayouts) error {
	const query = `SELECT horse_number_1, horse_number_2, horse_number_3, payout FROM trio_payouts WHERE race_id = $1`
	var p domain.TrioPayout
	var payout string
	err := r.db.QueryRowxContext(ctx, query, raceID).Scan(&p.HorseNumbers[0], &p.HorseNumbers[1], &p.HorseNumbers[2], &payout)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: query trio payout: %w", err)
	}
	dec, err := parseDecimal(payout)
	if err != nil {
		return err
	}
	p.Payout = dec
	out.Trio = &p
	return nil
}

func scanRaces(rows *sqlx.Rows) ([]domain.Race, error) {
	var races []domain.Race
	for rows.Next() {
		var race domain.Race
		var raceDate time.Time
		var surface, condition string
		var hasCondition bool
		if err := rows.Scan(&race.ID, &raceDate, &race.Venue, &race.RaceNumber,
			&surface, &race.Distance, &condition, &hasCondition, &race.Name); err != nil {
			return nil, fmt.Errorf("storage: scan race: %w", err)
		}
		race.Date = domain.DateOf(raceDate)
		race.Surface = domain.Surface(surface)
		race.TrackCondition = domain.TrackCondition(condition)
		race.HasCondition = hasCondition
		races = append(races, race)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate races: %w", err)
	}
	return races, nil
}

func scanRaceResults(rows *sqlx.Rows) ([]domain.RaceResult, error) {
	var results []domain.RaceResult
	for rows.Next() {
		result, err := scanRaceResultRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate race results: %w", err)
	}
	return results, nil
}

func scanRaceResultRow(rows *sqlx.Rows) (domain.RaceResult, error) {
	var r domain.RaceResult
	var raceDate time.Time
	var sex, surface, condition string
	var hasCondition bool

	err := rows.Scan(
		&r.HorseID, &r.HorseNumber, &r.BracketNumber, &r.Impost, &sex, &r.Age, &r.JockeyID,
		&r.RaceID, &raceDate, &r.RaceName, &r.Venue, &surface, &r.Distance,
		&condition, &hasCondition, &r.TotalRunners, &r.FinishPosition,
		&r.Time, &r.Last3F, &r.Odds, &r.Popularity, &r.PassingOrder,
		&r.BodyWeight, &r.BodyWeightDiff)
	if err != nil {
		return domain.RaceResult{}, fmt.Errorf("storage: scan race result: %w", err)
	}

	r.Sex = domain.Sex(sex)
	r.RaceDate = domain.DateOf(raceDate)
	r.Surface = domain.Surface(surface)
	r.TrackCondition = domain.TrackCondition(condition)
	r.HasCondition = hasCondition
	return r, nil
}
