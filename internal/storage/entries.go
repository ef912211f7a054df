package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/prediction"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("storage: parse payout amount: %w", err)
	}
	return d, nil
}

// RaceInput loads the live prediction.RaceInput (race context plus
// entries not yet run) for an upcoming race, joining entries with the
// sire/dam-sire data the pedigree factor needs.
func (r *Repository) RaceInput(ctx context.Context, raceID string) (prediction.RaceInput, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const raceQuery = `
		SELECT id, race_date, venue, race_number, surface, distance,
		       track_condition, has_condition, name
		FROM races
		WHERE id = $1`

	var race domain.Race
	row := r.db.QueryRowxContext(ctx, raceQuery, raceID)
	var raceDate time.Time
	var surface, condition string
	var hasCondition bool
	if err := row.Scan(&race.ID, &raceDate, &race.Venue, &race.RaceNumber,
		&surface, &race.Distance, &condition, &hasCondition, &race.Name); err != nil {
		return prediction.RaceInput{}, fmt.Errorf("storage: query race: %w", err)
	}
	race.Date = domain.DateOf(raceDate)
	race.Surface = domain.Surface(surface)
	race.TrackCondition = domain.TrackCondition(condition)
	race.HasCondition = hasCondition

	const entriesQuery = `
		SELECT e.horse_id, e.horse_number, e.bracket_number, e.impost, e.sex,
		       e.age, e.jockey_id, e.horse_name,
		       m.sire, (m.sire IS NOT NULL) AS has_sire, m.dam_sire
		FROM entries e
		LEFT JOIN horse_meta m ON m.horse_id = e.horse_id
		WHERE e.race_id = $1
		ORDER BY e.horse_number ASC`

	rows, err := r.db.QueryxContext(ctx, entriesQuery, raceID)
	if err != nil {
		return prediction.RaceInput{}, fmt.Errorf("storage: query entries: %w", err)
	}
	defer rows.Close()

	var entries []prediction.EntryInput
	for rows.Next() {
		var e prediction.EntryInput
		var sex string
		var sire, damSire *string
		var hasSire bool
		if err := rows.Scan(&e.HorseID, &e.HorseNumber, &e.BracketNumber, &e.Impost,
			&sex, &e.Age, &e.JockeyID, &e.HorseName, &sire, &hasSire, &damSire); err != nil {
			return prediction.RaceInput{}, fmt.Errorf("storage: scan entry: %w", err)
		}
		e.Sex = domain.Sex(sex)
		e.HasSire = hasSire
		if sire != nil {
			e.Sire = *sire
		}
		if damSire != nil {
			e.DamSire = *damSire
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return prediction.RaceInput{}, fmt.Errorf("storage: iterate entries: %w", err)
	}

	return prediction.RaceInput{
		RaceID:         race.ID,
		Date:           race.Date,
		Name:           race.Name,
		Venue:          race.Venue,
		RaceNumber:     race.RaceNumber,
		Surface:        race.Surface,
		Distance:       race.Distance,
		TrackCondition: race.TrackCondition,
		HasCondition:   race.HasCondition,
		Entries:        entries,
	}, nil
}
