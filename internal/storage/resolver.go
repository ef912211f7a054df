package storage

import (
	"context"
	"fmt"

	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/prediction"
)

// Resolver implements betting.OutcomeResolver over this repository: it
// re-derives the ranked prediction a completed race would have produced
// (from the entries recorded in race_results, with each horse's history
// strictly before the race's own date) and pairs it with the official
// payout record, so bet simulators can replay historical races without
// a separately persisted prediction table.
type Resolver struct {
	repo      *Repository
	predictor *prediction.Service
}

// NewResolver builds a Resolver. predictor should be the same service
// (and, for a walk-forward run, the same model) used to produce the
// predictions being evaluated.
func NewResolver(repo *Repository, predictor *prediction.Service) *Resolver {
	return &Resolver{repo: repo, predictor: predictor}
}

// Resolve implements betting.OutcomeResolver.
func (res *Resolver) Resolve(ctx context.Context, raceID string) (betting.RaceOutcome, error) {
	race, ok, err := res.repo.RaceByID(ctx, raceID)
	if err != nil {
		return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: %w", err)
	}
	if !ok {
		return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: %s not found", raceID)
	}

	results, err := res.repo.RaceResults(ctx, raceID)
	if err != nil {
		return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: %w", err)
	}

	raceInput := prediction.RaceInput{
		RaceID:         race.ID,
		Date:           race.Date,
		Name:           race.Name,
		Venue:          race.Venue,
		RaceNumber:     race.RaceNumber,
		Surface:        race.Surface,
		Distance:       race.Distance,
		TrackCondition: race.TrackCondition,
		HasCondition:   race.HasCondition,
	}
	for _, result := range results {
		entry := prediction.EntryInput{Entry: result.Entry}
		meta, ok, err := res.repo.HorseMeta(ctx, result.HorseID)
		if err != nil {
			return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: %w", err)
		}
		if ok {
			entry.HorseName = meta.Name
			entry.Sire = meta.Sire
			entry.HasSire = true
			entry.DamSire = meta.DamSire
		}
		raceInput.Entries = append(raceInput.Entries, entry)
	}

	predictions, err := res.predictor.Predict(ctx, raceInput)
	if err != nil {
		return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: predict: %w", err)
	}

	payouts, err := res.repo.RacePayouts(ctx, raceID)
	if err != nil {
		return betting.RaceOutcome{}, fmt.Errorf("storage: resolve race: %w", err)
	}

	return betting.RaceOutcome{
		RaceID:      race.ID,
		RaceName:    race.Name,
		Venue:       race.Venue,
		RaceDate:    race.Date,
		Predictions: predictions,
		Payouts:     payouts,
	}, nil
}
