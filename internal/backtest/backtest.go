// Package backtest implements the walk-forward backtest engine (C11): it
// replays races in chronological order, retraining the model according
// to a configurable policy and yielding one RaceBacktestResult per race
// as it's produced rather than buffering the whole period. Grounded on
// original_source's backtest/backtester.py (BacktestEngine).
package backtest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/features"
	"github.com/nkeiba/racecast/internal/paststats"
	"github.com/nkeiba/racecast/internal/prediction"
	"github.com/nkeiba/racecast/internal/trainer"
)

// RetrainInterval selects when the model is retrained as the walk-forward
// replay crosses race boundaries (backtester.py RetrainInterval).
type RetrainInterval string

const (
	RetrainDaily   RetrainInterval = "daily"
	RetrainWeekly  RetrainInterval = "weekly"
	RetrainMonthly RetrainInterval = "monthly"
)

const historyLimit = 20

// DataSource is the storage contract the backtest engine depends on. It
// embeds prediction.HistoryRepository so a single implementation serves
// both the per-race prediction pass and the training-data builder.
// Venue filtering, if wanted, is a query-construction concern for the
// concrete DataSource, not something the engine's Run signature carries.
type DataSource interface {
	prediction.HistoryRepository

	// RacesInRange returns every race in [from, to], ordered by date then
	// race number (backtester.py _get_races_in_period).
	RacesInRange(ctx context.Context, from, to domain.Date) ([]domain.Race, error)

	// RacesBefore returns every race strictly before cutoff, in any
	// order (backtester.py _get_training_races).
	RacesBefore(ctx context.Context, cutoff domain.Date) ([]domain.Race, error)

	// RaceResults returns the recorded outcome rows for one race: one
	// domain.RaceResult per entry, each carrying its actual finish
	// position (backtester.py _get_race_data / _build_training_data).
	RaceResults(ctx context.Context, raceID string) ([]domain.RaceResult, error)

	// HorseMeta returns static pedigree metadata for a horse. The second
	// return is false if the horse has no recorded metadata.
	HorseMeta(ctx context.Context, horseID string) (domain.HorseMeta, bool, error)
}

// Engine drives the walk-forward replay.
type Engine struct {
	source    DataSource
	calc      *calculator.Calculator
	combine   *combiner.Combiner
	predictor *prediction.Service
	retrain   RetrainInterval
	runID     string

	model         atomic.Pointer[trainer.Predictor]
	lastTrainDate *domain.Date
}

// New builds an Engine. The active model starts nil; the first race of
// any Run always triggers a retrain (spec §4.11 "the first race always
// retrains"), matching backtester.py's "_last_train_date is None".
func New(source DataSource, calc *calculator.Calculator, combine *combiner.Combiner, retrain RetrainInterval) *Engine {
	return &Engine{
		source:    source,
		calc:      calc,
		combine:   combine,
		predictor: prediction.New(source, calc, combine, nil),
		retrain:   retrain,
		runID:     uuid.NewString(),
	}
}

// RunID identifies this engine instance across its lifetime, for
// correlating streamed results in logs or a websocket feed.
func (e *Engine) RunID() string {
	return e.runID
}

// Run replays every race in [from, to] in chronological order, retraining
// per policy and yielding one result per race on the returned channel.
// Both channels are closed when the replay finishes, errors, or ctx is
// canceled. On an error or cancellation the error is sent on the error
// channel (buffered, capacity 1) before it is closed; a clean finish
// closes it with nothing sent. Cancellation is checked at race
// boundaries only (spec §5 "cooperative cancellation"), never mid-race.
func (e *Engine) Run(ctx context.Context, from, to domain.Date) (<-chan domain.RaceBacktestResult, <-chan error) {
	results := make(chan domain.RaceBacktestResult)
	errs := make(chan error, 1)

	go func() {
		defer close(results)
		defer close(errs)

		races, err := e.source.RacesInRange(ctx, from, to)
		if err != nil {
			errs <- fmt.Errorf("backtest: list races: %w", err)
			return
		}

		for _, race := range races {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}

			if e.shouldRetrain(race.Date) {
				if err := e.trainModel(ctx, race.Date); err != nil {
					errs <- fmt.Errorf("backtest: retrain at %s: %w", race.Date, err)
					return
				}
				d := race.Date
				e.lastTrainDate = &d
			}

			result, err := e.predictRace(ctx, race)
			if err != nil {
				errs <- fmt.Errorf("backtest: predict race %s: %w", race.ID, err)
				return
			}

			select {
			case results <- result:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return results, errs
}

// shouldRetrain implements the retrain policy (backtester.py
// _should_retrain): the first race always retrains; thereafter daily
// retrains on any calendar-day change, weekly on any ISO (year, week)
// change, monthly on any (year, month) change.
func (e *Engine) shouldRetrain(raceDate domain.Date) bool {
	if e.lastTrainDate == nil {
		return true
	}
	last := *e.lastTrainDate

	switch e.retrain {
	case RetrainDaily:
		return last.Before(raceDate)
	case RetrainWeekly:
		ly, lw := last.ToTime().ISOWeek()
		cy, cw := raceDate.ToTime().ISOWeek()
		return ly != cy || lw != cw
	case RetrainMonthly:
		return last.Year != raceDate.Year || last.Month != raceDate.Month
	default:
		return true
	}
}

// trainModel rebuilds the training set from every race strictly before
// cutoff and fits a fresh LightweightProfile model, swapping it into the
// prediction service. Fewer than trainer.MinSamples labeled rows (or a
// fit error) clears the active model rather than keeping a stale one
// (backtester.py: "if len(features_list) < 100: self._model = None").
func (e *Engine) trainModel(ctx context.Context, cutoff domain.Date) error {
	X, y, err := e.buildTrainingData(ctx, cutoff)
	if err != nil {
		return err
	}

	if len(X) < trainer.MinSamples {
		e.setModel(nil)
		return nil
	}

	tr := trainer.NewLightweight()
	if err := tr.Fit(X, y); err != nil {
		e.setModel(nil)
		return nil
	}

	var p trainer.Predictor = tr
	e.setModel(p)
	return nil
}

// setModel performs the atomic pointer swap called for in spec §5: the
// engine's own bookkeeping pointer and the prediction service's model
// are both updated together so a Run goroutine never observes a
// half-swapped model mid-prediction.
func (e *Engine) setModel(p trainer.Predictor) {
	if p == nil {
		e.model.Store(nil)
	} else {
		e.model.Store(&p)
	}
	e.predictor.SetModel(p)
}

// buildTrainingData walks every race before cutoff and every finished
// entry in it, computing the same factor/feature pipeline the live
// prediction path uses (backtester.py _build_training_data); see
// buildFeatureVector for where the raw fields come from.
func (e *Engine) buildTrainingData(ctx context.Context, cutoff domain.Date) ([][]float64, []float64, error) {
	races, err := e.source.RacesBefore(ctx, cutoff)
	if err != nil {
		return nil, nil, err
	}

	var X [][]float64
	var y []float64

	for _, race := range races {
		outcomes, err := e.source.RaceResults(ctx, race.ID)
		if err != nil {
			return nil, nil, err
		}
		fieldSize := len(outcomes)

		for _, r := range outcomes {
			if !r.Finished() {
				continue
			}

			vec, err := e.buildFeatureVector(ctx, race, r, fieldSize)
			if err != nil {
				return nil, nil, err
			}

			label := 0.0
			if r.FinishPosition <= 3 {
				label = 1.0
			}

			X = append(X, vec)
			y = append(y, label)
		}
	}

	return X, y, nil
}

// buildFeatureVector computes one row of the feature matrix for a past
// entry. Factor scores and past stats are computed as prediction.Service
// computes them, with history cut off at this race's date. The raw odds,
// popularity and body-weight fields (and the odds/popularity given to
// the factors) come from this entry's own row in the race, whereas
// prediction.Service takes them from the horse's most recent past race.
func (e *Engine) buildFeatureVector(ctx context.Context, race domain.Race, r domain.RaceResult, fieldSize int) ([]float64, error) {
	past, err := e.source.PastResults(ctx, r.HorseID, race.Date, historyLimit)
	if err != nil {
		return nil, err
	}

	meta, hasMeta, err := e.source.HorseMeta(ctx, r.HorseID)
	if err != nil {
		return nil, err
	}

	factorCtx := factors.Context{
		TargetSurface:  race.Surface,
		TargetDistance: race.Distance,
		HasDistance:    true,
		TrackCondition: race.TrackCondition,
		HasCondition:   race.HasCondition,
		Odds:           r.Odds,
		Popularity:     r.Popularity,
		Sire:           meta.Sire,
		HasSire:        hasMeta && meta.Sire != "",
		DamSire:        meta.DamSire,
	}

	raceIDs := make([]string, len(past))
	for i, p := range past {
		raceIDs[i] = p.RaceID
	}

	scores := e.calc.CalculateAll(calculator.Context{
		HorseID:     r.HorseID,
		PastResults: past,
		PastRaceIDs: raceIDs,
		FactorCtx:   factorCtx,
	})

	stats := paststats.Calculate(domain.FilterResultsByHorse(past, r.HorseID), race.Date)

	raw := features.RawEntry{
		Odds:        domain.ScoreFromFloatPtr(r.Odds),
		Popularity:  domain.ScoreFromIntPtr(r.Popularity),
		Weight:      domain.ScoreFromIntPtr(r.BodyWeight),
		WeightDiff:  domain.ScoreFromIntPtr(r.BodyWeightDiff),
		Age:         domain.Some(float64(r.Age)),
		Impost:      domain.Some(r.Impost),
		HorseNumber: domain.Some(float64(r.HorseNumber)),
	}

	return features.Build(scores, raw, fieldSize, stats), nil
}

// predictRace runs the live prediction pipeline for one race and pairs
// each prediction with the actual finish position recorded for it.
func (e *Engine) predictRace(ctx context.Context, race domain.Race) (domain.RaceBacktestResult, error) {
	outcomes, err := e.source.RaceResults(ctx, race.ID)
	if err != nil {
		return domain.RaceBacktestResult{}, err
	}

	actualRank := make(map[string]int, len(outcomes))
	entries := make([]prediction.EntryInput, 0, len(outcomes))
	for _, r := range outcomes {
		actualRank[r.HorseID] = r.FinishPosition

		meta, hasMeta, err := e.source.HorseMeta(ctx, r.HorseID)
		if err != nil {
			return domain.RaceBacktestResult{}, err
		}

		entries = append(entries, prediction.EntryInput{
			Entry:     r.Entry,
			HorseName: "",
			Sire:      meta.Sire,
			HasSire:   hasMeta && meta.Sire != "",
			DamSire:   meta.DamSire,
		})
	}

	preds, err := e.predictor.Predict(ctx, prediction.RaceInput{
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
	})
	if err != nil {
		return domain.RaceBacktestResult{}, err
	}

	out := make([]domain.RaceBacktestEntry, len(preds))
	for i, p := range preds {
		out[i] = domain.RaceBacktestEntry{
			PredictionResult: p,
			ActualRank:       actualRank[p.HorseID],
		}
	}

	return domain.RaceBacktestResult{
		RaceID:      race.ID,
		RaceDate:    race.Date,
		Venue:       race.Venue,
		RaceNumber:  race.RaceNumber,
		Predictions: out,
	}, nil
}
