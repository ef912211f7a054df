// Package prediction implements the prediction service (C10): for each
// race, fetches each entry's pre-race history, runs the cached factor
// calculator and combiner, optionally scores a trained model, blends the
// two into a combined score, and yields a dense rank. Grounded on
// original_source's services/prediction_service.py.
package prediction

import (
	"context"
	"math"
	"sort"

	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/features"
	"github.com/nkeiba/racecast/internal/grade"
	"github.com/nkeiba/racecast/internal/paststats"
	"github.com/nkeiba/racecast/internal/trainer"
)

// MLWeightAlpha blends ml_probability and total_score into the combined
// score (config/weights.py ML_WEIGHT_ALPHA): 60% model, 40% factor total.
// The value is fixed here; config.WeightsConfig.MLWeightAlpha is not read
// by the service.
const MLWeightAlpha = 0.6

// HistoryRepository fetches a horse's past results strictly before a
// given race date (spec §4.10 "data leak prevention"). The core does
// not prescribe storage; this is the collaborator contract.
type HistoryRepository interface {
	PastResults(ctx context.Context, horseID string, beforeDate domain.Date, limit int) ([]domain.RaceResult, error)
}

// RaceInput is the race-level context the service needs, independent of
// any specific entry.
type RaceInput struct {
	RaceID         string
	Date           domain.Date
	Name           string
	Venue          string
	RaceNumber     int
	Surface        domain.Surface
	Distance       int
	TrackCondition domain.TrackCondition
	HasCondition   bool
	Entries        []EntryInput
}

// EntryInput is one horse entered in the race being predicted.
type EntryInput struct {
	domain.Entry
	HorseName string
	Sire      string
	HasSire   bool
	DamSire   string
}

const historyLimit = 20

// Service ties the calculator, combiner and trainer together into the
// per-race prediction pipeline.
type Service struct {
	history    HistoryRepository
	calc       *calculator.Calculator
	combine    *combiner.Combiner
	model      trainer.Predictor // nil: ml_probability is always 0
}

// New builds a Service. model may be nil (spec §4.10 step 5, "if no
// model, ml_probability = 0").
func New(history HistoryRepository, calc *calculator.Calculator, combine *combiner.Combiner, model trainer.Predictor) *Service {
	return &Service{history: history, calc: calc, combine: combine, model: model}
}

// SetModel swaps the active model with a plain field write; it is not
// synchronized with Predict calls running on other goroutines.
// backtest.Engine calls it between races on the goroutine that also runs
// Predict.
func (s *Service) SetModel(model trainer.Predictor) {
	s.model = model
}

// Predict runs the full pipeline for one race, returning entries sorted
// and ranked per spec §4.10 step 7. A DEBUT race returns an empty slice.
func (s *Service) Predict(ctx context.Context, race RaceInput) ([]domain.PredictionResult, error) {
	if grade.Extract(race.Name) == grade.Debut {
		return nil, nil
	}

	type working struct {
		domain.PredictionResult
		horseNumber int
	}

	results := make([]working, 0, len(race.Entries))

	for _, entry := range race.Entries {
		past, err := s.history.PastResults(ctx, entry.HorseID, race.Date, historyLimit)
		if err != nil {
			return nil, err
		}

		if len(past) == 0 {
			scores := map[string]domain.Score{}
			for _, f := range factors.All {
				scores[string(f)] = domain.None()
			}
			results = append(results, working{
				PredictionResult: domain.PredictionResult{
					HorseNumber:   entry.HorseNumber,
					HorseName:     entry.HorseName,
					HorseID:       entry.HorseID,
					MLProbability: 0,
					FactorScores:  scores,
					TotalScore:    domain.None(),
					CombinedScore: domain.None(),
				},
				horseNumber: entry.HorseNumber,
			})
			continue
		}

		raceIDs := make([]string, len(past))
		for i, r := range past {
			raceIDs[i] = r.RaceID
		}

		factorCtx := factors.Context{
			TargetSurface:  race.Surface,
			TargetDistance: race.Distance,
			HasDistance:    true,
			TrackCondition: race.TrackCondition,
			HasCondition:   race.HasCondition,
			Sire:           entry.Sire,
			HasSire:        entry.HasSire,
			DamSire:        entry.DamSire,
		}
		latest := past[0]
		factorCtx.Odds = latest.Odds
		factorCtx.Popularity = latest.Popularity

		rawScores := s.calc.CalculateAll(calculator.Context{
			HorseID:     entry.HorseID,
			PastResults: past,
			PastRaceIDs: raceIDs,
			FactorCtx:   factorCtx,
		})

		total := s.combine.Total(rawScores)

		ml := s.mlProbability(entry, past, rawScores, total, len(race.Entries), race.Date)

		namedScores := make(map[string]domain.Score, len(rawScores))
		for name, score := range rawScores {
			namedScores[string(name)] = score
		}

		results = append(results, working{
			PredictionResult: domain.PredictionResult{
				HorseNumber:   entry.HorseNumber,
				HorseName:     entry.HorseName,
				HorseID:       entry.HorseID,
				MLProbability: ml,
				FactorScores:  namedScores,
				TotalScore:    total,
			},
			horseNumber: entry.HorseNumber,
		})
	}

	maxML := 0.0
	for _, r := range results {
		if r.MLProbability > maxML {
			maxML = r.MLProbability
		}
	}

	for i := range results {
		results[i].CombinedScore = combinedScore(results[i].MLProbability, maxML, results[i].TotalScore)
	}

	sort.SliceStable(results, func(i, j int) bool {
		ci, iPresent := results[i].CombinedScore.Value()
		cj, jPresent := results[j].CombinedScore.Value()
		if !iPresent {
			ci = 0
		}
		if !jPresent {
			cj = 0
		}
		if ci != cj {
			return ci > cj
		}
		if results[i].MLProbability != results[j].MLProbability {
			return results[i].MLProbability > results[j].MLProbability
		}
		return results[i].horseNumber < results[j].horseNumber
	})

	out := make([]domain.PredictionResult, len(results))
	for i, r := range results {
		r.Rank = i + 1
		out[i] = r.PredictionResult
	}
	return out, nil
}

func (s *Service) mlProbability(entry EntryInput, past []domain.RaceResult, rawScores map[factors.Name]domain.Score, total domain.Score, fieldSize int, raceDate domain.Date) float64 {
	if s.model == nil {
		return 0
	}

	stats := paststats.Calculate(domain.FilterResultsByHorse(past, entry.HorseID), raceDate)
	raw := features.RawEntry{
		Odds:        domain.ScoreFromFloatPtr(past[0].Odds),
		Popularity:  domain.ScoreFromIntPtr(past[0].Popularity),
		Weight:      domain.ScoreFromIntPtr(past[0].BodyWeight),
		WeightDiff:  domain.ScoreFromIntPtr(past[0].BodyWeightDiff),
		Age:         domain.Some(float64(entry.Age)),
		Impost:      domain.Some(entry.Impost),
		HorseNumber: domain.Some(float64(entry.HorseNumber)),
	}
	vec := features.Build(rawScores, raw, fieldSize, stats)

	p, err := s.model.PredictProba(vec)
	if err != nil {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// combinedScore implements spec §4.10 step 6.
func combinedScore(mlProbability, maxML float64, total domain.Score) domain.Score {
	totalVal, present := total.Value()
	if !present || maxML <= 0 {
		return domain.None()
	}
	normalizedML := (mlProbability / maxML) * 100
	combined := MLWeightAlpha*normalizedML + (1-MLWeightAlpha)*totalVal
	return domain.Some(math.Round(combined*10) / 10)
}
