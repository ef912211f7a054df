package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkeiba/racecast/internal/cache"
	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/domain"
)

type stubSource struct {
	races       []domain.Race
	resultsByID map[string][]domain.RaceResult
	pastByHorse map[string][]domain.RaceResult
	meta        map[string]domain.HorseMeta

	// recordedCutoffs captures every beforeDate passed to PastResults, to
	// assert the strict-less-than leakage invariant.
	recordedCutoffs []domain.Date
}

func (s *stubSource) RacesInRange(_ context.Context, from, to domain.Date) ([]domain.Race, error) {
	var out []domain.Race
	for _, r := range s.races {
		if !r.Date.Before(from) && !to.Before(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubSource) RacesBefore(_ context.Context, cutoff domain.Date) ([]domain.Race, error) {
	var out []domain.Race
	for _, r := range s.races {
		if r.Date.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubSource) RaceResults(_ context.Context, raceID string) ([]domain.RaceResult, error) {
	return s.resultsByID[raceID], nil
}

func (s *stubSource) HorseMeta(_ context.Context, horseID string) (domain.HorseMeta, bool, error) {
	m, ok := s.meta[horseID]
	return m, ok, nil
}

func (s *stubSource) PastResults(_ context.Context, horseID string, beforeDate domain.Date, _ int) ([]domain.RaceResult, error) {
	s.recordedCutoffs = append(s.recordedCutoffs, beforeDate)
	return s.pastByHorse[horseID], nil
}

func newCalcAndCombine() (*calculator.Calculator, *combiner.Combiner) {
	return calculator.New(cache.New(1000), nil), combiner.New(nil)
}

func TestShouldRetrain_FirstRaceAlwaysRetrains(t *testing.T) {
	calc, comb := newCalcAndCombine()
	e := New(&stubSource{}, calc, comb, RetrainDaily)
	assert.True(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 1}))
}

func TestShouldRetrain_Daily(t *testing.T) {
	calc, comb := newCalcAndCombine()
	e := New(&stubSource{}, calc, comb, RetrainDaily)
	d := domain.Date{Year: 2026, Month: 1, Day: 5}
	e.lastTrainDate = &d

	assert.False(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 5}))
	assert.True(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 6}))
}

func TestShouldRetrain_Weekly(t *testing.T) {
	calc, comb := newCalcAndCombine()
	e := New(&stubSource{}, calc, comb, RetrainWeekly)
	// 2026-01-05 is a Monday (ISO week 2).
	d := domain.Date{Year: 2026, Month: 1, Day: 5}
	e.lastTrainDate = &d

	assert.False(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 9}))
	assert.True(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 12}))
}

func TestShouldRetrain_Monthly(t *testing.T) {
	calc, comb := newCalcAndCombine()
	e := New(&stubSource{}, calc, comb, RetrainMonthly)
	d := domain.Date{Year: 2026, Month: 1, Day: 31}
	e.lastTrainDate = &d

	assert.False(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 1, Day: 15}))
	assert.True(t, e.shouldRetrain(domain.Date{Year: 2026, Month: 2, Day: 1}))
}

func TestRun_StreamsOneResultPerRaceWithActualRank(t *testing.T) {
	race1 := domain.Race{ID: "r1", Date: domain.Date{Year: 2026, Month: 1, Day: 10}, Venue: "Tokyo", RaceNumber: 1, Name: "3歳上オープン", Surface: domain.SurfaceTurf, Distance: 1600}
	race2 := domain.Race{ID: "r2", Date: domain.Date{Year: 2026, Month: 1, Day: 11}, Venue: "Tokyo", RaceNumber: 2, Name: "3歳上オープン", Surface: domain.SurfaceTurf, Distance: 1600}

	source := &stubSource{
		races: []domain.Race{race1, race2},
		resultsByID: map[string][]domain.RaceResult{
			"r1": {
				{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r1", FinishPosition: 1, TotalRunners: 2},
				{Entry: domain.Entry{HorseID: "h2", HorseNumber: 2}, RaceID: "r1", FinishPosition: 2, TotalRunners: 2},
			},
			"r2": {
				{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r2", FinishPosition: 2, TotalRunners: 2},
				{Entry: domain.Entry{HorseID: "h2", HorseNumber: 2}, RaceID: "r2", FinishPosition: 1, TotalRunners: 2},
			},
		},
		pastByHorse: map[string][]domain.RaceResult{},
		meta:        map[string]domain.HorseMeta{},
	}

	calc, comb := newCalcAndCombine()
	e := New(source, calc, comb, RetrainWeekly)

	results, errs := e.Run(context.Background(), race1.Date, race2.Date)

	var got []domain.RaceBacktestResult
	for r := range results {
		got = append(got, r)
	}
	require.NoError(t, <-errs)
	require.Len(t, got, 2)

	assert.Equal(t, "r1", got[0].RaceID)
	assert.Equal(t, "r2", got[1].RaceID)

	for _, pred := range got[0].Predictions {
		if pred.HorseID == "h1" {
			assert.Equal(t, 1, pred.ActualRank)
		}
		if pred.HorseID == "h2" {
			assert.Equal(t, 2, pred.ActualRank)
		}
	}
}

func TestRun_LeakagePastResultsCutoffNeverAfterRaceDate(t *testing.T) {
	race := domain.Race{ID: "r1", Date: domain.Date{Year: 2026, Month: 3, Day: 1}, Surface: domain.SurfaceTurf, Distance: 1600}
	source := &stubSource{
		races: []domain.Race{race},
		resultsByID: map[string][]domain.RaceResult{
			"r1": {{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r1", FinishPosition: 1, TotalRunners: 1}},
		},
		pastByHorse: map[string][]domain.RaceResult{},
		meta:        map[string]domain.HorseMeta{},
	}

	calc, comb := newCalcAndCombine()
	e := New(source, calc, comb, RetrainDaily)

	results, errs := e.Run(context.Background(), race.Date, race.Date)
	for range results {
	}
	require.NoError(t, <-errs)

	require.NotEmpty(t, source.recordedCutoffs)
	for _, cutoff := range source.recordedCutoffs {
		assert.False(t, race.Date.Before(cutoff), "history lookups must never request data at or after the race being predicted")
		assert.True(t, cutoff.Equal(race.Date), "prediction pass should request history strictly before the race's own date")
	}
}

func TestRun_InsufficientTrainingSamplesClearsModel(t *testing.T) {
	race := domain.Race{ID: "r1", Date: domain.Date{Year: 2026, Month: 3, Day: 1}, Surface: domain.SurfaceTurf, Distance: 1600}
	source := &stubSource{
		races: []domain.Race{race},
		resultsByID: map[string][]domain.RaceResult{
			"r1": {{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r1", FinishPosition: 1, TotalRunners: 1}},
		},
		pastByHorse: map[string][]domain.RaceResult{},
		meta:        map[string]domain.HorseMeta{},
	}

	calc, comb := newCalcAndCombine()
	e := New(source, calc, comb, RetrainDaily)

	results, errs := e.Run(context.Background(), race.Date, race.Date)
	for r := range results {
		for _, pred := range r.Predictions {
			assert.Equal(t, 0.0, pred.MLProbability)
		}
	}
	require.NoError(t, <-errs)
	assert.Nil(t, e.model.Load())
}

func TestRun_CancellationStopsAtRaceBoundary(t *testing.T) {
	race1 := domain.Race{ID: "r1", Date: domain.Date{Year: 2026, Month: 1, Day: 1}, Surface: domain.SurfaceTurf, Distance: 1600}
	race2 := domain.Race{ID: "r2", Date: domain.Date{Year: 2026, Month: 1, Day: 2}, Surface: domain.SurfaceTurf, Distance: 1600}
	source := &stubSource{
		races: []domain.Race{race1, race2},
		resultsByID: map[string][]domain.RaceResult{
			"r1": {{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r1", FinishPosition: 1, TotalRunners: 1}},
			"r2": {{Entry: domain.Entry{HorseID: "h1", HorseNumber: 1}, RaceID: "r2", FinishPosition: 1, TotalRunners: 1}},
		},
		pastByHorse: map[string][]domain.RaceResult{},
		meta:        map[string]domain.HorseMeta{},
	}

	calc, comb := newCalcAndCombine()
	e := New(source, calc, comb, RetrainDaily)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := e.Run(ctx, race1.Date, race2.Date)
	for range results {
	}
	err := <-errs
	assert.ErrorIs(t, err, context.Canceled)
}
