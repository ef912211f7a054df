package betting

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nkeiba/racecast/internal/domain"
)

func preds(horseNumbers ...int) []domain.PredictionResult {
	out := make([]domain.PredictionResult, len(horseNumbers))
	for i, h := range horseNumbers {
		out[i] = domain.PredictionResult{HorseNumber: h, Rank: i + 1}
	}
	return out
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestSimulateShow_HitsAndMisses(t *testing.T) {
	outcome := RaceOutcome{
		RaceID:      "r1",
		Predictions: preds(3, 1, 7),
		Payouts: domain.RacePayouts{
			Show: []domain.ShowPayout{
				{HorseNumber: 1, Payout: dec(150)},
				{HorseNumber: 5, Payout: dec(200)},
				{HorseNumber: 9, Payout: dec(300)},
			},
		},
	}

	result := SimulateShow(outcome, 3)
	assert.Equal(t, []int{1}, result.Hits)
	assert.True(t, result.PayoutTotal.Equal(dec(150)))
	assert.True(t, result.Investment.Equal(dec(300)))
}

func TestSimulateWin_HitWhenTopPickIsWinner(t *testing.T) {
	outcome := RaceOutcome{
		Predictions: preds(4, 2, 6),
		Payouts:     domain.RacePayouts{Win: &domain.WinPayout{HorseNumber: 4, Payout: dec(520)}},
	}
	result := SimulateWin(outcome, 3)
	assert.True(t, result.Hit)
	assert.True(t, result.Payout.Equal(dec(520)))
	assert.True(t, result.Investment.Equal(dec(300)))
}

func TestSimulateWin_MissWhenWinnerNotPredicted(t *testing.T) {
	outcome := RaceOutcome{
		Predictions: preds(4, 2, 6),
		Payouts:     domain.RacePayouts{Win: &domain.WinPayout{HorseNumber: 9, Payout: dec(520)}},
	}
	result := SimulateWin(outcome, 3)
	assert.False(t, result.Hit)
	assert.True(t, result.Payout.IsZero())
}

func TestSimulateQuinella_GeneratesThreePointBox(t *testing.T) {
	outcome := RaceOutcome{Predictions: preds(5, 2, 8)}
	result := SimulateQuinella(outcome)
	assert.ElementsMatch(t, []Pair{{2, 5}, {5, 8}, {2, 8}}, result.BetCombinations)
	assert.True(t, result.Investment.Equal(dec(300)))
}

func TestSimulateQuinella_HitOnUnorderedPairMatch(t *testing.T) {
	outcome := RaceOutcome{
		Predictions: preds(5, 2, 8),
		Payouts:     domain.RacePayouts{Quinella: &domain.QuinellaPayout{HorseNumbers: [2]int{8, 2}, Payout: dec(1200)}},
	}
	result := SimulateQuinella(outcome)
	assert.True(t, result.Hit)
	assert.True(t, result.Payout.Equal(dec(1200)))
}

func TestSimulateTrio_HitRequiresExactSetMatch(t *testing.T) {
	outcome := RaceOutcome{
		Predictions: preds(5, 2, 8),
		Payouts:     domain.RacePayouts{Trio: &domain.TrioPayout{HorseNumbers: [3]int{8, 5, 2}, Payout: dec(3400)}},
	}
	result := SimulateTrio(outcome)
	assert.True(t, result.Hit)
	assert.Equal(t, Trio{2, 5, 8}, result.PredictedTrio)
	assert.True(t, result.Investment.Equal(dec(100)))
}

func TestSimulateTrio_MissWhenOneHorseDiffers(t *testing.T) {
	outcome := RaceOutcome{
		Predictions: preds(5, 2, 8),
		Payouts:     domain.RacePayouts{Trio: &domain.TrioPayout{HorseNumbers: [3]int{8, 5, 9}, Payout: dec(3400)}},
	}
	result := SimulateTrio(outcome)
	assert.False(t, result.Hit)
	assert.True(t, result.Payout.IsZero())
}

type stubResolver struct {
	outcomes map[string]RaceOutcome
	fail     map[string]bool
}

func (s stubResolver) Resolve(_ context.Context, raceID string) (RaceOutcome, error) {
	if s.fail[raceID] {
		return RaceOutcome{}, errors.New("race not found")
	}
	return s.outcomes[raceID], nil
}

func TestSimulateShowPeriod_SkipsUnresolvableRacesWithoutAborting(t *testing.T) {
	resolver := stubResolver{
		outcomes: map[string]RaceOutcome{
			"r1": {RaceID: "r1", Predictions: preds(1, 2, 3), Payouts: domain.RacePayouts{Show: []domain.ShowPayout{{HorseNumber: 1, Payout: dec(150)}}}},
		},
		fail: map[string]bool{"r2": true},
	}

	summary := SimulateShowPeriod(context.Background(), []string{"r1", "r2"}, resolver, "2026-01-01", "2026-01-31", 3)
	assert.Equal(t, 1, summary.TotalRaces)
	assert.Equal(t, 3, summary.TotalBets)
	assert.Equal(t, 1, summary.TotalHits)
	assert.InDelta(t, 1.0/3.0, summary.HitRate, 1e-9)
}

func TestSimulateWinPeriod_ReturnRateZeroWhenNoInvestment(t *testing.T) {
	resolver := stubResolver{outcomes: map[string]RaceOutcome{}}
	summary := SimulateWinPeriod(context.Background(), nil, resolver, "2026-01-01", "2026-01-31", 3)
	assert.Equal(t, 0, summary.TotalRaces)
	assert.Equal(t, 0.0, summary.ReturnRate)
	assert.Equal(t, 0.0, summary.HitRate)
}
