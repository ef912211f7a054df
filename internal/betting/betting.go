// Package betting implements the four bet simulators (C12): show
// (fukusho), win (tansho), quinella (umaren) and trio (sanrenpuku).
// Each replays a prediction's implied betting strategy against the
// race's official payout record and aggregates hit rate and return rate
// over a period. Grounded on original_source's
// backtest/{base_simulator,fukusho_simulator,tansho_simulator,
// umaren_simulator,sanrenpuku_simulator}.py.
package betting

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nkeiba/racecast/internal/domain"
)

const unitStake = 100 // yen per 100-yen ticket, matching every simulator below.

// RaceOutcome bundles one race's ranked predictions with its official
// payout record. Predictions must already be ordered by ascending rank
// (index 0 is the top pick), which is what prediction.Service.Predict
// and backtest.Engine.Run both produce.
type RaceOutcome struct {
	RaceID      string
	RaceName    string
	Venue       string
	RaceDate    domain.Date
	Predictions []domain.PredictionResult
	Payouts     domain.RacePayouts
}

// OutcomeResolver looks up a RaceOutcome by race id. A resolve failure
// (race not found, data unavailable) causes that race to be skipped
// entirely rather than aborting the period run (spec §4.12 "races that
// fail to resolve are skipped"). A resolvable race with a nil/empty
// Payouts field for a given bet type is NOT a resolve failure — it's
// simply a miss.
type OutcomeResolver interface {
	Resolve(ctx context.Context, raceID string) (RaceOutcome, error)
}

func topNHorseNumbers(predictions []domain.PredictionResult, n int) []int {
	if n > len(predictions) {
		n = len(predictions)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = predictions[i].HorseNumber
	}
	return out
}

func resolveAll(ctx context.Context, raceIDs []string, resolver OutcomeResolver) []RaceOutcome {
	outcomes := make([]RaceOutcome, 0, len(raceIDs))
	for _, id := range raceIDs {
		outcome, err := resolver.Resolve(ctx, id)
		if err != nil {
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ---- Show (fukusho): top-N predicted horses, 100 each, hit if a horse
// finished in the official top 3. ----

type ShowRaceResult struct {
	RaceID           string
	RaceName         string
	Venue            string
	RaceDate         domain.Date
	TopNPredictions  []int
	Hits             []int
	Payouts          []decimal.Decimal
	Investment       decimal.Decimal
	PayoutTotal      decimal.Decimal
}

type ShowSummary struct {
	PeriodFrom      string
	PeriodTo        string
	TotalRaces      int
	TotalBets       int
	TotalHits       int
	HitRate         float64
	TotalInvestment decimal.Decimal
	TotalPayout     decimal.Decimal
	ReturnRate      float64
	RaceResults     []ShowRaceResult
}

// SimulateShow buys topN show tickets on outcome's top picks.
func SimulateShow(outcome RaceOutcome, topN int) ShowRaceResult {
	picks := topNHorseNumbers(outcome.Predictions, topN)

	showMap := make(map[int]decimal.Decimal, len(outcome.Payouts.Show))
	for _, p := range outcome.Payouts.Show {
		showMap[p.HorseNumber] = p.Payout
	}

	var hits []int
	var payouts []decimal.Decimal
	payoutTotal := decimal.Zero
	for _, h := range picks {
		if payout, ok := showMap[h]; ok {
			hits = append(hits, h)
			payouts = append(payouts, payout)
			payoutTotal = payoutTotal.Add(payout)
		}
	}

	return ShowRaceResult{
		RaceID:          outcome.RaceID,
		RaceName:        outcome.RaceName,
		Venue:           outcome.Venue,
		RaceDate:        outcome.RaceDate,
		TopNPredictions: picks,
		Hits:            hits,
		Payouts:         payouts,
		Investment:      decimal.NewFromInt(unitStake).Mul(decimal.NewFromInt(int64(len(picks)))),
		PayoutTotal:     payoutTotal,
	}
}

// SimulateShowPeriod runs SimulateShow over every resolvable race and
// aggregates a period summary.
func SimulateShowPeriod(ctx context.Context, raceIDs []string, resolver OutcomeResolver, periodFrom, periodTo string, topN int) ShowSummary {
	outcomes := resolveAll(ctx, raceIDs, resolver)

	results := make([]ShowRaceResult, len(outcomes))
	totalBets, totalHits := 0, 0
	investment, payout := decimal.Zero, decimal.Zero
	for i, o := range outcomes {
		r := SimulateShow(o, topN)
		results[i] = r
		totalBets += len(r.TopNPredictions)
		totalHits += len(r.Hits)
		investment = investment.Add(r.Investment)
		payout = payout.Add(r.PayoutTotal)
	}

	return ShowSummary{
		PeriodFrom:      periodFrom,
		PeriodTo:        periodTo,
		TotalRaces:      len(results),
		TotalBets:       totalBets,
		TotalHits:       totalHits,
		HitRate:         rate(totalHits, totalBets),
		TotalInvestment: investment,
		TotalPayout:     payout,
		ReturnRate:      decimalRate(payout, investment),
		RaceResults:     results,
	}
}

// ---- Win (tansho): top-N predicted horses, 100 each, hit if any
// predicted horse is the official winner. ----

type WinRaceResult struct {
	RaceID          string
	RaceName        string
	Venue           string
	RaceDate        domain.Date
	TopNPredictions []int
	WinningHorse    int
	HasWinningHorse bool
	Hit             bool
	Payout          decimal.Decimal
	Investment      decimal.Decimal
}

type WinSummary struct {
	PeriodFrom      string
	PeriodTo        string
	TotalRaces      int
	TotalBets       int
	TotalHits       int
	HitRate         float64
	TotalInvestment decimal.Decimal
	TotalPayout     decimal.Decimal
	ReturnRate      float64
	RaceResults     []WinRaceResult
}

// SimulateWin buys topN win tickets on outcome's top picks.
func SimulateWin(outcome RaceOutcome, topN int) WinRaceResult {
	picks := topNHorseNumbers(outcome.Predictions, topN)

	result := WinRaceResult{
		RaceID:          outcome.RaceID,
		RaceName:        outcome.RaceName,
		Venue:           outcome.Venue,
		RaceDate:        outcome.RaceDate,
		TopNPredictions: picks,
		Investment:      decimal.NewFromInt(unitStake).Mul(decimal.NewFromInt(int64(len(picks)))),
		Payout:          decimal.Zero,
	}

	if outcome.Payouts.Win != nil {
		result.WinningHorse = outcome.Payouts.Win.HorseNumber
		result.HasWinningHorse = true
		for _, h := range picks {
			if h == result.WinningHorse {
				result.Hit = true
				result.Payout = outcome.Payouts.Win.Payout
				break
			}
		}
	}

	return result
}

// SimulateWinPeriod runs SimulateWin over every resolvable race.
func SimulateWinPeriod(ctx context.Context, raceIDs []string, resolver OutcomeResolver, periodFrom, periodTo string, topN int) WinSummary {
	outcomes := resolveAll(ctx, raceIDs, resolver)

	results := make([]WinRaceResult, len(outcomes))
	totalBets, totalHits := 0, 0
	investment, payout := decimal.Zero, decimal.Zero
	for i, o := range outcomes {
		r := SimulateWin(o, topN)
		results[i] = r
		totalBets += len(r.TopNPredictions)
		if r.Hit {
			totalHits++
		}
		investment = investment.Add(r.Investment)
		payout = payout.Add(r.Payout)
	}

	return WinSummary{
		PeriodFrom:      periodFrom,
		PeriodTo:        periodTo,
		TotalRaces:      len(results),
		TotalBets:       totalBets,
		TotalHits:       totalHits,
		HitRate:         rate(totalHits, len(results)),
		TotalInvestment: investment,
		TotalPayout:     payout,
		ReturnRate:      decimalRate(payout, investment),
		RaceResults:     results,
	}
}

// ---- Quinella (umaren): the three unordered pairs from the predicted
// top 3 (1-2, 1-3, 2-3), 100 each, hit if any pair matches the official
// unordered top-2 finishers. ----

type Pair [2]int

func orderedPair(a, b int) Pair {
	if a < b {
		return Pair{a, b}
	}
	return Pair{b, a}
}

type QuinellaRaceResult struct {
	RaceID          string
	RaceName        string
	Venue           string
	RaceDate        domain.Date
	BetCombinations []Pair
	ActualPair      Pair
	HasActualPair   bool
	Hit             bool
	Payout          decimal.Decimal
	Investment      decimal.Decimal
}

type QuinellaSummary struct {
	PeriodFrom      string
	PeriodTo        string
	TotalRaces      int
	TotalHits       int
	HitRate         float64
	TotalInvestment decimal.Decimal
	TotalPayout     decimal.Decimal
	ReturnRate      float64
	RaceResults     []QuinellaRaceResult
}

// quinellaCombinations generates the fixed 3-point box from a top-3 pick
// (fukusho/umaren_simulator.py _generate_bet_combinations). Fewer than 3
// predicted entries yields no combinations.
func quinellaCombinations(top3 []int) []Pair {
	if len(top3) < 3 {
		return nil
	}
	h1, h2, h3 := top3[0], top3[1], top3[2]
	return []Pair{
		orderedPair(h1, h2),
		orderedPair(h1, h3),
		orderedPair(h2, h3),
	}
}

// SimulateQuinella buys the fixed 3-point quinella box from outcome's
// top-3 picks.
func SimulateQuinella(outcome RaceOutcome) QuinellaRaceResult {
	picks := topNHorseNumbers(outcome.Predictions, 3)
	combos := quinellaCombinations(picks)

	result := QuinellaRaceResult{
		RaceID:          outcome.RaceID,
		RaceName:        outcome.RaceName,
		Venue:           outcome.Venue,
		RaceDate:        outcome.RaceDate,
		BetCombinations: combos,
		Investment:      decimal.NewFromInt(unitStake).Mul(decimal.NewFromInt(3)),
		Payout:          decimal.Zero,
	}

	if outcome.Payouts.Quinella != nil {
		actual := orderedPair(outcome.Payouts.Quinella.HorseNumbers[0], outcome.Payouts.Quinella.HorseNumbers[1])
		result.ActualPair = actual
		result.HasActualPair = true
		for _, combo := range combos {
			if combo == actual {
				result.Hit = true
				result.Payout = outcome.Payouts.Quinella.Payout
				break
			}
		}
	}

	return result
}

// SimulateQuinellaPeriod runs SimulateQuinella over every resolvable race.
func SimulateQuinellaPeriod(ctx context.Context, raceIDs []string, resolver OutcomeResolver, periodFrom, periodTo string) QuinellaSummary {
	outcomes := resolveAll(ctx, raceIDs, resolver)

	results := make([]QuinellaRaceResult, len(outcomes))
	totalHits := 0
	investment, payout := decimal.Zero, decimal.Zero
	for i, o := range outcomes {
		r := SimulateQuinella(o)
		results[i] = r
		if r.Hit {
			totalHits++
		}
		investment = investment.Add(r.Investment)
		payout = payout.Add(r.Payout)
	}

	return QuinellaSummary{
		PeriodFrom:      periodFrom,
		PeriodTo:        periodTo,
		TotalRaces:      len(results),
		TotalHits:       totalHits,
		HitRate:         rate(totalHits, len(results)),
		TotalInvestment: investment,
		TotalPayout:     payout,
		ReturnRate:      decimalRate(payout, investment),
		RaceResults:     results,
	}
}

// ---- Trio (sanrenpuku): a single unordered ticket on the predicted
// top 3, 100 flat, hit if the set matches the official top-3 finishers
// exactly (order ignored). ----

type Trio [3]int

func sortedTrio(a, b, c int) Trio {
	t := [3]int{a, b, c}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if t[j] < t[i] {
				t[i], t[j] = t[j], t[i]
			}
		}
	}
	return Trio(t)
}

type TrioRaceResult struct {
	RaceID        string
	RaceName      string
	Venue         string
	RaceDate      domain.Date
	PredictedTrio Trio
	HasPrediction bool
	ActualTrio    Trio
	HasActual     bool
	Hit           bool
	Payout        decimal.Decimal
	Investment    decimal.Decimal
}

type TrioSummary struct {
	PeriodFrom      string
	PeriodTo        string
	TotalRaces      int
	TotalHits       int
	HitRate         float64
	TotalInvestment decimal.Decimal
	TotalPayout     decimal.Decimal
	ReturnRate      float64
	RaceResults     []TrioRaceResult
}

// SimulateTrio buys the single unordered trio ticket on outcome's top-3
// picks.
func SimulateTrio(outcome RaceOutcome) TrioRaceResult {
	picks := topNHorseNumbers(outcome.Predictions, 3)

	result := TrioRaceResult{
		RaceID:     outcome.RaceID,
		RaceName:   outcome.RaceName,
		Venue:      outcome.Venue,
		RaceDate:   outcome.RaceDate,
		Investment: decimal.NewFromInt(unitStake),
		Payout:     decimal.Zero,
	}

	if len(picks) == 3 {
		result.PredictedTrio = sortedTrio(picks[0], picks[1], picks[2])
		result.HasPrediction = true
	}

	if outcome.Payouts.Trio != nil {
		hn := outcome.Payouts.Trio.HorseNumbers
		result.ActualTrio = sortedTrio(hn[0], hn[1], hn[2])
		result.HasActual = true
		if result.HasPrediction && result.PredictedTrio == result.ActualTrio {
			result.Hit = true
			result.Payout = outcome.Payouts.Trio.Payout
		}
	}

	return result
}

// SimulateTrioPeriod runs SimulateTrio over every resolvable race.
func SimulateTrioPeriod(ctx context.Context, raceIDs []string, resolver OutcomeResolver, periodFrom, periodTo string) TrioSummary {
	outcomes := resolveAll(ctx, raceIDs, resolver)

	results := make([]TrioRaceResult, len(outcomes))
	totalHits := 0
	investment, payout := decimal.Zero, decimal.Zero
	for i, o := range outcomes {
		r := SimulateTrio(o)
		results[i] = r
		if r.Hit {
			totalHits++
		}
		investment = investment.Add(r.Investment)
		payout = payout.Add(r.Payout)
	}

	return TrioSummary{
		PeriodFrom:      periodFrom,
		PeriodTo:        periodTo,
		TotalRaces:      len(results),
		TotalHits:       totalHits,
		HitRate:         rate(totalHits, len(results)),
		TotalInvestment: investment,
		TotalPayout:     payout,
		ReturnRate:      decimalRate(payout, investment),
		RaceResults:     results,
	}
}

func rate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func decimalRate(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	f, _ := numerator.Div(denominator).Float64()
	return f
}
