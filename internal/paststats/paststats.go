// Package paststats implements the past-performance statistics calculator
// (C8): win_rate, top3_rate, avg_finish_position, days_since_last_race,
// shared by the prediction service and the backtest engine's
// training-data builder.
// Grounded on original_source's services/past_stats_calculator.py.
package paststats

import "github.com/nkeiba/racecast/internal/domain"

// Stats is the derived summary of a horse's past results as of a given
// race date. Every field is optional: an empty results slice yields
// all-absent stats; when no finish position is positive, WinRate and
// Top3Rate are 0 and only AvgFinishPosition is absent.
type Stats struct {
	WinRate            domain.Score
	Top3Rate           domain.Score
	AvgFinishPosition  domain.Score
	DaysSinceLastRace  domain.Score
}

// Calculate derives Stats from a horse's past results, which the caller
// has already filtered to the relevant horse and sorted newest-first.
//
// currentDate is the date of the race being predicted for; it is never
// itself among results.
func Calculate(results []domain.RaceResult, currentDate domain.Date) Stats {
	if len(results) == 0 {
		return Stats{}
	}

	total := len(results)
	wins := 0
	top3 := 0
	var validPositions []int
	for _, r := range results {
		if r.FinishPosition == 1 {
			wins++
		}
		if r.FinishPosition >= 1 && r.FinishPosition <= 3 {
			top3++
		}
		if r.FinishPosition > 0 {
			validPositions = append(validPositions, r.FinishPosition)
		}
	}

	stats := Stats{
		WinRate:  domain.Some(float64(wins) / float64(total)),
		Top3Rate: domain.Some(float64(top3) / float64(total)),
	}
	if len(validPositions) > 0 {
		sum := 0
		for _, p := range validPositions {
			sum += p
		}
		stats.AvgFinishPosition = domain.Some(float64(sum) / float64(len(validPositions)))
	} else {
		stats.AvgFinishPosition = domain.None()
	}

	stats.DaysSinceLastRace = daysSinceLast(results, currentDate)
	return stats
}

func daysSinceLast(results []domain.RaceResult, currentDate domain.Date) domain.Score {
	last := results[0].RaceDate
	days := int(currentDate.ToTime().Sub(last.ToTime()).Hours() / 24)
	return domain.Some(float64(days))
}
