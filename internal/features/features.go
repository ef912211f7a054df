// Package features implements the feature builder (C7): a fixed-order
// 19-column numeric feature vector (7 factor scores, 8 raw fields, 4
// derived stats) for the trainer, with NaN as the missing-value sentinel
// and a stable published column order for model I/O compatibility.
// Grounded on original_source's ml/feature_builder.py.
package features

import (
	"math"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/paststats"
)

// factorColumns mirrors FeatureBuilder.FACTOR_NAMES, each suffixed
// "_score" in the published column name.
var factorColumns = []factors.Name{
	factors.PastResults,
	factors.CourseFit,
	factors.TimeIndex,
	factors.Last3F,
	factors.Popularity,
	factors.Pedigree,
	factors.RunningStyle,
}

// rawColumns mirrors FeatureBuilder.RAW_DATA_NAMES.
var rawColumns = []string{
	"odds", "popularity", "weight", "weight_diff", "age", "impost",
	"horse_number", "field_size",
}

// derivedColumns mirrors FeatureBuilder.DERIVED_NAMES.
var derivedColumns = []string{
	"win_rate", "top3_rate", "avg_finish_position", "days_since_last_race",
}

// Names returns the 19 published column names in fixed order, matching
// get_feature_names() (SPEC_FULL.md §4 "stable column order publication").
func Names() []string {
	names := make([]string, 0, 19)
	for _, f := range factorColumns {
		names = append(names, string(f)+"_score")
	}
	names = append(names, rawColumns...)
	names = append(names, derivedColumns...)
	return names
}

// RawEntry carries the per-entry raw fields the feature builder pulls
// directly off the prediction input, distinct from factor scores.
type RawEntry struct {
	Odds         domain.Score
	Popularity   domain.Score
	Weight       domain.Score
	WeightDiff   domain.Score
	Age          domain.Score
	Impost       domain.Score
	HorseNumber  domain.Score
}

// Build assembles the 19-column feature vector in the order Names()
// publishes. Any absent domain.Score becomes math.NaN() (spec §9
// "Missing values"), the only place NaN is permitted to appear.
func Build(factorScores map[factors.Name]domain.Score, raw RawEntry, fieldSize int, stats paststats.Stats) []float64 {
	out := make([]float64, 0, 19)

	for _, f := range factorColumns {
		out = append(out, factorScores[f].NaN())
	}

	out = append(out,
		raw.Odds.NaN(),
		raw.Popularity.NaN(),
		raw.Weight.NaN(),
		raw.WeightDiff.NaN(),
		raw.Age.NaN(),
		raw.Impost.NaN(),
		raw.HorseNumber.NaN(),
		float64(fieldSize),
	)

	out = append(out,
		stats.WinRate.NaN(),
		stats.Top3Rate.NaN(),
		stats.AvgFinishPosition.NaN(),
		stats.DaysSinceLastRace.NaN(),
	)

	return out
}

// IsMissing reports whether a raw feature value is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
