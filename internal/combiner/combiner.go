// Package combiner implements the weighted score combiner (C4): a weighted
// mean over whichever factors are present, renormalized by the sum of the
// weights actually applied. Grounded on
// original_source's analyzers/score_calculator.py.
package combiner

import (
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
)

// DefaultWeights mirrors config/weights.py's FACTOR_WEIGHTS: the five
// always-available factors sum to 1.0, with pedigree/running_style left
// at zero unless a caller opts in (spec §4.4 "extendable weight vector").
var DefaultWeights = map[factors.Name]float64{
	factors.PastResults:  0.25,
	factors.CourseFit:    0.20,
	factors.TimeIndex:    0.20,
	factors.Last3F:       0.20,
	factors.Popularity:   0.15,
	factors.Pedigree:     0.0,
	factors.RunningStyle: 0.0,
}

// Combiner computes a single weighted total from a set of factor scores.
type Combiner struct {
	weights map[factors.Name]float64
}

// New builds a Combiner with the given weights, falling back to
// DefaultWeights for any factor name it doesn't mention.
func New(weights map[factors.Name]float64) *Combiner {
	merged := make(map[factors.Name]float64, len(DefaultWeights))
	for k, v := range DefaultWeights {
		merged[k] = v
	}
	for k, v := range weights {
		merged[k] = v
	}
	return &Combiner{weights: merged}
}

// Weights returns a copy of the active weight map.
func (c *Combiner) Weights() map[factors.Name]float64 {
	out := make(map[factors.Name]float64, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

// Total computes the weighted mean of the present factor scores,
// renormalized by the sum of weights actually used. Factors absent from
// factorScores, or whose Score is "none", are skipped entirely rather
// than treated as zero (spec §4.4, §3 invariant).
func (c *Combiner) Total(factorScores map[factors.Name]domain.Score) domain.Score {
	var totalScore, totalWeight float64
	for name, score := range factorScores {
		v, present := score.Value()
		if !present {
			continue
		}
		weight, known := c.weights[name]
		if !known || weight == 0 {
			continue
		}
		totalScore += v * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return domain.None()
	}
	return domain.Some(round1(totalScore / totalWeight))
}

func round1(v float64) float64 {
	scaled := v*10 + 0.5
	if v < 0 {
		scaled = v*10 - 0.5
	}
	return float64(int64(scaled)) / 10
}
