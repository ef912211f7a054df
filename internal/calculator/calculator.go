// Package calculator implements the cached factor calculator (C6): it
// orchestrates the seven factor functions (internal/factors) behind the
// bounded LRU cache (internal/cache), fingerprinting each lookup by
// (factor, horse, past race ids, extra params). The popularity factor is
// explicitly never cached since it reflects real-time odds (spec §4.3,
// §4.5). Grounded on
// original_source's backtest/factor_calculator.py (CachedFactorCalculator
// / FactorCalculationContext, as referenced by
// tests/backtest/test_cached_factor_calculator.py).
package calculator

import (
	"strconv"

	"github.com/nkeiba/racecast/internal/cache"
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/pedigree"
)

// Context bundles everything a single entry's factor pass needs: its
// own horse id, its (already-sorted, newest-first) past results, the
// ids of those past results in order (for fingerprinting), and the
// target race's conditions.
type Context struct {
	HorseID      string
	PastResults  []domain.RaceResult
	PastRaceIDs  []string
	FactorCtx    factors.Context
}

// Calculator computes all seven factor scores for an entry, caching the
// six factors whose inputs are stable across repeated backtest passes.
type Calculator struct {
	cache   *cache.FactorCache
	master  *pedigree.Master
}

// New builds a Calculator backed by the given cache (never nil) and an
// optional pedigree master (nil uses the built-in tables).
func New(factorCache *cache.FactorCache, master *pedigree.Master) *Calculator {
	if master == nil {
		master = pedigree.Default()
	}
	return &Calculator{cache: factorCache, master: master}
}

// CalculateAll returns all seven named factor scores for the context.
func (c *Calculator) CalculateAll(ctx Context) map[factors.Name]domain.Score {
	scores := make(map[factors.Name]domain.Score, len(factors.All))

	scores[factors.PastResults] = c.cached(factors.PastResults, ctx, nil, func() domain.Score {
		return factors.PastResultsScore(horseResults(ctx))
	})
	scores[factors.CourseFit] = c.cached(factors.CourseFit, ctx, courseFitParams(ctx.FactorCtx), func() domain.Score {
		return factors.CourseFitScore(ctx.HorseID, ctx.PastResults, ctx.FactorCtx)
	})
	scores[factors.TimeIndex] = c.cached(factors.TimeIndex, ctx, timeIndexParams(ctx.FactorCtx), func() domain.Score {
		return factors.TimeIndexScore(ctx.HorseID, ctx.PastResults, ctx.FactorCtx)
	})
	scores[factors.Last3F] = c.cached(factors.Last3F, ctx, nil, func() domain.Score {
		return factors.Last3FScore(ctx.HorseID, ctx.PastResults)
	})
	scores[factors.Pedigree] = c.cached(factors.Pedigree, ctx, pedigreeParams(ctx.FactorCtx), func() domain.Score {
		return factors.PedigreeScore(ctx.FactorCtx, c.master)
	})
	scores[factors.RunningStyle] = c.cached(factors.RunningStyle, ctx, nil, func() domain.Score {
		return factors.RunningStyleScore(ctx.HorseID, ctx.PastResults, ctx.FactorCtx)
	})

	// popularity reflects real-time odds/popularity and is never cached.
	scores[factors.Popularity] = factors.PopularityScore(ctx.FactorCtx)

	return scores
}

func (c *Calculator) cached(name factors.Name, ctx Context, params map[string]string, compute func() domain.Score) domain.Score {
	key := cache.Fingerprint(string(name), ctx.HorseID, ctx.PastRaceIDs, params)
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	v := compute()
	c.cache.Set(key, v)
	return v
}

func horseResults(ctx Context) []domain.RaceResult {
	out := make([]domain.RaceResult, 0, len(ctx.PastResults))
	for _, r := range ctx.PastResults {
		if r.HorseID == ctx.HorseID {
			out = append(out, r)
		}
	}
	return out
}

func courseFitParams(fc factors.Context) map[string]string {
	return map[string]string{
		"surface":  string(fc.TargetSurface),
		"distance": strconv.Itoa(fc.TargetDistance),
	}
}

func timeIndexParams(fc factors.Context) map[string]string {
	params := map[string]string{
		"surface":  string(fc.TargetSurface),
		"distance": strconv.Itoa(fc.TargetDistance),
	}
	if fc.HasCondition {
		params["condition"] = string(fc.TrackCondition)
	}
	return params
}

func pedigreeParams(fc factors.Context) map[string]string {
	return map[string]string{
		"sire":      fc.Sire,
		"dam_sire":  fc.DamSire,
		"distance":  strconv.Itoa(fc.TargetDistance),
		"condition": string(fc.TrackCondition),
	}
}
