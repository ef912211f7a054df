package resilience

import (
	"context"

	"github.com/nkeiba/racecast/internal/backtest"
	"github.com/nkeiba/racecast/internal/domain"
)

// GuardedDataSource decorates a backtest.DataSource with a Guard so
// every storage call is rate-limited and circuit-broken the same way,
// without internal/backtest or internal/prediction needing to know
// resilience exists.
type GuardedDataSource struct {
	source backtest.DataSource
	guard  *Guard
}

// NewGuardedDataSource wraps source behind guard.
func NewGuardedDataSource(source backtest.DataSource, guard *Guard) *GuardedDataSource {
	return &GuardedDataSource{source: source, guard: guard}
}

func (d *GuardedDataSource) PastResults(ctx context.Context, horseID string, beforeDate domain.Date, limit int) ([]domain.RaceResult, error) {
	return Do(ctx, d.guard, func(ctx context.Context) ([]domain.RaceResult, error) {
		return d.source.PastResults(ctx, horseID, beforeDate, limit)
	})
}

func (d *GuardedDataSource) RacesInRange(ctx context.Context, from, to domain.Date) ([]domain.Race, error) {
	return Do(ctx, d.guard, func(ctx context.Context) ([]domain.Race, error) {
		return d.source.RacesInRange(ctx, from, to)
	})
}

func (d *GuardedDataSource) RacesBefore(ctx context.Context, cutoff domain.Date) ([]domain.Race, error) {
	return Do(ctx, d.guard, func(ctx context.Context) ([]domain.Race, error) {
		return d.source.RacesBefore(ctx, cutoff)
	})
}

func (d *GuardedDataSource) RaceResults(ctx context.Context, raceID string) ([]domain.RaceResult, error) {
	return Do(ctx, d.guard, func(ctx context.Context) ([]domain.RaceResult, error) {
		return d.source.RaceResults(ctx, raceID)
	})
}

func (d *GuardedDataSource) HorseMeta(ctx context.Context, horseID string) (domain.HorseMeta, bool, error) {
	type metaResult struct {
		meta    domain.HorseMeta
		present bool
	}
	out, err := Do(ctx, d.guard, func(ctx context.Context) (metaResult, error) {
		meta, ok, err := d.source.HorseMeta(ctx, horseID)
		return metaResult{meta: meta, present: ok}, err
	})
	return out.meta, out.present, err
}
