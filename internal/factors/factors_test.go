package factors

import (
	"testing"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/pedigree"
	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }
func pint(v int) *int      { return &v }

func TestPastResultsScore_NoData(t *testing.T) {
	assert.False(t, PastResultsScore(nil).Present())
}

func TestPastResultsScore_SingleRace(t *testing.T) {
	results := []domain.RaceResult{
		{FinishPosition: 1, TotalRunners: 10, RaceName: "3歳上オープン"},
	}
	score := PastResultsScore(results)
	assert.True(t, score.Present())
	v, _ := score.Value()
	// base=(10-1+1)/10*100=100, OP multiplier 1.1 -> capped at 100
	assert.InDelta(t, 100.0, v, 0.001)
}

func TestPastResultsScore_WeightedAverage(t *testing.T) {
	results := []domain.RaceResult{
		{FinishPosition: 1, TotalRunners: 10, RaceName: "3歳上3勝クラス"},
		{FinishPosition: 10, TotalRunners: 10, RaceName: "3歳上3勝クラス"},
	}
	score := PastResultsScore(results)
	assert.True(t, score.Present())
	v, _ := score.Value()
	assert.Greater(t, v, 50.0)
}

func TestPastResultsScore_ExcludesScratches(t *testing.T) {
	results := []domain.RaceResult{
		{FinishPosition: 0, TotalRunners: 10},
	}
	assert.False(t, PastResultsScore(results).Present())
}

func TestCourseFitScore_NoTarget(t *testing.T) {
	assert.False(t, CourseFitScore("h1", nil, Context{}).Present())
}

func TestCourseFitScore_SmoothedTowardPrior(t *testing.T) {
	results := []domain.RaceResult{
		{HorseID: "h1", Surface: domain.SurfaceTurf, Distance: 1600, FinishPosition: 1, TotalRunners: 10},
	}
	ctx := Context{TargetSurface: domain.SurfaceTurf, TargetDistance: 1600, HasDistance: true}
	score := CourseFitScore("h1", results, ctx)
	assert.True(t, score.Present())
	v, _ := score.Value()
	// raw=100, n=1: smoothed=(100*1+50*3)/4=62.5
	assert.InDelta(t, 62.5, v, 0.01)
}

func TestTimeIndexScore_InsufficientSample(t *testing.T) {
	results := []domain.RaceResult{
		{HorseID: "h1", Surface: domain.SurfaceTurf, Distance: 1600, Time: "1:33.5"},
	}
	ctx := Context{TargetSurface: domain.SurfaceTurf, TargetDistance: 1600, HasDistance: true}
	assert.False(t, TimeIndexScore("h1", results, ctx).Present())
}

func TestTimeIndexScore_FasterThanAverage(t *testing.T) {
	results := []domain.RaceResult{
		{HorseID: "h1", Surface: domain.SurfaceTurf, Distance: 1600, Time: "1:32.0"},
		{HorseID: "h2", Surface: domain.SurfaceTurf, Distance: 1600, Time: "1:34.0"},
		{HorseID: "h3", Surface: domain.SurfaceTurf, Distance: 1600, Time: "1:34.0"},
	}
	ctx := Context{TargetSurface: domain.SurfaceTurf, TargetDistance: 1600, HasDistance: true}
	score := TimeIndexScore("h1", results, ctx)
	assert.True(t, score.Present())
	v, _ := score.Value()
	assert.Greater(t, v, 50.0)
}

func TestLast3FScore(t *testing.T) {
	results := []domain.RaceResult{
		{HorseID: "h1", Last3F: f(33.0)},
	}
	score := Last3FScore("h1", results)
	assert.True(t, score.Present())
	v, _ := score.Value()
	assert.InDelta(t, 100.0, v, 0.01)
}

func TestLast3FScore_NoData(t *testing.T) {
	assert.False(t, Last3FScore("h1", nil).Present())
}

func TestPopularityScore_ByRank(t *testing.T) {
	score := PopularityScore(Context{Popularity: pint(1)})
	v, _ := score.Value()
	assert.Equal(t, 100.0, v)

	score = PopularityScore(Context{Popularity: pint(12)})
	v, _ = score.Value()
	assert.Equal(t, 10.0, v)
}

func TestPopularityScore_ByOdds(t *testing.T) {
	score := PopularityScore(Context{Odds: f(1.5)})
	assert.True(t, score.Present())
	v, _ := score.Value()
	assert.InDelta(t, 95.0, v, 0.01)
}

func TestPopularityScore_NoData(t *testing.T) {
	assert.False(t, PopularityScore(Context{}).Present())
}

func TestRunningStyleScore(t *testing.T) {
	results := []domain.RaceResult{
		{HorseID: "h1", PassingOrder: "1-1-1-1", TotalRunners: 16},
	}
	score := RunningStyleScore("h1", results, Context{})
	assert.True(t, score.Present())
	v, _ := score.Value()
	// escape win rate 0.15 -> (0.15-0.05)/0.35*100 = 28.57...
	assert.InDelta(t, 28.6, v, 0.1)
}

func TestRunningStyleScore_NoPassingOrder(t *testing.T) {
	results := []domain.RaceResult{{HorseID: "h1", TotalRunners: 16}}
	assert.False(t, RunningStyleScore("h1", results, Context{}).Present())
}

func TestPedigreeScore(t *testing.T) {
	ctx := Context{
		Sire: "ディープインパクト", HasSire: true,
		DamSire: "キングカメハメハ",
		TargetDistance: 2000, HasDistance: true,
	}
	score := PedigreeScore(ctx, pedigree.Default())
	assert.True(t, score.Present())
	v, _ := score.Value()
	assert.Greater(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestPedigreeScore_NoSire(t *testing.T) {
	assert.False(t, PedigreeScore(Context{HasDistance: true, TargetDistance: 1600}, nil).Present())
}
