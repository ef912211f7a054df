// Package factors implements the seven pure factor functions (C3): each
// maps a horse's past results plus race context to a domain.Score.
// Grounded file-for-file on original_source's analyzers/factors/*.py.
package factors

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/grade"
	"github.com/nkeiba/racecast/internal/pedigree"
)

// Context carries the race-level parameters a factor needs beyond the
// horse's past results (spec §4.3 "context").
type Context struct {
	TargetSurface   domain.Surface
	HasDistance     bool
	TargetDistance  int
	TrackCondition  domain.TrackCondition
	HasCondition    bool
	Odds            *float64
	Popularity      *int
	Sire            string
	HasSire         bool
	DamSire         string
	CourseStats     map[string]float64 // running style -> win rate, nil uses defaults
}

// Name identifies a factor function by its published key (spec §6.2).
type Name string

const (
	PastResults  Name = "past_results"
	CourseFit    Name = "course_fit"
	TimeIndex    Name = "time_index"
	Last3F       Name = "last_3f"
	Popularity   Name = "popularity"
	Pedigree     Name = "pedigree"
	RunningStyle Name = "running_style"
)

// All lists every factor name in a stable order, used by the feature
// builder and the combiner to iterate deterministically.
var All = []Name{PastResults, CourseFit, TimeIndex, Last3F, Popularity, Pedigree, RunningStyle}

// gradeMultipliers applies a race-class correction to the relative
// finish-position score (past_results.py GRADE_MULTIPLIERS).
var gradeMultipliers = map[grade.Tag]float64{
	grade.G1:        1.5,
	grade.G2:        1.3,
	grade.G3:        1.2,
	grade.Jpn1:      1.4,
	grade.Jpn2:      1.2,
	grade.Jpn3:      1.1,
	grade.Listed:    1.1,
	grade.Open:      1.1,
	grade.Class3Win: 1.0,
	grade.Class2Win: 0.95,
	grade.Class1Win: 0.9,
	grade.Maiden:    0.8,
	grade.Debut:     0.7,
}

// SetGradeMultipliers overlays config-supplied corrections onto the
// built-in grade multiplier table (internal/config's pedigree/grade
// override loader). Called once at startup before any factor scoring;
// not safe to call concurrently with PastResultsScore.
func SetGradeMultipliers(overrides map[grade.Tag]float64) {
	for tag, mult := range overrides {
		gradeMultipliers[tag] = mult
	}
}

var pastResultsWeights = []float64{0.35, 0.25, 0.20, 0.12, 0.08}

// PastResultsScore computes the weighted average of the horse's last 5
// finishes, each corrected by the race-class multiplier of the race it
// was run in, normalized by total applied weight. results must already
// be filtered to the target horse and sorted newest-first.
func PastResultsScore(results []domain.RaceResult) domain.Score {
	finished := finishedResultsFor(results)
	if len(finished) == 0 {
		return domain.None()
	}

	recent := finished
	if len(recent) > 5 {
		recent = recent[:5]
	}

	var totalScore, totalWeight float64
	for i, r := range recent {
		weight := pastResultsWeights[len(pastResultsWeights)-1]
		if i < len(pastResultsWeights) {
			weight = pastResultsWeights[i]
		}
		totalScore += relativeFinishScore(r) * weight
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return domain.None()
	}
	return domain.Some(totalScore / totalWeight)
}

func relativeFinishScore(r domain.RaceResult) float64 {
	runners := r.TotalRunners
	if runners <= 0 {
		runners = 10
	}
	base := float64(runners-r.FinishPosition+1) / float64(runners) * 100

	tag := grade.Extract(r.RaceName)
	mult, ok := gradeMultipliers[tag]
	if !ok {
		mult = 1.0
	}
	score := base * mult
	if score > 100.0 {
		return 100.0
	}
	return score
}

func finishedResultsFor(results []domain.RaceResult) []domain.RaceResult {
	out := make([]domain.RaceResult, 0, len(results))
	for _, r := range results {
		if r.Finished() {
			out = append(out, r)
		}
	}
	return out
}

// distanceBand buckets a distance for course-fit comparisons
// (short/mile/middle/long, course_fit.py naming).
func distanceBand(distanceMeters int) string {
	switch {
	case distanceMeters <= 1400:
		return "short"
	case distanceMeters <= 1800:
		return "mile"
	case distanceMeters <= 2200:
		return "middle"
	default:
		return "long"
	}
}

const (
	courseFitPriorMean   = 50.0
	courseFitPriorWeight = 3.0
)

// CourseFitScore is the Bayesian-smoothed top-3 rate of this horse's past
// races under the same surface and distance band as the target race.
func CourseFitScore(horseID string, results []domain.RaceResult, ctx Context) domain.Score {
	if !ctx.HasDistance {
		return domain.None()
	}
	targetBand := distanceBand(ctx.TargetDistance)

	var matching []domain.RaceResult
	for _, r := range results {
		if r.HorseID != horseID {
			continue
		}
		if r.Surface != ctx.TargetSurface {
			continue
		}
		if distanceBand(r.Distance) != targetBand {
			continue
		}
		if !r.Finished() {
			continue
		}
		matching = append(matching, r)
	}
	if len(matching) == 0 {
		return domain.None()
	}

	n := float64(len(matching))
	top3 := 0
	for _, r := range matching {
		if r.TopN(3) {
			top3++
		}
	}
	raw := float64(top3) / n * 100

	smoothed := (raw*n + courseFitPriorMean*courseFitPriorWeight) / (n + courseFitPriorWeight)
	return domain.Some(round1(smoothed))
}

// parseRaceTime converts "m:ss.s" or "ss.s" into seconds; returns false
// if the string isn't a recognizable time.
func parseRaceTime(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		minPart := s[:idx]
		rest := s[idx+1:]
		end := len(rest)
		for i, c := range rest {
			if !(c >= '0' && c <= '9' || c == '.') {
				end = i
				break
			}
		}
		rest = rest[:end]
		minutes, err1 := strconv.Atoi(minPart)
		seconds, err2 := strconv.ParseFloat(rest, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return float64(minutes)*60 + seconds, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TimeIndexScore compares the horse's average finishing time, under races
// within 200m of the target distance and the same surface (and, if given,
// track condition), against the field average of the same race set.
func TimeIndexScore(horseID string, results []domain.RaceResult, ctx Context) domain.Score {
	if !ctx.HasDistance {
		return domain.None()
	}

	var matching []domain.RaceResult
	for _, r := range results {
		if r.Surface != ctx.TargetSurface {
			continue
		}
		if abs(r.Distance-ctx.TargetDistance) > 200 {
			continue
		}
		if r.Time == "" {
			continue
		}
		if ctx.HasCondition && r.TrackCondition != ctx.TrackCondition {
			continue
		}
		matching = append(matching, r)
	}
	if len(matching) < 3 {
		return domain.None()
	}

	var times, horseTimes []float64
	for _, r := range matching {
		secs, ok := parseRaceTime(r.Time)
		if !ok {
			continue
		}
		times = append(times, secs)
		if r.HorseID == horseID {
			horseTimes = append(horseTimes, secs)
		}
	}
	if len(horseTimes) == 0 {
		return domain.None()
	}

	avg := mean(times)
	horseAvg := mean(horseTimes)

	diff := avg - horseAvg
	score := 50 + diff*10
	return domain.Some(clamp0to100(round1(score)))
}

// Last3FScore scores the horse's average last-3-furlong time over its most
// recent (up to 3) recorded runs, 33.0s mapping to 100 and 38.0s to 0.
func Last3FScore(horseID string, results []domain.RaceResult) domain.Score {
	var times []float64
	for _, r := range results {
		if r.HorseID != horseID || r.Last3F == nil {
			continue
		}
		times = append(times, *r.Last3F)
	}
	if len(times) == 0 {
		return domain.None()
	}
	if len(times) > 3 {
		times = times[:3]
	}
	avg := mean(times)
	score := (38 - avg) / 5 * 100
	return domain.Some(clamp0to100(round1(score)))
}

// PopularityScore prefers the live popularity rank (1st = 100, -10/rank,
// floored at 10) and falls back to odds-derived piecewise scoring.
// This factor is never cached (spec §4.3, §5 "popularity").
func PopularityScore(ctx Context) domain.Score {
	if ctx.Popularity != nil {
		score := 100 - (*ctx.Popularity-1)*10
		if score < 10 {
			score = 10
		}
		return domain.Some(float64(score))
	}
	if ctx.Odds != nil {
		odds := *ctx.Odds
		var score float64
		switch {
		case odds <= 2.0:
			score = 100 - (odds-1.0)*10
		case odds <= 5.0:
			score = 90 - (odds-2.0)*10
		case odds <= 10.0:
			score = 60 - (odds-5.0)*6
		default:
			score = 30 - (odds-10.0)*2
			if score < 10 {
				score = 10
			}
		}
		return domain.Some(round1(score))
	}
	return domain.None()
}

var defaultCourseStats = map[string]float64{
	"escape":  0.15,
	"front":   0.35,
	"stalker": 0.35,
	"closer":  0.15,
}

const (
	styleWinRateFloor = 0.05
	styleWinRateSpan  = 0.35
)

func classifyRunningStyle(passingOrder string, totalHorses int) (string, bool) {
	if passingOrder == "" || totalHorses == 0 {
		return "", false
	}
	parts := strings.Split(passingOrder, "-")
	firstCorner, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	ratio := float64(firstCorner) / float64(totalHorses)
	switch {
	case ratio <= 0.15:
		return "escape", true
	case ratio <= 0.40:
		return "front", true
	case ratio <= 0.70:
		return "stalker", true
	default:
		return "closer", true
	}
}

func horseTendency(horseID string, results []domain.RaceResult) (string, bool) {
	var recent []domain.RaceResult
	for _, r := range results {
		if r.HorseID != horseID || r.PassingOrder == "" || r.TotalRunners == 0 {
			continue
		}
		recent = append(recent, r)
	}
	if len(recent) == 0 {
		return "", false
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	counts := map[string]int{}
	order := []string{}
	for _, r := range recent {
		style, ok := classifyRunningStyle(r.PassingOrder, r.TotalRunners)
		if !ok {
			continue
		}
		if counts[style] == 0 {
			order = append(order, style)
		}
		counts[style]++
	}
	if len(order) == 0 {
		return "", false
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order[0], true
}

// RunningStyleScore classifies the horse's dominant running style from its
// recent corner positions and scores how favorable that style is at the
// target course, using ctx.CourseStats (or the default distribution).
func RunningStyleScore(horseID string, results []domain.RaceResult, ctx Context) domain.Score {
	tendency, ok := horseTendency(horseID, results)
	if !ok {
		return domain.None()
	}

	stats := ctx.CourseStats
	if stats == nil {
		stats = defaultCourseStats
	}
	winRate, ok := stats[tendency]
	if !ok {
		winRate = 0.25
	}

	score := (winRate - styleWinRateFloor) / styleWinRateSpan * 100
	return domain.Some(clamp0to100(round1(score)))
}

// PedigreeScore blends sire (70%) and damsire (30%) aptitude for the
// target race's distance band and track type (spec §4.3 "pedigree").
func PedigreeScore(ctx Context, master *pedigree.Master) domain.Score {
	if !ctx.HasSire || !ctx.HasDistance {
		return domain.None()
	}
	if master == nil {
		master = pedigree.Default()
	}

	sireLine := master.SireLine(ctx.Sire)
	damSireLine := "other"
	if ctx.DamSire != "" {
		damSireLine = master.SireLine(ctx.DamSire)
	}

	sireApt := master.Aptitude(sireLine)
	damSireApt := master.Aptitude(damSireLine)

	band := pedigree.BandOf(ctx.TargetDistance)
	track := pedigree.TrackTypeOf(ctx.TrackCondition, ctx.HasCondition)

	distanceScore := sireApt.Distance[band]*0.7 + damSireApt.Distance[band]*0.3
	trackScore := sireApt.Track[track]*0.7 + damSireApt.Track[track]*0.3

	total := (distanceScore + trackScore) / 2
	return domain.Some(round1(total * 100))
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp0to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return float64(int64(v*10+sign(v)*0.5)) / 10
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
