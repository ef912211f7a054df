// Package domain holds the immutable data model shared by the factor
// engine, prediction service, backtest engine and bet simulators: races,
// entries, results, horse metadata, payouts, and the prediction output
// types. Races and results are produced by an ingest path outside this
// module and are read-only once constructed (spec §3 "Lifecycle").
package domain

import "time"

// Surface is the racing surface a race is run on.
type Surface string

const (
	SurfaceTurf   Surface = "turf"
	SurfaceDirt   Surface = "dirt"
	SurfaceHurdle Surface = "hurdle"
)

// TrackCondition is the going/footing at race time.
type TrackCondition string

const (
	ConditionFirm  TrackCondition = "firm"
	ConditionGood  TrackCondition = "good"
	ConditionSoft  TrackCondition = "soft"
	ConditionHeavy TrackCondition = "heavy"
)

// Sex is the horse's sex, matching the registry values used across the
// retrieval pack's racing feeds.
type Sex string

const (
	SexFilly    Sex = "f"
	SexColt     Sex = "c"
	SexMare     Sex = "m"
	SexStallion Sex = "h"
	SexGelding  Sex = "g"
)

// Date is a calendar date triple, stored without time-zone concerns
// (spec §9 "Date handling").
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// ToTime returns the date at midnight UTC, useful for ISO week/ordering math.
func (d Date) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.ToTime().Before(o.ToTime())
}

// Equal reports whether d and o are the same calendar date.
func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.ToTime().Format("2006-01-02")
}

// ParseDate parses "YYYY-MM-DD" (spec §6.4 wire format).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Race is a single immutable race record.
type Race struct {
	ID             string
	Date           Date
	Venue          string
	RaceNumber     int
	Surface        Surface
	Distance       int // meters
	TrackCondition TrackCondition
	HasCondition   bool
	Name           string // raw race name, grade is derived from this (C1)
}

// Entry is one horse entered in one race, before an outcome exists.
type Entry struct {
	HorseID        string
	HorseNumber    int
	BracketNumber  int
	Impost         float64 // kg
	Sex            Sex
	Age            int
	JockeyID       string
}

// RaceResult is an Entry together with its recorded outcome.
type RaceResult struct {
	Entry
	RaceID          string
	RaceDate        Date
	RaceName        string
	Venue           string
	Surface         Surface
	Distance        int
	TrackCondition  TrackCondition
	HasCondition    bool
	TotalRunners    int
	FinishPosition  int // 0 = scratched/disqualified
	Time            string
	Last3F          *float64 // seconds; nil = not recorded
	Odds            *float64
	Popularity      *int
	PassingOrder    string // dash-separated corner positions, e.g. "3-3-2-1"
	BodyWeight      *int
	BodyWeightDiff  *int
}

// Finished reports whether the result counts toward rate/average
// computations (spec §3 "finish_position = 0 is excluded").
func (r RaceResult) Finished() bool {
	return r.FinishPosition >= 1
}

// TopN reports whether the result finished at or better than position n.
func (r RaceResult) TopN(n int) bool {
	return r.Finished() && r.FinishPosition <= n
}

// FilterResultsByHorse returns only the results belonging to horseID,
// preserving order. History repositories are expected to already scope
// results to one horse; callers filter defensively rather than trust
// that contract blindly.
func FilterResultsByHorse(results []RaceResult, horseID string) []RaceResult {
	out := make([]RaceResult, 0, len(results))
	for _, r := range results {
		if r.HorseID == horseID {
			out = append(out, r)
		}
	}
	return out
}

// HorseMeta is static horse metadata used by the pedigree factor.
type HorseMeta struct {
	HorseID  string
	Name     string
	Sex      Sex
	BirthYear int
	Sire     string
	Dam      string
	DamSire  string
}
