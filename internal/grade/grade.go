// Package grade implements the grade extractor (C1): a pure function
// mapping a race name string to a class tag drawn from a closed set.
// Grounded on original_source's utils/grade_extractor.py, generalized
// from Japanese race-name conventions per spec §4.1.
package grade

import (
	"regexp"
	"strings"
)

// Tag is a race class tag.
type Tag string

const (
	G1           Tag = "G1"
	G2           Tag = "G2"
	G3           Tag = "G3"
	Jpn1         Tag = "Jpn1"
	Jpn2         Tag = "Jpn2"
	Jpn3         Tag = "Jpn3"
	Listed       Tag = "L"
	Open         Tag = "OP"
	Class3Win    Tag = "3WIN"
	Class2Win    Tag = "2WIN"
	Class1Win    Tag = "1WIN"
	Debut        Tag = "DEBUT"
	Maiden       Tag = "MAIDEN"
	HurdleOpen   Tag = "HURDLE_OP"
	HurdleMaiden Tag = "HURDLE_MAIDEN"
	Hurdle3Win   Tag = "HURDLE_3WIN"
	Hurdle2Win   Tag = "HURDLE_2WIN"
	Hurdle1Win   Tag = "HURDLE_1WIN"
	Unknown      Tag = "UNKNOWN"
)

var (
	g1Patterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\(GI\)`),
		regexp.MustCompile(`(?i)\(G1\)`),
		regexp.MustCompile(`\(J・G1\)`),
		regexp.MustCompile(`(?i)\(J・GI\)`),
	}
	g2Patterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\(GII\)`),
		regexp.MustCompile(`(?i)\(G2\)`),
		regexp.MustCompile(`\(J・G2\)`),
		regexp.MustCompile(`(?i)\(J・GII\)`),
	}
	g3Patterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\(GIII\)`),
		regexp.MustCompile(`(?i)\(G3\)`),
		regexp.MustCompile(`\(J・G3\)`),
		regexp.MustCompile(`(?i)\(J・GIII\)`),
	}
	jpn1Pattern = regexp.MustCompile(`(?i)\(Jpn1\)`)
	jpn2Pattern = regexp.MustCompile(`(?i)\(Jpn2\)`)
	jpn3Pattern = regexp.MustCompile(`(?i)\(Jpn3\)`)
	listedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\(L\)`),
	}
	openPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(OP\)`),
		regexp.MustCompile(`\(オープン\)`),
		regexp.MustCompile(`オープン`),
	}
	class3WinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`3勝クラス`),
		regexp.MustCompile(`1600万下`),
	}
	class2WinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`2勝クラス`),
		regexp.MustCompile(`1000万下`),
	}
	class1WinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`1勝クラス`),
		regexp.MustCompile(`500万下`),
	}
	debutPattern  = regexp.MustCompile(`新馬`)
	maidenPattern = regexp.MustCompile(`未勝利`)

	hurdle3WinPattern   = regexp.MustCompile(`障害.*3勝クラス`)
	hurdle2WinPattern   = regexp.MustCompile(`障害.*2勝クラス`)
	hurdle1WinPattern   = regexp.MustCompile(`障害.*1勝クラス`)
	hurdleOpenPattern   = regexp.MustCompile(`障害.*オープン`)
	hurdleMaidenPattern = regexp.MustCompile(`障害.*未勝利`)
)

const hurdleMarker = "障害"

// Extract returns the grade tag for a race name, matching the priority
// order G1 > G2 > G3 > Jpn* > L > hurdle-class > OP > class > DEBUT >
// MAIDEN > UNKNOWN (spec §4.1). Full-width parentheses are normalized
// to half-width before matching; "障害" reroutes plain OP/MAIDEN/class
// matches to their hurdle-specific tags.
func Extract(raceName string) Tag {
	if raceName == "" {
		return Unknown
	}
	name := normalizeParens(raceName)

	if matchesAny(name, g1Patterns) {
		return G1
	}
	if matchesAny(name, g2Patterns) {
		return G2
	}
	if matchesAny(name, g3Patterns) {
		return G3
	}
	if jpn1Pattern.MatchString(name) {
		return Jpn1
	}
	if jpn2Pattern.MatchString(name) {
		return Jpn2
	}
	if jpn3Pattern.MatchString(name) {
		return Jpn3
	}
	if matchesAny(name, listedPatterns) {
		return Listed
	}

	isHurdle := strings.Contains(name, hurdleMarker)
	if isHurdle {
		switch {
		case hurdle3WinPattern.MatchString(name):
			return Hurdle3Win
		case hurdle2WinPattern.MatchString(name):
			return Hurdle2Win
		case hurdle1WinPattern.MatchString(name):
			return Hurdle1Win
		case hurdleOpenPattern.MatchString(name):
			return HurdleOpen
		case hurdleMaidenPattern.MatchString(name):
			return HurdleMaiden
		}
	}

	if !isHurdle && matchesAny(name, openPatterns) {
		return Open
	}
	if !isHurdle {
		switch {
		case matchesAny(name, class3WinPatterns):
			return Class3Win
		case matchesAny(name, class2WinPatterns):
			return Class2Win
		case matchesAny(name, class1WinPatterns):
			return Class1Win
		}
	}

	if debutPattern.MatchString(name) {
		return Debut
	}
	if !isHurdle && maidenPattern.MatchString(name) {
		return Maiden
	}

	return Unknown
}

func normalizeParens(s string) string {
	s = strings.ReplaceAll(s, "（", "(")
	s = strings.ReplaceAll(s, "）", ")")
	return s
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
