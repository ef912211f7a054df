// Package pedigree implements the pedigree master (C2): static lookup
// tables from sire name to lineage tag, and from lineage to per-distance
// -band and per-track aptitude. Grounded on original_source's
// config/pedigree_master.py; table values are carried over verbatim as
// load-bearing test fixtures (SPEC_FULL.md §4).
package pedigree

import "github.com/nkeiba/racecast/internal/domain"

// DistanceBand buckets a race distance for aptitude lookup.
type DistanceBand string

const (
	Sprint DistanceBand = "sprint"
	Mile   DistanceBand = "mile"
	Middle DistanceBand = "middle"
	Long   DistanceBand = "long"
)

// BandOf classifies a distance in meters (spec §4.2).
func BandOf(distanceMeters int) DistanceBand {
	switch {
	case distanceMeters <= 1400:
		return Sprint
	case distanceMeters <= 1800:
		return Mile
	case distanceMeters <= 2200:
		return Middle
	default:
		return Long
	}
}

// TrackType is the going bucket used by the aptitude table.
type TrackType string

const (
	TrackGood  TrackType = "good"
	TrackHeavy TrackType = "heavy"
)

// TrackTypeOf maps a track condition to good/heavy (soft and heavy both
// count as heavy, spec §4.2); an unset condition defaults to good.
func TrackTypeOf(cond domain.TrackCondition, present bool) TrackType {
	if !present {
		return TrackGood
	}
	switch cond {
	case domain.ConditionSoft, domain.ConditionHeavy:
		return TrackHeavy
	default:
		return TrackGood
	}
}

// Aptitude holds a lineage's fitness for each distance band and track type.
type Aptitude struct {
	Distance map[DistanceBand]float64
	Track    map[TrackType]float64
}

const otherLine = "other"

// sireLineMapping maps sire name -> lineage tag. Unknown sires fall back
// to "other" (spec §4.2, §8 "pedigree lookup is total").
var sireLineMapping = map[string]string{
	"サンデーサイレンス":   "sunday_silence",
	"ディープインパクト":   "sunday_silence",
	"ステイゴールド":     "sunday_silence",
	"ハーツクライ":      "sunday_silence",
	"ダイワメジャー":     "sunday_silence",
	"マンハッタンカフェ":   "sunday_silence",
	"ゼンノロブロイ":     "sunday_silence",
	"アグネスタキオン":    "sunday_silence",
	"スペシャルウィーク":   "sunday_silence",
	"フジキセキ":       "sunday_silence",
	"ネオユニヴァース":    "sunday_silence",
	"キズナ":         "sunday_silence",
	"オルフェーヴル":     "sunday_silence",
	"ゴールドシップ":     "sunday_silence",
	"ドゥラメンテ":      "sunday_silence",
	"エピファネイア":     "sunday_silence",
	"コントレイル":      "sunday_silence",
	"キングマンボ":      "kingmambo",
	"キングカメハメハ":    "kingmambo",
	"ロードカナロア":     "kingmambo",
	"ルーラーシップ":     "kingmambo",
	"レイデオロ":       "kingmambo",
	"ドゥラモンド":      "kingmambo",
	"ノーザンダンサー":    "northern_dancer",
	"サドラーズウェルズ":   "northern_dancer",
	"ガリレオ":        "northern_dancer",
	"フランケル":       "northern_dancer",
	"ニジンスキー":      "northern_dancer",
	"リファール":       "northern_dancer",
	"ミスタープロスペクター": "mr_prospector",
	"フォーティナイナー":   "mr_prospector",
	"エンドスウィープ":    "mr_prospector",
	"アドマイヤムーン":    "mr_prospector",
	"ゴールドアリュール":   "mr_prospector",
	"スマートファルコン":   "mr_prospector",
	"ロベルト":        "roberto",
	"ブライアンズタイム":   "roberto",
	"タニノギムレット":    "roberto",
	"ウオッカ":        "roberto",
	"シンボリクリスエス":   "roberto",
	"エピカリス":       "roberto",
	"モーリス":        "roberto",
	"スクリーンヒーロー":   "roberto",
	"ストームキャット":    "storm_cat",
	"ヘネシー":        "storm_cat",
	"テイルオブザキャット":  "storm_cat",
	"ジャイアンツコーズウェイ": "storm_cat",
	"ヨハネスブルグ":     "storm_cat",
	"ヘイルトゥリーズン":   "hail_to_reason",
	"リアルシャダイ":     "hail_to_reason",
	"トニービン":       "hail_to_reason",
	"ジャングルポケット":   "hail_to_reason",
}

// lineAptitude maps lineage tag -> aptitude table.
var lineAptitude = map[string]Aptitude{
	"sunday_silence": {
		Distance: map[DistanceBand]float64{Sprint: 0.6, Mile: 0.9, Middle: 1.0, Long: 0.8},
		Track:    map[TrackType]float64{TrackGood: 1.0, TrackHeavy: 0.7},
	},
	"kingmambo": {
		Distance: map[DistanceBand]float64{Sprint: 0.8, Mile: 1.0, Middle: 0.9, Long: 0.6},
		Track:    map[TrackType]float64{TrackGood: 0.9, TrackHeavy: 0.9},
	},
	"northern_dancer": {
		Distance: map[DistanceBand]float64{Sprint: 0.5, Mile: 0.8, Middle: 1.0, Long: 0.9},
		Track:    map[TrackType]float64{TrackGood: 0.9, TrackHeavy: 1.0},
	},
	"mr_prospector": {
		Distance: map[DistanceBand]float64{Sprint: 1.0, Mile: 0.9, Middle: 0.7, Long: 0.5},
		Track:    map[TrackType]float64{TrackGood: 0.9, TrackHeavy: 1.0},
	},
	"roberto": {
		Distance: map[DistanceBand]float64{Sprint: 0.6, Mile: 0.9, Middle: 1.0, Long: 0.8},
		Track:    map[TrackType]float64{TrackGood: 0.8, TrackHeavy: 1.0},
	},
	"storm_cat": {
		Distance: map[DistanceBand]float64{Sprint: 1.0, Mile: 0.9, Middle: 0.6, Long: 0.4},
		Track:    map[TrackType]float64{TrackGood: 1.0, TrackHeavy: 0.6},
	},
	"hail_to_reason": {
		Distance: map[DistanceBand]float64{Sprint: 0.5, Mile: 0.7, Middle: 0.9, Long: 1.0},
		Track:    map[TrackType]float64{TrackGood: 0.9, TrackHeavy: 0.8},
	},
	otherLine: {
		Distance: map[DistanceBand]float64{Sprint: 0.7, Mile: 0.8, Middle: 0.8, Long: 0.7},
		Track:    map[TrackType]float64{TrackGood: 0.9, TrackHeavy: 0.9},
	},
}

// Master is the static pedigree lookup. It carries the default tables
// but can be overridden by config (internal/config) without touching code.
type Master struct {
	sireLines map[string]string
	aptitudes map[string]Aptitude
}

// Default returns a Master backed by the built-in tables.
func Default() *Master {
	return &Master{sireLines: sireLineMapping, aptitudes: lineAptitude}
}

// New builds a Master from externally supplied tables, falling back to
// the built-in tables for anything left nil.
func New(sireLines map[string]string, aptitudes map[string]Aptitude) *Master {
	m := &Master{sireLines: sireLineMapping, aptitudes: lineAptitude}
	if sireLines != nil {
		m.sireLines = sireLines
	}
	if aptitudes != nil {
		m.aptitudes = aptitudes
	}
	return m
}

// Merge builds a Master from the built-in tables with any keys present
// in overrideSireLines/overrideAptitudes replacing the corresponding
// built-in entry (internal/config's partial-override loader uses this;
// a config file need only list the sires or lineages it wants to
// change, not the whole table).
func Merge(overrideSireLines map[string]string, overrideAptitudes map[string]Aptitude) *Master {
	sireLines := make(map[string]string, len(sireLineMapping))
	for k, v := range sireLineMapping {
		sireLines[k] = v
	}
	for k, v := range overrideSireLines {
		sireLines[k] = v
	}

	aptitudes := make(map[string]Aptitude, len(lineAptitude))
	for k, v := range lineAptitude {
		aptitudes[k] = v
	}
	for k, v := range overrideAptitudes {
		aptitudes[k] = v
	}

	return &Master{sireLines: sireLines, aptitudes: aptitudes}
}

// SireLine returns the lineage tag for a sire name; unknown names map to
// "other" (total function, spec §8).
func (m *Master) SireLine(sireName string) string {
	if line, ok := m.sireLines[sireName]; ok {
		return line
	}
	return otherLine
}

// Aptitude returns the aptitude table for a lineage, falling back to
// "other" if the lineage itself is unrecognized.
func (m *Master) Aptitude(line string) Aptitude {
	if apt, ok := m.aptitudes[line]; ok {
		return apt
	}
	return m.aptitudes[otherLine]
}
