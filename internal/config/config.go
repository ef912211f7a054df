// Package config loads the two configuration files the service reads at
// startup: factor weights / the ML blending constant (yaml.v2, mirroring
// the teacher's older configs) and pedigree/grade overrides (yaml.v3,
// mirroring the teacher's newer ones) — both yaml majors the teacher
// depends on get exercised rather than standardized on one. Grounded on
// `internal/application/config.go`'s Load*Config pattern: read file,
// Unmarshal, wrap errors with %w.
package config

import (
	"fmt"
	"os"

	yaml2 "gopkg.in/yaml.v2"
	yaml3 "gopkg.in/yaml.v3"

	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/grade"
	"github.com/nkeiba/racecast/internal/pedigree"
)

// WeightsConfig is the factor-weight / ML-blend configuration, loaded
// via yaml.v2. Only Weights is applied (through NewCombiner);
// MLWeightAlpha is parsed but not passed to the prediction service,
// which always blends with prediction.MLWeightAlpha.
type WeightsConfig struct {
	Weights      map[string]float64 `yaml:"weights"`
	MLWeightAlpha float64           `yaml:"ml_weight_alpha"`
}

// LoadWeightsConfig reads and parses a weights config file.
func LoadWeightsConfig(path string) (*WeightsConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read weights config: %w", err)
	}

	var c WeightsConfig
	if err := yaml2.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse weights config: %w", err)
	}
	return &c, nil
}

// FactorWeights converts the loaded config into the map combiner.New
// expects, keyed by factors.Name.
func (c *WeightsConfig) FactorWeights() map[factors.Name]float64 {
	out := make(map[factors.Name]float64, len(c.Weights))
	for name, weight := range c.Weights {
		out[factors.Name(name)] = weight
	}
	return out
}

// NewCombiner builds a combiner.Combiner from this config, falling back
// to combiner.DefaultWeights for any factor the file doesn't mention.
func (c *WeightsConfig) NewCombiner() *combiner.Combiner {
	return combiner.New(c.FactorWeights())
}

// PedigreeOverrideConfig is the pedigree lineage / grade multiplier
// override configuration, loaded via yaml.v3. A nil or zero-value file
// leaves the built-in tables in internal/pedigree and internal/factors
// untouched; only keys actually present override the defaults.
type PedigreeOverrideConfig struct {
	SireLines map[string]string `yaml:"sire_lines"`
	Aptitude  map[string]struct {
		Distance map[string]float64 `yaml:"distance"`
		Track    map[string]float64 `yaml:"track"`
	} `yaml:"aptitude"`
	GradeMultipliers map[string]float64 `yaml:"grade_multipliers"`
}

// LoadPedigreeOverrideConfig reads and parses a pedigree override file.
func LoadPedigreeOverrideConfig(path string) (*PedigreeOverrideConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read pedigree override config: %w", err)
	}

	var c PedigreeOverrideConfig
	if err := yaml3.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse pedigree override config: %w", err)
	}
	return &c, nil
}

// NewMaster builds a pedigree.Master from this config's sire-line and
// aptitude overrides, leaving the built-in tables untouched for any
// lineage or sire not listed (pedigree.Merge).
func (c *PedigreeOverrideConfig) NewMaster() *pedigree.Master {
	if c == nil {
		return pedigree.Default()
	}

	aptitudes := make(map[string]pedigree.Aptitude, len(c.Aptitude))
	for line, apt := range c.Aptitude {
		distance := make(map[pedigree.DistanceBand]float64, len(apt.Distance))
		for band, v := range apt.Distance {
			distance[pedigree.DistanceBand(band)] = v
		}
		track := make(map[pedigree.TrackType]float64, len(apt.Track))
		for t, v := range apt.Track {
			track[pedigree.TrackType(t)] = v
		}
		aptitudes[line] = pedigree.Aptitude{Distance: distance, Track: track}
	}

	return pedigree.Merge(c.SireLines, aptitudes)
}

// ApplyGradeMultipliers overlays this config's grade_multipliers onto
// internal/factors' built-in table. Call once at startup, before any
// factor scoring runs.
func (c *PedigreeOverrideConfig) ApplyGradeMultipliers() {
	if c == nil || len(c.GradeMultipliers) == 0 {
		return
	}
	overrides := make(map[grade.Tag]float64, len(c.GradeMultipliers))
	for tag, mult := range c.GradeMultipliers {
		overrides[grade.Tag(tag)] = mult
	}
	factors.SetGradeMultipliers(overrides)
}
