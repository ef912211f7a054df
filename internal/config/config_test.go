package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/factors"
	"github.com/nkeiba/racecast/internal/pedigree"
)

const weightsYAML = `
weights:
  past_results: 0.3
  course_fit: 0.2
ml_weight_alpha: 0.65
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWeightsConfig_ParsesWeightsAndAlpha(t *testing.T) {
	path := writeFixture(t, "weights.yaml", weightsYAML)

	cfg, err := LoadWeightsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Weights["past_results"])
	assert.Equal(t, 0.65, cfg.MLWeightAlpha)

	combiner := cfg.NewCombiner()
	assert.NotNil(t, combiner)
}

func TestLoadWeightsConfig_MissingFileWrapsError(t *testing.T) {
	_, err := LoadWeightsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const pedigreeYAML = `
sire_lines:
  テストサイア: sunday_silence
aptitude:
  sunday_silence:
    distance:
      sprint: 0.9
    track:
      good: 1.0
grade_multipliers:
  G1: 2.0
`

func TestLoadPedigreeOverrideConfig_NewMasterOverridesOnlyListedKeys(t *testing.T) {
	path := writeFixture(t, "pedigree.yaml", pedigreeYAML)

	cfg, err := LoadPedigreeOverrideConfig(path)
	require.NoError(t, err)

	master := cfg.NewMaster()
	assert.Equal(t, "sunday_silence", master.SireLine("テストサイア"))
	// unlisted sire still falls back to the built-in default, not "other".
	assert.Equal(t, "kingmambo", master.SireLine("キングカメハメハ"))

	apt := master.Aptitude("sunday_silence")
	assert.Equal(t, 0.9, apt.Distance[pedigree.Sprint])
	// the listed track value of the overridden lineage is applied too
	// (Merge replaces the whole lineage entry, so bands and track types
	// the file leaves out are not kept from the built-in entry).
	assert.Equal(t, 1.0, apt.Track[pedigree.TrackGood])
}

func TestPedigreeOverrideConfig_ApplyGradeMultipliers(t *testing.T) {
	cfg := &PedigreeOverrideConfig{GradeMultipliers: map[string]float64{"G1": 2.0}}
	cfg.ApplyGradeMultipliers()

	// a nil receiver is a no-op and doesn't panic.
	var nilCfg *PedigreeOverrideConfig
	nilCfg.ApplyGradeMultipliers()
	// 7th of 8 in a G1 has base score 25; the applied 2.0 gives 50
	// (the built-in 1.5 would give 37.5).
	score := factors.PastResultsScore([]domain.RaceResult{{FinishPosition: 7, TotalRunners: 8, RaceName: "有馬記念(G1)"}})
	assert.Equal(t, 50.0, score.Float())
}
