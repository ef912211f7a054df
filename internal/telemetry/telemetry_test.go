package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/nkeiba/racecast/internal/cache"
)

func TestObserveCacheStats_SetsGaugeAndIncrementsCounters(t *testing.T) {
	r := NewRegistry()
	r.ObserveCacheStats("past_results", cache.Stats{Hits: 7, Misses: 3, HitRate: 0.7})

	assert.InDelta(t, 0.7, testutil.ToFloat64(r.CacheHitRatio.WithLabelValues("past_results")), 1e-9)
	assert.Equal(t, 7.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("past_results")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.CacheMisses.WithLabelValues("past_results")))
}

func TestRecordRetrainAndCleared_ToggleActiveModelGauge(t *testing.T) {
	r := NewRegistry()

	r.RecordRetrain("daily")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActiveModel))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Retrains.WithLabelValues("daily")))

	r.RecordModelCleared()
	assert.Equal(t, 0.0, testutil.ToFloat64(r.ActiveModel))
}

func TestRecordBetSummary_SetsPerBetTypeGauges(t *testing.T) {
	r := NewRegistry()
	r.RecordBetSummary("show", 0.45, 0.92)

	assert.InDelta(t, 0.45, testutil.ToFloat64(r.BetHitRate.WithLabelValues("show")), 1e-9)
	assert.InDelta(t, 0.92, testutil.ToFloat64(r.BetReturnRate.WithLabelValues("show")), 1e-9)
}

func TestPredictTimer_RecordsDurationAndErrorCount(t *testing.T) {
	r := NewRegistry()

	timer := r.StartPredictTimer("predict")
	timer.Stop(nil)
	assert.Equal(t, 1, testutil.CollectAndCount(r.PredictDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.PredictErrors.WithLabelValues("predict")))

	errTimer := r.StartPredictTimer("predict")
	errTimer.Stop(assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PredictErrors.WithLabelValues("predict")))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordRace("predicted")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "racecast_backtest_races_total")
}

func TestTwoRegistries_DoNotPanicOnDuplicateRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRegistry()
		NewRegistry()
	})
}
