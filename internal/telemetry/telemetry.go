// Package telemetry is the Prometheus metrics registry for the
// prediction/backtest/betting pipeline: factor-cache hit ratio, model
// retrain counters, per-bet-type hit-rate and return-rate gauges, and
// request latency histograms for internal/httpapi. Grounded on
// internal/interfaces/http/metrics.go's MetricsRegistry shape (typed
// fields, MustRegister at construction, zerolog on every mutating
// event).
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/nkeiba/racecast/internal/cache"
)

// Registry holds every Prometheus collector the service exposes, bound
// to its own *prometheus.Registry rather than the global default so a
// process (or a test) can construct more than one without a duplicate-
// registration panic.
type Registry struct {
	reg *prometheus.Registry

	CacheHitRatio *prometheus.GaugeVec
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	PredictDuration *prometheus.HistogramVec
	PredictErrors   *prometheus.CounterVec

	Retrains      *prometheus.CounterVec
	ActiveModel   prometheus.Gauge
	BacktestRaces *prometheus.CounterVec

	BetHitRate    *prometheus.GaugeVec
	BetReturnRate *prometheus.GaugeVec
}

// NewRegistry builds and registers every collector against a fresh
// prometheus.Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CacheHitRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "racecast_factor_cache_hit_ratio",
				Help: "Factor cache hit ratio (0.0 to 1.0) per cache instance",
			},
			[]string{"cache"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racecast_factor_cache_hits_total",
				Help: "Total factor cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racecast_factor_cache_misses_total",
				Help: "Total factor cache misses",
			},
			[]string{"cache"},
		),
		PredictDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "racecast_predict_duration_seconds",
				Help:    "Duration of a per-race prediction call",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		PredictErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racecast_predict_errors_total",
				Help: "Total prediction/backtest errors by operation",
			},
			[]string{"operation"},
		),
		Retrains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racecast_backtest_retrains_total",
				Help: "Total model retrains performed during a walk-forward backtest",
			},
			[]string{"retrain_interval"},
		),
		ActiveModel: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "racecast_backtest_model_active",
				Help: "1 if the backtest engine currently has a fitted model, 0 if cleared for insufficient samples",
			},
		),
		BacktestRaces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "racecast_backtest_races_total",
				Help: "Total races streamed by the backtest engine, by outcome",
			},
			[]string{"outcome"},
		),
		BetHitRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "racecast_bet_hit_rate",
				Help: "Most recent period hit rate per bet type",
			},
			[]string{"bet_type"},
		),
		BetReturnRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "racecast_bet_return_rate",
				Help: "Most recent period return rate (payout / investment) per bet type",
			},
			[]string{"bet_type"},
		),
	}

	r.reg.MustRegister(
		r.CacheHitRatio, r.CacheHits, r.CacheMisses,
		r.PredictDuration, r.PredictErrors,
		r.Retrains, r.ActiveModel, r.BacktestRaces,
		r.BetHitRate, r.BetReturnRate,
	)

	log.Info().Msg("telemetry: prometheus registry initialized")
	return r
}

// Handler serves this registry's collectors at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveCacheStats sets the hit-ratio gauge for name from stats and adds
// stats.Hits and stats.Misses to the hit/miss counters, so passing the
// same cumulative cache.Stats twice counts it twice. No package in this
// module calls it.
func (r *Registry) ObserveCacheStats(name string, stats cache.Stats) {
	r.CacheHitRatio.WithLabelValues(name).Set(stats.HitRate)
	r.CacheHits.WithLabelValues(name).Add(float64(stats.Hits))
	r.CacheMisses.WithLabelValues(name).Add(float64(stats.Misses))
}

// PredictTimer times a predict/backtest operation.
type PredictTimer struct {
	registry  *Registry
	operation string
	start     time.Time
}

// StartPredictTimer begins timing operation (e.g. "predict", "backtest").
func (r *Registry) StartPredictTimer(operation string) *PredictTimer {
	return &PredictTimer{registry: r, operation: operation, start: time.Now()}
}

// Stop records the duration and, if err is non-nil, increments the
// error counter.
func (t *PredictTimer) Stop(err error) {
	t.registry.PredictDuration.WithLabelValues(t.operation).Observe(time.Since(t.start).Seconds())
	if err != nil {
		t.registry.PredictErrors.WithLabelValues(t.operation).Inc()
		log.Warn().Str("operation", t.operation).Err(err).Msg("racecast: operation failed")
	}
}

// RecordRetrain increments the retrain counter and marks the model
// active. The backtest engine does not call it.
func (r *Registry) RecordRetrain(interval string) {
	r.Retrains.WithLabelValues(interval).Inc()
	r.ActiveModel.Set(1)
	log.Info().Str("retrain_interval", interval).Msg("racecast: model retrained")
}

// RecordModelCleared marks the model inactive and logs that training
// samples were insufficient. The backtest engine does not call it.
func (r *Registry) RecordModelCleared() {
	r.ActiveModel.Set(0)
	log.Warn().Msg("racecast: model cleared, insufficient training samples")
}

// RecordRace increments the backtest race counter with outcome in
// {"predicted", "skipped"}.
func (r *Registry) RecordRace(outcome string) {
	r.BacktestRaces.WithLabelValues(outcome).Inc()
}

// RecordBetSummary updates the hit-rate/return-rate gauges for a bet
// type after a period simulation completes.
func (r *Registry) RecordBetSummary(betType string, hitRate, returnRate float64) {
	r.BetHitRate.WithLabelValues(betType).Set(hitRate)
	r.BetReturnRate.WithLabelValues(betType).Set(returnRate)
}

