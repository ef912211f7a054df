// Package resilience wraps the storage layer with a circuit breaker and
// a token-bucket rate limiter, so a struggling Postgres instance degrades
// the prediction/backtest paths instead of cascading into them. Grounded
// on internal/infrastructure/providers/circuitbreakers.go (breaker
// configuration and trip conditions) and internal/net/ratelimit/
// limiter.go (per-resource token bucket, RWMutex-guarded map).
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Config tunes a single Guard's breaker and limiter.
type Config struct {
	MaxRequests         uint32        // half-open probe count before the breaker closes again.
	Interval            time.Duration // closed-state counter reset window.
	Timeout             time.Duration // how long the breaker stays open before probing.
	ConsecutiveFailures uint32        // trips the breaker once reached.
	RPS                 float64       // sustained requests per second allowed through.
	Burst               int           // token bucket burst capacity.
}

// DefaultConfig returns settings suited to a single-instance Postgres
// dependency: trip after 5 consecutive failures, stay open 30s, allow
// 50 req/s with a burst of 20.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		RPS:                 50,
		Burst:               20,
	}
}

// Guard pairs a circuit breaker with a rate limiter around one
// dependency. It is safe for concurrent use.
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	mu      sync.RWMutex
	trips   int
}

// NewGuard builds a Guard named for logging/metrics.
func NewGuard(name string, cfg Config) *Guard {
	g := &Guard{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			g.mu.Lock()
			if to == gobreaker.StateOpen {
				g.trips++
			}
			g.mu.Unlock()
		},
	}

	g.name = name
	g.breaker = gobreaker.NewCircuitBreaker(settings)
	return g
}

// Name returns the guard's dependency name.
func (g *Guard) Name() string { return g.name }

// State returns the breaker's current state string ("closed",
// "half-open", "open").
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Trips returns how many times the breaker has opened over its
// lifetime.
func (g *Guard) Trips() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.trips
}

// Do waits for a rate-limit token (respecting ctx cancellation), then
// executes fn through the circuit breaker. A nil error path is recorded
// as a success for the breaker's trip condition.
func Do[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := g.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("resilience: %s: rate limit wait: %w", g.name, err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, fmt.Errorf("resilience: %s: %w", g.name, err)
	}
	return result.(T), nil
}
