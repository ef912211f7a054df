package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nkeiba/racecast/internal/backtest"
	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/prediction"
	"github.com/nkeiba/racecast/internal/rediscache"
	"github.com/nkeiba/racecast/internal/resilience"
	"github.com/nkeiba/racecast/internal/storage"
	"github.com/nkeiba/racecast/internal/telemetry"
)

// pinger is the subset of *storage.Repository that Health needs;
// narrowed to an interface so tests can run without a live database.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds every collaborator the API surface needs: the
// prediction service for /predict, a backtest.DataSource plus the
// calculator/combiner pair to construct a fresh backtest.Engine per
// /backtest request, a resolver for /simulate/{betType}, and the
// metrics registry mounted at /metrics. Grounded on
// internal/interfaces/http/handlers/handlers.go's Handlers struct and
// writeJSON/writeError helpers.
type Handlers struct {
	predictor    *prediction.Service
	source       backtest.DataSource
	calc         *calculator.Calculator
	combine      *combiner.Combiner
	repo         pinger
	resolver     betting.OutcomeResolver
	metrics      *telemetry.Registry
	guards       map[string]*resilience.Guard
	predictCache *rediscache.Cache
}

// NewHandlers wires every dependency a running server needs. repo may
// be nil (health reports "healthy" without a storage check); guards may
// be nil or empty. source doubles as the race lister behind /simulate
// since backtest.DataSource already exposes RacesInRange. predictCache
// is optional: a nil cache simply disables memoizing /predict.
func NewHandlers(
	predictor *prediction.Service,
	source backtest.DataSource,
	calc *calculator.Calculator,
	combine *combiner.Combiner,
	repo *storage.Repository,
	resolver betting.OutcomeResolver,
	metrics *telemetry.Registry,
	guards map[string]*resilience.Guard,
	predictCache *rediscache.Cache,
) *Handlers {
	h := &Handlers{
		predictor:    predictor,
		source:       source,
		calc:         calc,
		combine:      combine,
		resolver:     resolver,
		metrics:      metrics,
		guards:       guards,
		predictCache: predictCache,
	}
	if repo != nil {
		h.repo = repo
	}
	return h
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("httpapi: json encoding failed")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}

	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

// Health reports process liveness, storage reachability and every
// tracked circuit's breaker state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	storageHealth := ComponentHealth{Status: "healthy"}
	status := "healthy"
	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			storageHealth = ComponentHealth{Status: "down", Detail: err.Error()}
			status = "degraded"
		}
	}

	circuits := make(map[string]CircuitHealth, len(h.guards))
	for name, g := range h.guards {
		circuits[name] = CircuitHealth{State: g.State(), Trips: uint32(g.Trips())}
		if g.State() != "closed" {
			status = "degraded"
		}
	}

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Storage:   storageHealth,
		Circuits:  circuits,
	})
}

func toDomainEntry(e EntryInput) prediction.EntryInput {
	return prediction.EntryInput{
		Entry: domain.Entry{
			HorseID:       e.HorseID,
			HorseNumber:   e.HorseNumber,
			BracketNumber: e.BracketNumber,
			Impost:        e.Impost,
			Sex:           domain.Sex(e.Sex),
			Age:           e.Age,
			JockeyID:      e.JockeyID,
		},
		HorseName: e.HorseName,
		Sire:      e.Sire,
		HasSire:   e.HasSire,
		DamSire:   e.DamSire,
	}
}

// predictCacheKey identifies a submitted race card by its id plus an
// fnv hash of the raw request body, so two different cards sharing a
// race_id (a correction, a late scratch) don't collide on a stale
// cached result.
func predictCacheKey(raceID string, body []byte) string {
	h := fnv.New64a()
	h.Write(body)
	return fmt.Sprintf("predict:%s:%x", raceID, h.Sum64())
}

// Predict scores a submitted race card and returns the ranked
// predictions; it does not require the race to already exist in
// storage (spec's live, not-yet-run race use case). A result is served
// from predictCache when the identical card was scored recently.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	var req PredictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if req.RaceID == "" || len(req.Entries) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "race_id and at least one entry are required")
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_date", "date must be in YYYY-MM-DD format")
		return
	}

	cacheKey := predictCacheKey(req.RaceID, body)
	if h.predictCache != nil {
		var cached PredictResponse
		if found, err := h.predictCache.Get(r.Context(), cacheKey, &cached); err != nil {
			log.Warn().Err(err).Msg("httpapi: predict cache read failed")
		} else if found {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	entries := make([]prediction.EntryInput, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = toDomainEntry(e)
	}

	raceInput := prediction.RaceInput{
		RaceID:         req.RaceID,
		Date:           date,
		Name:           req.Name,
		Venue:          req.Venue,
		RaceNumber:     req.RaceNumber,
		Surface:        domain.Surface(req.Surface),
		Distance:       req.Distance,
		TrackCondition: domain.TrackCondition(req.TrackCondition),
		HasCondition:   req.TrackCondition != "",
		Entries:        entries,
	}

	timer := h.metrics.StartPredictTimer("predict")
	predictions, err := h.predictor.Predict(r.Context(), raceInput)
	timer.Stop(err)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "predict_failed", err.Error())
		return
	}

	resp := PredictResponse{
		RaceID:      req.RaceID,
		Predictions: predictions,
		GeneratedAt: time.Now().UTC(),
	}

	if h.predictCache != nil {
		if err := h.predictCache.Set(r.Context(), cacheKey, resp); err != nil {
			log.Warn().Err(err).Msg("httpapi: predict cache write failed")
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}
