package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkeiba/racecast/internal/backtest"
	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/cache"
	"github.com/nkeiba/racecast/internal/calculator"
	"github.com/nkeiba/racecast/internal/combiner"
	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/prediction"
	"github.com/nkeiba/racecast/internal/resilience"
	"github.com/nkeiba/racecast/internal/telemetry"
)

type stubHistory struct {
	byHorse map[string][]domain.RaceResult
}

func (s stubHistory) PastResults(_ context.Context, horseID string, _ domain.Date, _ int) ([]domain.RaceResult, error) {
	return s.byHorse[horseID], nil
}
func (s stubHistory) RacesInRange(_ context.Context, _, _ domain.Date) ([]domain.Race, error) {
	return nil, nil
}
func (s stubHistory) RacesBefore(_ context.Context, _ domain.Date) ([]domain.Race, error) {
	return nil, nil
}
func (s stubHistory) RaceResults(_ context.Context, _ string) ([]domain.RaceResult, error) {
	return nil, nil
}
func (s stubHistory) HorseMeta(_ context.Context, _ string) (domain.HorseMeta, bool, error) {
	return domain.HorseMeta{}, false, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, raceID string) (betting.RaceOutcome, error) {
	return betting.RaceOutcome{RaceID: raceID}, nil
}

func newTestHandlers(t *testing.T, history backtest.DataSource) *Handlers {
	t.Helper()
	calc := calculator.New(cache.New(100), nil)
	comb := combiner.New(nil)
	predictor := prediction.New(history, calc, comb, nil)
	metrics := telemetry.NewRegistry()
	guard := resilience.NewGuard("test", resilience.DefaultConfig())

	return NewHandlers(predictor, history, calc, comb, nil, stubResolver{}, metrics, map[string]*resilience.Guard{"test": guard}, nil)
}

func withRequestID(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDKey, "req-test")
	return r.WithContext(ctx)
}

func TestPredict_ValidRaceReturnsRankedPredictions(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	body := PredictRequest{
		RaceID:   "r1",
		Date:     "2026-01-01",
		Venue:    "Tokyo",
		Surface:  "turf",
		Distance: 1600,
		Entries: []EntryInput{
			{HorseID: "h1", HorseNumber: 1, HorseName: "Horse1"},
			{HorseID: "h2", HorseNumber: 2, HorseName: "Horse2"},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(raw)))
	w := httptest.NewRecorder()

	h.Predict(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "r1", resp.RaceID)
	require.Len(t, resp.Predictions, 2)
}

func TestPredict_MissingEntriesReturnsBadRequest(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	raw, err := json.Marshal(PredictRequest{RaceID: "r1", Date: "2026-01-01"})
	require.NoError(t, err)

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(raw)))
	w := httptest.NewRecorder()

	h.Predict(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_MalformedBodyReturnsBadRequest(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader([]byte("{not json"))))
	w := httptest.NewRecorder()

	h.Predict(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth_ReportsHealthyWithNoStorageConfigured(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodGet, "/health", nil))
	w := httptest.NewRecorder()

	h.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "closed", resp.Circuits["test"].State)
}

func TestSimulate_BadToDateReturnsBadRequest(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodGet, "/simulate/win?from=2026-01-01&to=bad-date", nil))
	req = mux.SetURLVars(req, map[string]string{"betType": "win"})
	w := httptest.NewRecorder()

	h.Simulate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulate_InvalidBetTypeReturnsBadRequest(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodGet, "/simulate/exacta?from=2026-01-01&to=2026-01-02", nil))
	req = mux.SetURLVars(req, map[string]string{"betType": "exacta"})
	w := httptest.NewRecorder()

	h.Simulate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulate_WinBetTypeReturnsSummary(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodGet, "/simulate/win?from=2026-01-01&to=2026-01-02&top_n=2", nil))
	req = mux.SetURLVars(req, map[string]string{"betType": "win"})
	w := httptest.NewRecorder()

	h.Simulate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SimulateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "win", resp.BetType)
}

func TestNotFound_WritesErrorResponse(t *testing.T) {
	h := newTestHandlers(t, stubHistory{})

	req := withRequestID(httptest.NewRequest(http.MethodGet, "/nope", nil))
	w := httptest.NewRecorder()

	h.NotFound(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "endpoint_not_found", resp.Code)
	assert.Equal(t, "req-test", resp.RequestID)
}
