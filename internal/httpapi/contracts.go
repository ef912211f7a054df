package httpapi

import (
	"time"

	"github.com/nkeiba/racecast/internal/domain"
)

// ErrorResponse is the standardized error wire contract for every
// non-2xx response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service liveness plus the storage and circuit
// state backing it.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Storage   ComponentHealth          `json:"storage"`
	Circuits  map[string]CircuitHealth `json:"circuits"`
}

// ComponentHealth is a single dependency's up/down status.
type ComponentHealth struct {
	Status string `json:"status"` // healthy, down
	Detail string `json:"detail,omitempty"`
}

// CircuitHealth mirrors a resilience.Guard's current breaker state.
type CircuitHealth struct {
	State string `json:"state"` // closed, open, half-open
	Trips uint32 `json:"trips"`
}

// PredictRequest is the POST /predict body: a full race card to score.
type PredictRequest struct {
	RaceID         string       `json:"race_id"`
	Date           string       `json:"date"` // YYYY-MM-DD
	Name           string       `json:"name"`
	Venue          string       `json:"venue"`
	RaceNumber     int          `json:"race_number"`
	Surface        string       `json:"surface"`
	Distance       int          `json:"distance"`
	TrackCondition string       `json:"track_condition,omitempty"`
	Entries        []EntryInput `json:"entries"`
}

// EntryInput mirrors prediction.EntryInput at the wire boundary.
type EntryInput struct {
	HorseID       string  `json:"horse_id"`
	HorseNumber   int     `json:"horse_number"`
	BracketNumber int     `json:"bracket_number"`
	Impost        float64 `json:"impost"`
	Sex           string  `json:"sex"`
	Age           int     `json:"age"`
	JockeyID      string  `json:"jockey_id"`
	HorseName     string  `json:"horse_name"`
	Sire          string  `json:"sire"`
	HasSire       bool    `json:"has_sire"`
	DamSire       string  `json:"dam_sire"`
}

// PredictResponse wraps the ranked prediction results for a single race.
type PredictResponse struct {
	RaceID      string                    `json:"race_id"`
	Predictions []domain.PredictionResult `json:"predictions"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// BacktestRequest names the GET /backtest parameters (query string: from,
// to, retrain_interval). The Backtest handler reads them from the query
// directly and does not decode into this type.
type BacktestRequest struct {
	From             string `json:"from"`
	To               string `json:"to"`
	RetrainInterval  string `json:"retrain_interval"`
}

// BacktestMessage is one frame of the backtest websocket stream: a
// completed race result, the final "done" frame, or a terminal error.
type BacktestMessage struct {
	Type   string                     `json:"type"` // "race", "done", "error"
	Race   *domain.RaceBacktestResult `json:"race,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// SimulateResponse wraps a bet-type period simulation summary. Summary
// holds the summary type of the simulator matching the path's {betType}.
type SimulateResponse struct {
	BetType string      `json:"bet_type"`
	Summary interface{} `json:"summary"`
}
