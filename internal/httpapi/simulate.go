package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/domain"
)

const defaultTopN = 3

// Simulate runs one of the four bet-type period simulators over every
// race in [from, to] and returns its summary. {betType} is one of
// show, win, quinella, trio.
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	betType := mux.Vars(r)["betType"]
	q := r.URL.Query()

	from, err := domain.ParseDate(q.Get("from"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_from", "from must be in YYYY-MM-DD format")
		return
	}
	to, err := domain.ParseDate(q.Get("to"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_to", "to must be in YYYY-MM-DD format")
		return
	}

	topN := defaultTopN
	if raw := q.Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, http.StatusBadRequest, "invalid_top_n", "top_n must be a positive integer")
			return
		}
		topN = n
	}

	races, err := h.source.RacesInRange(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "races_lookup_failed", err.Error())
		return
	}
	raceIDs := make([]string, len(races))
	for i, race := range races {
		raceIDs[i] = race.ID
	}

	var summary interface{}
	switch betType {
	case "show":
		summary = betting.SimulateShowPeriod(r.Context(), raceIDs, h.resolver, from.String(), to.String(), topN)
	case "win":
		summary = betting.SimulateWinPeriod(r.Context(), raceIDs, h.resolver, from.String(), to.String(), topN)
	case "quinella":
		summary = betting.SimulateQuinellaPeriod(r.Context(), raceIDs, h.resolver, from.String(), to.String())
	case "trio":
		summary = betting.SimulateTrioPeriod(r.Context(), raceIDs, h.resolver, from.String(), to.String())
	default:
		h.writeError(w, r, http.StatusBadRequest, "invalid_bet_type", "bet_type must be one of show, win, quinella, trio")
		return
	}

	if hr, rr, ok := betSummaryRates(summary); ok {
		h.metrics.RecordBetSummary(betType, hr, rr)
	}

	h.writeJSON(w, http.StatusOK, SimulateResponse{BetType: betType, Summary: summary})
}

func betSummaryRates(summary interface{}) (hitRate, returnRate float64, ok bool) {
	switch s := summary.(type) {
	case betting.ShowSummary:
		return s.HitRate, s.ReturnRate, true
	case betting.WinSummary:
		return s.HitRate, s.ReturnRate, true
	case betting.QuinellaSummary:
		return s.HitRate, s.ReturnRate, true
	case betting.TrioSummary:
		return s.HitRate, s.ReturnRate, true
	default:
		return 0, 0, false
	}
}
