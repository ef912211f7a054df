package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nkeiba/racecast/internal/backtest"
	"github.com/nkeiba/racecast/internal/domain"
)

// upgrader accepts only requests with no Origin header or an Origin equal
// to the request's own host (same-origin). Unlike the CORS middleware, it
// does not admit other localhost origins.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

const backtestWriteTimeout = 5 * time.Second

// Backtest streams one BacktestMessage per race as the walk-forward
// engine produces it, so a long period doesn't have to buffer in
// memory on either side of the connection (backtest.Engine.Run already
// yields incrementally over a channel; this just forwards each value
// onto the socket as it arrives). No server-side websocket handler
// exists in the teacher repo to ground this on directly (its only
// gorilla/websocket usage is the outbound Kraken client); the upgrade
// and per-message write-deadline pattern below follows gorilla/
// websocket's own documented usage instead.
func (h *Handlers) Backtest(w http.ResponseWriter, r *http.Request) {
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
	retrain := backtest.RetrainInterval(q.Get("retrain_interval"))
	if retrain == "" {
		retrain = backtest.RetrainWeekly
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("httpapi: backtest websocket upgrade failed")
		return
	}
	defer conn.Close()

	engine := backtest.New(h.source, h.calc, h.combine, retrain)
	races, errs := engine.Run(r.Context(), from, to)

	timer := h.metrics.StartPredictTimer("backtest")
	var runErr error
	for races != nil || errs != nil {
		select {
		case race, ok := <-races:
			if !ok {
				races = nil
				continue
			}
			h.metrics.RecordRace("predicted")
			conn.SetWriteDeadline(time.Now().Add(backtestWriteTimeout))
			if err := conn.WriteJSON(BacktestMessage{Type: "race", Race: &race}); err != nil {
				log.Warn().Err(err).Msg("httpapi: backtest websocket write failed")
				timer.Stop(err)
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			runErr = err
		}
	}

	timer.Stop(runErr)
	conn.SetWriteDeadline(time.Now().Add(backtestWriteTimeout))
	if runErr != nil {
		conn.WriteJSON(BacktestMessage{Type: "error", Error: runErr.Error()})
		return
	}
	conn.WriteJSON(BacktestMessage{Type: "done"})
}
