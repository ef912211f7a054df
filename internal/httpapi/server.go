// Package httpapi is the read/write HTTP surface for the prediction,
// backtest and bet-simulation pipeline: a predict endpoint, a
// WebSocket-streamed backtest endpoint, a bet-period simulation
// endpoint, a health check and a Prometheus metrics endpoint. Grounded
// on internal/interfaces/http/server.go's Server/ServerConfig shape,
// middleware chain and graceful shutdown.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the racecast HTTP API: predict, backtest (streamed over a
// websocket), simulate, health and metrics.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	config   ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration, honoring
// HTTP_PORT if set.
func DefaultServerConfig() ServerConfig {
	port := 8090
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // backtest streaming responses run long
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new HTTP server instance bound to handlers.
func NewServer(config ServerConfig, handlers *Handlers) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("httpapi: port %d is busy or unavailable: %w", config.Port, err)
	}
	listener.Close()

	s := &Server{
		router:   mux.NewRouter(),
		handlers: handlers,
		config:   config,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/predict", s.handlers.Predict).Methods("POST")
	api.HandleFunc("/simulate/{betType}", s.handlers.Simulate).Methods("GET")

	// Backtest streams over a websocket; it must not inherit the JSON
	// content-type middleware (the upgrade response carries none).
	s.router.HandleFunc("/backtest", s.handlers.Backtest).Methods("GET")

	s.router.Handle("/metrics", s.handlers.metrics.Handler()).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(requestIDKey).(string)

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("httpapi: request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start runs the server until it is shut down or fails.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("httpapi: starting server")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("httpapi: shutting down")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server's bound address.
func (s *Server) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// responseWrapper captures HTTP status codes for logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
