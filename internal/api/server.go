package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sunnydapp/internal/dispatch"
	"sunnydapp/internal/engine"
	"sunnydapp/internal/storage"
)

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the dependencies of the API server
type Options struct {
	Engine *engine.Engine
	Events storage.EventLog
	Health Pinger

	// NetworkPassphrase is mixed into the signed invocation payload
	NetworkPassphrase string
}

// Server represents the HTTP API server
// Provides the invocation endpoint, read-only views over the ledger, Prometheus metrics and health checks
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	engine     *engine.Engine
	dispatcher *dispatch.Dispatcher
	events     storage.EventLog
	health     Pinger
	passphrase string
	port       int
}

// NewServer creates a new API server instance
func NewServer(port int, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		engine:     opts.Engine,
		dispatcher: dispatch.New(opts.Engine),
		events:     opts.Events,
		health:     opts.Health,
		passphrase: opts.NetworkPassphrase,
		port:       port,
	}

	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Invocation
	s.mux.HandleFunc("/invoke", s.handleInvoke)

	// Ledger views
	s.mux.HandleFunc("/config", s.handleConfig)
	s.mux.HandleFunc("/agreements", s.handleListAgreements)
	s.mux.HandleFunc("/agreements/", s.handleGetAgreement)
	s.mux.HandleFunc("/balances/", s.handleGetBalance)
	s.mux.HandleFunc("/sequences/", s.handleGetSequence)
	s.mux.HandleFunc("/audit", s.handleAudit)
	s.mux.HandleFunc("/events", s.handleEvents)
}

// Handler exposes the route table, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/invoke"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
