// Package server exposes the evaluation engine over HTTP. Evaluation
// runs stream NDJSON progress events; finished cycles are persisted and
// retrievable by ID.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/giridharan-1129/LLM-Evaluation-app/store"
)

// Server routes evaluation requests. Behaviour is tweaked via functional
// options.
type Server struct {
	router         *mux.Router
	cycles         store.Service
	rowConcurrency int
}

// Option configures the Server instance.
type Option func(*Server)

// WithCycleStore replaces the default in-memory cycle store.
func WithCycleStore(svc store.Service) Option {
	return func(s *Server) { s.cycles = svc }
}

// WithRowConcurrency evaluates up to n dataset rows at a time per run.
func WithRowConcurrency(n int) Option {
	return func(s *Server) { s.rowConcurrency = n }
}

// New creates the HTTP server with default in-memory persistence.
func New(opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		cycles: store.NewInMemory(),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/v1/evaluate/rows", s.handleEvaluateRows).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/cycles", s.handleListCycles).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/cycles/{cycleID}", s.handleGetCycle).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}
