// Package server provides the HTTP API for the investigation service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/casefile/inquest/internal/config"
	"github.com/casefile/inquest/internal/corpus"
	"github.com/casefile/inquest/internal/models"
	"github.com/casefile/inquest/internal/storage"
)

// Investigator answers one question against the corpus and returns the full
// session: transcript, answer, citations, and compliance verdict.
type Investigator interface {
	Investigate(ctx context.Context, question string) (*models.Session, error)
}

// Server is the HTTP API. Questions go through the Investigator; direct corpus
// access (search, read, list) bypasses the agent for operator use.
type Server struct {
	investigator Investigator
	corpus       corpus.Adapter
	storage      storage.Storage
	cfg          *config.Config
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(investigator Investigator, adapter corpus.Adapter, store storage.Storage, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		investigator: investigator,
		corpus:       adapter,
		storage:      store,
		cfg:          cfg,
		logger:       logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Investigations run many model rounds; the timeout has to cover them.
	r.Use(middleware.Timeout(15 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/count", s.handleCount)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/sessions", s.handleListSessions)
	r.Get("/api/v1/sessions/{id}", s.handleGetSession)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/f/{id}", s.handleDocumentText)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
