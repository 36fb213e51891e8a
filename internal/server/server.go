// Package server is the thin REST surface: it forwards raw text and
// entity spans in, case records out. No extraction logic lives here.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/epfo-tools/case-engine/internal/async"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/export"
	"github.com/epfo-tools/case-engine/internal/pipeline"
	"github.com/epfo-tools/case-engine/internal/repository"
)

type Server struct {
	router   *chi.Mux
	proc     *pipeline.Processor
	queue    *async.Queue
	repo     repository.CaseRepository
	exporter *export.Service
	logger   *slog.Logger
}

type Config struct {
	Processor *pipeline.Processor
	Queue     *async.Queue
	Repo      repository.CaseRepository
	Exporter  *export.Service
	Logger    *slog.Logger
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		router:   r,
		proc:     cfg.Processor,
		queue:    cfg.Queue,
		repo:     cfg.Repo,
		exporter: cfg.Exporter,
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1/cases", func(r chi.Router) {
		r.Post("/process", s.handleProcessSync)
		r.Post("/", s.handleEnqueue)
		r.Get("/", s.handleListCases)
		r.Get("/{documentID}", s.handleGetCase)
		r.Get("/{documentID}/export.xlsx", s.handleExportCase)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
