// Package httpapi serves the operational endpoints of the digest service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes health, last run and metrics.
type Server struct {
	store   Pinger
	runs    ports.RunRepository
	metrics http.Handler
	logger  *slog.Logger
	router  chi.Router
}

const shutdownTimeout = 10 * time.Second

// New creates a new server. A nil metrics handler disables /metrics.
func New(store Pinger, runs ports.RunRepository, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, runs: runs, metrics: metrics, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/runs/last", s.handleLastRun)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router = r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx ends, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.LastDigestRun(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs recorded"})
		return
	}
	if err != nil {
		s.logger.Error("load last run", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, NewRunView(run))
}

// RunView is the JSON shape of a ledger record.
type RunView struct {
	ID                int64      `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Success           bool       `json:"success"`
	ArticlesProcessed int        `json:"articles_processed"`
	SourcesFailed     int        `json:"sources_failed"`
	SummariesFailed   int        `json:"summaries_failed"`
	OverallSummary    string     `json:"overall_summary,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	EmailSent         bool       `json:"email_sent"`
}

// NewRunView converts a run for JSON output.
func NewRunView(run domain.DigestRun) RunView {
	return RunView{
		ID:                run.ID,
		StartedAt:         run.StartedAt,
		CompletedAt:       run.CompletedAt,
		Success:           run.Success,
		ArticlesProcessed: run.ArticlesProcessed,
		SourcesFailed:     run.SourcesFailed,
		SummariesFailed:   run.SummariesFailed,
		OverallSummary:    run.OverallSummary,
		ErrorMessage:      run.ErrorMessage,
		EmailSent:         run.EmailSent,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
