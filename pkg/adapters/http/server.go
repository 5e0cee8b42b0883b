package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner defines what the server needs from the run orchestrator.
type Runner interface {
	Names() []string
	Start(ctx context.Context, name string, arg any) (*domain.RunRecord, *deferred.Deferred, error)
	Get(ctx context.Context, runID string) (*domain.RunRecord, error)
}

// Server serves the pipeline API.
type Server struct {
	Runner   Runner
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option defines a functional option for configuring the Server.
type Option func(*Server)

// WithGatherer mounts /metrics backed by g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// RunRequest is the body of POST /pipelines/{name}/runs.
type RunRequest struct {
	Arg any `json:"arg"`
}

// PipelineList is the body of GET /pipelines.
type PipelineList struct {
	Pipelines []string `json:"pipelines"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a new HTTP handler for the runner.
func NewHandler(runner Runner, opts ...Option) http.Handler {
	s := &Server{
		Runner: runner,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/pipelines", s.ListPipelines)
	r.Post("/pipelines/{name}/runs", s.StartRun)
	r.Get("/runs/{id}", s.GetRun)
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListPipelines handles GET /pipelines.
func (s *Server) ListPipelines(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, PipelineList{Pipelines: s.Runner.Names()})
}

// StartRun handles POST /pipelines/{name}/runs.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.Logger.Warn("StartRun: invalid request body", "error", err)
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		var err error
		if wait, err = strconv.ParseBool(raw); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid wait parameter")
			return
		}
	}

	record, d, err := s.Runner.Start(r.Context(), name, body.Arg)
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.Logger.Error("StartRun failed", "pipeline", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !wait {
		s.writeJSON(w, http.StatusAccepted, record)
		return
	}

	// A rejected run is reported through its record.
	if _, err := d.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		s.writeJSON(w, http.StatusAccepted, record)
		return
	}
	final, err := s.Runner.Get(r.Context(), record.ID)
	if err != nil {
		s.Logger.Error("StartRun: failed to load record", "run_id", record.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, final)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.Runner.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.Logger.Error("GetRun failed", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
