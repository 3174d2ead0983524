// Package api exposes discovery runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/model"
	"github.com/sells-group/ma-discovery/internal/pipeline"
	"github.com/sells-group/ma-discovery/internal/runs"
	"github.com/sells-group/ma-discovery/internal/store"
)

// Server handles discovery API requests. Searches run asynchronously on
// baseCtx so they outlive the originating request.
type Server struct {
	pipeline *pipeline.Pipeline
	registry *runs.Registry
	baseCtx  context.Context
	origins  []string
}

// NewServer creates a Server. baseCtx bounds the lifetime of background
// searches; cancel it to stop in-flight runs on shutdown.
func NewServer(baseCtx context.Context, p *pipeline.Pipeline, registry *runs.Registry, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{pipeline: p, registry: registry, baseCtx: baseCtx, origins: origins}
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/runs", s.handleListRuns)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/results/{id}", s.handleResults)
		r.Get("/export/{id}", s.handleExport)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchRequest is the body of POST /api/search.
type searchRequest struct {
	Criteria *model.AcquisitionCriteria `json:"criteria"`
	Limit    int                        `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Criteria == nil {
		writeError(w, http.StatusBadRequest, "criteria is required")
		return
	}
	if err := req.Criteria.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.pipeline.Start(r.Context(), req.Criteria, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	go func() {
		if _, err := s.pipeline.Execute(s.baseCtx, run); err != nil {
			zap.L().Error("api: background run failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(run.Status),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	list, err := s.registry.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": list})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if !run.Terminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
		return
	}

	results, err := s.registry.Results(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"results": results,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Status != model.RunCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
		return
	}

	results, err := s.registry.Results(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="discovery-%s.xlsx"`, truncateID(run.ID)))
	if err := WriteXLSX(w, results); err != nil {
		zap.L().Error("api: export failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// loadRun fetches the run in the id path parameter, writing the error
// response itself when it fails.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load run")
		}
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
