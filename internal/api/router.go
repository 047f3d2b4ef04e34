package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lightsync/internal/device"
	"github.com/nerrad567/lightsync/internal/mirror"
)

// healthCheckTimeout bounds each component check of the health route.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/status", s.handleStatus)
		r.Get("/history/{source}", s.handleHistory)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports the server and every optional backend.
// Any failing component turns the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.checks))
	status := "ok"

	for name, checker := range s.checks {
		if checker == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	RunID         string                       `json:"run_id"`
	Mode          string                       `json:"mode"`
	Sink          string                       `json:"sink"`
	Sources       []string                     `json:"sources"`
	IntervalMS    int64                        `json:"interval_ms"`
	LastForwarded map[string]device.LightState `json:"last_forwarded"`
}

// handleStatus returns the running session and the last forwarded state per source.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		RunID:         s.syncer.RunID(),
		Mode:          s.mode,
		Sink:          s.syncer.Sink(),
		Sources:       s.syncer.Sources(),
		IntervalMS:    s.syncer.Interval().Milliseconds(),
		LastForwarded: s.syncer.LastForwarded(),
	})
}

// HistoryResponse is the body of GET /api/v1/history/{source}.
type HistoryResponse struct {
	Source  string                `json:"source"`
	Entries []mirror.HistoryEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// handleHistory returns the most recent forwards of one source.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "sync history is disabled")
		return
	}

	source := chi.URLParam(r, "source")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.GetHistory(r.Context(), source, limit)
	if err != nil {
		s.logger.Error("reading sync history", "source", source, "error", err)
		writeInternalError(w, "failed to read sync history")
		return
	}
	if entries == nil {
		entries = []mirror.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Source:  source,
		Entries: entries,
		Count:   len(entries),
	})
}
