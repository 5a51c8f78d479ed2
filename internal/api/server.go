// Package api serves the state of a running simulation over HTTP.
// All endpoints are read-only.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/persistence"
)

// StatusSource is satisfied by *engine.Engine.
type StatusSource interface {
	Status() engine.Status
}

// Server serves simulation status, stored runs and metrics.
type Server struct {
	Eng     StatusSource
	DB      *persistence.DB // optional; enables the run endpoints
	Metrics http.Handler    // optional; served on /metrics
	RunID   string
	Port    int

	srv *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	runsLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(runsLimiter, s.handleRuns))
	mux.HandleFunc("/api/v1/runs/", RateLimitMiddleware(runsLimiter, s.handleRunDetail))
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}
	return corsMiddleware(mux)
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "metrics", s.Metrics != nil)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed dashboard origins.
// CORS_ORIGINS takes a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:3000": true,
		"http://localhost:5173": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	Run string `json:"run,omitempty"`
	engine.Status
	Percent float64 `json:"percent"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Eng.Status()
	resp := statusResponse{Run: s.RunID, Status: st}
	if total := st.Points * st.MCS; total > 0 {
		done := st.Point*st.MCS + st.Sweep
		if st.State == engine.StateDone {
			done = total
		}
		resp.Percent = 100 * float64(done) / float64(total)
	}
	writeJSON(w, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no result store", http.StatusNotFound)
		return
	}
	runs, err := s.DB.Runs(r.Context())
	if err != nil {
		slog.Error("list runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunInfo{}
	}
	writeJSON(w, runs)
}

// handleRunDetail serves GET /api/v1/runs/:id with the run's schedule.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no result store", http.StatusNotFound)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "bad run id", http.StatusBadRequest)
		return
	}

	run, err := s.DB.Run(r.Context(), id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load run", "run", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	schedule, err := s.DB.Schedule(r.Context(), id)
	if err != nil {
		slog.Error("load schedule", "run", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"run":      run,
		"schedule": schedule,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
