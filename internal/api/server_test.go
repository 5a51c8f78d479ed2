package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/lattice"
	"github.com/talgya/spinmc/internal/metrics"
	"github.com/talgya/spinmc/internal/persistence"
	"github.com/talgya/spinmc/internal/vec"
)

type fixedStatus engine.Status

func (f fixedStatus) Status() engine.Status { return engine.Status(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	s := &Server{
		Eng: fixedStatus{
			State:  engine.StateRunning,
			Point:  1,
			Points: 4,
			Sweep:  50,
			MCS:    100,
			Sigma:  []float64{0.4},
		},
		RunID: "abc",
	}
	rec := get(t, s.Handler(), "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["run"])
	assert.Equal(t, "running", body["state"])
	assert.InDelta(t, 37.5, body["percent"], 1e-9)
}

func TestRunEndpoints(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()

	l, err := lattice.Build(lattice.Description{
		Sites: []lattice.SiteSpec{{ID: 0, SpinNorm: 1, Field: vec.UnitZ, Type: "A", Model: "ising"}},
	})
	require.NoError(t, err)
	e, err := engine.New(l, engine.Options{Temperatures: []float64{1}, Fields: []float64{0}, MCS: 10, KB: 1})
	require.NoError(t, err)

	rec := metrics.NewRecorder(l.Types())
	e.OnSweep = rec.ObserveSweep
	w := db.NewRunWriter("one.dat")
	require.NoError(t, e.Run(context.Background(), w))

	h := (&Server{Eng: e, DB: db, Metrics: rec.Handler(), RunID: w.ID()}).Handler()

	resp := get(t, h, "/api/v1/runs")
	require.Equal(t, http.StatusOK, resp.Code)
	var runs []persistence.RunInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, w.ID(), runs[0].ID)

	resp = get(t, h, "/api/v1/runs/"+w.ID())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"schedule"`)

	resp = get(t, h, "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "spinmc_sweeps_total 10")
}

func TestRunEndpointsWithoutStore(t *testing.T) {
	h := (&Server{Eng: fixedStatus{}}).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

func TestRejectsWrites(t *testing.T) {
	h := (&Server{Eng: fixedStatus{}}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
