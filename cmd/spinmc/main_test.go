package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/spinmc/internal/lattice"
	"github.com/talgya/spinmc/internal/persistence"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestBulkRunAnalyze(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "bulk.dat")
	aniso := filepath.Join(dir, "bulk.ani")

	require.NoError(t, execute(t, "--log-level", "warn",
		"sample", "bulk", "--length", "3", "--model", "ising", "--k", "0.1",
		"-o", sample, "--anisotropy-out", aniso))

	l, err := lattice.Load(sample)
	require.NoError(t, err)
	assert.Equal(t, 27, l.Len())

	cfg := "sample: bulk.dat\nmcs: 20\nseed: 7\ntemperature: [0.5, 2.0]\nfield: 0\nanisotropy: bulk.ani\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.yaml"), []byte(cfg), 0o644))
	require.NoError(t, execute(t, "--log-level", "warn", "run", filepath.Join(dir, "run.yaml")))

	dbPath := sample + ".db"
	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	run, err := db.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, persistence.StatusComplete, run.Status)
	assert.Equal(t, int64(7), run.Seed)
	assert.Equal(t, 2, run.Points)
	require.NoError(t, db.Close())

	require.NoError(t, execute(t, "--log-level", "warn", "analyze", dbPath))

	statePath := filepath.Join(dir, "final.state")
	require.NoError(t, execute(t, "--log-level", "warn", "state", dbPath, "-o", statePath))
	spins, err := lattice.LoadState(statePath, 27)
	require.NoError(t, err)
	for _, s := range spins {
		assert.InDelta(t, 1, s.Z*s.Z, 1e-9)
	}

	var listing bytes.Buffer
	rootCmd.SetOut(&listing)
	require.NoError(t, execute(t, "--log-level", "warn", "runs", dbPath))
	rootCmd.SetOut(nil)
	assert.Contains(t, listing.String(), run.ID)

	require.NoError(t, execute(t, "--log-level", "warn", "rm", dbPath, run.ID))
	assert.Error(t, execute(t, "--log-level", "error", "rm", dbPath, run.ID))
}

func TestAnalyzeMissingStore(t *testing.T) {
	err := execute(t, "--log-level", "error", "analyze", filepath.Join(t.TempDir(), "none.db"))
	assert.Error(t, err)
}
