package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/spinmc/internal/api"
	"github.com/talgya/spinmc/internal/config"
	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/lattice"
	"github.com/talgya/spinmc/internal/metrics"
	"github.com/talgya/spinmc/internal/persistence"
)

var (
	apiPort     int
	progressLog time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run CONFIG",
	Short: "Run the temperature/field schedule described by a run file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().IntVar(&apiPort, "api-port", 0, "Serve status and metrics on this port (0 disables)")
	runCmd.Flags().DurationVar(&progressLog, "progress", 10*time.Second, "Interval between progress log lines")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	// ── Config ────────────────────────────────────────────────────────
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	// ── Lattice ───────────────────────────────────────────────────────
	l, err := lattice.Load(cfg.Sample)
	if err != nil {
		return err
	}
	for _, path := range cfg.Anisotropy {
		terms, err := lattice.LoadAnisotropy(path, l.Len())
		if err != nil {
			return err
		}
		if err := l.AttachAnisotropy(terms); err != nil {
			return fmt.Errorf("anisotropy %s: %w", path, err)
		}
	}
	slog.Info("sample loaded",
		"path", cfg.Sample,
		"sites", humanize.Comma(int64(l.Len())),
		"bonds", humanize.Comma(int64(l.Bonds())),
		"types", l.Types(),
	)

	// ── Engine ────────────────────────────────────────────────────────
	eng, err := engine.New(l, opts)
	if err != nil {
		return err
	}
	switch {
	case cfg.InitialState != "":
		spins, err := lattice.LoadState(cfg.InitialState, l.Len())
		if err != nil {
			return err
		}
		if err := eng.SetState(spins); err != nil {
			return fmt.Errorf("initial state %s: %w", cfg.InitialState, err)
		}
		slog.Info("initial state loaded", "path", cfg.InitialState)
	case cfg.Texture != nil:
		lattice.ApplyTexture(l, opts.Seed, *cfg.Texture)
		slog.Info("initial texture applied", "scale", cfg.Texture.Scale, "octaves", cfg.Texture.Octaves)
	default:
		eng.RandomizeSpins()
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.Out)
	if err != nil {
		return err
	}
	defer db.Close()
	writer := db.NewRunWriter(cfg.Sample)
	slog.Info("database opened", "path", cfg.Out, "run", writer.ID())

	// ── Metrics and progress ──────────────────────────────────────────
	rec := metrics.NewRecorder(l.Types())
	total := int64(len(opts.Temperatures) * opts.MCS)
	var (
		lastLog time.Time
		done    int64
		began   = time.Now()
	)
	eng.OnSweep = func(s engine.SweepStats) {
		rec.ObserveSweep(s)
		done++
		if time.Since(lastLog) < progressLog {
			return
		}
		lastLog = time.Now()
		elapsed := time.Since(began)
		eta := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
		slog.Info("progress",
			"sweeps", fmt.Sprintf("%s/%s", humanize.Comma(done), humanize.Comma(total)),
			"percent", fmt.Sprintf("%.1f", 100*float64(done)/float64(total)),
			"eta", eta.Round(time.Second),
			"point", s.Point,
			"T", s.Temperature,
			"H", s.Field,
			"energy", s.Energy,
		)
	}
	eng.OnPoint = rec.ObservePoint

	// ── HTTP API ──────────────────────────────────────────────────────
	var srv *api.Server
	if apiPort > 0 {
		srv = &api.Server{
			Eng:     eng,
			DB:      db,
			Metrics: rec.Handler(),
			RunID:   writer.ID(),
			Port:    apiPort,
		}
		srv.Start()
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := eng.Run(ctx, writer)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if info, err := os.Stat(cfg.Out); err == nil {
		slog.Info("results written", "path", cfg.Out, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
