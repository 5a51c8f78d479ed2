package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/spinmc/internal/analysis"
	"github.com/talgya/spinmc/internal/lattice"
	"github.com/talgya/spinmc/internal/persistence"
)

var (
	runID    string
	tau      int
	asJSON   bool
	pointIdx int
	stateOut string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze DB",
	Short: "Print thermodynamic averages of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  analyzeRun,
}

var stateCmd = &cobra.Command{
	Use:   "state DB",
	Short: "Export the spin configuration recorded after a point",
	Args:  cobra.ExactArgs(1),
	RunE:  exportState,
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, stateCmd} {
		c.Flags().StringVar(&runID, "run", "", "Run id (default latest)")
	}
	analyzeCmd.Flags().IntVar(&tau, "tau", -1, "Sweeps discarded before averaging (default mcs/5)")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	stateCmd.Flags().IntVar(&pointIdx, "point", -1, "Schedule point (default last completed)")
	stateCmd.Flags().StringVarP(&stateOut, "out", "o", "", "State file (default stdout)")
}

// openRun opens the store at path and picks the requested or latest run.
func openRun(ctx context.Context, path string) (*persistence.DB, *persistence.RunInfo, error) {
	db, err := openStore(path)
	if err != nil {
		return nil, nil, err
	}
	var run *persistence.RunInfo
	if runID != "" {
		run, err = db.Run(ctx, runID)
	} else {
		run, err = db.LatestRun(ctx)
	}
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, run, nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, run, err := openRun(ctx, args[0])
	if err != nil {
		return err
	}
	defer db.Close()
	if run.Status != persistence.StatusComplete {
		slog.Warn("run is not complete, summarizing finished points only", "run", run.ID, "status", run.Status)
	}

	sum, err := analysis.Summarize(ctx, db, run, tau)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return analysis.WriteTable(os.Stdout, sum)
}

func exportState(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, run, err := openRun(ctx, args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	point := pointIdx
	if point < 0 {
		schedule, err := db.Schedule(ctx, run.ID)
		if err != nil {
			return err
		}
		for _, p := range schedule {
			if p.Done {
				point = p.Point
			}
		}
		if point < 0 {
			return fmt.Errorf("run %s has no completed points", run.ID)
		}
	}

	spins, err := db.FinalState(ctx, run.ID, point)
	if err != nil {
		return err
	}
	if err := writeTo(stateOut, func(f *os.File) error { return lattice.WriteState(f, spins) }); err != nil {
		return err
	}
	slog.Info("state exported", "run", run.ID, "point", point, "out", outName(stateOut))
	return nil
}
