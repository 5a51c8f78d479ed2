package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/spinmc/internal/persistence"
)

var runsCmd = &cobra.Command{
	Use:   "runs DB",
	Short: "List the runs stored in a result database",
	Args:  cobra.ExactArgs(1),
	RunE:  listRuns,
}

var rmCmd = &cobra.Command{
	Use:   "rm DB RUN...",
	Short: "Delete runs from a result database",
	Args:  cobra.MinimumNArgs(2),
	RunE:  removeRuns,
}

func openStore(path string) (*persistence.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return persistence.Open(path)
}

func listRuns(cmd *cobra.Command, args []string) error {
	db, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# id\tcreated\tstatus\tpoints\tmcs\tseed\tsample")
	for _, r := range runs {
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.CreatedAt, r.Status, r.Points, r.MCS, r.Seed, r.Sample)
	}
	return nil
}

func removeRuns(cmd *cobra.Command, args []string) error {
	db, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range args[1:] {
		if err := db.DeleteRun(cmd.Context(), id); err != nil {
			return err
		}
		slog.Info("run deleted", "run", id)
	}
	return nil
}
