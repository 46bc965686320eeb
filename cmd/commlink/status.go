package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/observability"
	"github.com/fsilva7456/commlink/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run status from the console",
	Long:  `Without arguments, list all runs. With a run id, show that run's detail and its recent metric samples.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	p := observability.NewPrinter(os.Stdout)

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx, store.RunFilters{})
		if err != nil {
			return err
		}
		p.PrintRunList(runs)
		return nil
	}

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: must be a UUID", args[0])
	}

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	series, err := st.ListMetrics(ctx, runID)
	if err != nil {
		return err
	}
	best, err := st.MinTrajectoryError(ctx, runID)
	if err != nil {
		return err
	}

	p.PrintRun(run)
	p.PrintMetricSummary(series, best)
	return nil
}
