package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/observability"
	"github.com/fsilva7456/commlink/internal/store"
)

var (
	seedValue int64
	seedClear bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the live database with the demo corpus",
	Long:  `Populate PostgreSQL with the demo scenario catalogue and training runs, including metric curves, checkpoints and episodes. The same corpus the synthetic mode serves in memory.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "RNG seed for generated curves (overrides config)")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "Delete all existing runs before seeding")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Seeding only makes sense against the live database; the
	// synthetic store generates its own corpus at startup.
	cfg.Mode = config.ModeLive
	if err := cfg.Validate(); err != nil {
		return err
	}
	if seedValue != 0 {
		cfg.SyntheticSeed = seedValue
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if seedClear {
		existing, err := st.ListRuns(ctx, store.RunFilters{})
		if err != nil {
			return err
		}
		for _, r := range existing {
			if err := st.DeleteRun(ctx, r.ID); err != nil {
				return fmt.Errorf("failed to clear run %q: %w", r.Name, err)
			}
		}
	}

	rng := rand.New(rand.NewSource(cfg.SyntheticSeed))
	if err := store.Seed(ctx, st, rng); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	runs, err := st.ListRuns(ctx, store.RunFilters{})
	if err != nil {
		return err
	}
	scenarios, err := st.ListScenarios(ctx)
	if err != nil {
		return err
	}

	p := observability.NewPrinter(os.Stdout)
	p.PrintScenarios(scenarios)
	p.PrintRunList(runs)
	return nil
}
