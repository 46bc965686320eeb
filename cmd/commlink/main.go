// Package main provides the entry point for the Commlink operator console server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "commlink",
	Short: "Commlink drone training console",
	Long:  "Commlink tracks long-running drone RL training runs: lifecycle state, step progress, per-epoch metrics and a live change feed, backed by PostgreSQL or a deterministic synthetic corpus.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
