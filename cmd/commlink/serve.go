package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/server"
)

var (
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the run lifecycle, progress, metrics and change feed endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "Data source mode: live or synthetic (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveMode != "" {
		cfg.Mode = config.Mode(serveMode)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
