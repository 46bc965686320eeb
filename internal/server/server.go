// Package server provides the HTTP REST API for the operator console.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/lifecycle"
	"github.com/fsilva7456/commlink/internal/metrics"
	"github.com/fsilva7456/commlink/internal/store"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	store      store.Store
	feed       *feed.Feed
	lifecycle  *lifecycle.Service
	aggregator *metrics.Aggregator
}

// New creates a new server instance
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := newWithStore(cfg, st)
	return s, nil
}

// newWithStore wires the server around an already-open store. Split
// out so tests can inject a synthetic store directly.
func newWithStore(cfg *config.Config, st store.Store) *Server {
	f := feed.New(cfg.FeedBuffer)

	s := &Server{
		cfg:        cfg,
		store:      st,
		feed:       f,
		lifecycle:  lifecycle.NewService(st, f),
		aggregator: metrics.New(st, f),
	}

	mux := http.NewServeMux()

	// Run lifecycle endpoints
	mux.HandleFunc("POST /runs", s.handleCreateRun)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("POST /runs/{id}/transition", s.handleTransitionRun)
	mux.HandleFunc("GET /runs/{id}/transitions", s.handleListTransitions)

	// Progress tracking
	mux.HandleFunc("POST /runs/{id}/progress", s.handleReportProgress)
	mux.HandleFunc("GET /runs/{id}/eta", s.handleGetETA)

	// Metrics
	mux.HandleFunc("POST /runs/{id}/metrics", s.handleAppendMetric)
	mux.HandleFunc("GET /runs/{id}/metrics", s.handleListMetrics)
	mux.HandleFunc("GET /runs/{id}/best-score", s.handleBestScore)

	// Model checkpoints and collected episodes
	mux.HandleFunc("POST /runs/{id}/models", s.handleCreateModel)
	mux.HandleFunc("GET /runs/{id}/models", s.handleListModels)
	mux.HandleFunc("POST /runs/{id}/episodes", s.handleCreateEpisode)
	mux.HandleFunc("GET /runs/{id}/episodes", s.handleListEpisodes)

	// Scenario catalogue
	mux.HandleFunc("GET /scenarios", s.handleListScenarios)
	mux.HandleFunc("GET /scenarios/{id}", s.handleGetScenario)

	// Change feed
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /runs/{id}/events", s.handleRunEvents)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.aggregator.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("Server starting on %s (mode=%s)", s.httpServer.Addr, s.cfg.Mode)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()

	s.feed.Close()
	s.store.Close()
	log.Println("Server stopped")
	return err
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   string(s.cfg.Mode),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// errorResponse writes a JSON error response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
