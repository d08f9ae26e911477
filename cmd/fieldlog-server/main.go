// Package main provides the HTTP API server for fieldlog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/fieldlog/internal/api"
	"github.com/raphaelgruber/fieldlog/internal/backend"
	"github.com/raphaelgruber/fieldlog/internal/config"
	"github.com/raphaelgruber/fieldlog/internal/llm"
	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/notify"
	"github.com/raphaelgruber/fieldlog/internal/service"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	seed := flag.Bool("seed", false, "insert the sample HCP directory on startup")
	wipe := flag.Bool("wipe", false, "wipe all data from the store on startup (testing only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = cleanup() }()

	logger.Info("fieldlog-server starting",
		"version", version,
		"addr", cfg.ListenAddr,
		"store", cfg.Store,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := backend.OpenStore(startCtx, cfg, backend.Options{Seed: cfg.Seed || *seed, Wipe: *wipe}, logger, collector)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing store")
		if err := st.Close(context.Background()); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	// A missing API key leaves the form and directory usable; AI routes
	// report the reason instead.
	agentCfg := service.AgentConfig{Store: st, Metrics: collector, Logger: logger}
	model, err := llm.NewModel(ctx, cfg, collector)
	if err != nil {
		logger.Warn("AI features disabled", "error", err)
		agentCfg.GeneratorErr = err
	} else {
		defer func() { _ = model.Close() }()
		agentCfg.Generator = model
	}

	bus := notify.NewBus()
	agentCfg.Events = bus

	hub := api.NewHub(bus, logger)
	defer hub.Close()

	httpServer := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(api.Deps{
			Store:       st,
			Agent:       service.NewAgentService(agentCfg),
			Hub:         hub,
			Metrics:     collector,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 150 * time.Second, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API available", "url", fmt.Sprintf("http://localhost%s/api/", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
