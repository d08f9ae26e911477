// Package main provides the entry point for the fieldlog MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/fieldlog/internal/backend"
	"github.com/raphaelgruber/fieldlog/internal/config"
	"github.com/raphaelgruber/fieldlog/internal/llm"
	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/server"
	"github.com/raphaelgruber/fieldlog/internal/service"
	"github.com/raphaelgruber/fieldlog/internal/tools"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON). stdout carries the protocol.
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = cleanup() }()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("fieldlog-mcp starting",
		"version", version,
		"store", cfg.Store,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	collector := metrics.NewCollector()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := backend.OpenStore(startCtx, cfg, backend.Options{Seed: cfg.Seed}, logger, collector)
	startCancel()
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing store")
		_ = st.Close(context.Background())
	}()

	agentCfg := service.AgentConfig{Store: st, Metrics: collector, Logger: logger}
	model, err := llm.NewModel(ctx, cfg, collector)
	if err != nil {
		logger.Warn("analysis tools disabled", "error", err)
		agentCfg.GeneratorErr = err
	} else {
		defer func() { _ = model.Close() }()
		agentCfg.Generator = model
	}

	srv := server.New(version, logger, collector)
	srv.Setup()

	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Store:  st,
		Agent:  service.NewAgentService(agentCfg),
		Logger: logger,
	})
	logger.Info("tools registered", "count", 5)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
