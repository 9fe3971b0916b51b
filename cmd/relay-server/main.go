// main.go
// Wire everything together: config, logging, metrics, the relay manager loop,
// and the HTTP server that upgrades "/" to WebSocket. Once the listener is up
// the startup line is mirrored to clients; SIGINT/SIGTERM shut down in order.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"wsrelay/internal/config"
	"wsrelay/internal/logging"
	"wsrelay/internal/metrics"
	"wsrelay/internal/relay"
	"wsrelay/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	clock := clockwork.NewRealClock()

	// Collectors are always live; the registry is only served when enabled.
	var reg *prometheus.Registry
	registerer := prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
		registerer = reg
	}
	relayMetrics := metrics.NewRelayMetrics(registerer)

	manager := relay.NewManager(relay.New(relay.Options{
		DefaultName: cfg.DefaultName,
		Clock:       clock,
		Logger:      logger,
		Metrics:     relayMetrics,
	}))

	ctx, stopManager := context.WithCancel(context.Background())
	go manager.Run(ctx)

	srv := server.New(cfg, manager, reg, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	manager.Announce(relay.StartupAnnouncement(cfg.Port, clock.Now()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, cleaning up...")
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	stopManager()
	<-manager.Done()
	logger.Info("Shutdown complete")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
