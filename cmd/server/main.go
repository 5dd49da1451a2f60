package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/adapter/httpserver"
	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/broadcast"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/fault"
	"github.com/haibadguy/websocket-vs-sse/internal/platform/config"
	"github.com/haibadguy/websocket-vs-sse/internal/platform/logging"
	"github.com/haibadguy/websocket-vs-sse/internal/platform/version"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
	"github.com/haibadguy/websocket-vs-sse/internal/stats"
	"github.com/jonboulle/clockwork"
)

const shutdownTimeout = 10 * time.Second

func runGracefulShutdown(srv *httpserver.Server, engine *broadcast.Engine) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Stopping the engine first releases every open stream handler.
		engine.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupInjector(cfg *config.Config) *fault.Injector {
	params := domain.SimulationParameters{
		Outage:       cfg.Outage,
		LatencyMinMs: cfg.LatencyMinMs,
		LatencyMaxMs: cfg.LatencyMaxMs,
		LossPercent:  cfg.LossPercent,
	}

	injector, err := fault.NewInjector(params, fault.NewSeededSource(cfg.FaultSeed))
	if err != nil {
		slog.Error("Invalid initial simulation parameters", "error", err)
		os.Exit(1)
	}
	return injector
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	promReg := metrics.NewRegistry()
	connMetrics := metrics.NewConnectionMetrics(promReg)
	deliveryMetrics := metrics.NewDeliveryMetrics(promReg)
	httpMetrics := metrics.NewHTTPMetrics(promReg, "/metrics", "/health/", "/sse", "/ws")

	reg := registry.New(clock, connMetrics)
	injector := setupInjector(cfg)

	engine := broadcast.NewEngine(reg, injector, clock, broadcast.Config{
		TickInterval:      cfg.TickInterval,
		SweepInterval:     cfg.SweepInterval,
		DeliveryMetrics:   deliveryMetrics,
		ConnectionMetrics: connMetrics,
	})
	engine.Start(context.Background())

	srv := httpserver.NewServer(cfg, httpserver.Dependencies{
		Engine:         engine,
		Stats:          stats.NewReporter(reg, injector, clock),
		Simulator:      injector,
		Limits:         httpserver.NewConnectionLimits(clock, cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnectRate, cfg.ConnectBurst),
		Clock:          clock,
		HTTPMetrics:    httpMetrics,
		ConnMetrics:    connMetrics,
		MetricsHandler: metrics.Handler(promReg),
		HealthChecks: []httpserver.HealthCheck{{
			Name: "broadcast_engine",
			Check: func(context.Context) error {
				if !engine.Running() {
					return errors.New("broadcast engine is not running")
				}
				return nil
			},
		}},
	})

	done := runGracefulShutdown(srv, engine)

	slog.Info("Server starting", "port", cfg.Port, "tick_interval", cfg.TickInterval, "sweep_interval", cfg.SweepInterval)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}
