package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	TickInterval  time.Duration `env:"TICK_INTERVAL" default:"1s"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"30s"`

	Outage       bool    `env:"OUTAGE" default:"false"`
	LatencyMinMs int     `env:"LATENCY_MIN_MS" default:"0"`
	LatencyMaxMs int     `env:"LATENCY_MAX_MS" default:"0"`
	LossPercent  float64 `env:"LOSS_PERCENT" default:"0"`
	FaultSeed    uint64  `env:"FAULT_SEED" default:"0"`

	StaticDir      string `env:"STATIC_DIR" default:"public"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	MaxConnections      int64   `env:"MAX_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP int     `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectRate         float64 `env:"CONNECT_RATE" default:"10"`
	ConnectBurst        int     `env:"CONNECT_BURST" default:"20"`

	ControlRate  float64 `env:"CONTROL_RATE" default:"20"`
	ControlBurst int     `env:"CONTROL_BURST" default:"40"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Origins splits ALLOWED_ORIGINS on commas, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}

	if cfg.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}

	if cfg.LatencyMinMs < 0 || cfg.LatencyMaxMs < 0 {
		return errors.New("LATENCY_MIN_MS and LATENCY_MAX_MS must not be negative")
	}
	if cfg.LatencyMinMs > cfg.LatencyMaxMs {
		return fmt.Errorf("LATENCY_MIN_MS (%d) must not exceed LATENCY_MAX_MS (%d)", cfg.LatencyMinMs, cfg.LatencyMaxMs)
	}
	if math.IsNaN(cfg.LossPercent) || cfg.LossPercent < 0 || cfg.LossPercent > 100 {
		return errors.New("LOSS_PERCENT must be between 0 and 100")
	}

	if cfg.MaxConnections <= 0 || cfg.MaxConnectionsPerIP <= 0 {
		return errors.New("MAX_CONNECTIONS and MAX_CONNECTIONS_PER_IP must be positive")
	}
	if cfg.ConnectRate <= 0 || cfg.ConnectBurst <= 0 {
		return errors.New("CONNECT_RATE and CONNECT_BURST must be positive")
	}
	if cfg.ControlRate <= 0 || cfg.ControlBurst <= 0 {
		return errors.New("CONTROL_RATE and CONTROL_BURST must be positive")
	}

	return nil
}
