package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	wsadapter "github.com/haibadguy/websocket-vs-sse/internal/adapter/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

type streamEngine interface {
	Running() bool
	OpenStream(ctx context.Context, sink domain.Sender) (uuid.UUID, error)
	OpenSocket(ctx context.Context, socket domain.SocketConn) (uuid.UUID, error)
	Close(id uuid.UUID) bool
	Done(id uuid.UUID) <-chan struct{}
	Pong(id uuid.UUID)
}

type statsReporter interface {
	Snapshot() domain.Stats
}

type simulator interface {
	Params() domain.SimulationParameters
	ToggleOutage() bool
	SetLatencyRange(minMs, maxMs int) (domain.SimulationParameters, error)
	SetLossPercent(percent float64) (domain.SimulationParameters, error)
}

// Dependencies are the collaborators the HTTP layer drives.
type Dependencies struct {
	Engine         streamEngine
	Stats          statsReporter
	Simulator      simulator
	Limits         *ConnectionLimits
	Clock          clockwork.Clock
	HTTPMetrics    *metrics.HTTPMetrics
	ConnMetrics    *metrics.ConnectionMetrics
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	engine    streamEngine
	stats     statsReporter
	simulator simulator
	limits    *ConnectionLimits
	clock     clockwork.Clock

	httpMetrics    *metrics.HTTPMetrics
	connMetrics    *metrics.ConnectionMetrics
	metricsHandler http.Handler
	upgrader       *websocket.Upgrader

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:           e,
		config:         cfg,
		engine:         deps.Engine,
		stats:          deps.Stats,
		simulator:      deps.Simulator,
		limits:         deps.Limits,
		clock:          clock,
		httpMetrics:    deps.HTTPMetrics,
		connMetrics:    deps.ConnMetrics,
		metricsHandler: deps.MetricsHandler,
		upgrader:       wsadapter.NewUpgrader(wsadapter.NewCheckOrigin(cfg.Origins(), cfg.IsDevelopment())),
		healthChecks:   deps.HealthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
