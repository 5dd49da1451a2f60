package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/broadcast"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/fault"
	"github.com/haibadguy/websocket-vs-sse/internal/platform/config"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
	"github.com/haibadguy/websocket-vs-sse/internal/stats"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testServer struct {
	*Server
	cfg         *config.Config
	engine      *broadcast.Engine
	registry    *registry.Registry
	injector    *fault.Injector
	engineClock *clockwork.FakeClock
	connMetrics *metrics.ConnectionMetrics
}

type testOption func(*config.Config, *Dependencies)

func withConfig(fn func(*config.Config)) testOption {
	return func(cfg *config.Config, _ *Dependencies) { fn(cfg) }
}

func withHealthChecks(checks ...HealthCheck) testOption {
	return func(_ *config.Config, deps *Dependencies) { deps.HealthChecks = checks }
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "0",
		TickInterval:        time.Second,
		SweepInterval:       30 * time.Second,
		MaxConnections:      100,
		MaxConnectionsPerIP: 100,
		ConnectRate:         1000,
		ConnectBurst:        1000,
		ControlRate:         1000,
		ControlBurst:        1000,
	}
}

// newTestServer wires a real engine driven by a fake clock. The HTTP side
// keeps a real clock so socket and stream write deadlines behave normally.
func newTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	cfg := defaultTestConfig()
	deps := Dependencies{}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	engineClock := clockwork.NewFakeClock()
	promReg := prometheus.NewRegistry()
	connMetrics := metrics.NewConnectionMetrics(promReg)

	reg := registry.New(engineClock, connMetrics)
	injector, err := fault.NewInjector(domain.SimulationParameters{}, fault.NewSeededSource(1))
	require.NoError(t, err)

	engine := broadcast.NewEngine(reg, injector, engineClock, broadcast.Config{
		TickInterval:      cfg.TickInterval,
		SweepInterval:     cfg.SweepInterval,
		DeliveryMetrics:   metrics.NewDeliveryMetrics(promReg),
		ConnectionMetrics: connMetrics,
	})
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)

	deps.Engine = engine
	deps.Stats = stats.NewReporter(reg, injector, engineClock)
	deps.Simulator = injector
	deps.Limits = NewConnectionLimits(clockwork.NewRealClock(), cfg.MaxConnections, cfg.MaxConnectionsPerIP, cfg.ConnectRate, cfg.ConnectBurst)
	deps.HTTPMetrics = metrics.NewHTTPMetrics(promReg, "/metrics", "/health/", "/sse", "/ws")
	deps.ConnMetrics = connMetrics
	deps.MetricsHandler = metrics.Handler(promReg)

	return &testServer{
		Server:      NewServer(cfg, deps),
		cfg:         cfg,
		engine:      engine,
		registry:    reg,
		injector:    injector,
		engineClock: engineClock,
		connMetrics: connMetrics,
	}
}

// serve starts a real listener for the streaming endpoints.
func (ts *testServer) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(ts.Server)
	t.Cleanup(srv.Close)
	return srv
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) waitForEngineWaiters(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, ts.engineClock.BlockUntilContext(ctx, n))
}

func (ts *testServer) doWithOrigin(t *testing.T, path, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}
