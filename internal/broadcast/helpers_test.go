package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/fault"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

var errPeerGone = errors.New("peer gone")

// recordingSender captures every message written to it.
type recordingSender struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (s *recordingSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, append([]byte(nil), data...))
	return nil
}

func (s *recordingSender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *recordingSender) messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// recordingSocket adds probe and terminate tracking.
type recordingSocket struct {
	recordingSender
	probes     atomic.Int32
	terminated atomic.Int32
	probeErr   error
}

func (s *recordingSocket) Probe() error {
	s.probes.Add(1)
	return s.probeErr
}

func (s *recordingSocket) Terminate() error {
	s.terminated.Add(1)
	return nil
}

type testEngine struct {
	*Engine
	clock    *clockwork.FakeClock
	registry *registry.Registry
	injector *fault.Injector
	delivery *metrics.DeliveryMetrics
	conns    *metrics.ConnectionMetrics
}

func newTestEngine(t *testing.T, params domain.SimulationParameters, cfg Config) *testEngine {
	t.Helper()

	clock := clockwork.NewFakeClock()
	promReg := prometheus.NewRegistry()
	connMetrics := metrics.NewConnectionMetrics(promReg)
	deliveryMetrics := metrics.NewDeliveryMetrics(promReg)

	reg := registry.New(clock, connMetrics)
	injector, err := fault.NewInjector(params, fault.NewSeededSource(1))
	require.NoError(t, err)

	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	cfg.DeliveryMetrics = deliveryMetrics
	cfg.ConnectionMetrics = connMetrics

	engine := NewEngine(reg, injector, clock, cfg)
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)

	te := &testEngine{Engine: engine, clock: clock, registry: reg, injector: injector, delivery: deliveryMetrics, conns: connMetrics}
	te.waitForWaiters(t, 2) // socket loop + sweeper
	return te
}

func (te *testEngine) waitForWaiters(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, te.clock.BlockUntilContext(ctx, n))
}

func (te *testEngine) attempts(transport, result string) int {
	return int(testutil.ToFloat64(te.delivery.Attempts.WithLabelValues(transport, result)))
}

func (te *testEngine) totalAttempts() int {
	total := 0
	for _, transport := range []string{"sse", "websocket"} {
		for _, result := range []string{
			metrics.ResultDelivered, metrics.ResultDroppedOutage, metrics.ResultDroppedLoss,
			metrics.ResultFailed, metrics.ResultStale,
		} {
			total += te.attempts(transport, result)
		}
	}
	return total
}

// tick advances one tick interval and waits until want attempts in total were made.
func (te *testEngine) tick(t *testing.T, want int) {
	t.Helper()
	te.clock.Advance(te.tickInterval)
	require.Eventually(t, func() bool { return te.totalAttempts() >= want }, waitFor, time.Millisecond,
		"expected %d delivery attempts, got %d", want, te.totalAttempts())
}

func decodeStreamPayloads(t *testing.T, frames [][]byte) []domain.Payload {
	t.Helper()
	out := make([]domain.Payload, 0, len(frames))
	for _, frame := range frames {
		require.True(t, bytes.HasPrefix(frame, []byte("data: ")), "frame %q", frame)
		require.True(t, bytes.HasSuffix(frame, []byte("\n\n")), "frame %q", frame)
		body := bytes.TrimSuffix(bytes.TrimPrefix(frame, []byte("data: ")), []byte("\n\n"))
		var p domain.Payload
		require.NoError(t, json.Unmarshal(body, &p))
		out = append(out, p)
	}
	return out
}

func decodeSocketPayloads(t *testing.T, msgs [][]byte) []domain.Payload {
	t.Helper()
	out := make([]domain.Payload, 0, len(msgs))
	for _, msg := range msgs {
		var p domain.Payload
		require.NoError(t, json.Unmarshal(msg, &p))
		out = append(out, p)
	}
	return out
}

// stallingSocket accepts the connected message and then blocks every write
// until it is terminated, like a peer that stopped reading.
type stallingSocket struct {
	recordingSocket
	sends     atomic.Int32
	unblocked chan struct{}
	once      sync.Once
}

func newStallingSocket() *stallingSocket {
	return &stallingSocket{unblocked: make(chan struct{})}
}

func (s *stallingSocket) Send(data []byte) error {
	if s.sends.Add(1) > 1 {
		<-s.unblocked
		return errPeerGone
	}
	return s.recordingSocket.Send(data)
}

func (s *stallingSocket) Terminate() error {
	s.once.Do(func() { close(s.unblocked) })
	return s.recordingSocket.Terminate()
}
