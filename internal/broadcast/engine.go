package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/fault"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTickInterval  = 1 * time.Second
	DefaultSweepInterval = 30 * time.Second
	stopTimeout          = 10 * time.Second
)

// Decider gates each delivery attempt.
type Decider interface {
	Decide(t domain.Transport) fault.Outcome
}

// Config tunes the engine. Zero intervals fall back to the defaults.
type Config struct {
	TickInterval      time.Duration
	SweepInterval     time.Duration
	DeliveryMetrics   *metrics.DeliveryMetrics
	ConnectionMetrics *metrics.ConnectionMetrics
}

// Engine owns the tick loops and the liveness sweep.
type Engine struct {
	clock    clockwork.Clock
	registry *registry.Registry
	decider  Decider

	tickInterval  time.Duration
	sweepInterval time.Duration
	delivery      *metrics.DeliveryMetrics
	connMetrics   *metrics.ConnectionMetrics

	startOnce sync.Once
	stopOnce  sync.Once
	lifecycle sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	running   atomic.Bool
	wg        sync.WaitGroup

	// owned by the socket loop goroutine
	socketSeq uint64
}

// NewEngine creates a stopped engine. Call Start to run the loops.
func NewEngine(reg *registry.Registry, decider Decider, clock clockwork.Clock, cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		clock:         clock,
		registry:      reg,
		decider:       decider,
		tickInterval:  cfg.TickInterval,
		sweepInterval: cfg.SweepInterval,
		delivery:      cfg.DeliveryMetrics,
		connMetrics:   cfg.ConnectionMetrics,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the shared WebSocket tick loop and the liveness sweep.
// The loops run until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		if e.ctx.Err() != nil {
			return
		}
		e.running.Store(true)

		e.wg.Add(2)
		go e.runSocketLoop()
		go e.runSweeper()

		go func() {
			select {
			case <-ctx.Done():
				e.Stop()
			case <-e.ctx.Done():
			}
		}()

		slog.Info("Broadcast engine started", "tick_interval", e.tickInterval, "sweep_interval", e.sweepInterval)
	})
}

// Running reports whether the loops are active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stop cancels every loop and closes all connections.
// Blocks until the loops have exited or the stop timeout is reached.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.lifecycle.Lock()
		e.running.Store(false)
		e.cancel()
		e.lifecycle.Unlock()

		done := make(chan struct{})
		go func() {
			e.wg.Wait()
			close(done)
		}()

		timeout := e.clock.NewTimer(stopTimeout)
		defer timeout.Stop()

		select {
		case <-done:
		case <-timeout.Chan():
			slog.Warn("Broadcast engine stop timeout exceeded", "timeout", stopTimeout)
		}

		closed := e.registry.CloseAll()
		slog.Info("Broadcast engine stopped", "disconnected_clients", closed)
	})
}

// OpenStream subscribes a server-sent event sink. The connected confirmation
// is written before the connection joins the live set.
func (e *Engine) OpenStream(ctx context.Context, sink domain.Sender) (uuid.UUID, error) {
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()

	if !e.Running() {
		return uuid.Nil, domain.ErrEngineStopped
	}

	data, err := encodeStreamEvent(domain.ConnectedMessage{Type: "connected", Timestamp: e.nowMillis()})
	if err != nil {
		return uuid.Nil, err
	}
	if err := sink.Send(data); err != nil {
		return uuid.Nil, fmt.Errorf("send connected event: %w", err)
	}

	loopCtx, cancel := context.WithCancel(e.ctx)
	conn := e.registry.RegisterStream(ctx, sink, registry.WithRelease(cancel))

	e.wg.Add(1)
	go e.runStream(loopCtx, conn)

	return conn.ID, nil
}

// OpenSocket subscribes a WebSocket peer. Payloads reach it through its own
// writer goroutine. Unregistering terminates it.
func (e *Engine) OpenSocket(ctx context.Context, socket domain.SocketConn) (uuid.UUID, error) {
	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()

	if !e.Running() {
		return uuid.Nil, domain.ErrEngineStopped
	}

	data, err := encodeSocketMessage(domain.ConnectedMessage{
		Type:      "connected",
		Timestamp: e.nowMillis(),
		Protocol:  domain.TransportSocket.Protocol(),
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := socket.Send(data); err != nil {
		return uuid.Nil, fmt.Errorf("send connected message: %w", err)
	}

	writer := newSocketWriter(socket)
	conn := e.registry.RegisterSocket(ctx, socket,
		registry.WithSender(writer),
		registry.WithRelease(func() {
			writer.stop()
			if err := socket.Terminate(); err != nil {
				slog.DebugContext(ctx, "Terminate failed", "error", err)
			}
		}),
	)
	go writer.run(func(err error) { e.record(conn, err) })

	return conn.ID, nil
}

// Close unregisters a connection. Safe to call any number of times.
func (e *Engine) Close(id uuid.UUID) bool {
	return e.registry.Unregister(id)
}

// Done returns a channel closed once id is no longer registered.
// Unknown IDs yield an already closed channel.
func (e *Engine) Done(id uuid.UUID) <-chan struct{} {
	if conn, ok := e.registry.Get(id); ok {
		return conn.Done()
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Pong records a liveness probe response from a WebSocket peer.
func (e *Engine) Pong(id uuid.UUID) {
	if conn, ok := e.registry.Get(id); ok {
		conn.MarkAlive()
	}
}

func (e *Engine) nowMillis() int64 {
	return e.clock.Now().UnixMilli()
}

// guard keeps a panicking tick from killing its loop.
func (e *Engine) guard(loop string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcast loop panic recovered", "loop", loop, "panic", r)
		}
	}()
	fn()
}
