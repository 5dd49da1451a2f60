package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Registry owns the live connection sets and the global counters.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.Transport]map[uuid.UUID]*Connection
	index map[uuid.UUID]*Connection

	messagesSent atomic.Uint64
	startTime    time.Time

	connMetrics *metrics.ConnectionMetrics
}

// New creates an empty registry whose start time is clock.Now().
func New(clock clockwork.Clock, connMetrics *metrics.ConnectionMetrics) *Registry {
	return &Registry{
		conns: map[domain.Transport]map[uuid.UUID]*Connection{
			domain.TransportStream: {},
			domain.TransportSocket: {},
		},
		index:       make(map[uuid.UUID]*Connection),
		startTime:   clock.Now(),
		connMetrics: connMetrics,
	}
}

// RegisterStream adds a server-push subscriber.
func (r *Registry) RegisterStream(ctx context.Context, sender domain.Sender, opts ...Option) *Connection {
	conn := &Connection{ID: uuid.New(), Transport: domain.TransportStream, sender: sender}
	return r.add(ctx, conn, opts)
}

// RegisterSocket adds a bidirectional subscriber with its liveness flag set.
func (r *Registry) RegisterSocket(ctx context.Context, socket domain.SocketConn, opts ...Option) *Connection {
	conn := &Connection{ID: uuid.New(), Transport: domain.TransportSocket, sender: socket, socket: socket}
	conn.alive.Store(true)
	return r.add(ctx, conn, opts)
}

func (r *Registry) add(ctx context.Context, conn *Connection, opts []Option) *Connection {
	conn.done = make(chan struct{})
	conn.logCtx = context.WithoutCancel(ctx)
	for _, opt := range opts {
		opt(conn)
	}

	r.mu.Lock()
	r.conns[conn.Transport][conn.ID] = conn
	r.index[conn.ID] = conn
	total := len(r.conns[conn.Transport])
	r.mu.Unlock()

	r.connMetrics.ConnectionOpened(conn.Transport.String())
	slog.InfoContext(conn.logCtx, "Client connected", "transport", conn.Transport, "connection_id", conn.ID.String(), "total", total)
	return conn
}

// Unregister removes the connection and runs its release hook.
// Only the call that actually removed the record returns true; repeated
// close or error signals for the same ID are absorbed.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	conn, exists := r.index[id]
	if !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.index, id)
	delete(r.conns[conn.Transport], id)
	remaining := len(r.conns[conn.Transport])
	r.mu.Unlock()

	conn.runRelease()
	r.connMetrics.ConnectionClosed(conn.Transport.String())
	slog.InfoContext(conn.logCtx, "Client disconnected", "transport", conn.Transport, "connection_id", id.String(), "total", remaining)
	return true
}

// Get returns the live connection with the given ID.
func (r *Registry) Get(id uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.index[id]
	return conn, ok
}

// IsLive reports whether id is still registered.
func (r *Registry) IsLive(id uuid.UUID) bool {
	_, ok := r.Get(id)
	return ok
}

// Live returns a snapshot of the live connections of one transport.
// The slice is a copy; unregistering during iteration is safe.
func (r *Registry) Live(t domain.Transport) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[t]
	out := make([]*Connection, 0, len(set))
	for _, conn := range set {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of live connections of one transport.
func (r *Registry) Count(t domain.Transport) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[t])
}

// CloseAll unregisters every connection and returns how many were removed.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.index))
	for id := range r.index {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	closed := 0
	for _, id := range ids {
		if r.Unregister(id) {
			closed++
		}
	}
	return closed
}

// RecordDelivery counts one successful write.
func (r *Registry) RecordDelivery() {
	r.messagesSent.Add(1)
}

// MessagesSent returns the cumulative successful deliveries.
func (r *Registry) MessagesSent() uint64 {
	return r.messagesSent.Load()
}

// StartTime returns the instant the registry was created.
func (r *Registry) StartTime() time.Time {
	return r.startTime
}
