package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
)

// Connection is the record kept for one live subscriber.
type Connection struct {
	ID        uuid.UUID
	Transport domain.Transport

	sender domain.Sender
	socket domain.SocketConn

	alive atomic.Bool
	seq   atomic.Uint64

	// logCtx carries request-scoped log attributes such as the correlation ID.
	logCtx context.Context

	releaseOnce sync.Once
	release     func()
	done        chan struct{}
}

// Send writes data to the peer.
func (c *Connection) Send(data []byte) error {
	return c.sender.Send(data)
}

// Context returns the context the connection logs with. It is never cancelled.
func (c *Connection) Context() context.Context {
	return c.logCtx
}

// Socket returns the socket capability, or nil for stream connections.
func (c *Connection) Socket() domain.SocketConn {
	return c.socket
}

// NextSequence returns the connection-local sequence value and advances it.
func (c *Connection) NextSequence() uint64 {
	return c.seq.Add(1) - 1
}

// MarkAlive records a probe response.
func (c *Connection) MarkAlive() {
	c.alive.Store(true)
}

// ConsumeAlive clears the liveness flag and reports whether it was set.
func (c *Connection) ConsumeAlive() bool {
	return c.alive.Swap(false)
}

// Alive reports the current liveness flag.
func (c *Connection) Alive() bool {
	return c.alive.Load()
}

// Done is closed once the connection has been unregistered.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) runRelease() {
	c.releaseOnce.Do(func() {
		if c.release != nil {
			c.release()
		}
		close(c.done)
	})
}

// Option configures a connection at registration.
type Option func(*Connection)

// WithRelease sets a hook run exactly once when the connection is unregistered.
func WithRelease(fn func()) Option {
	return func(c *Connection) { c.release = fn }
}

// WithSender routes Send through s instead of the transport itself.
func WithSender(s domain.Sender) Option {
	return func(c *Connection) { c.sender = s }
}
