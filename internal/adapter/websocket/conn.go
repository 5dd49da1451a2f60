// Package websocket adapts gorilla/websocket connections to the socket
// capability the broadcast engine drives.
package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline  = 5 * time.Second
	maxMessageSize = 4096
	bufferSize     = 1024
)

// NewUpgrader returns an upgrader that checks origins with checkOrigin.
func NewUpgrader(checkOrigin func(r *http.Request) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  bufferSize,
		WriteBufferSize: bufferSize,
		CheckOrigin:     checkOrigin,
	}
}

// Conn serializes writes to one gorilla connection.
// Control frames go through WriteControl, which is safe alongside data writes.
type Conn struct {
	conn      *websocket.Conn
	clock     clockwork.Clock
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewConn(conn *websocket.Conn, clock clockwork.Clock) *Conn {
	conn.SetReadLimit(maxMessageSize)
	return &Conn{conn: conn, clock: clock}
}

// OnPong registers fn to run on every pong frame. Call before ReadLoop.
func (c *Conn) OnPong(fn func()) {
	c.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

// Send writes one text message.
func (c *Conn) Send(data []byte) error {
	if c.closed.Load() {
		return domain.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(c.deadline())
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)
	}
	return nil
}

// Probe sends a ping control frame.
func (c *Conn) Probe() error {
	if c.closed.Load() {
		return domain.ErrConnectionClosed
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, c.deadline()); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrDeliveryFailure, err)
	}
	return nil
}

// Terminate sends a close frame and closes the underlying connection without
// waiting on an in-flight write. Only the first call has any effect.
func (c *Conn) Terminate() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		// A Send stuck on a peer that stopped reading holds writeMu. Skip the
		// close frame then; closing the connection fails the stuck write.
		if c.writeMu.TryLock() {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, c.deadline())
			c.writeMu.Unlock()
		}
		err = c.conn.Close()
	})
	return err
}

// ReadLoop consumes incoming frames until the peer closes or the connection
// fails. Client messages carry no meaning and are discarded; reading is what
// drives the pong and close handlers.
func (c *Conn) ReadLoop() error {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func (c *Conn) deadline() time.Time {
	return c.clock.Now().Add(writeDeadline)
}
