package httpserver

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/adapter/sse"
	wsadapter "github.com/haibadguy/websocket-vs-sse/internal/adapter/websocket"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	apperrors "github.com/haibadguy/websocket-vs-sse/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerStreamRoutes() {
	s.echo.GET("/sse", s.handleSSE, s.admit)
	s.echo.GET("/ws", s.handleWebSocket, s.admit)
}

// admit holds a connection slot for the lifetime of the handler.
func (s *Server) admit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limits == nil {
			return next(c)
		}

		ip := c.RealIP()
		ok, reason := s.limits.Acquire(ip)
		if !ok {
			s.connMetrics.ConnectionRejected(string(reason))
			if reason == LimitReasonRate {
				return apperrors.RateLimitedError("too many connection attempts").WithField("reason", string(reason))
			}
			return apperrors.UnavailableError("connection limit reached", nil).WithField("reason", string(reason))
		}
		defer s.limits.Release(ip)

		return next(c)
	}
}

func (s *Server) handleSSE(c echo.Context) error {
	ctx := c.Request().Context()

	// Opening the sink commits a 200, so refuse before that.
	if !s.engine.Running() {
		return domain.ErrEngineStopped
	}

	sink := sse.NewSink(c.Response(), s.clock)
	if err := sink.Open(); err != nil {
		return apperrors.InternalError("streaming not supported", err)
	}
	defer sink.Close()

	id, err := s.engine.OpenStream(ctx, sink)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Stream subscribed", "connection_id", id.String(), "remote_ip", c.RealIP())

	// Either the client goes away or the engine drops the connection on shutdown.
	select {
	case <-ctx.Done():
	case <-s.engine.Done(id):
	}

	s.engine.Close(id)
	return nil
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()

	if !s.engine.Running() {
		return domain.ErrEngineStopped
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		slog.DebugContext(ctx, "WebSocket upgrade failed", "error", err)
		return nil
	}

	conn := wsadapter.NewConn(ws, s.clock)
	id, err := s.engine.OpenSocket(ctx, conn)
	if err != nil {
		_ = conn.Terminate()
		slog.WarnContext(ctx, "WebSocket subscription refused", "error", err)
		return nil
	}
	conn.OnPong(func() { s.engine.Pong(id) })
	slog.DebugContext(ctx, "Socket subscribed", "connection_id", id.String(), "remote_ip", c.RealIP())

	// Terminate on unregister unblocks the read loop.
	err = conn.ReadLoop()
	s.engine.Close(id)

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		slog.DebugContext(ctx, "Socket read failed", "connection_id", id.String(), "error", err)
	}
	return nil
}
