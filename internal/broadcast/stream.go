package broadcast

import (
	"context"
	"log/slog"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
)

// runStream drives one server-sent event subscriber from its own connect time.
// It exits when the connection is unregistered or the engine stops.
func (e *Engine) runStream(ctx context.Context, conn *registry.Connection) {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.guard("stream", func() { e.streamTick(conn) })
		}
	}
}

func (e *Engine) streamTick(conn *registry.Connection) {
	payload := domain.NewPayload(domain.TransportStream, e.nowMillis(), conn.NextSequence())
	data, err := encodeStreamEvent(payload)
	if err != nil {
		slog.Error("Failed to encode stream payload", "error", err)
		return
	}
	e.deliver(conn, data)
}
