package broadcast

import (
	"log/slog"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
)

// runSocketLoop fires one shared tick for every WebSocket subscriber.
func (e *Engine) runSocketLoop() {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.Chan():
			e.guard("socket", e.socketTick)
		}
	}
}

// socketTick builds one payload and offers it to every live socket.
// The sequence advances even when nobody is connected.
func (e *Engine) socketTick() {
	seq := e.socketSeq
	e.socketSeq++

	payload := domain.NewPayload(domain.TransportSocket, e.nowMillis(), seq)
	data, err := encodeSocketMessage(payload)
	if err != nil {
		slog.Error("Failed to encode socket payload", "error", err)
		return
	}

	for _, conn := range e.registry.Live(domain.TransportSocket) {
		e.deliver(conn, data)
	}
}
