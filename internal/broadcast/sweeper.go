package broadcast

import (
	"log/slog"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
)

// runSweeper probes WebSocket peers every sweep interval.
func (e *Engine) runSweeper() {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.Chan():
			e.guard("sweeper", e.sweep)
		}
	}
}

// sweep reaps sockets that did not answer the previous probe and probes the rest.
// A peer silent for two sweep periods is gone by the end of the second sweep.
func (e *Engine) sweep() {
	reaped := 0
	for _, conn := range e.registry.Live(domain.TransportSocket) {
		if !conn.ConsumeAlive() {
			if e.registry.Unregister(conn.ID) {
				reaped++
				e.connMetrics.ConnectionReaped()
				slog.InfoContext(conn.Context(), "Reaped unresponsive client", "connection_id", conn.ID.String())
			}
			continue
		}

		if err := conn.Socket().Probe(); err != nil {
			slog.DebugContext(conn.Context(), "Liveness probe failed", "connection_id", conn.ID.String(), "error", err)
		}
	}

	if reaped > 0 {
		slog.Info("Liveness sweep complete", "reaped", reaped, "remaining", e.registry.Count(domain.TransportSocket))
	}
}
