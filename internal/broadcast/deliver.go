package broadcast

import (
	"errors"
	"log/slog"

	"github.com/haibadguy/websocket-vs-sse/internal/adapter/metrics"
	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/fault"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
)

// deliver gates one payload for one recipient. Drops are final; passes are
// written inline when undelayed, otherwise after the injected delay.
func (e *Engine) deliver(conn *registry.Connection, data []byte) {
	transport := conn.Transport.String()

	outcome := e.decider.Decide(conn.Transport)
	if outcome.Dropped() {
		e.delivery.Observe(transport, dropResult(outcome.Drop))
		slog.DebugContext(conn.Context(), "Delivery dropped", "transport", transport, "connection_id", conn.ID.String(), "reason", outcome.Drop)
		return
	}

	e.delivery.ObserveDelay(transport, outcome.Delay.Seconds())
	if outcome.Delay <= 0 {
		e.write(conn, data)
		return
	}

	e.clock.AfterFunc(outcome.Delay, func() {
		e.guard("delayed_write", func() { e.write(conn, data) })
	})
}

// write hands data to the peer unless the connection went away during the
// delay window. Socket payloads are only queued here; their writer reports the
// outcome once the write completes. Failures are isolated to this recipient.
func (e *Engine) write(conn *registry.Connection, data []byte) {
	transport := conn.Transport.String()

	if !e.registry.IsLive(conn.ID) {
		e.delivery.Observe(transport, metrics.ResultStale)
		return
	}

	err := conn.Send(data)
	if conn.Transport != domain.TransportSocket {
		e.record(conn, err)
		return
	}
	if err == nil {
		return
	}

	e.record(conn, err)
	if errors.Is(err, errSocketBacklog) {
		e.evict(conn)
	}
}

// record accounts for one completed write.
func (e *Engine) record(conn *registry.Connection, err error) {
	transport := conn.Transport.String()

	if err != nil {
		e.delivery.Observe(transport, metrics.ResultFailed)
		slog.DebugContext(conn.Context(), "Delivery failed", "transport", transport, "connection_id", conn.ID.String(), "error", err)
		return
	}

	e.registry.RecordDelivery()
	e.delivery.Observe(transport, metrics.ResultDelivered)
}

// evict disconnects a socket whose writer fell a full queue behind.
func (e *Engine) evict(conn *registry.Connection) {
	if e.registry.Unregister(conn.ID) {
		e.connMetrics.ConnectionEvicted()
		slog.WarnContext(conn.Context(), "Disconnecting slow client", "connection_id", conn.ID.String(), "queue_size", socketQueueSize)
	}
}

func dropResult(reason fault.DropReason) string {
	if reason == fault.DropOutage {
		return metrics.ResultDroppedOutage
	}
	return metrics.ResultDroppedLoss
}
