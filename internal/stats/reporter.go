// Package stats assembles the read-only server snapshot.
package stats

import (
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/haibadguy/websocket-vs-sse/internal/registry"
	"github.com/jonboulle/clockwork"
)

// ParamsSource exposes the current fault-injection parameters.
type ParamsSource interface {
	Params() domain.SimulationParameters
}

// Reporter builds Stats snapshots. It never mutates anything it reads.
type Reporter struct {
	registry *registry.Registry
	params   ParamsSource
	clock    clockwork.Clock
}

func NewReporter(reg *registry.Registry, params ParamsSource, clock clockwork.Clock) *Reporter {
	return &Reporter{registry: reg, params: params, clock: clock}
}

// Snapshot returns current counts, messages sent, uptime in milliseconds and
// the active simulation parameters.
func (r *Reporter) Snapshot() domain.Stats {
	return domain.Stats{
		StreamClients: r.registry.Count(domain.TransportStream),
		SocketClients: r.registry.Count(domain.TransportSocket),
		MessagesSent:  r.registry.MessagesSent(),
		UptimeMs:      r.Uptime().Milliseconds(),
		Simulation:    r.params.Params(),
	}
}

// Uptime is the time since the registry was created, never negative.
func (r *Reporter) Uptime() time.Duration {
	return max(r.clock.Since(r.registry.StartTime()), 0)
}
