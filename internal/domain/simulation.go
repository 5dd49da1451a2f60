package domain

// SimulationParameters controls the fault injector.
type SimulationParameters struct {
	Outage       bool    `json:"outage"`
	LatencyMinMs int     `json:"latencyMinMs"`
	LatencyMaxMs int     `json:"latencyMaxMs"`
	LossPercent  float64 `json:"lossPercent"`
}

// Stats is the read-only snapshot served by the stats endpoint.
type Stats struct {
	StreamClients int                  `json:"sseClients"`
	SocketClients int                  `json:"wsClients"`
	MessagesSent  uint64               `json:"messagesSent"`
	UptimeMs      int64                `json:"uptime"`
	Simulation    SimulationParameters `json:"simulation"`
}
