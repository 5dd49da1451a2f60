package domain

// Payload is the tick message fanned out to subscribers.
type Payload struct {
	Timestamp int64  `json:"ts"`
	Sequence  uint64 `json:"seq"`
	Protocol  string `json:"protocol"`
}

// NewPayload builds the payload for one tick of the given transport.
func NewPayload(t Transport, tsMillis int64, seq uint64) Payload {
	return Payload{Timestamp: tsMillis, Sequence: seq, Protocol: t.Protocol()}
}

// ConnectedMessage confirms a subscription right after registration.
type ConnectedMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"ts"`
	Protocol  string `json:"protocol,omitempty"`
}
