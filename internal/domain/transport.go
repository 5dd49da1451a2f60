package domain

// Transport identifies one of the two delivery mechanisms.
type Transport string

const (
	TransportStream Transport = "sse"
	TransportSocket Transport = "websocket"
)

// Protocol is the literal written into the payload's protocol field.
func (t Transport) Protocol() string {
	switch t {
	case TransportStream:
		return "SSE"
	case TransportSocket:
		return "WebSocket"
	default:
		return string(t)
	}
}

func (t Transport) String() string {
	return string(t)
}

// Sender writes one already-encoded message to a single peer.
// Implementations must be safe for concurrent use and must return an error
// wrapping ErrDeliveryFailure or ErrConnectionClosed instead of panicking
// when the peer is gone.
type Sender interface {
	Send(data []byte) error
}

// SocketConn is the capability set a bidirectional transport hands to the engine.
type SocketConn interface {
	Sender
	// Probe sends a liveness request; the peer answers asynchronously.
	Probe() error
	// Terminate closes the underlying connection without a handshake.
	Terminate() error
}
