package broadcast

import (
	"errors"
	"sync"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
)

const socketQueueSize = 16

var errSocketBacklog = errors.New("socket send queue full")

// socketWriter owns all payload writes to one WebSocket peer. Payloads are
// queued without blocking and written in order on the writer's goroutine, so
// a peer that stops reading only delays itself.
type socketWriter struct {
	socket   domain.SocketConn
	queue    chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newSocketWriter(socket domain.SocketConn) *socketWriter {
	return &socketWriter{
		socket: socket,
		queue:  make(chan []byte, socketQueueSize),
		done:   make(chan struct{}),
	}
}

// Send queues data. It fails with errSocketBacklog when the peer has fallen a
// full queue behind.
func (w *socketWriter) Send(data []byte) error {
	select {
	case <-w.done:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case w.queue <- data:
		return nil
	default:
		return errSocketBacklog
	}
}

// run writes queued payloads until stop is called. report receives the result
// of every write.
func (w *socketWriter) run(report func(err error)) {
	for {
		select {
		case <-w.done:
			return
		case data := <-w.queue:
			select {
			case <-w.done:
				return
			default:
			}
			report(w.socket.Send(data))
		}
	}
}

// stop discards anything still queued. A write in progress finishes or fails
// on its own once the socket is terminated.
func (w *socketWriter) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}
