// Package sse adapts an HTTP response into a server-sent event sink.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/haibadguy/websocket-vs-sse/internal/domain"
	"github.com/jonboulle/clockwork"
)

const writeDeadline = 5 * time.Second

// Sink writes pre-framed event chunks to one response and flushes each.
// After Close it refuses writes, since the handler owning the response has returned.
type Sink struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	clock  clockwork.Clock
	closed bool
}

func NewSink(w http.ResponseWriter, clock clockwork.Clock) *Sink {
	return &Sink{w: w, rc: http.NewResponseController(w), clock: clock}
}

// Open writes the event-stream headers and flushes them to the client.
func (s *Sink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	s.w.WriteHeader(http.StatusOK)

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("%w: flush headers: %w", domain.ErrDeliveryFailure, err)
	}
	return nil
}

// Send writes one chunk. Writes are serialized.
func (s *Sink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrConnectionClosed
	}

	// Not every writer supports deadlines (httptest recorders don't).
	_ = s.rc.SetWriteDeadline(s.clock.Now().Add(writeDeadline))

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", domain.ErrDeliveryFailure, err)
	}
	return nil
}

// Close marks the sink closed. Waits for an in-flight Send to finish.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	_ = s.rc.SetWriteDeadline(time.Time{})
}

// Closed reports whether Close was called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
