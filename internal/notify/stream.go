package notify

import (
	"context"
	"fmt"
	"sync"

	"smart-valet/internal/domain/notification"
)

// StreamObserver buffers events for a server-sent event connection. The
// HTTP handler drains Events and writes SSE frames; Deliver never blocks
// the fan-out. A full buffer means the client stopped reading, which is
// treated the same as a closed connection.
type StreamObserver struct {
	mu     sync.Mutex
	ch     chan notification.Event
	closed bool
}

// NewStreamObserver creates a stream observer with the given buffer size.
func NewStreamObserver(buffer int) *StreamObserver {
	if buffer < 1 {
		buffer = 16
	}
	return &StreamObserver{ch: make(chan notification.Event, buffer)}
}

// Events is the channel the SSE handler drains.
func (obs *StreamObserver) Events() <-chan notification.Event {
	return obs.ch
}

// Deliver enqueues the event without blocking.
func (obs *StreamObserver) Deliver(ctx context.Context, ev notification.Event) error {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if obs.closed {
		return fmt.Errorf("stream closed: %w", ErrObserverDead)
	}

	select {
	case obs.ch <- ev:
		return nil
	default:
		return fmt.Errorf("stream buffer full: %w", ErrObserverDead)
	}
}

// Close stops the stream; the drained channel closing ends the handler loop.
func (obs *StreamObserver) Close() {
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if obs.closed {
		return
	}
	obs.closed = true
	close(obs.ch)
}
