// Package notify owns the live observer set and the event fan-out. The
// valet service commits a status change first and hands the resulting event
// to a Fanout; everything in this package is best-effort from there on.
package notify

import (
	"context"
	"errors"

	"smart-valet/internal/domain/notification"
)

// TransportKind labels how an observer receives events.
type TransportKind string

const (
	TransportPush   TransportKind = "push"   // WebSocket board connections
	TransportStream TransportKind = "stream" // server-sent event streams
	TransportRelay  TransportKind = "relay"  // RabbitMQ relay
)

// String returns the string representation of the TransportKind.
func (kind TransportKind) String() string {
	return string(kind)
}

// ErrObserverDead marks a delivery failure that means the observer's
// connection is gone for good. The fan-out removes such observers; any
// other delivery error is logged and the observer kept.
var ErrObserverDead = errors.New("observer connection is dead")

// Observer is one live delivery channel. Implementations must be safe for
// concurrent Deliver calls and must tolerate Close after a failed Deliver.
type Observer interface {
	Deliver(ctx context.Context, ev notification.Event) error
	Close()
}
