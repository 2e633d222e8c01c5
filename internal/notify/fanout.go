package notify

import (
	"context"
	"errors"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/general/logger"
)

// Fanout pushes one event to every registered observer. Delivery is
// fire-and-forget: a failing observer is logged (and removed when dead) but
// can never fail the broadcast or starve the remaining observers.
type Fanout struct {
	registry *Registry
	logger   *logger.Logger
}

// NewFanout wires a fan-out over the given registry.
func NewFanout(registry *Registry, logger *logger.Logger) *Fanout {
	return &Fanout{registry: registry, logger: logger}
}

// Broadcast snapshots the registry and attempts delivery to each observer
// in registration order. It returns only after every observer has been
// attempted and has no failure mode from the caller's perspective.
func (fanout *Fanout) Broadcast(ctx context.Context, ev notification.Event) {
	entries := fanout.registry.Snapshot()

	delivered := 0
	for _, entry := range entries {
		err := entry.Observer.Deliver(ctx, ev)
		if err == nil {
			delivered++
			continue
		}

		fanout.logger.Warn(ctx, "event_delivery_failed",
			"Failed to deliver notification event to observer",
			map[string]any{
				"observer_id": entry.ID,
				"transport":   entry.Kind.String(),
				"event_kind":  ev.Kind.String(),
				"vehicle_id":  ev.VehicleID,
				"error":       err.Error(),
			},
		)

		// only failures that mean a closed connection evict the observer
		if errors.Is(err, ErrObserverDead) {
			fanout.registry.Unregister(entry.ID)
			entry.Observer.Close()
		}
	}

	fanout.logger.Debug(ctx, "event_broadcast",
		"Notification event fanned out",
		map[string]any{
			"event_kind": ev.Kind.String(),
			"vehicle_id": ev.VehicleID,
			"observers":  len(entries),
			"delivered":  delivered,
		},
	)
}
