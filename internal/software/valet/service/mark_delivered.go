package service

import (
	"context"
	"errors"
	"fmt"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/ports"
)

// MarkDelivered closes a vehicle's lifecycle. The staff action always moves
// forward from whatever state the vehicle is in; a repeated call finds the
// vehicle DELIVERED and is a no-op with no event.
func (service *valetService) MarkDelivered(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error) {
	ctx = service.logger.WithVehicleID(ctx, vehicleID)

	var (
		out     *vehicle.Vehicle
		emitted *notification.Event
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// two attempts: the initial one plus one retry after a lost race
		for attempt := 0; attempt < 2; attempt++ {
			v, err := service.vehicleRepo.GetByID(txCtx, vehicleID)
			if err != nil {
				return err
			}

			if v.Status.Terminal() {
				// duplicate delivery confirmation; must not corrupt state
				out = v
				return nil
			}

			updated, err := service.vehicleRepo.CompareAndTransition(
				txCtx, v.ID, v.Status, vehicle.StatusDelivered, vehiclePatchNone())
			if errors.Is(err, vehicle.ErrStaleState) {
				continue
			}
			if err != nil {
				return err
			}

			out = updated
			ev := notification.NewVehicleDelivered(updated.ID, updated.PlateNumber)
			emitted = &ev
			return nil
		}

		return fmt.Errorf("mark delivered for %s: %w", vehicleID, vehicle.ErrConcurrentModification)
	})
	if err != nil {
		if !errors.Is(err, vehicle.ErrNotFound) {
			service.logger.Error(ctx, "delivery_mark_failed", "Failed to mark vehicle delivered", err, nil)
		}
		return nil, err
	}

	service.logger.Info(ctx, "vehicle_delivered", "Vehicle marked as delivered", map[string]any{
		"plate_number":  out.PlateNumber,
		"event_emitted": emitted != nil,
	})

	if emitted != nil {
		go service.broadcaster.Broadcast(context.WithoutCancel(ctx), *emitted)
	}

	return out, nil
}

// vehiclePatchNone is the empty patch for pure status transitions.
func vehiclePatchNone() ports.VehiclePatch {
	return ports.VehiclePatch{}
}
