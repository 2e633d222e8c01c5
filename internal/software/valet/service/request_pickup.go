package service

import (
	"context"
	"errors"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/domain/vehicle"
)

// RequestPickup moves a vehicle to REQUESTED on behalf of a customer. The
// input is whatever the customer has: the access code from their link, or
// the plate number typed at the kiosk.
//
// The operation is idempotent past its own transition: a vehicle already
// REQUESTED or DELIVERED resolves as success with no state change and no
// event, so a re-submitted stale page never re-alerts staff.
func (service *valetService) RequestPickup(ctx context.Context, codeOrPlate string) (*vehicle.Vehicle, error) {
	var (
		out     *vehicle.Vehicle
		emitted *notification.Event
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		v, err := service.lookupByCodeOrPlate(txCtx, codeOrPlate)
		if err != nil {
			return err
		}

		// already at or past REQUESTED: idempotent success, no event
		if v.Status.Rank() >= vehicle.StatusRequested.Rank() {
			out = v
			return nil
		}

		updated, err := service.vehicleRepo.CompareAndTransition(
			txCtx, v.ID, v.Status, vehicle.StatusRequested, vehiclePatchNone())
		if errors.Is(err, vehicle.ErrStaleState) {
			// lost the race; the winner can only have moved the vehicle
			// forward, so the fresh state is this caller's success too
			fresh, ferr := service.vehicleRepo.GetByID(txCtx, v.ID)
			if ferr != nil {
				return ferr
			}
			out = fresh
			return nil
		}
		if err != nil {
			return err
		}

		out = updated
		ev := notification.NewVehicleRequested(updated.ID, updated.PlateNumber)
		emitted = &ev
		return nil
	})
	if err != nil {
		if !errors.Is(err, vehicle.ErrNotFound) {
			service.logger.Error(ctx, "pickup_request_failed", "Failed to process pickup request", err, nil)
		}
		return nil, err
	}

	ctx = service.logger.WithVehicleID(ctx, out.ID)
	service.logger.Info(ctx, "pickup_requested", "Pickup request processed", map[string]any{
		"plate_number":  out.PlateNumber,
		"status":        out.Status.String(),
		"event_emitted": emitted != nil,
	})

	// dispatch only after the transition committed, and never on the
	// caller's critical path
	if emitted != nil {
		go service.broadcaster.Broadcast(context.WithoutCancel(ctx), *emitted)
	}

	return out, nil
}
