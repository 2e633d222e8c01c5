package service

import (
	"context"

	"smart-valet/internal/domain/vehicle"
)

// CreateVehicle checks a car into the lot in IDLE state.
func (service *valetService) CreateVehicle(ctx context.Context, plateNumber string) (*vehicle.Vehicle, error) {
	v, err := vehicle.NewVehicle(plateNumber)
	if err != nil {
		return nil, err
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.vehicleRepo.Create(txCtx, v)
	})
	if err != nil {
		service.logger.Error(ctx, "vehicle_create_failed", "Failed to check in vehicle", err, map[string]any{
			"plate_number": v.PlateNumber,
		})
		return nil, err
	}

	service.logger.Info(service.logger.WithVehicleID(ctx, v.ID), "vehicle_created", "Vehicle checked in",
		map[string]any{"plate_number": v.PlateNumber})

	return v, nil
}

// ListActiveVehicles returns every vehicle still in the lot.
func (service *valetService) ListActiveVehicles(ctx context.Context) ([]*vehicle.Vehicle, error) {
	var out []*vehicle.Vehicle

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = service.vehicleRepo.ListActive(txCtx)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "vehicle_list_failed", "Failed to list active vehicles", err, nil)
		return nil, err
	}

	return out, nil
}

// GetVehicleByToken backs the customer-facing status page.
func (service *valetService) GetVehicleByToken(ctx context.Context, token string) (*vehicle.Vehicle, error) {
	var out *vehicle.Vehicle

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = service.vehicleRepo.GetByToken(txCtx, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
