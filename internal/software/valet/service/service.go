package service

import (
	"context"
	"errors"
	"strings"

	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/general/logger"
	"smart-valet/internal/general/shortcode"
	"smart-valet/internal/ports"
)

// valetService drives the vehicle lifecycle: it validates transitions
// against the store, commits them through the conditional-update contract,
// and hands the resulting events to the broadcaster after commit.
type valetService struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	vehicleRepo ports.VehicleRepository
	issuer      *shortcode.Issuer
	broadcaster ports.EventBroadcaster
	baseURL     string
}

// NewValetService creates a new instance of the ValetService with the provided dependencies.
func NewValetService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	vehicleRepo ports.VehicleRepository,
	issuer *shortcode.Issuer,
	broadcaster ports.EventBroadcaster,
	baseURL string,
) ports.ValetService {
	return &valetService{
		logger:      logger,
		uow:         uow,
		vehicleRepo: vehicleRepo,
		issuer:      issuer,
		broadcaster: broadcaster,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// tokenTaken adapts the repository's collision check to the issuer.
func (service *valetService) tokenTaken(ctx context.Context, code string) (bool, error) {
	inUse, err := service.vehicleRepo.TokenInUse(ctx, code)
	if err != nil {
		return true, err
	}
	return inUse, nil
}

// lookupByCodeOrPlate resolves customer input: access code first, then
// plate number. Must run inside a unit of work.
func (service *valetService) lookupByCodeOrPlate(ctx context.Context, codeOrPlate string) (*vehicle.Vehicle, error) {
	in := strings.TrimSpace(codeOrPlate)
	if in == "" {
		return nil, vehicle.ErrNotFound
	}

	v, err := service.vehicleRepo.GetByToken(ctx, in)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, vehicle.ErrNotFound) {
		return nil, err
	}

	return service.vehicleRepo.GetByPlate(ctx, strings.ToUpper(in))
}
