package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/ports"
)

// IssueLink mints a fresh access code for the vehicle, stores it together
// with the phone contact, and moves the vehicle to LINK_ISSUED.
//
// Re-issuing on a LINK_ISSUED vehicle is allowed and replaces the code: the
// prior link dies the moment the new one is written (single active code per
// vehicle). A vehicle that already moved to REQUESTED is rejected instead,
// so an in-flight pickup request cannot have its code rotated out from
// under it.
func (service *valetService) IssueLink(ctx context.Context, vehicleID, phoneContact string) (ports.IssueLinkResult, error) {
	ctx = service.logger.WithVehicleID(ctx, vehicleID)
	phone := strings.TrimSpace(phoneContact)

	var result ports.IssueLinkResult

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		v, err := service.vehicleRepo.GetByID(txCtx, vehicleID)
		if err != nil {
			return err
		}

		updated, err := service.issueLinkOnce(txCtx, v, phone)
		if errors.Is(err, vehicle.ErrStaleState) {
			// one retry against the fresh state; a second conflict is a
			// genuine fight over this vehicle and surfaces as such
			v, err = service.vehicleRepo.GetByID(txCtx, vehicleID)
			if err != nil {
				return err
			}
			updated, err = service.issueLinkOnce(txCtx, v, phone)
			if errors.Is(err, vehicle.ErrStaleState) {
				return fmt.Errorf("issue link for %s: %w", vehicleID, vehicle.ErrConcurrentModification)
			}
		}
		if err != nil {
			return err
		}

		result = ports.IssueLinkResult{
			VehicleID: updated.ID,
			Token:     updated.AccessToken,
			Link:      fmt.Sprintf("%s/request?code=%s", service.baseURL, updated.AccessToken),
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "link_issue_failed", "Failed to issue pickup link", err, map[string]any{
			"vehicle_id": vehicleID,
		})
		return ports.IssueLinkResult{}, err
	}

	service.logger.Info(ctx, "link_issued", "Pickup link issued", map[string]any{
		"vehicle_id": vehicleID,
		"has_phone":  phone != "",
	})

	return result, nil
}

// issueLinkOnce validates the current state, draws a unique code, and
// performs one conditional transition to LINK_ISSUED.
func (service *valetService) issueLinkOnce(ctx context.Context, v *vehicle.Vehicle, phone string) (*vehicle.Vehicle, error) {
	switch v.Status {
	case vehicle.StatusIdle, vehicle.StatusLinkIssued:
		// allowed; re-issue replaces the previous code
	default:
		return nil, fmt.Errorf("issue link from %s: %w", v.Status, vehicle.ErrInvalidTransition)
	}

	code, err := service.issuer.Issue(ctx, service.tokenTaken)
	if err != nil {
		return nil, err
	}

	patch := ports.VehiclePatch{AccessToken: &code}
	if phone != "" {
		patch.PhoneContact = &phone
	}

	return service.vehicleRepo.CompareAndTransition(ctx, v.ID, v.Status, vehicle.StatusLinkIssued, patch)
}
