package ports

import (
	"context"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/domain/vehicle"
)

// EventBroadcaster dispatches one committed lifecycle event to every
// registered observer. Implementations never fail from the caller's view.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, ev notification.Event)
}

// IssueLinkResult is returned by ValetService.IssueLink.
type IssueLinkResult struct {
	VehicleID string `json:"vehicle_id"`
	Token     string `json:"token"`
	Link      string `json:"link"`
}

// ValetService drives the vehicle lifecycle and the notification fan-out.
type ValetService interface {
	// CreateVehicle checks a car into the lot in IDLE state.
	CreateVehicle(ctx context.Context, plateNumber string) (*vehicle.Vehicle, error)

	// IssueLink mints a fresh access code for the vehicle and moves it to
	// LINK_ISSUED. Re-issuing replaces the previous code immediately.
	IssueLink(ctx context.Context, vehicleID, phoneContact string) (IssueLinkResult, error)

	// RequestPickup resolves codeOrPlate (access code first, then plate)
	// and moves the vehicle to REQUESTED. Already-REQUESTED and DELIVERED
	// vehicles resolve idempotently with no event.
	RequestPickup(ctx context.Context, codeOrPlate string) (*vehicle.Vehicle, error)

	// MarkDelivered moves the vehicle to DELIVERED from any earlier state.
	// Repeated calls are no-ops.
	MarkDelivered(ctx context.Context, vehicleID string) (*vehicle.Vehicle, error)

	ListActiveVehicles(ctx context.Context) ([]*vehicle.Vehicle, error)

	// GetVehicleByToken backs the customer-facing status page.
	GetVehicleByToken(ctx context.Context, token string) (*vehicle.Vehicle, error)
}
