package ports

import (
	"context"

	"smart-valet/internal/domain/vehicle"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// VehiclePatch carries the optional columns a conditional transition may set
// alongside the status change. Nil fields are left untouched.
type VehiclePatch struct {
	AccessToken  *string
	PhoneContact *string
}

// VehicleRepository defines the persistence contract for vehicle records.
//
// CompareAndTransition is the only mutation path after creation: it updates
// the row to `next` only if the stored status still equals `expected`, in a
// single conditional statement. A lost race surfaces as
// vehicle.ErrStaleState; an unknown id as vehicle.ErrNotFound.
type VehicleRepository interface {
	Create(ctx context.Context, v *vehicle.Vehicle) error
	GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error)

	// GetByToken resolves an access code to its vehicle. An active match
	// wins; otherwise the most recently delivered holder of the code is
	// returned so a stale pickup page still resolves idempotently.
	GetByToken(ctx context.Context, token string) (*vehicle.Vehicle, error)

	// TokenInUse reports whether an access code belongs to an active
	// vehicle. Codes on DELIVERED rows are retired and free for reuse.
	TokenInUse(ctx context.Context, token string) (bool, error)

	// GetByPlate returns the oldest matching record. Duplicate plates are
	// a tolerated data-quality condition, not an error.
	GetByPlate(ctx context.Context, plate string) (*vehicle.Vehicle, error)

	ListActive(ctx context.Context) ([]*vehicle.Vehicle, error)

	CompareAndTransition(ctx context.Context, id string, expected, next vehicle.Status, patch VehiclePatch) (*vehicle.Vehicle, error)
}
