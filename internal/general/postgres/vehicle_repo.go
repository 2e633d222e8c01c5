package postgres

import (
	"errors"
	"fmt"

	"context"

	"smart-valet/internal/domain/vehicle"
	"smart-valet/internal/ports"

	"github.com/jackc/pgx/v5"
)

// VehicleRepo persists vehicles using pgx and plain SQL.
//
// Expected schema:
//
//	CREATE TABLE vehicles (
//	    id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    plate_number  text NOT NULL,
//	    phone_contact text NOT NULL DEFAULT '',
//	    access_token  text NOT NULL DEFAULT '',
//	    status        text NOT NULL DEFAULT 'IDLE',
//	    created_at    timestamptz NOT NULL DEFAULT now(),
//	    updated_at    timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE UNIQUE INDEX vehicles_active_token ON vehicles (access_token)
//	    WHERE access_token <> '' AND status <> 'DELIVERED';
//
// The partial unique index is what makes access codes unique across active
// vehicles only: codes on DELIVERED rows are retired and free for reuse.
type VehicleRepo struct{}

// NewVehicleRepo constructs a new VehicleRepo.
func NewVehicleRepo() ports.VehicleRepository {
	return &VehicleRepo{}
}

const vehicleColumns = `id, plate_number, phone_contact, access_token, status, created_at, updated_at`

// scanVehicle reads one row into a domain Vehicle.
func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var out vehicle.Vehicle
	var status string

	err := row.Scan(
		&out.ID, &out.PlateNumber, &out.PhoneContact, &out.AccessToken,
		&status, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vehicle.ErrNotFound
		}
		return nil, err
	}

	out.Status = vehicle.Status(status)
	return &out, nil
}

// Create inserts a new vehicle row in IDLE state.
func (repo *VehicleRepo) Create(ctx context.Context, v *vehicle.Vehicle) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO vehicles (plate_number, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`,
		v.PlateNumber,
		v.Status.String(), // "IDLE" at check-in
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert vehicle: %w", err)
	}

	return nil
}

// GetByID fetches a vehicle by primary key (uuid).
func (repo *VehicleRepo) GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE id = $1
	`, id)

	return scanVehicle(row)
}

// GetByToken resolves an access code to its vehicle. The active holder of
// the code wins; failing that, the most recently delivered holder is
// returned so a customer re-submitting a stale pickup page resolves
// idempotently instead of getting a 404.
func (repo *VehicleRepo) GetByToken(ctx context.Context, token string) (*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE access_token = $1
		  AND access_token <> ''
		ORDER BY (status <> 'DELIVERED') DESC, updated_at DESC
		LIMIT 1
	`, token)

	return scanVehicle(row)
}

// TokenInUse reports whether the code is held by an active vehicle. This is
// the issuer's collision check; the partial unique index backs it up.
func (repo *VehicleRepo) TokenInUse(ctx context.Context, token string) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vehicles
			WHERE access_token = $1
			  AND access_token <> ''
			  AND status <> 'DELIVERED'
		)
	`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token in use: %w", err)
	}

	return exists, nil
}

// GetByPlate returns the oldest record with the given plate. Duplicate
// plates can exist when staff re-check a returning car; the oldest active
// row wins.
func (repo *VehicleRepo) GetByPlate(ctx context.Context, plate string) (*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE plate_number = $1
		  AND status <> 'DELIVERED'
		ORDER BY created_at ASC
		LIMIT 1
	`, plate)

	return scanVehicle(row)
}

// ListActive returns every non-DELIVERED vehicle, newest first.
func (repo *VehicleRepo) ListActive(ctx context.Context) ([]*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE status <> 'DELIVERED'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active vehicles: %w", err)
	}
	defer rows.Close()

	var out []*vehicle.Vehicle
	for rows.Next() {
		var v vehicle.Vehicle
		var status string
		err := rows.Scan(
			&v.ID, &v.PlateNumber, &v.PhoneContact, &v.AccessToken,
			&status, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		v.Status = vehicle.Status(status)
		out = append(out, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// CompareAndTransition updates status (and any patched columns) only if the
// stored status still equals expected. The guard and the write are one
// statement, so two racing operations on the same vehicle cannot both win:
// the loser gets vehicle.ErrStaleState and decides what that means.
func (repo *VehicleRepo) CompareAndTransition(ctx context.Context, id string, expected, next vehicle.Status, patch ports.VehiclePatch) (*vehicle.Vehicle, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if !next.Valid() {
		return nil, vehicle.ErrInvalidStatus
	}

	row := tx.QueryRow(ctx, `
		UPDATE vehicles
		SET status        = $1,
		    access_token  = COALESCE($2, access_token),
		    phone_contact = COALESCE($3, phone_contact),
		    updated_at    = now()
		WHERE id = $4
		  AND status = $5
		RETURNING `+vehicleColumns+`
	`, next.String(), patch.AccessToken, patch.PhoneContact, id, expected.String())

	updated, err := scanVehicle(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, vehicle.ErrNotFound) {
		return nil, fmt.Errorf("conditional vehicle update: %w", err)
	}

	// zero rows matched: tell NotFound apart from a lost race
	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM vehicles WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vehicle.ErrNotFound
		}
		return nil, fmt.Errorf("re-check vehicle status: %w", err)
	}

	return nil, fmt.Errorf("%w: have %s, expected %s", vehicle.ErrStaleState, current, expected)
}
