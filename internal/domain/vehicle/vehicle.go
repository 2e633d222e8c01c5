package vehicle

import (
	"strings"
	"time"
)

// Vehicle is one tracked car handed to the valet desk.
type Vehicle struct {
	ID           string
	PlateNumber  string
	PhoneContact string
	AccessToken  string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewVehicle builds a fresh IDLE vehicle for check-in. The ID and timestamps
// are assigned by the persistence layer on insert.
func NewVehicle(plateNumber string) (*Vehicle, error) {
	plate := strings.ToUpper(strings.TrimSpace(plateNumber))
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	return &Vehicle{
		PlateNumber: plate,
		Status:      StatusIdle,
	}, nil
}

// Active reports whether the vehicle still occupies the valet lot.
func (v *Vehicle) Active() bool {
	return !v.Status.Terminal()
}
