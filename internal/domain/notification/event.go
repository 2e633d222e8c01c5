package notification

import (
	"fmt"
	"time"
)

// Kind classifies a broadcast-worthy lifecycle fact.
type Kind string

const (
	KindVehicleRequested Kind = "VEHICLE_REQUESTED"
	KindVehicleDelivered Kind = "VEHICLE_DELIVERED"
)

// String returns the string representation of the Kind.
func (kind Kind) String() string {
	return string(kind)
}

// Event is one immutable notification fact. Events are created by the valet
// service after a status change commits, fanned out to the connected
// observers, and then discarded; there is no persisted event log.
type Event struct {
	Kind        Kind      `json:"kind"`
	VehicleID   string    `json:"vehicle_id"`
	PlateNumber string    `json:"plate_number"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"`
}

// NewVehicleRequested builds the event emitted when a customer asks for
// their car.
func NewVehicleRequested(vehicleID, plateNumber string) Event {
	return Event{
		Kind:        KindVehicleRequested,
		VehicleID:   vehicleID,
		PlateNumber: plateNumber,
		Timestamp:   time.Now().UTC(),
		Message:     fmt.Sprintf("Vehicle %s has been requested for pickup", plateNumber),
	}
}

// NewVehicleDelivered builds the event emitted when staff hands the car back.
func NewVehicleDelivered(vehicleID, plateNumber string) Event {
	return Event{
		Kind:        KindVehicleDelivered,
		VehicleID:   vehicleID,
		PlateNumber: plateNumber,
		Timestamp:   time.Now().UTC(),
		Message:     fmt.Sprintf("Vehicle %s has been delivered", plateNumber),
	}
}
