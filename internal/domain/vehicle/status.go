package vehicle

import (
	"errors"
	"strings"
)

// Status is a vehicle lifecycle status as stored in the `vehicles` table.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusLinkIssued Status = "LINK_ISSUED"
	StatusRequested  Status = "REQUESTED"
	StatusDelivered  Status = "DELIVERED"
)

var ErrInvalidStatus = errors.New("invalid vehicle status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed vehicle status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusIdle, StatusLinkIssued, StatusRequested, StatusDelivered:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
// The lifecycle only moves forward; re-issuing a pickup link keeps the
// vehicle in LINK_ISSUED, which is the single permitted self-transition.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusIdle:
		return next == StatusLinkIssued || next == StatusRequested || next == StatusDelivered

	case StatusLinkIssued:
		return next == StatusLinkIssued || next == StatusRequested || next == StatusDelivered

	case StatusRequested:
		return next == StatusDelivered

	case StatusDelivered:
		return false

	default:
		return false
	}
}

// Terminal indicates if the status is in a terminal state.
func (status Status) Terminal() bool {
	return status == StatusDelivered
}

// Rank returns the position of the status in the forward lifecycle order.
// Used to decide whether a concurrent writer already moved the vehicle past
// the state an operation wanted to reach.
func (status Status) Rank() int {
	switch status {
	case StatusIdle:
		return 0
	case StatusLinkIssued:
		return 1
	case StatusRequested:
		return 2
	case StatusDelivered:
		return 3
	default:
		return -1
	}
}
