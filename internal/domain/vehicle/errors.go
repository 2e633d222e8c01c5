package vehicle

import "errors"

var (
	// ErrNotFound means no vehicle matched the given id, token, or plate.
	ErrNotFound = errors.New("vehicle not found")

	// ErrStaleState is returned by the conditional store update when the
	// stored status no longer matches the expected one (a concurrent
	// operation won the race).
	ErrStaleState = errors.New("vehicle state changed concurrently")

	// ErrInvalidTransition means the requested operation is not allowed
	// from the vehicle's current status.
	ErrInvalidTransition = errors.New("invalid vehicle status transition")

	// ErrConcurrentModification means an operation lost a status race and
	// its single retry lost again.
	ErrConcurrentModification = errors.New("vehicle modified concurrently")

	// ErrTokenSpaceExhausted means the access-code issuer ran out of retry
	// attempts. With an 8-character base-62 code space this indicates a
	// broken RNG or store, not bad luck.
	ErrTokenSpaceExhausted = errors.New("access code space exhausted")

	// ErrEmptyPlate rejects check-in without a plate number.
	ErrEmptyPlate = errors.New("plate number is required")
)
