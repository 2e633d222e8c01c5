// Package shortcode mints the short access codes embedded in customer
// pickup links. Codes are unauthenticated capability tokens, so the only
// defenses are an unguessable draw and uniqueness among active vehicles.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"smart-valet/internal/domain/vehicle"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TakenFunc reports whether a candidate code already belongs to an active
// vehicle. The store's partial unique index is the real guard; this check
// just avoids burning an insert on an obvious collision.
type TakenFunc func(ctx context.Context, code string) (bool, error)

// Issuer draws random alphanumeric codes with a bounded collision retry.
type Issuer struct {
	length      int
	maxAttempts int
}

// NewIssuer creates an issuer. An 8-character base-62 code gives ~2.18e14
// combinations, which keeps the collision probability against 10k active
// codes far below 1e-9 per draw.
func NewIssuer(length, maxAttempts int) *Issuer {
	if length < 6 {
		length = 8
	}
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &Issuer{length: length, maxAttempts: maxAttempts}
}

// Issue draws codes until one is free or the retry budget runs out.
// Exhausting the budget returns vehicle.ErrTokenSpaceExhausted, which
// callers treat as a fatal integrity failure rather than a retryable one.
func (issuer *Issuer) Issue(ctx context.Context, taken TakenFunc) (string, error) {
	for attempt := 0; attempt < issuer.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := issuer.draw()
		if err != nil {
			return "", fmt.Errorf("draw access code: %w", err)
		}

		inUse, err := taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check access code collision: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: %d attempts", vehicle.ErrTokenSpaceExhausted, issuer.maxAttempts)
}

// draw produces one uniformly random code from the alphabet.
func (issuer *Issuer) draw() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, issuer.length)

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}

	return string(buf), nil
}
