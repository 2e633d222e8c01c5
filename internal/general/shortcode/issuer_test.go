package shortcode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"smart-valet/internal/domain/vehicle"
)

func neverTaken(context.Context, string) (bool, error) { return false, nil }

func TestIssueProducesAlphanumericCode(t *testing.T) {
	issuer := NewIssuer(8, 5)

	code, err := issuer.Issue(context.Background(), neverTaken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("code length = %d, want 8", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", code, r)
		}
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	issuer := NewIssuer(8, 5)

	calls := 0
	taken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil // first two draws collide
	}

	code, err := issuer.Issue(context.Background(), taken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code == "" {
		t.Fatal("expected a code after retries")
	}
	if calls != 3 {
		t.Fatalf("collision check called %d times, want 3", calls)
	}
}

func TestIssueExhaustsRetryBudget(t *testing.T) {
	issuer := NewIssuer(8, 3)

	calls := 0
	alwaysTaken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := issuer.Issue(context.Background(), alwaysTaken)
	if !errors.Is(err, vehicle.ErrTokenSpaceExhausted) {
		t.Fatalf("err = %v, want ErrTokenSpaceExhausted", err)
	}
	if calls != 3 {
		t.Fatalf("collision check called %d times, want 3", calls)
	}
}

func TestIssuePropagatesCheckError(t *testing.T) {
	issuer := NewIssuer(8, 5)
	boom := errors.New("store down")

	_, err := issuer.Issue(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestIssueHonoursContextCancellation(t *testing.T) {
	issuer := NewIssuer(8, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := issuer.Issue(ctx, neverTaken)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewIssuerClampsBadInputs(t *testing.T) {
	issuer := NewIssuer(0, 0)

	code, err := issuer.Issue(context.Background(), neverTaken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("clamped code length = %d, want 8", len(code))
	}
}

func TestIssueDrawsDistinctCodes(t *testing.T) {
	issuer := NewIssuer(8, 5)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := issuer.Issue(context.Background(), neverTaken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code drawn in 50 attempts: %q", code)
		}
		seen[code] = struct{}{}
	}
}
