package notify

import (
	"context"
	"sync"
	"testing"

	"smart-valet/internal/domain/notification"
)

// fakeObserver records deliveries and can be told to fail.
type fakeObserver struct {
	mu        sync.Mutex
	delivered []notification.Event
	err       error
	closed    bool
}

func (f *fakeObserver) Deliver(_ context.Context, ev notification.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, ev)
	return nil
}

func (f *fakeObserver) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeObserver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func (f *fakeObserver) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistryRegisterAndLen(t *testing.T) {
	reg := NewRegistry()
	if reg.Len() != 0 {
		t.Fatalf("fresh registry Len = %d, want 0", reg.Len())
	}

	a := reg.Register(TransportPush, &fakeObserver{})
	b := reg.Register(TransportStream, &fakeObserver{})
	if a == b {
		t.Fatal("observer ids must be unique")
	}
	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}
}

func TestRegistrySnapshotPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	first := reg.Register(TransportPush, &fakeObserver{})
	second := reg.Register(TransportStream, &fakeObserver{})
	third := reg.Register(TransportRelay, &fakeObserver{})

	snap := reg.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size = %d, want 3", len(snap))
	}
	for i, want := range []int64{first, second, third} {
		if snap[i].ID != want {
			t.Errorf("snapshot[%d].ID = %d, want %d", i, snap[i].ID, want)
		}
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewRegistry()
	id := reg.Register(TransportPush, &fakeObserver{})

	snap := reg.Snapshot()
	reg.Unregister(id)

	if len(snap) != 1 {
		t.Fatal("snapshot must be unaffected by later unregistration")
	}
	if reg.Len() != 0 {
		t.Fatalf("Len after unregister = %d, want 0", reg.Len())
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	id := reg.Register(TransportStream, &fakeObserver{})

	reg.Unregister(id)
	reg.Unregister(id) // second removal must be a no-op
	reg.Unregister(999)

	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}

func TestRegistryConcurrentUse(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := reg.Register(TransportPush, &fakeObserver{})
			reg.Snapshot()
			reg.Unregister(id)
		}()
	}
	wg.Wait()

	if reg.Len() != 0 {
		t.Fatalf("Len after concurrent churn = %d, want 0", reg.Len())
	}
}
