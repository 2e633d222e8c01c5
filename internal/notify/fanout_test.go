package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/general/logger"
)

func testEvent() notification.Event {
	return notification.NewVehicleRequested("veh-1", "ABC-123")
}

func TestBroadcastDeliversToAllObservers(t *testing.T) {
	reg := NewRegistry()
	a := &fakeObserver{}
	b := &fakeObserver{}
	c := &fakeObserver{}
	reg.Register(TransportPush, a)
	reg.Register(TransportStream, b)
	reg.Register(TransportRelay, c)

	fanout := NewFanout(reg, logger.New("test"))
	fanout.Broadcast(context.Background(), testEvent())

	for i, obs := range []*fakeObserver{a, b, c} {
		if obs.count() != 1 {
			t.Errorf("observer %d received %d events, want 1", i, obs.count())
		}
	}
}

func TestBroadcastIsolatesFailingObserver(t *testing.T) {
	reg := NewRegistry()
	failing := &fakeObserver{err: errors.New("publish refused")}
	healthy := &fakeObserver{}
	reg.Register(TransportRelay, failing)
	reg.Register(TransportPush, healthy)

	fanout := NewFanout(reg, logger.New("test"))
	fanout.Broadcast(context.Background(), testEvent())

	if healthy.count() != 1 {
		t.Fatalf("healthy observer received %d events, want 1", healthy.count())
	}
	// a transient failure must not evict the observer
	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (transient failure must not evict)", reg.Len())
	}
	if failing.wasClosed() {
		t.Fatal("transient failure must not close the observer")
	}
}

func TestBroadcastEvictsDeadObserver(t *testing.T) {
	reg := NewRegistry()
	dead := &fakeObserver{err: fmt.Errorf("write failed: %w", ErrObserverDead)}
	healthy := &fakeObserver{}
	reg.Register(TransportPush, dead)
	reg.Register(TransportStream, healthy)

	fanout := NewFanout(reg, logger.New("test"))
	fanout.Broadcast(context.Background(), testEvent())

	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (dead observer evicted)", reg.Len())
	}
	if !dead.wasClosed() {
		t.Fatal("dead observer must be closed on eviction")
	}
	if healthy.count() != 1 {
		t.Fatalf("healthy observer received %d events, want 1", healthy.count())
	}
}

func TestBroadcastOnEmptyRegistry(t *testing.T) {
	fanout := NewFanout(NewRegistry(), logger.New("test"))
	fanout.Broadcast(context.Background(), testEvent()) // must not panic
}

func TestBroadcastDeliversInRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	var order []string
	mk := func(name string) Observer {
		return observerFunc(func(context.Context, notification.Event) error {
			order = append(order, name)
			return nil
		})
	}
	reg.Register(TransportPush, mk("first"))
	reg.Register(TransportStream, mk("second"))
	reg.Register(TransportRelay, mk("third"))

	fanout := NewFanout(reg, logger.New("test"))
	fanout.Broadcast(context.Background(), testEvent())

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("deliveries = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("deliveries = %v, want %v", order, want)
		}
	}
}

// observerFunc adapts a function into an Observer for tests.
type observerFunc func(ctx context.Context, ev notification.Event) error

func (f observerFunc) Deliver(ctx context.Context, ev notification.Event) error { return f(ctx, ev) }
func (f observerFunc) Close()                                                   {}
