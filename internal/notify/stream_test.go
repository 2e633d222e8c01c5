package notify

import (
	"context"
	"errors"
	"testing"

	"smart-valet/internal/domain/notification"
)

func TestStreamObserverDeliverAndDrain(t *testing.T) {
	obs := NewStreamObserver(4)

	ev := notification.NewVehicleDelivered("veh-9", "XYZ-999")
	if err := obs.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := <-obs.Events()
	if got.VehicleID != "veh-9" || got.Kind != notification.KindVehicleDelivered {
		t.Fatalf("drained wrong event: %+v", got)
	}
}

func TestStreamObserverFullBufferIsDead(t *testing.T) {
	obs := NewStreamObserver(1)

	ev := notification.NewVehicleRequested("veh-1", "ABC-123")
	if err := obs.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	err := obs.Deliver(context.Background(), ev)
	if !errors.Is(err, ErrObserverDead) {
		t.Fatalf("err = %v, want ErrObserverDead on full buffer", err)
	}
}

func TestStreamObserverDeliverAfterClose(t *testing.T) {
	obs := NewStreamObserver(4)
	obs.Close()

	err := obs.Deliver(context.Background(), notification.NewVehicleRequested("veh-1", "ABC-123"))
	if !errors.Is(err, ErrObserverDead) {
		t.Fatalf("err = %v, want ErrObserverDead after close", err)
	}
}

func TestStreamObserverCloseIsIdempotentAndEndsDrain(t *testing.T) {
	obs := NewStreamObserver(4)
	obs.Close()
	obs.Close() // second close must not panic

	if _, open := <-obs.Events(); open {
		t.Fatal("events channel must be closed")
	}
}
