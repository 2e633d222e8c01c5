package contracts

import (
	"encoding/json"
	"testing"

	"smart-valet/internal/domain/notification"
)

func TestFromEvent(t *testing.T) {
	ev := notification.NewVehicleRequested("veh-1", "ABC-123")

	msg := FromEvent(ev, "valet-service")
	if msg.Type != "vehicle_event" {
		t.Errorf("type = %q, want vehicle_event", msg.Type)
	}
	if msg.Kind != "VEHICLE_REQUESTED" {
		t.Errorf("kind = %q", msg.Kind)
	}
	if msg.VehicleID != "veh-1" || msg.PlateNumber != "ABC-123" {
		t.Errorf("identity fields wrong: %+v", msg)
	}
	if msg.Producer != "valet-service" {
		t.Errorf("producer = %q", msg.Producer)
	}
	if msg.SentAt.IsZero() {
		t.Error("sent_at must be stamped")
	}
}

func TestVehicleEventMessageWireShape(t *testing.T) {
	ev := notification.NewVehicleDelivered("veh-2", "XYZ-999")
	b, err := json.Marshal(FromEvent(ev, "valet-service"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"type", "kind", "vehicle_id", "plate_number", "timestamp", "message", "producer", "sent_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("wire payload missing %q", key)
		}
	}
}

func TestRouteFor(t *testing.T) {
	if got := RouteFor(notification.KindVehicleRequested); got != RouteVehicleRequested {
		t.Errorf("requested route = %q", got)
	}
	if got := RouteFor(notification.KindVehicleDelivered); got != RouteVehicleDelivered {
		t.Errorf("delivered route = %q", got)
	}
}
