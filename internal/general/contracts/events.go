package contracts

import (
	"time"

	"smart-valet/internal/domain/notification"
)

// Envelope adds cross-cutting headers all messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // Correlation for tracing across services
	Producer      string    `json:"producer,omitempty"`       // Producer service name, e.g. "valet-service"
	SentAt        time.Time `json:"sent_at,omitempty"`        // ISO-8601 send time (UTC)
}

// VehicleEventMessage is the structured payload published to the relay
// exchange and written to board WebSocket connections. Streaming transports
// serialize the same payload as SSE data frames.
type VehicleEventMessage struct {
	Type        string    `json:"type"` // "vehicle_event"
	Kind        string    `json:"kind"` // VEHICLE_REQUESTED | VEHICLE_DELIVERED
	VehicleID   string    `json:"vehicle_id"`
	PlateNumber string    `json:"plate_number"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message"`
	Envelope
}

// FromEvent converts a domain notification event into its wire shape.
func FromEvent(ev notification.Event, producer string) VehicleEventMessage {
	return VehicleEventMessage{
		Type:        "vehicle_event",
		Kind:        ev.Kind.String(),
		VehicleID:   ev.VehicleID,
		PlateNumber: ev.PlateNumber,
		Timestamp:   ev.Timestamp,
		Message:     ev.Message,
		Envelope: Envelope{
			Producer: producer,
			SentAt:   time.Now().UTC(),
		},
	}
}

// RouteFor maps an event kind to its relay routing key.
func RouteFor(kind notification.Kind) string {
	if kind == notification.KindVehicleDelivered {
		return RouteVehicleDelivered
	}
	return RouteVehicleRequested
}
