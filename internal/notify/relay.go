package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"smart-valet/internal/domain/notification"
	"smart-valet/internal/general/contracts"
)

// RelayPublisher is the slice of the RabbitMQ publisher the relay needs.
type RelayPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// RelayObserver forwards events to the valet exchange so external consumers
// (SMS gateway, staff pagers) pick them up. Publish failures are transient:
// the underlying client reconnects on its own, so a failed relay delivery
// never evicts the observer.
type RelayObserver struct {
	pub      RelayPublisher
	producer string
}

// NewRelayObserver wires the relay over an AMQP publisher.
func NewRelayObserver(pub RelayPublisher, producer string) *RelayObserver {
	return &RelayObserver{pub: pub, producer: producer}
}

// Deliver publishes the event payload under its routing key.
func (obs *RelayObserver) Deliver(ctx context.Context, ev notification.Event) error {
	msg := contracts.FromEvent(ev, obs.producer)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal relay event: %w", err)
	}

	if err := obs.pub.Publish(contracts.ExchangeValetTopic, contracts.RouteFor(ev.Kind), body); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}

	return nil
}

// Close is a no-op: the AMQP client's lifecycle belongs to the application.
func (obs *RelayObserver) Close() {}
