package rabbitmq

import (
	"fmt"

	"smart-valet/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchange
	if err := ch.ExchangeDeclare(contracts.ExchangeValetTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeValetTopic, err)
	}

	// 2. Queues
	queues := []string{
		contracts.QueueVehicleRequests,
		contracts.QueueVehicleStatus,
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	// 3. Bindings
	bindings := []struct {
		queue      string
		exchange   string
		routingKey string
	}{
		{contracts.QueueVehicleRequests, contracts.ExchangeValetTopic, contracts.RouteVehicleRequested},
		{contracts.QueueVehicleStatus, contracts.ExchangeValetTopic, "vehicle.*"},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
