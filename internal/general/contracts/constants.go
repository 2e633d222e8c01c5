package contracts

// Exchanges
const (
	ExchangeValetTopic = "valet_topic"
)

// Queues
const (
	QueueVehicleRequests = "vehicle_requests"
	QueueVehicleStatus   = "vehicle_status"
)

// Routing keys
const (
	RouteVehicleRequested = "vehicle.requested"
	RouteVehicleDelivered = "vehicle.delivered"
)
