package output

import "github.com/storefront/payment-gateway/internal/core"

// EventPublisher is an output port (secondary port) for payment lifecycle
// events. Secondary adapters (RabbitMQ implementations) will implement this.
type EventPublisher interface {
	// PublishPaymentEvent publishes an applied-transition event
	PublishPaymentEvent(evt core.PaymentEvent) error
	// Close closes the messaging connection
	Close() error
}

// OrderEventRepository persists the worker-side projection of payment
// events into the order history log.
type OrderEventRepository interface {
	// Append records the event; replaying the same EventID is a no-op.
	Append(evt core.PaymentEvent) error
}
