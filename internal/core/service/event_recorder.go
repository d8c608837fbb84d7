package service

import (
	"fmt"

	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// EventRecorder is the worker-side consumer of payment events: it projects
// each applied transition into the order history log. Replayed deliveries
// are absorbed by the event id key.
type EventRecorder struct {
	orderEvents output.OrderEventRepository
}

// NewEventRecorder creates a new event recorder
func NewEventRecorder(orderEvents output.OrderEventRepository) *EventRecorder {
	return &EventRecorder{orderEvents: orderEvents}
}

// Record appends one payment event to the order history.
func (r *EventRecorder) Record(evt core.PaymentEvent) error {
	if err := r.orderEvents.Append(evt); err != nil {
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	return nil
}
