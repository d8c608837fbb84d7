package service

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// publishEvent emits a lifecycle event after an applied transition. Events
// are an audit projection, so publication is best-effort: a broker outage
// never fails the payment operation itself.
func publishEvent(events output.EventPublisher, p *core.Payment) {
	if events == nil {
		return
	}
	evt := core.PaymentEvent{
		EventID:    uuid.New(),
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		SessionID:  p.SessionID,
		Status:     p.Status,
		OccurredAt: time.Now(),
	}
	if err := events.PublishPaymentEvent(evt); err != nil {
		log.Printf("failed to publish %s event for payment %s: %v", p.Status, p.ID, err)
	}
}
