package core

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is published after every applied payment transition. Events
// are an audit projection consumed by the worker; the payment row remains
// the source of truth.
type PaymentEvent struct {
	EventID    uuid.UUID     `json:"event_id"`
	PaymentID  uuid.UUID     `json:"payment_id"`
	OrderID    uuid.UUID     `json:"order_id"`
	SessionID  string        `json:"session_id"`
	Status     PaymentStatus `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}
