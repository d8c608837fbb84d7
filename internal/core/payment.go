package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Metadata is the opaque audit document attached to a payment. Every raw
// gateway request/response is kept verbatim under a descriptive key so that
// gateway schema drift never loses audit data.
type Metadata map[string]json.RawMessage

// Merge returns a copy of m with the entries of other added. Keys in other
// win on collision.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Payment represents a payment domain entity. It is an append-only audit
// record keyed by SessionID; Amount and Currency are fixed at creation and
// never mutated.
type Payment struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	SessionID             string
	MerchantID            int
	PosID                 int
	Amount                int64 // minor units
	Currency              string
	Status                PaymentStatus
	ExternalTransactionID string
	PaymentMethod         int
	ErrorCode             string
	ErrorMessage          string
	Metadata              Metadata
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CanTransitionTo reports whether next is a valid edge from s. The status
// graph has exactly two paths: INITIATED→COMPLETED→REFUNDED and
// INITIATED→FAILED. Every status decision in the system goes through this
// function rather than ad hoc comparisons.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusInitiated:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusCompleted:
		return next == PaymentStatusRefunded
	default:
		// FAILED and REFUNDED are terminal.
		return false
	}
}

// IsTerminal checks if payment is in a state the callback processor must
// treat as already applied.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted ||
		p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusRefunded
}

// Active reports whether the payment blocks a new initiation for the same
// order: any non-terminal payment, or a completed one that has not been
// refunded yet.
func (p *Payment) Active() bool {
	return p.Status == PaymentStatusInitiated || p.Status == PaymentStatusCompleted
}
