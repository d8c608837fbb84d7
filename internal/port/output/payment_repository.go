package output

import (
	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
)

// StatusUpdate carries the fields written together with a payment status
// transition. Metadata entries are merged into the stored audit document.
type StatusUpdate struct {
	ExternalTransactionID string
	PaymentMethod         int
	ErrorCode             string
	ErrorMessage          string
	Metadata              core.Metadata
}

// PaymentRepository is an output port (secondary port) for payment data
// access. Secondary adapters (database implementations) will implement this.
type PaymentRepository interface {
	// Create creates a new payment
	Create(payment *core.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(id uuid.UUID) (*core.Payment, error)

	// GetBySessionID retrieves a payment by its gateway session id
	GetBySessionID(sessionID string) (*core.Payment, error)

	// GetActiveByOrderID returns the order's active payment (INITIATED or
	// COMPLETED-not-refunded), or nil when there is none.
	GetActiveByOrderID(orderID uuid.UUID) (*core.Payment, error)

	// GetLatestByOrderID returns the order's most recent payment regardless
	// of status, or nil when the order has none.
	GetLatestByOrderID(orderID uuid.UUID) (*core.Payment, error)

	// TransitionStatus atomically moves the payment from the expected prior
	// status to the new one and applies upd in the same write. It returns
	// core.ErrStaleStatus when the stored status no longer matches from,
	// so that concurrent duplicate writers lose cleanly.
	TransitionStatus(sessionID string, from, to core.PaymentStatus, upd StatusUpdate) (*core.Payment, error)
}
