package input

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// PaymentInitiator is the input port (primary port) for starting a payment.
// Primary adapters (HTTP handlers) will use this.
type PaymentInitiator interface {
	// InitiatePayment registers an order's total with the gateway, creates
	// the payment record and returns the customer redirect target.
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error)

	// GetPayment retrieves a payment by ID
	GetPayment(id uuid.UUID) (*PaymentResponse, error)
}

// NotificationProcessor is the input port for the gateway webhook.
type NotificationProcessor interface {
	// ProcessNotification authenticates, verifies and idempotently applies
	// an inbound status notification.
	ProcessNotification(ctx context.Context, n output.Notification) error
}

// RefundOrchestrator is the input port for full-amount refunds.
type RefundOrchestrator interface {
	RefundPayment(ctx context.Context, req RefundPaymentRequest) (*PaymentResponse, error)
}

// InitiatePaymentRequest represents the request to initiate a payment
type InitiatePaymentRequest struct {
	OrderID  uuid.UUID
	Identity output.Identity
	Email    string
}

// InitiatePaymentResponse carries the created payment and where to send the
// customer next.
type InitiatePaymentResponse struct {
	Payment     PaymentResponse
	RedirectURL string
}

// RefundPaymentRequest identifies the payment to refund, by payment id or by
// order id, with an optional operator-supplied reason.
type RefundPaymentRequest struct {
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Reason    string
	Identity  output.Identity
}

// PaymentResponse represents the response for a payment
type PaymentResponse struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	SessionID             string
	Amount                int64
	Currency              string
	Status                core.PaymentStatus
	ExternalTransactionID string
	CreatedAt             time.Time
}
