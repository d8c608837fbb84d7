package service

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// Metadata keys written by the callback processor.
const (
	metaNotification   = "notification"
	metaVerifyResponse = "verify_response"
)

// CallbackProcessor implements the NotificationProcessor input port. It is
// the protocol core: every inbound notification is authenticated against
// the shared secret, re-verified with the gateway (the notification payload
// alone is never trusted) and applied through the exhaustive transition
// function. Redelivered notifications are idempotent no-ops.
type CallbackProcessor struct {
	paymentRepo output.PaymentRepository
	gateway     output.GatewayClient
	verifier    output.NotificationVerifier
	orders      *OrderSynchronizer
	events      output.EventPublisher
}

// NewCallbackProcessor creates a new callback processor
func NewCallbackProcessor(
	paymentRepo output.PaymentRepository,
	gateway output.GatewayClient,
	verifier output.NotificationVerifier,
	orders *OrderSynchronizer,
	events output.EventPublisher,
) input.NotificationProcessor {
	return &CallbackProcessor{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		verifier:    verifier,
		orders:      orders,
		events:      events,
	}
}

// ProcessNotification authenticates, verifies and applies one notification.
func (p *CallbackProcessor) ProcessNotification(ctx context.Context, n output.Notification) error {
	if err := validateNotification(n); err != nil {
		return err
	}

	// Trust boundary. A bad signature touches no record and is logged as a
	// security event, separately from plain validation noise.
	if !p.verifier.VerifyNotificationSign(n) {
		log.Printf("SECURITY: notification signature mismatch for session %s (merchant %d)", n.SessionID, n.MerchantID)
		return &core.SignatureMismatchError{SessionID: n.SessionID}
	}

	payment, err := p.paymentRepo.GetBySessionID(n.SessionID)
	if err != nil {
		return err
	}

	// Idempotency guard: at-least-once delivery means terminal payments see
	// their notification again. No re-verification, no writes.
	if payment.IsTerminal() {
		log.Printf("duplicate notification for session %s ignored (status %s)", n.SessionID, payment.Status)
		return nil
	}

	// The signed amount must match the immutable recorded one; a difference
	// means the notification belongs to some other transaction.
	if n.Amount != payment.Amount || n.Currency != payment.Currency {
		return &core.ValidationError{Msg: "notification amount does not match payment"}
	}

	// The gateway, not the notification, is the source of truth: a replayed
	// or forged message with a valid-looking signature still has to survive
	// a direct verify call.
	verdict, err := p.gateway.Verify(ctx, output.VerifyRequest{
		SessionID:      payment.SessionID,
		GatewayOrderID: n.OrderID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
	})
	if err != nil {
		// Surfacing the upstream error leaves the payment INITIATED; the
		// gateway redelivers and a later attempt verifies.
		return err
	}

	if verdict.Verified {
		return p.applyCompleted(payment, n, verdict)
	}
	return p.applyFailed(payment, n, verdict)
}

func (p *CallbackProcessor) applyCompleted(payment *core.Payment, n output.Notification, verdict *output.VerifyResult) error {
	updated, err := p.paymentRepo.TransitionStatus(
		payment.SessionID,
		core.PaymentStatusInitiated,
		core.PaymentStatusCompleted,
		output.StatusUpdate{
			ExternalTransactionID: strconv.FormatInt(n.OrderID, 10),
			PaymentMethod:         n.MethodID,
			Metadata: core.Metadata{
				metaNotification:   mustJSON(n),
				metaVerifyResponse: verdict.RawResponse,
			},
		},
	)
	if err != nil {
		return p.recoverStale(payment.SessionID, err)
	}

	p.orders.PaymentCompleted(updated.OrderID)
	publishEvent(p.events, updated)
	return nil
}

func (p *CallbackProcessor) applyFailed(payment *core.Payment, n output.Notification, verdict *output.VerifyResult) error {
	errorCode := verdict.ErrorCode
	if errorCode == "" {
		errorCode = "verification_failed"
	}
	updated, err := p.paymentRepo.TransitionStatus(
		payment.SessionID,
		core.PaymentStatusInitiated,
		core.PaymentStatusFailed,
		output.StatusUpdate{
			ErrorCode:    errorCode,
			ErrorMessage: verdict.ErrorMsg,
			Metadata: core.Metadata{
				metaNotification:   mustJSON(n),
				metaVerifyResponse: verdict.RawResponse,
			},
		},
	)
	if err != nil {
		return p.recoverStale(payment.SessionID, err)
	}

	log.Printf("AUDIT: gateway verification failed for session %s: %s", payment.SessionID, errorCode)
	// The order is left untouched: a more-advanced order status never
	// regresses because one payment attempt failed.
	publishEvent(p.events, updated)
	return nil
}

// recoverStale turns a lost transition race into the idempotent outcome: if
// a concurrent writer already drove the payment to a terminal status, this
// delivery succeeded by proxy.
func (p *CallbackProcessor) recoverStale(sessionID string, cause error) error {
	if !errors.Is(cause, core.ErrStaleStatus) {
		return cause
	}
	current, err := p.paymentRepo.GetBySessionID(sessionID)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		log.Printf("concurrent notification for session %s already applied (status %s)", sessionID, current.Status)
		return nil
	}
	return &core.ConflictError{Msg: "payment status changed concurrently"}
}

func validateNotification(n output.Notification) error {
	switch {
	case n.SessionID == "":
		return &core.ValidationError{Msg: "sessionId is required"}
	case n.MerchantID == 0:
		return &core.ValidationError{Msg: "merchantId is required"}
	case n.Amount <= 0:
		return &core.ValidationError{Msg: "amount must be positive"}
	case n.Currency == "":
		return &core.ValidationError{Msg: "currency is required"}
	case n.Sign == "":
		return &core.ValidationError{Msg: "sign is required"}
	}
	return nil
}
