package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

const metaRefundResponse = "refund_response"

// RefundFlow implements the RefundOrchestrator input port. Only a COMPLETED
// payment is refundable, always for the full original amount; ineligible
// payments are rejected before any gateway traffic happens.
type RefundFlow struct {
	paymentRepo output.PaymentRepository
	gateway     output.GatewayClient
	orders      *OrderSynchronizer
	events      output.EventPublisher
}

// NewRefundFlow creates a new refund flow
func NewRefundFlow(
	paymentRepo output.PaymentRepository,
	gateway output.GatewayClient,
	orders *OrderSynchronizer,
	events output.EventPublisher,
) input.RefundOrchestrator {
	return &RefundFlow{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		orders:      orders,
		events:      events,
	}
}

// RefundPayment drives the refund protocol end to end.
func (f *RefundFlow) RefundPayment(ctx context.Context, req input.RefundPaymentRequest) (*input.PaymentResponse, error) {
	if req.Identity.Role != output.RoleAdmin {
		return nil, &core.ForbiddenError{Msg: "refunds require the admin role"}
	}

	payment, err := f.resolvePayment(req)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case core.PaymentStatusRefunded:
		return nil, &core.ConflictError{Msg: "payment already refunded"}
	case core.PaymentStatusInitiated, core.PaymentStatusFailed:
		return nil, &core.ValidationError{Msg: "payment is not eligible for refund"}
	}

	gatewayOrderID, err := strconv.ParseInt(payment.ExternalTransactionID, 10, 64)
	if err != nil {
		return nil, &core.ValidationError{Msg: "payment has no gateway transaction id"}
	}

	res, err := f.gateway.Refund(ctx, output.RefundRequest{
		RequestID:      uuid.New().String(),
		SessionID:      payment.SessionID,
		GatewayOrderID: gatewayOrderID,
		Amount:         payment.Amount,
		Reason:         req.Reason,
	})
	if err != nil {
		// Nothing was written; the payment stays COMPLETED and the caller
		// may retry with a freshly signed request.
		return nil, err
	}
	if !res.Accepted {
		return nil, &core.UpstreamError{Operation: "refund", StatusCode: 200, RawBody: string(res.RawResponse)}
	}

	updated, err := f.paymentRepo.TransitionStatus(
		payment.SessionID,
		core.PaymentStatusCompleted,
		core.PaymentStatusRefunded,
		output.StatusUpdate{
			Metadata: core.Metadata{metaRefundResponse: res.RawResponse},
		},
	)
	if err != nil {
		if errors.Is(err, core.ErrStaleStatus) {
			return nil, &core.ConflictError{Msg: "payment already refunded"}
		}
		return nil, err
	}

	if err := f.orders.PaymentRefunded(updated.OrderID); err != nil {
		return nil, err
	}
	publishEvent(f.events, updated)

	resp := toResponse(updated)
	return &resp, nil
}

// resolvePayment finds the refund target by payment id, or by order id when
// no payment id was given.
func (f *RefundFlow) resolvePayment(req input.RefundPaymentRequest) (*core.Payment, error) {
	if req.PaymentID != uuid.Nil {
		return f.paymentRepo.GetByID(req.PaymentID)
	}
	if req.OrderID == uuid.Nil {
		return nil, &core.ValidationError{Msg: "paymentId or orderId is required"}
	}
	payment, err := f.paymentRepo.GetActiveByOrderID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		// The order may only have settled payments left. A repeat refund
		// addressed by order id must still find the refunded record, so the
		// eligibility check reports Conflict rather than NotFound.
		payment, err = f.paymentRepo.GetLatestByOrderID(req.OrderID)
		if err != nil {
			return nil, err
		}
	}
	if payment == nil {
		return nil, &core.NotFoundError{Resource: "payment", Key: req.OrderID.String()}
	}
	return payment, nil
}
