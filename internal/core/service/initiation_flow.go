package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/config"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// InitiationFlow implements the PaymentInitiator input port: it validates
// the order, registers the amount with the gateway and only then creates
// the payment record. A failed registration persists nothing, so no orphan
// INITIATED rows with unknown gateway state ever exist.
type InitiationFlow struct {
	orderRepo   output.OrderRepository
	paymentRepo output.PaymentRepository
	gateway     output.GatewayClient
	events      output.EventPublisher
	cfg         config.Config
}

// NewInitiationFlow creates a new initiation flow
func NewInitiationFlow(
	orderRepo output.OrderRepository,
	paymentRepo output.PaymentRepository,
	gateway output.GatewayClient,
	events output.EventPublisher,
	cfg config.Config,
) input.PaymentInitiator {
	return &InitiationFlow{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		events:      events,
		cfg:         cfg,
	}
}

// InitiatePayment runs the full initiation sequence for an order.
func (f *InitiationFlow) InitiatePayment(ctx context.Context, req input.InitiatePaymentRequest) (*input.InitiatePaymentResponse, error) {
	if req.Identity.UserID == uuid.Nil {
		return nil, &core.UnauthorizedError{Msg: "identity required"}
	}

	order, err := f.orderRepo.GetByID(req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.PayableBy(req.Identity.UserID); err != nil {
		return nil, err
	}

	active, err := f.paymentRepo.GetActiveByOrderID(order.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, &core.ConflictError{Msg: "order already has an active payment"}
	}

	// Conversion to minor units happens exactly once, here at the boundary.
	amount := core.ToMinorUnits(order.TotalAmount)
	if amount <= 0 {
		return nil, &core.ValidationError{Msg: "order total must be positive"}
	}

	// The session id is unique per attempt: retries of the same order get a
	// fresh id, so gateway sessions never collide.
	sessionID := fmt.Sprintf("%s-%d", order.ID, time.Now().UnixNano())

	// Claim the order before calling the gateway. The conditional write is
	// what arbitrates two concurrent initiations: the loser sees a stale
	// status and never reaches the gateway.
	prior := order.Status
	if err := f.orderRepo.UpdateStatusIf(order.ID, prior, core.OrderStatusWaitingForPayment); err != nil {
		if errors.Is(err, core.ErrStaleStatus) {
			return nil, &core.ConflictError{Msg: "order is being paid for by another request"}
		}
		return nil, err
	}

	reg, err := f.gateway.Register(ctx, output.RegisterRequest{
		SessionID:   sessionID,
		Amount:      amount,
		Currency:    f.cfg.Currency,
		Description: fmt.Sprintf("order %s", order.ID),
		Email:       req.Email,
	})
	if err != nil {
		f.releaseOrder(order.ID, prior)
		return nil, err
	}

	payment := &core.Payment{
		ID:         uuid.New(),
		OrderID:    order.ID,
		SessionID:  sessionID,
		MerchantID: f.cfg.MerchantID,
		PosID:      f.cfg.PosID,
		Amount:     amount,
		Currency:   f.cfg.Currency,
		Status:     core.PaymentStatusInitiated,
		Metadata: core.Metadata{
			"register_request":  reg.RawRequest,
			"register_response": reg.RawResponse,
			"register_token":    mustJSON(reg.Token),
		},
	}
	if err := f.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	publishEvent(f.events, payment)

	return &input.InitiatePaymentResponse{
		Payment:     toResponse(payment),
		RedirectURL: fmt.Sprintf("%s/transaction/request/%s", f.cfg.GatewayBaseURL, reg.Token),
	}, nil
}

// GetPayment retrieves a payment by ID
func (f *InitiationFlow) GetPayment(id uuid.UUID) (*input.PaymentResponse, error) {
	payment, err := f.paymentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(payment)
	return &resp, nil
}

// releaseOrder undoes the WAITING_FOR_PAYMENT claim after a failed
// registration. Best effort: a lost race means someone else owns the order
// status now.
func (f *InitiationFlow) releaseOrder(orderID uuid.UUID, prior core.OrderStatus) {
	if prior == core.OrderStatusWaitingForPayment {
		return
	}
	err := f.orderRepo.UpdateStatusIf(orderID, core.OrderStatusWaitingForPayment, prior)
	if err != nil && !errors.Is(err, core.ErrStaleStatus) {
		log.Printf("failed to release order %s after registration failure: %v", orderID, err)
	}
}

func toResponse(p *core.Payment) input.PaymentResponse {
	return input.PaymentResponse{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		SessionID:             p.SessionID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                p.Status,
		ExternalTransactionID: p.ExternalTransactionID,
		CreatedAt:             p.CreatedAt,
	}
}

func mustJSON(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
