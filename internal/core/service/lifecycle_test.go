package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/gateway"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/input"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// TestPaymentLifecycle drives one order through the whole pipeline:
// initiate, gateway notification, refund.
func TestPaymentLifecycle(t *testing.T) {
	order := newTestOrder(core.OrderStatusNew, "50.00")
	orders := newFakeOrderRepo(order)
	payments := newFakePaymentRepo()
	gw := &fakeGateway{}
	events := &fakePublisher{}
	signer := gateway.NewSigner(testCRC)

	sync := NewOrderSynchronizer(orders)
	initiator := NewInitiationFlow(orders, payments, gw, events, testConfig())
	processor := NewCallbackProcessor(payments, gw, signer, sync, events)
	refunds := NewRefundFlow(payments, gw, sync, events)

	// Initiate.
	initResp, err := initiator.InitiatePayment(context.Background(), initiateReq(order))
	require.NoError(t, err)
	assert.Equal(t, core.PaymentStatusInitiated, initResp.Payment.Status)
	assert.Equal(t, int64(5000), initResp.Payment.Amount)
	assert.Equal(t, core.OrderStatusWaitingForPayment, orders.status(order.ID))

	// Gateway notification for that session.
	n := output.Notification{
		MerchantID:   65000,
		PosID:        65000,
		SessionID:    initResp.Payment.SessionID,
		Amount:       5000,
		OriginAmount: 5000,
		Currency:     "PLN",
		OrderID:      300042,
		MethodID:     25,
	}
	n.Sign = signer.NotificationSign(n)
	require.NoError(t, processor.ProcessNotification(context.Background(), n))
	assert.Equal(t, core.PaymentStatusCompleted, payments.get(n.SessionID).Status)
	assert.Equal(t, core.OrderStatusProcessing, orders.status(order.ID))

	// Refund.
	refundResp, err := refunds.RefundPayment(context.Background(), input.RefundPaymentRequest{
		OrderID:  order.ID,
		Reason:   "customer request",
		Identity: adminIdentity(),
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentStatusRefunded, refundResp.Status)
	assert.Equal(t, core.OrderStatusRefund, orders.status(order.ID))

	assert.Equal(t, []core.PaymentStatus{
		core.PaymentStatusInitiated,
		core.PaymentStatusCompleted,
		core.PaymentStatusRefunded,
	}, events.statuses())
}
