package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
)

// OrderSynchronizer maps applied payment transitions onto order status
// transitions. It never regresses an order: every write is conditioned on
// the expected prior status, and a lost race means the order already moved
// on, which is fine.
type OrderSynchronizer struct {
	orderRepo output.OrderRepository
}

// NewOrderSynchronizer creates a new order synchronizer
func NewOrderSynchronizer(orderRepo output.OrderRepository) *OrderSynchronizer {
	return &OrderSynchronizer{orderRepo: orderRepo}
}

// PaymentCompleted advances the order to PROCESSING after a completed
// payment. A stale precondition is swallowed: the order may legitimately
// have advanced past WAITING_FOR_PAYMENT already.
func (s *OrderSynchronizer) PaymentCompleted(orderID uuid.UUID) {
	err := s.orderRepo.UpdateStatusIf(orderID, core.OrderStatusWaitingForPayment, core.OrderStatusProcessing)
	if err != nil && !errors.Is(err, core.ErrStaleStatus) {
		log.Printf("order sync: failed to advance order %s to PROCESSING: %v", orderID, err)
	}
}

// PaymentRefunded moves the order to REFUND from whatever status it holds
// at refund time.
func (s *OrderSynchronizer) PaymentRefunded(orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("order sync: %w", err)
	}
	if order.Status == core.OrderStatusRefund {
		return nil
	}
	err = s.orderRepo.UpdateStatusIf(orderID, order.Status, core.OrderStatusRefund)
	if err != nil && !errors.Is(err, core.ErrStaleStatus) {
		return fmt.Errorf("order sync: %w", err)
	}
	return nil
}
