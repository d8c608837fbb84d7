package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusNew               OrderStatus = "NEW"
	OrderStatusWaitingForPayment OrderStatus = "WAITING_FOR_PAYMENT"
	OrderStatusProcessing        OrderStatus = "PROCESSING"
	OrderStatusDelivery          OrderStatus = "DELIVERY"
	OrderStatusCompleted         OrderStatus = "COMPLETED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusRefund            OrderStatus = "REFUND"
)

// Order is the order aggregate as seen by the payment subsystem. The full
// order lifecycle is owned elsewhere; payments only read it and drive the
// WAITING_FOR_PAYMENT, PROCESSING and REFUND transitions.
type Order struct {
	ID          uuid.UUID
	Status      OrderStatus
	TotalAmount decimal.Decimal // major units
	UserID      uuid.UUID
	DeliveryID  uuid.UUID
}

// PayableBy checks that the order belongs to the user and is in a status
// that still accepts a payment attempt.
func (o *Order) PayableBy(userID uuid.UUID) error {
	if o.UserID != userID {
		return &ForbiddenError{Msg: "order does not belong to user"}
	}
	if o.Status == OrderStatusCompleted || o.Status == OrderStatusProcessing {
		return &ConflictError{Msg: "order is not eligible for payment"}
	}
	return nil
}
