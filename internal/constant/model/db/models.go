package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus mirrors core.PaymentStatus at the storage layer
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment represents a payment entity in the database. Rows are append-only
// audit records: they are created once and only their status, result and
// metadata fields are ever updated.
type Payment struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrderID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	SessionID             string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"session_id"`
	MerchantID            int            `gorm:"not null" json:"merchant_id"`
	PosID                 int            `gorm:"not null" json:"pos_id"`
	Amount                int64          `gorm:"not null" json:"amount"` // minor units
	Currency              string         `gorm:"type:varchar(3);not null" json:"currency"`
	Status                PaymentStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	ExternalTransactionID string         `gorm:"type:varchar(100)" json:"external_transaction_id"`
	PaymentMethod         int            `json:"payment_method"`
	ErrorCode             string         `gorm:"type:varchar(50)" json:"error_code"`
	ErrorMessage          string         `gorm:"type:varchar(500)" json:"error_message"`
	Metadata              datatypes.JSON `json:"metadata"`
	CreatedAt             time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate is a GORM hook that runs before creating a record
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate is a GORM hook that runs before updating a record
func (p *Payment) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}

// Order is the payment subsystem's view of the shared orders table. The
// storefront owns the full row; payments read it and conditionally advance
// the status column.
type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Status      string          `gorm:"type:varchar(30);not null" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	DeliveryID  uuid.UUID       `gorm:"type:uuid" json:"delivery_id"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderEvent is the worker-side projection of a payment lifecycle event
// into the order history log. EventID makes replayed deliveries no-ops.
type OrderEvent struct {
	EventID    uuid.UUID `gorm:"type:uuid;primary_key" json:"event_id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	PaymentID  uuid.UUID `gorm:"type:uuid;not null" json:"payment_id"`
	SessionID  string    `gorm:"type:varchar(100);not null" json:"session_id"`
	Status     string    `gorm:"type:varchar(20);not null" json:"status"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
}

// TableName specifies the table name for GORM
func (OrderEvent) TableName() string {
	return "order_events"
}
