package database

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/constant/model/db"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements the OrderRepository output port against the
// shared orders table.
type GormOrderRepository struct {
	gormDB *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository
func NewGormOrderRepository(gormDB *gorm.DB) output.OrderRepository {
	return &GormOrderRepository{gormDB: gormDB}
}

// GetByID retrieves an order by its ID
func (r *GormOrderRepository) GetByID(id uuid.UUID) (*core.Order, error) {
	var dbOrder db.Order
	if err := r.gormDB.Where("id = ?", id).First(&dbOrder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &core.NotFoundError{Resource: "order", Key: id.String()}
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &core.Order{
		ID:          dbOrder.ID,
		Status:      core.OrderStatus(dbOrder.Status),
		TotalAmount: dbOrder.TotalAmount,
		UserID:      dbOrder.UserID,
		DeliveryID:  dbOrder.DeliveryID,
	}, nil
}

// UpdateStatusIf performs a single conditional UPDATE: the status column is
// written only when it still holds the expected prior value. Zero affected
// rows means another writer got there first (or the order vanished), which
// surfaces as core.ErrStaleStatus.
func (r *GormOrderRepository) UpdateStatusIf(id uuid.UUID, from, to core.OrderStatus) error {
	res := r.gormDB.Model(&db.Order{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrStaleStatus
	}
	return nil
}

// GormOrderEventRepository implements the OrderEventRepository output port.
type GormOrderEventRepository struct {
	gormDB *gorm.DB
}

// NewGormOrderEventRepository creates a new GORM order event repository
func NewGormOrderEventRepository(gormDB *gorm.DB) output.OrderEventRepository {
	return &GormOrderEventRepository{gormDB: gormDB}
}

// Append records a payment event in the order history log. The event id is
// the primary key, so a redelivered event inserts nothing.
func (r *GormOrderEventRepository) Append(evt core.PaymentEvent) error {
	row := db.OrderEvent{
		EventID:    evt.EventID,
		OrderID:    evt.OrderID,
		PaymentID:  evt.PaymentID,
		SessionID:  evt.SessionID,
		Status:     string(evt.Status),
		OccurredAt: evt.OccurredAt,
	}
	err := r.gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}
