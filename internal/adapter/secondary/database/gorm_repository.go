package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/constant/model/db"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/port/output"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository is a secondary adapter that implements the
// PaymentRepository output port
type GormPaymentRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(gormDB *gorm.DB) output.PaymentRepository {
	return &GormPaymentRepository{gormDB: gormDB}
}

// toCore converts db.Payment to core.Payment
func toCore(p *db.Payment) *core.Payment {
	meta := core.Metadata{}
	if len(p.Metadata) > 0 {
		// Stored by this adapter as a JSON object; an unreadable document is
		// surfaced as an empty one rather than failing the read.
		_ = json.Unmarshal(p.Metadata, &meta)
	}
	return &core.Payment{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		SessionID:             p.SessionID,
		MerchantID:            p.MerchantID,
		PosID:                 p.PosID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                core.PaymentStatus(p.Status),
		ExternalTransactionID: p.ExternalTransactionID,
		PaymentMethod:         p.PaymentMethod,
		ErrorCode:             p.ErrorCode,
		ErrorMessage:          p.ErrorMessage,
		Metadata:              meta,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// fromCore converts core.Payment to db.Payment
func fromCore(p *core.Payment) (*db.Payment, error) {
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment metadata: %w", err)
	}
	return &db.Payment{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		SessionID:             p.SessionID,
		MerchantID:            p.MerchantID,
		PosID:                 p.PosID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                db.PaymentStatus(p.Status),
		ExternalTransactionID: p.ExternalTransactionID,
		PaymentMethod:         p.PaymentMethod,
		ErrorCode:             p.ErrorCode,
		ErrorMessage:          p.ErrorMessage,
		Metadata:              meta,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}, nil
}

// Create creates a new payment
func (r *GormPaymentRepository) Create(payment *core.Payment) error {
	dbPayment, err := fromCore(payment)
	if err != nil {
		return err
	}
	if err := r.gormDB.Create(dbPayment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	// Update core entity with values set by GORM hooks
	payment.ID = dbPayment.ID
	payment.CreatedAt = dbPayment.CreatedAt
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// GetByID retrieves a payment by its ID
func (r *GormPaymentRepository) GetByID(id uuid.UUID) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.Where("id = ?", id).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &core.NotFoundError{Resource: "payment", Key: id.String()}
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// GetBySessionID retrieves a payment by its gateway session id
func (r *GormPaymentRepository) GetBySessionID(sessionID string) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.Where("session_id = ?", sessionID).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &core.NotFoundError{Resource: "payment", Key: sessionID}
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// GetActiveByOrderID returns the order's INITIATED or COMPLETED payment, or
// nil when the order has none.
func (r *GormPaymentRepository) GetActiveByOrderID(orderID uuid.UUID) (*core.Payment, error) {
	var dbPayment db.Payment
	err := r.gormDB.
		Where("order_id = ? AND status IN ?", orderID,
			[]db.PaymentStatus{db.PaymentStatusInitiated, db.PaymentStatusCompleted}).
		First(&dbPayment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// GetLatestByOrderID returns the order's most recent payment regardless of
// status, or nil when the order has none.
func (r *GormPaymentRepository) GetLatestByOrderID(orderID uuid.UUID) (*core.Payment, error) {
	var dbPayment db.Payment
	err := r.gormDB.
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&dbPayment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// TransitionStatus atomically moves a payment between statuses. The row is
// locked with SELECT FOR UPDATE and the expected prior status re-checked
// under the lock, so only one of several concurrent writers applies the
// transition; the rest get core.ErrStaleStatus.
func (r *GormPaymentRepository) TransitionStatus(sessionID string, from, to core.PaymentStatus, upd output.StatusUpdate) (*core.Payment, error) {
	var result *core.Payment
	err := r.gormDB.Transaction(func(tx *gorm.DB) error {
		var dbPayment db.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&dbPayment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{Resource: "payment", Key: sessionID}
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if dbPayment.Status != db.PaymentStatus(from) {
			return core.ErrStaleStatus
		}

		current := toCore(&dbPayment)
		dbPayment.Status = db.PaymentStatus(to)
		if upd.ExternalTransactionID != "" {
			dbPayment.ExternalTransactionID = upd.ExternalTransactionID
		}
		if upd.PaymentMethod != 0 {
			dbPayment.PaymentMethod = upd.PaymentMethod
		}
		dbPayment.ErrorCode = upd.ErrorCode
		dbPayment.ErrorMessage = upd.ErrorMessage
		if len(upd.Metadata) > 0 {
			merged, err := json.Marshal(current.Metadata.Merge(upd.Metadata))
			if err != nil {
				return fmt.Errorf("failed to marshal payment metadata: %w", err)
			}
			dbPayment.Metadata = merged
		}

		if err := tx.Save(&dbPayment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		result = toCore(&dbPayment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
