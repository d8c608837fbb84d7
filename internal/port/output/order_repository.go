package output

import (
	"github.com/google/uuid"
	"github.com/storefront/payment-gateway/internal/core"
)

// OrderRepository is an output port for the order rows the payment subsystem
// reads and conditionally advances. The full order model is owned elsewhere.
type OrderRepository interface {
	// GetByID retrieves an order by its ID
	GetByID(id uuid.UUID) (*core.Order, error)

	// UpdateStatusIf writes the new status only if the stored status still
	// equals from, returning core.ErrStaleStatus otherwise. This is the
	// compare-and-swap primitive that arbitrates concurrent initiations and
	// keeps the synchronizer from regressing an advanced order.
	UpdateStatusIf(id uuid.UUID, from, to core.OrderStatus) error
}
