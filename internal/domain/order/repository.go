package order

import (
	"context"

	"storeops/internal/core/id"
)

// Repository persists orders. Reads return the order with its lines.
type Repository interface {
	// Create inserts the header and all lines.
	Create(ctx context.Context, o *Order) error

	Get(ctx context.Context, orderID id.ID) (*Order, error)

	// GetForUpdate locks the order row until the transaction ends.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// GetByPaymentLinkForUpdate finds and locks the order of a payment link.
	GetByPaymentLinkForUpdate(ctx context.Context, paymentLinkID string) (*Order, error)

	// Update writes the header. It fails with ConcurrentModification when the
	// stored version differs from o.Version, and increments o.Version otherwise.
	// Lines are never updated.
	Update(ctx context.Context, o *Order) error

	// List returns headers without lines.
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
}

// ListFilter selects orders.
type ListFilter struct {
	CustomerID *id.ID
	Status     *Status
	Limit      int
	Offset     int
}
