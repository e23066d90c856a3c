package returns

import (
	"context"

	"storeops/internal/core/id"
)

// Repository persists return requests. Reads include items.
type Repository interface {
	// Create inserts the request and its items. A second active request for
	// the same order fails with a Conflict error.
	Create(ctx context.Context, r *OrderReturn) error

	Get(ctx context.Context, returnID id.ID) (*OrderReturn, error)
	GetForUpdate(ctx context.Context, returnID id.ID) (*OrderReturn, error)

	// Update writes the header with an optimistic version check.
	Update(ctx context.Context, r *OrderReturn) error

	// HasActive reports whether the order has a PENDING or APPROVED request
	// other than exclude.
	HasActive(ctx context.Context, orderID id.ID, exclude *id.ID) (bool, error)

	// ReturnedQuantities sums item quantities per order line over every
	// request of the order that is not REJECTED, except exclude.
	ReturnedQuantities(ctx context.Context, orderID id.ID, exclude *id.ID) (map[id.ID]int64, error)

	// List returns headers without items.
	List(ctx context.Context, filter ListFilter) ([]OrderReturn, int, error)
}
