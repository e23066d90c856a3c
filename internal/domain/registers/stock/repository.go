package stock

import (
	"context"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
)

// Repository persists stock counters and ledger entries.
type Repository interface {
	// LockProducts returns the products with their rows locked until the
	// transaction ends. Locks are taken in ascending id order.
	// Unknown ids are simply missing from the result.
	LockProducts(ctx context.Context, productIDs []id.ID) ([]catalog.Product, error)

	// SetStock overwrites the counter and sale status of a locked product.
	SetStock(ctx context.Context, productID id.ID, quantity int64, status catalog.ProductStatus) error

	// Append inserts ledger entries.
	Append(ctx context.Context, entries []Entry) error

	// List returns one page of entries and the total count for the filter.
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)

	// Balances aggregates the ledger per product. Empty productIDs means all products.
	Balances(ctx context.Context, productIDs []id.ID) ([]Balance, error)
}
