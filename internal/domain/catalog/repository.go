package catalog

import (
	"context"

	"storeops/internal/core/id"
)

// ProductRepository reads products without locking them.
// Stock-changing reads go through the stock ledger, which locks.
type ProductRepository interface {
	Get(ctx context.Context, productID id.ID) (*Product, error)
	GetMany(ctx context.Context, productIDs []id.ID) ([]Product, error)
}

// CustomerRepository reads customers and their saved addresses.
type CustomerRepository interface {
	GetCustomer(ctx context.Context, customerID id.ID) (*Customer, error)

	// GetAddress returns NotFound when the address belongs to another customer.
	GetAddress(ctx context.Context, customerID, addressID id.ID) (*Address, error)

	// GetDefaultAddress returns nil, nil when the customer has no default address.
	GetDefaultAddress(ctx context.Context, customerID id.ID) (*Address, error)
}

// CartRepository reads and clears shopping carts.
type CartRepository interface {
	Items(ctx context.Context, customerID id.ID) ([]CartItem, error)
	Clear(ctx context.Context, customerID id.ID) error
}
