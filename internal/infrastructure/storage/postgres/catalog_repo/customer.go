package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/infrastructure/storage/postgres"
)

var (
	customerColumns = postgres.ExtractDBColumns[catalog.Customer]()
	addressColumns  = postgres.ExtractDBColumns[catalog.Address]()
)

// CustomerRepo implements catalog.CustomerRepository.
type CustomerRepo struct {
	baseRepo
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{baseRepo: newBaseRepo(txm)}
}

func (r *CustomerRepo) GetCustomer(ctx context.Context, customerID id.ID) (*catalog.Customer, error) {
	var c catalog.Customer
	q := r.builder.Select(customerColumns...).From("customers").Where(squirrel.Eq{"id": customerID})
	if err := r.get(ctx, &c, q, "customer", customerID); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAddress matches on the owner too, so another customer's address is
// indistinguishable from a missing one.
func (r *CustomerRepo) GetAddress(ctx context.Context, customerID, addressID id.ID) (*catalog.Address, error) {
	var a catalog.Address
	q := r.builder.Select(addressColumns...).From("customer_addresses").
		Where(squirrel.Eq{"id": addressID, "customer_id": customerID})
	if err := r.get(ctx, &a, q, "address", addressID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *CustomerRepo) GetDefaultAddress(ctx context.Context, customerID id.ID) (*catalog.Address, error) {
	var a catalog.Address
	q := r.builder.Select(addressColumns...).From("customer_addresses").
		Where(squirrel.Eq{"customer_id": customerID, "is_default": true}).
		Limit(1)
	if err := r.get(ctx, &a, q, "address", customerID); err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

var _ catalog.CustomerRepository = (*CustomerRepo)(nil)
