package memstore

import (
	"context"
	"slices"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
)

type productRepo struct{ s *Store }

func (r productRepo) Get(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r productRepo) GetMany(ctx context.Context, productIDs []id.ID) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, pid := range productIDs {
			if p, ok := st.products[pid]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetCustomer(ctx context.Context, customerID id.ID) (*catalog.Customer, error) {
	var out *catalog.Customer
	err := r.s.do(ctx, func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok {
			return apperror.NewNotFound("customer", customerID)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r customerRepo) GetAddress(ctx context.Context, customerID, addressID id.ID) (*catalog.Address, error) {
	var out *catalog.Address
	err := r.s.do(ctx, func(st *state) error {
		a, ok := st.addresses[addressID]
		if !ok || a.CustomerID != customerID {
			return apperror.NewNotFound("address", addressID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r customerRepo) GetDefaultAddress(ctx context.Context, customerID id.ID) (*catalog.Address, error) {
	var out *catalog.Address
	err := r.s.do(ctx, func(st *state) error {
		for _, a := range st.addresses {
			if a.CustomerID == customerID && a.IsDefault {
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, err
}

type cartRepo struct{ s *Store }

func (r cartRepo) Items(ctx context.Context, customerID id.ID) ([]catalog.CartItem, error) {
	var out []catalog.CartItem
	err := r.s.do(ctx, func(st *state) error {
		out = slices.Clone(st.carts[customerID])
		return nil
	})
	return out, err
}

func (r cartRepo) Clear(ctx context.Context, customerID id.ID) error {
	return r.s.do(ctx, func(st *state) error {
		delete(st.carts, customerID)
		return nil
	})
}
