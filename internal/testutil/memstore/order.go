package memstore

import (
	"context"
	"slices"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/order"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.s.do(ctx, func(st *state) error {
		if _, exists := st.orders[o.ID]; exists {
			return apperror.NewDuplicate("order", "id", o.ID.String())
		}
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r orderRepo) Get(ctx context.Context, orderID id.ID) (*order.Order, error) {
	var out *order.Order
	err := r.s.do(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("order", orderID)
		}
		o = copyOrder(o)
		out = &o
		return nil
	})
	return out, err
}

func (r orderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.Get(ctx, orderID)
}

func (r orderRepo) GetByPaymentLinkForUpdate(ctx context.Context, paymentLinkID string) (*order.Order, error) {
	var out *order.Order
	err := r.s.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.PaymentLinkID != nil && *o.PaymentLinkID == paymentLinkID {
				o = copyOrder(o)
				out = &o
				return nil
			}
		}
		return apperror.NewNotFound("order", paymentLinkID)
	})
	return out, err
}

func (r orderRepo) Update(ctx context.Context, o *order.Order) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.orders[o.ID]
		if !ok {
			return apperror.NewNotFound("order", o.ID)
		}
		if stored.Version != o.Version {
			return apperror.NewConcurrentModification("order", o.ID)
		}
		o.Version++
		next := copyOrder(*o)
		next.Lines = stored.Lines
		st.orders[o.ID] = next
		return nil
	})
}

func (r orderRepo) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int, error) {
	var (
		out   []order.Order
		total int
	)
	err := r.s.do(ctx, func(st *state) error {
		var matched []order.Order
		for _, o := range st.orders {
			if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
				continue
			}
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			o.Lines = nil
			matched = append(matched, o)
		}
		slices.SortFunc(matched, func(a, b order.Order) int { return b.OrderDate.Compare(a.OrderDate) })
		total = len(matched)
		out = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, total, err
}
