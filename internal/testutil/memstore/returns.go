package memstore

import (
	"context"
	"slices"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/returns"
)

type returnRepo struct{ s *Store }

func (r returnRepo) Create(ctx context.Context, ret *returns.OrderReturn) error {
	return r.s.do(ctx, func(st *state) error {
		if ret.Status.Active() {
			for _, other := range st.returns {
				if other.OrderID == ret.OrderID && other.Status.Active() {
					return apperror.NewActiveReturnExists(ret.OrderID)
				}
			}
		}
		st.returns[ret.ID] = copyReturn(*ret)
		return nil
	})
}

func (r returnRepo) Get(ctx context.Context, returnID id.ID) (*returns.OrderReturn, error) {
	var out *returns.OrderReturn
	err := r.s.do(ctx, func(st *state) error {
		ret, ok := st.returns[returnID]
		if !ok {
			return apperror.NewNotFound("return request", returnID)
		}
		ret = copyReturn(ret)
		out = &ret
		return nil
	})
	return out, err
}

func (r returnRepo) GetForUpdate(ctx context.Context, returnID id.ID) (*returns.OrderReturn, error) {
	return r.Get(ctx, returnID)
}

func (r returnRepo) Update(ctx context.Context, ret *returns.OrderReturn) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.returns[ret.ID]
		if !ok {
			return apperror.NewNotFound("return request", ret.ID)
		}
		if stored.Version != ret.Version {
			return apperror.NewConcurrentModification("return request", ret.ID)
		}
		ret.Version++
		next := copyReturn(*ret)
		next.Items = stored.Items
		st.returns[ret.ID] = next
		return nil
	})
}

func (r returnRepo) HasActive(ctx context.Context, orderID id.ID, exclude *id.ID) (bool, error) {
	var found bool
	err := r.s.do(ctx, func(st *state) error {
		for _, ret := range st.returns {
			if ret.OrderID != orderID || !ret.Status.Active() {
				continue
			}
			if exclude != nil && ret.ID == *exclude {
				continue
			}
			found = true
			return nil
		}
		return nil
	})
	return found, err
}

func (r returnRepo) ReturnedQuantities(ctx context.Context, orderID id.ID, exclude *id.ID) (map[id.ID]int64, error) {
	out := make(map[id.ID]int64)
	err := r.s.do(ctx, func(st *state) error {
		for _, ret := range st.returns {
			if ret.OrderID != orderID || ret.Status == returns.StatusRejected {
				continue
			}
			if exclude != nil && ret.ID == *exclude {
				continue
			}
			for _, it := range ret.Items {
				out[it.OrderLineID] += it.Quantity
			}
		}
		return nil
	})
	return out, err
}

func (r returnRepo) List(ctx context.Context, filter returns.ListFilter) ([]returns.OrderReturn, int, error) {
	var (
		out   []returns.OrderReturn
		total int
	)
	err := r.s.do(ctx, func(st *state) error {
		var matched []returns.OrderReturn
		for _, ret := range st.returns {
			switch {
			case filter.Status != nil && ret.Status != *filter.Status,
				filter.Type != nil && ret.Type != *filter.Type,
				filter.CustomerID != nil && ret.CustomerID != *filter.CustomerID,
				filter.OrderID != nil && ret.OrderID != *filter.OrderID:
				continue
			}
			ret.Items = nil
			matched = append(matched, ret)
		}
		slices.SortFunc(matched, func(a, b returns.OrderReturn) int { return b.CreatedAt.Compare(a.CreatedAt) })
		total = len(matched)
		out = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, total, err
}
