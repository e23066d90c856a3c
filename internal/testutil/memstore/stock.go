package memstore

import (
	"context"
	"fmt"
	"slices"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/registers/stock"
)

type stockRepo struct{ s *Store }

func (r stockRepo) LockProducts(ctx context.Context, productIDs []id.ID) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, pid := range productIDs {
			if p, ok := st.products[pid]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Product) int { return id.Compare(a.ID, b.ID) })
	return out, err
}

func (r stockRepo) SetStock(ctx context.Context, productID id.ID, quantity int64, status catalog.ProductStatus) error {
	return r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		// ck_products_stock_in_stock
		if quantity < 0 && status == catalog.ProductInStock {
			return fmt.Errorf("update stock: product %s: negative counter with status %s", productID, status)
		}
		p.StockQuantity = quantity
		p.Status = status
		st.products[productID] = p
		return nil
	})
}

func (r stockRepo) Append(ctx context.Context, entries []stock.Entry) error {
	return r.s.do(ctx, func(st *state) error {
		st.ledger = append(st.ledger, entries...)
		return nil
	})
}

func (r stockRepo) List(ctx context.Context, filter stock.ListFilter) ([]stock.Entry, int, error) {
	var (
		out   []stock.Entry
		total int
	)
	err := r.s.do(ctx, func(st *state) error {
		var matched []stock.Entry
		for _, e := range st.ledger {
			if matchEntry(e, filter) {
				matched = append(matched, e)
			}
		}
		slices.Reverse(matched)
		total = len(matched)
		out = page(matched, filter.Limit, filter.Offset)
		return nil
	})
	return out, total, err
}

func matchEntry(e stock.Entry, f stock.ListFilter) bool {
	switch {
	case f.ProductID != nil && e.ProductID != *f.ProductID:
		return false
	case f.ReferenceType != nil && e.ReferenceType != *f.ReferenceType:
		return false
	case f.ReferenceID != nil && e.ReferenceID != *f.ReferenceID:
		return false
	case f.Direction != nil && e.Direction != *f.Direction:
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !e.CreatedAt.Before(*f.To):
		return false
	}
	return true
}

func (r stockRepo) Balances(ctx context.Context, productIDs []id.ID) ([]stock.Balance, error) {
	var out []stock.Balance
	err := r.s.do(ctx, func(st *state) error {
		ids := productIDs
		if len(ids) == 0 {
			for pid := range st.products {
				ids = append(ids, pid)
			}
		}
		for _, pid := range ids {
			p, ok := st.products[pid]
			if !ok {
				continue
			}
			b := stock.Balance{ProductID: pid, Counter: p.StockQuantity, OpeningStock: p.OpeningStock}
			for _, e := range st.ledger {
				if e.ProductID != pid {
					continue
				}
				if e.Direction == stock.DirectionIn {
					b.TotalIn += e.Quantity
				} else {
					b.TotalOut += e.Quantity
				}
			}
			out = append(out, b)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b stock.Balance) int { return id.Compare(a.ProductID, b.ProductID) })
	return out, err
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return slices.Clone(items)
}
