package stock

import (
	"context"
	"fmt"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/id"
	"storeops/internal/core/tx"
	"storeops/internal/domain/catalog"
	"storeops/pkg/logger"
)

// Service applies stock movements and serves the ledger read model.
type Service struct {
	repo Repository
	txm  tx.Manager
	now  clock.Func
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source for entry timestamps.
func WithClock(now clock.Func) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txm tx.Manager, opts ...Option) *Service {
	s := &Service{repo: repo, txm: txm, now: clock.System}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lock loads and locks the given products for the rest of the transaction.
// It fails with NotFound if any product does not exist.
func (s *Service) Lock(ctx context.Context, productIDs []id.ID) (map[id.ID]catalog.Product, error) {
	ids := id.SortedUnique(productIDs)
	products, err := s.repo.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	byID := make(map[id.ID]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, pid := range ids {
		if _, ok := byID[pid]; !ok {
			return nil, apperror.NewNotFound("product", pid)
		}
	}
	return byID, nil
}

type productDelta struct {
	in, out int64
}

// Commit applies all movements or none. It joins the caller's transaction
// when there is one.
func (s *Service) Commit(ctx context.Context, c Commit) error {
	if err := c.validate(); err != nil {
		return err
	}
	if len(c.Movements) == 0 {
		return nil
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		deltas := make(map[id.ID]*productDelta)
		ids := make([]id.ID, 0, len(c.Movements))
		for _, m := range c.Movements {
			d, ok := deltas[m.ProductID]
			if !ok {
				d = &productDelta{}
				deltas[m.ProductID] = d
				ids = append(ids, m.ProductID)
			}
			if m.Direction == DirectionIn {
				d.in += m.Quantity
			} else {
				d.out += m.Quantity
			}
		}

		products, err := s.Lock(ctx, ids)
		if err != nil {
			return err
		}

		// check everything before writing anything
		for _, pid := range id.SortedUnique(ids) {
			p, d := products[pid], deltas[pid]
			if d.out == 0 {
				continue
			}
			// INs of the same commit count, so an exchange back into an
			// out-of-stock product is allowed
			if c.RequireSellable && !nextStatus(p.Status, p.StockQuantity+d.in).Sellable() {
				return apperror.NewInsufficientStock(pid.String(), d.out, 0).
					WithDetail("status", string(p.Status))
			}
			if available := p.StockQuantity + d.in; !c.AllowShortfall && available < d.out {
				return apperror.NewInsufficientStock(pid.String(), d.out, available)
			}
		}

		for _, pid := range id.SortedUnique(ids) {
			p, d := products[pid], deltas[pid]
			qty := p.StockQuantity + d.in - d.out
			if qty < 0 {
				logger.Warn(ctx, "stock counter below zero after paid deduction",
					"product_id", pid,
					"counter", qty,
					"reference_type", c.ReferenceType,
					"reference_id", c.ReferenceID,
				)
			}
			if err := s.repo.SetStock(ctx, pid, qty, nextStatus(p.Status, qty)); err != nil {
				return fmt.Errorf("set stock for %s: %w", pid, err)
			}
		}

		now := s.now()
		entries := make([]Entry, 0, len(c.Movements))
		for _, m := range c.Movements {
			entries = append(entries, Entry{
				ID:            id.New(),
				ProductID:     m.ProductID,
				Direction:     m.Direction,
				Quantity:      m.Quantity,
				ReferenceType: c.ReferenceType,
				ReferenceID:   c.ReferenceID,
				ActorID:       c.ActorID,
				Notes:         c.Notes,
				CreatedAt:     now,
			})
		}
		if err := s.repo.Append(ctx, entries); err != nil {
			return fmt.Errorf("append ledger entries: %w", err)
		}

		logger.Debug(ctx, "committed stock movements",
			"count", len(entries),
			"reference_type", c.ReferenceType,
			"reference_id", c.ReferenceID,
		)
		return nil
	})
}

// List returns one page of ledger entries.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.ReferenceType != nil && !filter.ReferenceType.Valid() {
		return ListResult{}, apperror.NewValidation("unknown reference type").
			WithDetail("referenceType", string(*filter.ReferenceType))
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return ListResult{}, apperror.NewValidation("from must be before to")
	}
	filter.Normalize()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list ledger: %w", err)
	}
	return ListResult{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Drift returns the products whose counter disagrees with the ledger.
func (s *Service) Drift(ctx context.Context, productIDs []id.ID) ([]Balance, error) {
	balances, err := s.repo.Balances(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	var drifted []Balance
	for _, b := range balances {
		if b.Drifted() {
			drifted = append(drifted, b)
		}
	}
	return drifted, nil
}

func (c Commit) validate() error {
	if !c.ReferenceType.Valid() {
		return apperror.NewValidation("unknown reference type").
			WithDetail("referenceType", string(c.ReferenceType))
	}
	if id.IsNil(c.ReferenceID) {
		return apperror.NewValidation("reference id is required")
	}
	for i, m := range c.Movements {
		if m.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if m.Direction != DirectionIn && m.Direction != DirectionOut {
			return apperror.NewValidation(fmt.Sprintf("movement %d: unknown direction", i))
		}
		if id.IsNil(m.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: product is required", i))
		}
	}
	return nil
}

// nextStatus flips between IN_STOCK and OUT_OF_STOCK. Discontinued products
// keep their status.
func nextStatus(current catalog.ProductStatus, qty int64) catalog.ProductStatus {
	switch {
	case current == catalog.ProductInStock && qty <= 0:
		return catalog.ProductOutOfStock
	case current == catalog.ProductOutOfStock && qty > 0:
		return catalog.ProductInStock
	default:
		return current
	}
}

