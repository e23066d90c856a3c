package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/returns"
	"storeops/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "order_returns"
	returnItemsTable = "order_return_items"

	// partial unique index on order_id for PENDING and APPROVED requests
	activeReturnIndex = "uq_order_returns_active"
)

var activeReturnStatuses = []returns.Status{returns.StatusPending, returns.StatusApproved}

// ReturnRepo implements returns.Repository.
type ReturnRepo struct {
	baseRepo[returns.OrderReturn]
}

// NewReturnRepo creates a new return request repository.
func NewReturnRepo(txm *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{baseRepo: newBaseRepo[returns.OrderReturn](txm, returnsTable, "order_return")}
}

// Create inserts the request and its items. The active-request index turns
// a concurrent second request into ActiveReturnExists.
func (r *ReturnRepo) Create(ctx context.Context, ret *returns.OrderReturn) error {
	if err := r.insert(ctx, ret); err != nil {
		if postgres.IsUniqueViolation(err, activeReturnIndex) {
			return apperror.NewActiveReturnExists(ret.OrderID)
		}
		return err
	}

	q := r.builder.Insert(returnItemsTable).Columns(
		"id", "return_id", "order_line_id", "product_id", "quantity",
		"unit_price", "refund", "exchange_product_id", "exchange_quantity",
	)
	for _, it := range ret.Items {
		q = q.Values(it.ID, ret.ID, it.OrderLineID, it.ProductID, it.Quantity,
			it.UnitPrice, it.Refund, it.ExchangeProductID, it.ExchangeQuantity)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert return items: %w", err)
	}
	return nil
}

// Get returns the request with its items.
func (r *ReturnRepo) Get(ctx context.Context, returnID id.ID) (*returns.OrderReturn, error) {
	return r.getWithItems(ctx, r.selectQuery().Where(squirrel.Eq{"id": returnID}), returnID)
}

// GetForUpdate returns the request with its items and locks the header row.
func (r *ReturnRepo) GetForUpdate(ctx context.Context, returnID id.ID) (*returns.OrderReturn, error) {
	return r.getWithItems(ctx, r.selectQuery().Where(squirrel.Eq{"id": returnID}).Suffix("FOR UPDATE"), returnID)
}

func (r *ReturnRepo) getWithItems(ctx context.Context, q squirrel.SelectBuilder, key any) (*returns.OrderReturn, error) {
	ret, err := r.getOne(ctx, q, key)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.builder.Select(postgres.ExtractDBColumns[returns.Item]()...).
		From(returnItemsTable).
		Where(squirrel.Eq{"return_id": ret.ID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &ret.Items, sql, args...); err != nil {
		return nil, fmt.Errorf("select return items: %w", err)
	}
	return ret, nil
}

// Update writes the header with an optimistic version check.
func (r *ReturnRepo) Update(ctx context.Context, ret *returns.OrderReturn) error {
	if err := r.update(ctx, ret); err != nil {
		if postgres.IsUniqueViolation(err, activeReturnIndex) {
			return apperror.NewActiveReturnExists(ret.OrderID)
		}
		return err
	}
	ret.Version++
	return nil
}

// HasActive reports whether the order has another PENDING or APPROVED request.
func (r *ReturnRepo) HasActive(ctx context.Context, orderID id.ID, exclude *id.ID) (bool, error) {
	sub := r.builder.Select("1").From(returnsTable).
		Where(squirrel.Eq{"order_id": orderID, "status": activeReturnStatuses})
	if exclude != nil {
		sub = sub.Where(squirrel.NotEq{"id": *exclude})
	}
	sql, args, err := sub.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active return: %w", err)
	}
	return exists, nil
}

// ReturnedQuantities sums item quantities per order line over the order's
// requests that were not rejected.
func (r *ReturnRepo) ReturnedQuantities(ctx context.Context, orderID id.ID, exclude *id.ID) (map[id.ID]int64, error) {
	q := r.builder.Select("i.order_line_id", "SUM(i.quantity) AS quantity").
		From(returnItemsTable + " i").
		Join(returnsTable + " r ON r.id = i.return_id").
		Where(squirrel.Eq{"r.order_id": orderID}).
		Where(squirrel.NotEq{"r.status": returns.StatusRejected}).
		GroupBy("i.order_line_id")
	if exclude != nil {
		q = q.Where(squirrel.NotEq{"r.id": *exclude})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		OrderLineID id.ID `db:"order_line_id"`
		Quantity    int64 `db:"quantity"`
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum returned quantities: %w", err)
	}

	out := make(map[id.ID]int64, len(rows))
	for _, row := range rows {
		out[row.OrderLineID] = row.Quantity
	}
	return out, nil
}

// List returns headers, newest first.
func (r *ReturnRepo) List(ctx context.Context, filter returns.ListFilter) ([]returns.OrderReturn, int, error) {
	q := r.selectQuery()
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	return r.list(ctx, q, "created_at DESC", filter.Limit, filter.Offset)
}

var _ returns.Repository = (*ReturnRepo)(nil)
