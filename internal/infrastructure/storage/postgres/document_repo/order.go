package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storeops/internal/core/id"
	"storeops/internal/domain/order"
	"storeops/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "orders"
	orderLinesTable = "order_lines"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	baseRepo[order.Order]
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		baseRepo: newBaseRepo[order.Order](txm, ordersTable, "order"),
	}
}

// Create inserts the header and its lines.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if err := r.insert(ctx, o); err != nil {
		return err
	}
	if len(o.Lines) == 0 {
		return nil
	}

	sql, args, err := r.linesInsertQuery(o).ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

func (r *OrderRepo) linesInsertQuery(o *order.Order) squirrel.InsertBuilder {
	q := r.builder.Insert(orderLinesTable).Columns(
		"id", "order_id", "product_id", "quantity", "unit_price",
		"product_name", "product_code", "product_image",
	)
	for _, l := range o.Lines {
		q = q.Values(l.ID, o.ID, l.ProductID, l.Quantity, l.UnitPrice, l.Name, l.Code, l.ImageURL)
	}
	return q
}

// Get returns the order with its lines.
func (r *OrderRepo) Get(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.getWithLines(ctx, r.selectQuery().Where(squirrel.Eq{"id": orderID}), orderID)
}

// GetForUpdate returns the order with its lines and locks the header row.
func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.getWithLines(ctx, r.selectQuery().Where(squirrel.Eq{"id": orderID}).Suffix("FOR UPDATE"), orderID)
}

// GetByPaymentLinkForUpdate finds and locks the order of a PayOS payment link.
func (r *OrderRepo) GetByPaymentLinkForUpdate(ctx context.Context, paymentLinkID string) (*order.Order, error) {
	q := r.selectQuery().Where(squirrel.Eq{"payment_link_id": paymentLinkID}).Suffix("FOR UPDATE")
	return r.getWithLines(ctx, q, paymentLinkID)
}

func (r *OrderRepo) getWithLines(ctx context.Context, q squirrel.SelectBuilder, key any) (*order.Order, error) {
	o, err := r.getOne(ctx, q, key)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.builder.
		Select("id", "order_id", "product_id", "quantity", "unit_price", "product_name", "product_code", "product_image").
		From(orderLinesTable).
		Where(squirrel.Eq{"order_id": o.ID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &o.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	return o, nil
}

// Update writes the header with an optimistic version check.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	if err := r.update(ctx, o); err != nil {
		return err
	}
	o.Version++
	return nil
}

// List returns headers, newest first.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int, error) {
	q := r.selectQuery()
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	return r.list(ctx, q, "order_date DESC", filter.Limit, filter.Offset)
}

var _ order.Repository = (*OrderRepo)(nil)
