// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/infrastructure/storage/postgres"
)

const (
	ledgerTable   = "stock_ledger"
	productsTable = "products"

	// Ledgers of this many entries or more go through COPY.
	copyThreshold = 32
)

var ledgerColumns = []string{
	"id", "product_id", "direction", "quantity",
	"reference_type", "reference_id", "actor_id", "notes", "created_at",
}

var productColumns = []string{
	"id", "code", "name", "image_url", "price",
	"stock_quantity", "opening_stock", "status",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LockProducts locks product rows in ascending id order, so two orders
// touching the same products never deadlock.
func (r *StockRepo) LockProducts(ctx context.Context, productIDs []id.ID) ([]catalog.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	sql, args, err := r.lockProductsQuery(productIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []catalog.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

func (r *StockRepo) lockProductsQuery(productIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

// SetStock overwrites the counter and status of a product.
func (r *StockRepo) SetStock(ctx context.Context, productID id.ID, quantity int64, status catalog.ProductStatus) error {
	sql, args, err := r.builder.Update(productsTable).
		Set("stock_quantity", quantity).
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock: product %s not found", productID)
	}
	return nil
}

// Append inserts ledger entries. Large batches use COPY.
func (r *StockRepo) Append(ctx context.Context, entries []stock.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	if len(entries) >= copyThreshold && r.txm.InTransaction(ctx) {
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, ledgerValues(e))
		}
		if _, err := r.txm.CopyIn(ctx, ledgerTable, ledgerColumns, rows); err != nil {
			return fmt.Errorf("copy ledger entries: %w", err)
		}
		return nil
	}

	sql, args, err := r.appendQuery(entries).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

func (r *StockRepo) appendQuery(entries []stock.Entry) squirrel.InsertBuilder {
	q := r.builder.Insert(ledgerTable).Columns(ledgerColumns...)
	for _, e := range entries {
		q = q.Values(ledgerValues(e)...)
	}
	return q
}

func ledgerValues(e stock.Entry) []any {
	return []any{
		e.ID, e.ProductID, e.Direction, e.Quantity,
		e.ReferenceType, e.ReferenceID, e.ActorID, e.Notes, e.CreatedAt,
	}
}

// List returns a page of entries, newest first, and the filtered total.
func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) ([]stock.Entry, int, error) {
	where := ledgerWhere(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From(ledgerTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	sql, args, err := r.builder.Select(ledgerColumns...).
		From(ledgerTable).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var total int
	entries := make([]stock.Entry, 0)
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		q := r.txm.GetQuerier(ctx)
		if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count ledger entries: %w", err)
		}
		if err := pgxscan.Select(ctx, q, &entries, sql, args...); err != nil {
			return fmt.Errorf("select ledger entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func ledgerWhere(f stock.ListFilter) squirrel.And {
	where := squirrel.And{}
	if f.ProductID != nil {
		where = append(where, squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.ReferenceType != nil {
		where = append(where, squirrel.Eq{"reference_type": *f.ReferenceType})
	}
	if f.ReferenceID != nil {
		where = append(where, squirrel.Eq{"reference_id": *f.ReferenceID})
	}
	if f.Direction != nil {
		where = append(where, squirrel.Eq{"direction": *f.Direction})
	}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"created_at": *f.To})
	}
	return where
}

// Balances sums the ledger per product next to its counter.
func (r *StockRepo) Balances(ctx context.Context, productIDs []id.ID) ([]stock.Balance, error) {
	sql, args, err := r.balancesQuery(productIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

func (r *StockRepo) balancesQuery(productIDs []id.ID) squirrel.SelectBuilder {
	q := r.builder.Select(
		"p.id AS product_id",
		"p.stock_quantity",
		"p.opening_stock",
		"COALESCE(SUM(l.quantity) FILTER (WHERE l.direction = 'IN'), 0) AS total_in",
		"COALESCE(SUM(l.quantity) FILTER (WHERE l.direction = 'OUT'), 0) AS total_out",
	).
		From(productsTable + " p").
		LeftJoin(ledgerTable + " l ON l.product_id = p.id").
		GroupBy("p.id", "p.stock_quantity", "p.opening_stock").
		OrderBy("p.id")
	if len(productIDs) > 0 {
		q = q.Where(squirrel.Eq{"p.id": productIDs})
	}
	return q
}

var _ stock.Repository = (*StockRepo)(nil)
