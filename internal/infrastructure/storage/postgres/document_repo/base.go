// Package document_repo provides PostgreSQL implementations for order,
// return and shipment repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"storeops/internal/core/apperror"
	"storeops/internal/infrastructure/storage/postgres"
)

// baseRepo carries the versioned header operations shared by documents.
type baseRepo[T any] struct {
	txm     *postgres.TxManager
	table   string
	entity  string
	columns []string
	builder squirrel.StatementBuilderType
}

func newBaseRepo[T any](txm *postgres.TxManager, table, entity string) baseRepo[T] {
	return baseRepo[T]{
		txm:     txm,
		table:   table,
		entity:  entity,
		columns: postgres.ExtractDBColumns[T](),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *baseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *baseRepo[T]) insertQuery(v *T) squirrel.InsertBuilder {
	return r.builder.Insert(r.table).SetMap(postgres.StructToMap(v))
}

func (r *baseRepo[T]) insert(ctx context.Context, v *T) error {
	sql, args, err := r.insertQuery(v).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	return nil
}

// updateQuery writes every column except the immutable ones, guarded by
// the version the caller read.
func (r *baseRepo[T]) updateQuery(v *T) (squirrel.UpdateBuilder, error) {
	data := postgres.StructToMap(v)
	entityID, ok := data["id"]
	if !ok {
		return squirrel.UpdateBuilder{}, fmt.Errorf("%s has no id column", r.table)
	}
	version, ok := data["version"].(int)
	if !ok {
		return squirrel.UpdateBuilder{}, fmt.Errorf("%s has no int version column", r.table)
	}

	q := r.builder.Update(r.table)
	for _, col := range r.columns {
		switch col {
		case "id", "created_at", "version":
			continue
		}
		q = q.Set(col, data[col])
	}
	return q.
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}), nil
}

func (r *baseRepo[T]) update(ctx context.Context, v *T) error {
	q, err := r.updateQuery(v)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entity, postgres.StructToMap(v)["id"])
	}
	return nil
}

func (r *baseRepo[T]) selectQuery() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(r.table)
}

// getOne runs q and maps no rows to NotFound(key).
func (r *baseRepo[T]) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	v := new(T)
	if err := pgxscan.Get(ctx, r.querier(ctx), v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entity, key)
		}
		return nil, fmt.Errorf("get %s: %w", r.table, err)
	}
	return v, nil
}

// list returns one page of q and the total row count of q.
func (r *baseRepo[T]) list(ctx context.Context, q squirrel.SelectBuilder, orderBy string, limit, offset int) ([]T, int, error) {
	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table, err)
	}

	q = q.OrderBy(orderBy, "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	items := make([]T, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.table, err)
	}
	return items, total, nil
}
