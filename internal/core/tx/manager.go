// Package tx defines the transaction boundary used by domain services.
// The postgres implementation lives in infrastructure/storage/postgres;
// tests use the in-memory one from internal/testutil/memstore.
package tx

import (
	"context"
)

// Manager runs fn inside one database transaction.
// The transaction travels in ctx; repositories pick it up from there.
// A nested call joins the outer transaction. A returned error rolls
// everything back, including the outer transaction's pending work.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
