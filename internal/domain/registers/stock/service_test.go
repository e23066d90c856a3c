package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/testutil/memstore"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T, products ...catalog.Product) (*memstore.Store, *stock.Service) {
	t.Helper()
	store := memstore.New()
	for _, p := range products {
		store.PutProduct(p)
	}
	return store, stock.NewService(store.Stock(), store, stock.WithClock(clock.Fixed(now)))
}

func product(qty int64, status catalog.ProductStatus) catalog.Product {
	return catalog.Product{
		ID:            id.New(),
		Code:          "SKU",
		Name:          "Item",
		Price:         decimal.NewFromInt(1000),
		StockQuantity: qty,
		OpeningStock:  qty,
		Status:        status,
	}
}

func TestCommit_AppliesMovementsAndRecordsLedger(t *testing.T) {
	a := product(10, catalog.ProductInStock)
	b := product(0, catalog.ProductOutOfStock)
	store, svc := setup(t, a, b)
	ref := id.New()

	err := svc.Commit(context.Background(), stock.Commit{
		ReferenceType: stock.RefPurchaseOrder,
		ReferenceID:   ref,
		Movements: []stock.Movement{
			{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 3},
			{ProductID: b.ID, Direction: stock.DirectionIn, Quantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), store.Product(a.ID).StockQuantity)
	assert.Equal(t, int64(5), store.Product(b.ID).StockQuantity)
	assert.Equal(t, catalog.ProductInStock, store.Product(b.ID).Status)

	entries := store.LedgerFor(ref)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, now, e.CreatedAt)
		assert.Equal(t, stock.RefPurchaseOrder, e.ReferenceType)
	}
}

func TestCommit_InsufficientStockLeavesNothing(t *testing.T) {
	a := product(10, catalog.ProductInStock)
	b := product(1, catalog.ProductInStock)
	store, svc := setup(t, a, b)

	err := svc.Commit(context.Background(), stock.Commit{
		ReferenceType: stock.RefSaleOrder,
		ReferenceID:   id.New(),
		Movements: []stock.Movement{
			{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 2},
			{ProductID: b.ID, Direction: stock.DirectionOut, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, int64(10), store.Product(a.ID).StockQuantity)
	assert.Equal(t, int64(1), store.Product(b.ID).StockQuantity)
	assert.Empty(t, store.Ledger())
}

func TestCommit_AggregatesMovementsOfSameProduct(t *testing.T) {
	a := product(3, catalog.ProductInStock)
	store, svc := setup(t, a)

	err := svc.Commit(context.Background(), stock.Commit{
		ReferenceType: stock.RefSaleOrder,
		ReferenceID:   id.New(),
		Movements: []stock.Movement{
			{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 2},
			{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 2},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, int64(3), store.Product(a.ID).StockQuantity)
}

func TestCommit_StatusFlips(t *testing.T) {
	a := product(2, catalog.ProductInStock)
	store, svc := setup(t, a)
	ctx := context.Background()

	require.NoError(t, svc.Commit(ctx, stock.Commit{
		ReferenceType: stock.RefSaleOrder,
		ReferenceID:   id.New(),
		Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 2}},
	}))
	assert.Equal(t, catalog.ProductOutOfStock, store.Product(a.ID).Status)

	require.NoError(t, svc.Commit(ctx, stock.Commit{
		ReferenceType: stock.RefReturn,
		ReferenceID:   id.New(),
		Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionIn, Quantity: 1}},
	}))
	assert.Equal(t, catalog.ProductInStock, store.Product(a.ID).Status)
}

func TestCommit_DiscontinuedKeepsStatus(t *testing.T) {
	a := product(0, catalog.ProductDiscontinued)
	store, svc := setup(t, a)

	require.NoError(t, svc.Commit(context.Background(), stock.Commit{
		ReferenceType: stock.RefAdjustment,
		ReferenceID:   id.New(),
		Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionIn, Quantity: 4}},
	}))
	assert.Equal(t, catalog.ProductDiscontinued, store.Product(a.ID).Status)
	assert.Equal(t, int64(4), store.Product(a.ID).StockQuantity)
}

func TestCommit_RequireSellable(t *testing.T) {
	a := product(5, catalog.ProductDiscontinued)
	_, svc := setup(t, a)

	err := svc.Commit(context.Background(), stock.Commit{
		ReferenceType:   stock.RefSaleOrder,
		ReferenceID:     id.New(),
		RequireSellable: true,
		Movements:       []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 1}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestCommit_RequireSellableCountsSameCommitIn(t *testing.T) {
	a := product(0, catalog.ProductOutOfStock)
	store, svc := setup(t, a)

	require.NoError(t, svc.Commit(context.Background(), stock.Commit{
		ReferenceType:   stock.RefReturn,
		ReferenceID:     id.New(),
		RequireSellable: true,
		Movements: []stock.Movement{
			{ProductID: a.ID, Direction: stock.DirectionIn, Quantity: 1},
			{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 1},
		},
	}))
	assert.Equal(t, int64(0), store.Product(a.ID).StockQuantity)
}

func TestCommit_AllowShortfallGoesNegative(t *testing.T) {
	a := product(1, catalog.ProductInStock)
	store, svc := setup(t, a)

	require.NoError(t, svc.Commit(context.Background(), stock.Commit{
		ReferenceType:  stock.RefSaleOrder,
		ReferenceID:    id.New(),
		AllowShortfall: true,
		Movements:      []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 3}},
	}))
	assert.Equal(t, int64(-2), store.Product(a.ID).StockQuantity)
	assert.Equal(t, catalog.ProductOutOfStock, store.Product(a.ID).Status)

	drifted, err := svc.Drift(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, drifted, "a negative counter still matches the ledger")
}

func TestSetStock_NegativeCounterNeedsOutOfStock(t *testing.T) {
	a := product(1, catalog.ProductInStock)
	store, _ := setup(t, a)
	ctx := context.Background()

	err := store.Stock().SetStock(ctx, a.ID, -1, catalog.ProductInStock)
	assert.Error(t, err)
	assert.Equal(t, int64(1), store.Product(a.ID).StockQuantity)

	require.NoError(t, store.Stock().SetStock(ctx, a.ID, -1, catalog.ProductOutOfStock))
	require.NoError(t, store.Stock().SetStock(ctx, a.ID, -1, catalog.ProductDiscontinued))
}

func TestCommit_Validation(t *testing.T) {
	a := product(1, catalog.ProductInStock)
	_, svc := setup(t, a)

	tests := []struct {
		name   string
		commit stock.Commit
	}{
		{
			name:   "unknown reference type",
			commit: stock.Commit{ReferenceType: "GIFT", ReferenceID: id.New()},
		},
		{
			name:   "missing reference id",
			commit: stock.Commit{ReferenceType: stock.RefAdjustment},
		},
		{
			name: "zero quantity",
			commit: stock.Commit{
				ReferenceType: stock.RefAdjustment,
				ReferenceID:   id.New(),
				Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionIn}},
			},
		},
		{
			name: "unknown direction",
			commit: stock.Commit{
				ReferenceType: stock.RefAdjustment,
				ReferenceID:   id.New(),
				Movements:     []stock.Movement{{ProductID: a.ID, Direction: "SIDEWAYS", Quantity: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Commit(context.Background(), tt.commit)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCommit_UnknownProduct(t *testing.T) {
	_, svc := setup(t)
	err := svc.Commit(context.Background(), stock.Commit{
		ReferenceType: stock.RefAdjustment,
		ReferenceID:   id.New(),
		Movements:     []stock.Movement{{ProductID: id.New(), Direction: stock.DirectionIn, Quantity: 1}},
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestDrift(t *testing.T) {
	a := product(10, catalog.ProductInStock)
	b := product(4, catalog.ProductInStock)
	store, svc := setup(t, a, b)
	ctx := context.Background()

	require.NoError(t, svc.Commit(ctx, stock.Commit{
		ReferenceType: stock.RefSaleOrder,
		ReferenceID:   id.New(),
		Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 4}},
	}))

	drifted, err := svc.Drift(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, drifted)

	// counter changed behind the ledger's back
	tampered := store.Product(b.ID)
	tampered.StockQuantity = 9
	store.PutProduct(tampered)

	drifted, err = svc.Drift(ctx, nil)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, b.ID, drifted[0].ProductID)
	assert.Equal(t, int64(4), drifted[0].Expected())
}

func TestList(t *testing.T) {
	a := product(10, catalog.ProductInStock)
	_, svc := setup(t, a)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, svc.Commit(ctx, stock.Commit{
			ReferenceType: stock.RefSaleOrder,
			ReferenceID:   id.New(),
			Movements:     []stock.Movement{{ProductID: a.ID, Direction: stock.DirectionOut, Quantity: 1}},
		}))
	}

	res, err := svc.List(ctx, stock.ListFilter{ProductID: &a.ID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Limit)

	res, err = svc.List(ctx, stock.ListFilter{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, stock.MaxListLimit, res.Limit)

	bad := stock.ReferenceType("GIFT")
	_, err = svc.List(ctx, stock.ListFilter{ReferenceType: &bad})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	from, to := now, now.Add(-time.Hour)
	_, err = svc.List(ctx, stock.ListFilter{From: &from, To: &to})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
