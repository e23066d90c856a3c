// Package testutil wires the domain services over the in-memory store.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storeops/internal/core/id"
	"storeops/internal/core/numerator"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/order"
	"storeops/internal/domain/payment"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/returns"
	"storeops/internal/domain/settings"
	"storeops/internal/domain/shipping"
	"storeops/internal/testutil/memstore"
)

// ChecksumKey signs payment webhooks in tests.
const ChecksumKey = "test-checksum-key"

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// Now returns the current test time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// World is a fully wired set of services over one store.
type World struct {
	Store      *memstore.Store
	Clock      *Clock
	Settings   *settings.Fixed
	Stock      *stock.Service
	Promotions *promotion.Engine
	Orders     *order.Service
	Returns    *returns.Service
	Shipping   *shipping.Service
	Payments   *payment.Reconciler
	Verifier   *payment.Verifier
}

// NewWorld builds a World starting at 2026-04-01 10:00 UTC with the default
// settings.
func NewWorld(t *testing.T) *World {
	t.Helper()

	store := memstore.New()
	clk := &Clock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	cfg := &settings.Fixed{Snapshot: settings.Defaults()}
	numbers := &numerator.Sequence{}

	stockSvc := stock.NewService(store.Stock(), store, stock.WithClock(clk.Now))
	engine, err := promotion.NewEngine(store.Promotions(), promotion.WithClock(clk.Now))
	require.NoError(t, err)

	orders := order.NewService(order.Deps{
		Tx:        store,
		Orders:    store.Orders(),
		Customers: store.Customers(),
		Carts:     store.Carts(),
		Stock:     stockSvc,
		Pricer:    engine,
		Numbers:   numbers,
		Events:    store.Publisher(),
		Clock:     clk.Now,
	})

	verifier := payment.NewVerifier(ChecksumKey)

	return &World{
		Store:      store,
		Clock:      clk,
		Settings:   cfg,
		Stock:      stockSvc,
		Promotions: engine,
		Orders:     orders,
		Returns: returns.NewService(returns.Deps{
			Tx:       store,
			Returns:  store.Returns(),
			Orders:   store.Orders(),
			Products: store.Products(),
			Stock:    stockSvc,
			Settings: cfg,
			Numbers:  numbers,
			Events:   store.Publisher(),
			Clock:    clk.Now,
		}),
		Shipping: shipping.NewService(shipping.Deps{
			Tx:          store,
			Shipments:   store.Shipments(),
			Orders:      store.Orders(),
			Transitions: orders,
			Journal:     store.Journal(),
			Settings:    cfg,
			Events:      store.Publisher(),
			Clock:       clk.Now,
		}),
		Payments: payment.NewReconciler(store, verifier, store.Orders(), orders, store.Journal(), clk.Now),
		Verifier: verifier,
	}
}

// Customer seeds a REGULAR customer with a default address.
func (w *World) Customer() catalog.Customer {
	c := catalog.Customer{
		ID:           id.New(),
		Name:         "Nguyen Van A",
		Phone:        "0900000000",
		CustomerType: catalog.CustomerRegular,
	}
	w.Store.PutCustomer(c)
	w.Store.PutAddress(catalog.Address{
		ID:            id.New(),
		CustomerID:    c.ID,
		RecipientName: c.Name,
		Phone:         c.Phone,
		Street:        "1 Le Loi",
		District:      "District 1",
		Province:      "Ho Chi Minh",
		IsDefault:     true,
	})
	return c
}

// Product seeds an IN_STOCK product.
func (w *World) Product(price, qty int64) catalog.Product {
	p := catalog.Product{
		ID:            id.New(),
		Code:          "SKU-" + id.New().String()[28:],
		Name:          "Product",
		Price:         types.NewMoneyFromInt(price),
		StockQuantity: qty,
		OpeningStock:  qty,
		Status:        catalog.ProductInStock,
	}
	if qty <= 0 {
		p.Status = catalog.ProductOutOfStock
	}
	w.Store.PutProduct(p)
	return p
}
