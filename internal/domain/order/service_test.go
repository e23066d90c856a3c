package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/core/numerator"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/events"
	"storeops/internal/domain/order"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/testutil"
)

func money(v int64) types.Money { return types.NewMoneyFromInt(v) }

func TestBuyNow_CashDeductsStockAndSnapshots(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(250_000, 10)

	o, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{
		CustomerID: c.ID,
		ProductID:  p.ID,
		Quantity:   2,
		Terms:      order.Terms{ShippingFee: money(30_000)},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentCash, o.PaymentMethod)
	assert.Equal(t, "ORD-2026-00001", o.Number)
	assert.True(t, o.TotalAmount.Equal(money(500_000)))
	assert.True(t, o.FinalAmount.Equal(money(530_000)))
	assert.True(t, o.StockCommitted)
	assert.Equal(t, "1 Le Loi", o.ShippingAddress.Street)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, p.Name, o.Lines[0].Name)
	assert.True(t, o.Lines[0].UnitPrice.Equal(p.Price))

	assert.Equal(t, int64(8), w.Store.Product(p.ID).StockQuantity)
	entries := w.Store.LedgerFor(o.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, stock.DirectionOut, entries[0].Direction)
	assert.Equal(t, stock.RefSaleOrder, entries[0].ReferenceType)

	published := w.Store.Published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderCreated, published[0].Type)
}

func TestBuyNow_PayOSDefersDeduction(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(100_000, 3)

	o, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{
		CustomerID: c.ID,
		ProductID:  p.ID,
		Quantity:   3,
		Terms:      order.Terms{PaymentMethod: order.PaymentPayOS},
	})
	require.NoError(t, err)
	assert.False(t, o.StockCommitted)
	assert.Equal(t, int64(3), w.Store.Product(p.ID).StockQuantity)
	assert.Empty(t, w.Store.LedgerFor(o.ID))
}

func TestSnapshotSurvivesCatalogChange(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(100_000, 3)
	ctx := context.Background()

	o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	renamed := w.Store.Product(p.ID)
	renamed.Name = "Renamed"
	renamed.Price = money(1)
	w.Store.PutProduct(renamed)

	got, err := w.Orders.Get(ctx, o.ID, order.CustomerActor(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "Product", got.Lines[0].Name)
	assert.True(t, got.Lines[0].UnitPrice.Equal(money(100_000)))
}

func TestCreate_InsufficientStockHasNoEffect(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	plenty := w.Product(10_000, 50)
	scarce := w.Product(10_000, 1)

	_, err := w.Orders.CreateForCustomer(context.Background(), order.StaffOrderRequest{
		EmployeeID: id.New(),
		CustomerID: c.ID,
		Lines: []order.LineRequest{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, 0, w.Store.OrderCount())
	assert.Equal(t, int64(50), w.Store.Product(plenty.ID).StockQuantity)
	assert.Empty(t, w.Store.Ledger())
	assert.Empty(t, w.Store.Published())
}

func TestCreate_RejectsUnsellableProduct(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(10_000, 5)
	discontinued := w.Store.Product(p.ID)
	discontinued.Status = catalog.ProductDiscontinued
	w.Store.PutProduct(discontinued)

	_, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID, Quantity: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestCreate_UnknownProductIsInsufficientStock(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(10_000, 5)
	ghost := id.New()

	_, err := w.Orders.CreateForCustomer(context.Background(), order.StaffOrderRequest{
		EmployeeID: id.New(),
		CustomerID: c.ID,
		Lines: []order.LineRequest{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: ghost, Quantity: 2},
		},
		Terms: order.Terms{PaymentMethod: order.PaymentCash},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, ghost.String(), appErr.Details["product_id"])
	assert.Equal(t, int64(2), appErr.Details["requested"])
	assert.Equal(t, int64(0), appErr.Details["available"])
	assert.Equal(t, int64(5), w.Store.Product(p.ID).StockQuantity)
	assert.Zero(t, w.Store.OrderCount())
}

// recordingNumbers remembers the configs it was asked to number with.
type recordingNumbers struct {
	numerator.Sequence
	configs []numerator.Config
}

func (r *recordingNumbers) Next(ctx context.Context, cfg numerator.Config, at time.Time) (string, error) {
	r.configs = append(r.configs, cfg)
	return r.Sequence.Next(ctx, cfg, at)
}

func TestNewService_NumberStrategy(t *testing.T) {
	tests := []struct {
		name     string
		strategy numerator.Strategy
	}{
		{"default strict", numerator.StrategyStrict},
		{"cached", numerator.StrategyCached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewWorld(t)
			c := w.Customer()
			p := w.Product(10_000, 5)
			numbers := &recordingNumbers{}
			svc := order.NewService(order.Deps{
				Tx:        w.Store,
				Orders:    w.Store.Orders(),
				Customers: w.Store.Customers(),
				Carts:     w.Store.Carts(),
				Stock:     w.Stock,
				Pricer:    w.Promotions,
				Numbers:   numbers,
				Events:    w.Store.Publisher(),
				Clock:     w.Clock.Now,

				NumberStrategy: tt.strategy,
			})

			o, err := svc.BuyNow(context.Background(), order.BuyNowRequest{
				CustomerID: c.ID,
				ProductID:  p.ID,
				Quantity:   1,
				Terms:      order.Terms{PaymentMethod: order.PaymentCash},
			})
			require.NoError(t, err)
			assert.Equal(t, "ORD-2026-00001", o.Number)
			require.Len(t, numbers.configs, 1)
			assert.Equal(t, "ORD", numbers.configs[0].Prefix)
			assert.Equal(t, tt.strategy, numbers.configs[0].Strategy)
		})
	}
}

func TestCreate_Address(t *testing.T) {
	w := testutil.NewWorld(t)
	p := w.Product(10_000, 5)
	ctx := context.Background()

	noAddress := catalog.Customer{ID: id.New(), Name: "B"}
	w.Store.PutCustomer(noAddress)

	_, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: noAddress.ID, ProductID: p.ID, Quantity: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeNoShippingAddress))

	explicit := catalog.Address{ID: id.New(), CustomerID: noAddress.ID, RecipientName: "B", Street: "9 Hai Ba Trung"}
	w.Store.PutAddress(explicit)
	o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{
		CustomerID: noAddress.ID,
		ProductID:  p.ID,
		Quantity:   1,
		Terms:      order.Terms{AddressID: &explicit.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "9 Hai Ba Trung", o.ShippingAddress.Street)

	other := w.Customer()
	_, err = w.Orders.BuyNow(ctx, order.BuyNowRequest{
		CustomerID: other.ID,
		ProductID:  p.ID,
		Quantity:   1,
		Terms:      order.Terms{AddressID: &explicit.ID},
	})
	assert.True(t, apperror.IsNotFound(err), "address of another customer")
}

func TestCreate_Validation(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(10_000, 5)

	tests := []struct {
		name string
		req  order.BuyNowRequest
	}{
		{"zero quantity", order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID}},
		{"missing product", order.BuyNowRequest{CustomerID: c.ID, Quantity: 1}},
		{"missing customer", order.BuyNowRequest{ProductID: p.ID, Quantity: 1}},
		{"unknown payment method", order.BuyNowRequest{
			CustomerID: c.ID, ProductID: p.ID, Quantity: 1,
			Terms: order.Terms{PaymentMethod: "BARTER"},
		}},
		{"negative shipping fee", order.BuyNowRequest{
			CustomerID: c.ID, ProductID: p.ID, Quantity: 1,
			Terms: order.Terms{ShippingFee: money(-1)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Orders.BuyNow(context.Background(), tt.req)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCreate_PromotionPricing(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(500_000, 5)
	now := w.Clock.Now()

	promo := promotion.Promotion{
		ID:             id.New(),
		Code:           "SALE10",
		DiscountType:   promotion.DiscountPercentage,
		DiscountValue:  money(10),
		MinOrderAmount: money(500_000),
		StartsAt:       now.Add(-time.Hour),
		EndsAt:         now.Add(time.Hour),
		Active:         true,
		Scope:          promotion.ScopeOrder,
	}
	w.Store.PutPromotion(promo)
	w.Store.PutRule(promotion.Rule{
		ID:            id.New(),
		Name:          "free ship",
		DiscountType:  promotion.DiscountFixedAmount,
		DiscountValue: money(20_000),
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
		CustomerType:  catalog.CustomerAll,
		Scope:         promotion.ScopeShipping,
		Active:        true,
	})

	o, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{
		CustomerID: c.ID,
		ProductID:  p.ID,
		Quantity:   2,
		Terms: order.Terms{
			PromotionCode: "sale10",
			ShippingFee:   money(30_000),
		},
	})
	require.NoError(t, err)

	assert.True(t, o.TotalAmount.Equal(money(1_000_000)))
	assert.True(t, o.Discount.Equal(money(100_000)))
	assert.True(t, o.ShippingDiscount.Equal(money(20_000)))
	assert.True(t, o.ShippingFee.Equal(money(10_000)))
	assert.True(t, o.FinalAmount.Equal(money(910_000)))
	require.NotNil(t, o.PromotionCode)
	assert.Equal(t, "SALE10", *o.PromotionCode)
	assert.NotNil(t, o.ShippingRuleID)
	assert.Equal(t, int64(1), w.Store.Promotion(promo.ID).UsageCount)

	// totals invariant
	assert.True(t, o.FinalAmount.Equal(o.TotalAmount.Sub(o.Discount).Add(o.ShippingFee)))
}

func TestCreate_InvalidPromotionFailsWholeOrder(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	p := w.Product(500_000, 5)

	_, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{
		CustomerID: c.ID,
		ProductID:  p.ID,
		Quantity:   1,
		Terms:      order.Terms{PromotionCode: "GHOST"},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodePromotionNotFound))
	assert.Equal(t, int64(5), w.Store.Product(p.ID).StockQuantity)
	assert.Equal(t, 0, w.Store.OrderCount())
}

func TestCheckout_ClearsCart(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	a := w.Product(100_000, 5)
	b := w.Product(50_000, 5)
	w.Store.SetCart(c.ID,
		catalog.CartItem{ProductID: a.ID, Quantity: 1},
		catalog.CartItem{ProductID: b.ID, Quantity: 2},
	)
	ctx := context.Background()

	o, err := w.Orders.Checkout(ctx, order.CheckoutRequest{CustomerID: c.ID})
	require.NoError(t, err)
	assert.Len(t, o.Lines, 2)
	assert.True(t, o.TotalAmount.Equal(money(200_000)))
	assert.Empty(t, w.Store.Cart(c.ID))

	_, err = w.Orders.Checkout(ctx, order.CheckoutRequest{CustomerID: c.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "empty cart")
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	w := testutil.NewWorld(t)
	c := w.Customer()
	a := w.Product(100_000, 1)
	w.Store.SetCart(c.ID, catalog.CartItem{ProductID: a.ID, Quantity: 2})

	_, err := w.Orders.Checkout(context.Background(), order.CheckoutRequest{CustomerID: c.ID})
	require.Error(t, err)
	assert.Len(t, w.Store.Cart(c.ID), 1)
}

func TestCreate_ConcurrentBuyersOfLastUnit(t *testing.T) {
	w := testutil.NewWorld(t)
	p := w.Product(100_000, 1)
	const buyers = 8

	customers := make([]catalog.Customer, buyers)
	for i := range customers {
		customers[i] = w.Customer()
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
	)
	for _, c := range customers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Orders.BuyNow(context.Background(), order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.HasCode(err, apperror.CodeInsufficientStock):
				shortages++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, shortages)
	assert.Equal(t, int64(0), w.Store.Product(p.ID).StockQuantity)
	assert.Equal(t, catalog.ProductOutOfStock, w.Store.Product(p.ID).Status)
}
