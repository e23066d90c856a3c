package returns_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/events"
	"storeops/internal/domain/order"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/returns"
	"storeops/internal/testutil"
)

const day = 24 * time.Hour

func money(v int64) types.Money { return types.NewMoneyFromInt(v) }

// completedOrder places a cash order for qty units of a fresh product and
// completes it with the given return window.
func completedOrder(t *testing.T, w *testutil.World, qty int64, windowDays int, terms order.Terms) (*order.Order, catalog.Product) {
	t.Helper()
	ctx := context.Background()
	c := w.Customer()
	p := w.Product(500_000, 10)

	o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID, Quantity: qty, Terms: terms})
	require.NoError(t, err)
	_, err = w.Orders.Confirm(ctx, o.ID, id.New())
	require.NoError(t, err)

	require.NoError(t, w.Store.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := w.Store.Orders().GetForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		_, err = w.Orders.CompleteDelivered(ctx, locked, w.Clock.Now(), windowDays)
		return err
	}))

	got := w.Store.Order(o.ID)
	return &got, p
}

func lineItem(o *order.Order, qty int64) returns.ItemRequest {
	return returns.ItemRequest{OrderLineID: o.Lines[0].ID, Quantity: qty}
}

func TestRequestReturn_QuantityBounds(t *testing.T) {
	w := testutil.NewWorld(t)
	o, _ := completedOrder(t, w, 2, 7, order.Terms{})
	ctx := context.Background()
	staff := id.New()

	_, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 3)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "more than ordered")

	r, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Reason: "broken", Items: []returns.ItemRequest{lineItem(o, 2)}})
	require.NoError(t, err)
	assert.Equal(t, "RET-2026-00001", r.Number)
	assert.Equal(t, returns.StatusPending, r.Status)

	_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
	require.NoError(t, err)
	_, err = w.Returns.Complete(ctx, r.ID, staff)
	require.NoError(t, err)

	_, err = w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "everything already returned")
}

func TestRequestReturn_RejectedQuantitiesAreReturnableAgain(t *testing.T) {
	w := testutil.NewWorld(t)
	o, _ := completedOrder(t, w, 2, 7, order.Terms{})
	ctx := context.Background()

	r, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 2)}})
	require.NoError(t, err)
	_, err = w.Returns.Reject(ctx, r.ID, id.New(), "used item")
	require.NoError(t, err)

	_, err = w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 2)}})
	assert.NoError(t, err)
}

func TestRequestReturn_SingleActiveRequest(t *testing.T) {
	w := testutil.NewWorld(t)
	o, _ := completedOrder(t, w, 3, 7, order.Terms{})
	ctx := context.Background()

	_, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	require.NoError(t, err)

	_, err = w.Returns.RequestExchange(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeActiveReturnExists))

	active, err := w.Returns.HasActive(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRequestReturn_Preconditions(t *testing.T) {
	w := testutil.NewWorld(t)
	ctx := context.Background()
	o, _ := completedOrder(t, w, 1, 7, order.Terms{})

	_, err := w.Returns.RequestReturn(ctx, id.New(), o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeAccessDenied))

	_, err = w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "no items")

	_, err = w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{{OrderLineID: id.New(), Quantity: 1}}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "foreign line")

	_, err = w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1), lineItem(o, 1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "duplicate line")

	c := w.Customer()
	p := w.Product(10_000, 5)
	pending, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: c.ID, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = w.Returns.RequestReturn(ctx, c.ID, pending.ID, returns.Request{Items: []returns.ItemRequest{lineItem(pending, 1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))
}

func TestRequestReturn_Window(t *testing.T) {
	tests := []struct {
		name       string
		windowDays int
		setting    int
		elapsed    time.Duration
		open       bool
	}{
		{"inside window", 7, 7, 6 * day, true},
		{"last moment", 7, 7, 7 * day, true},
		{"expired", 7, 7, 7*day + time.Second, false},
		{"snapshot wins over later setting", 14, 1, 10 * day, true},
		{"zero means unlimited", 0, 7, 400 * day, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewWorld(t)
			o, _ := completedOrder(t, w, 1, tt.windowDays, order.Terms{})
			w.Settings.Snapshot.ReturnWindowDays = tt.setting
			w.Clock.Advance(tt.elapsed)

			_, err := w.Returns.RequestReturn(context.Background(), o.CustomerID, o.ID,
				returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
			if tt.open {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.HasCode(err, apperror.CodeReturnWindowExpired), "got %v", err)
			}
		})
	}
}

func TestRequestReturn_RefundSharesDiscount(t *testing.T) {
	w := testutil.NewWorld(t)
	now := w.Clock.Now()
	w.Store.PutPromotion(promotion.Promotion{
		ID:            id.New(),
		Code:          "SALE10",
		DiscountType:  promotion.DiscountPercentage,
		DiscountValue: money(10),
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
		Active:        true,
		Scope:         promotion.ScopeOrder,
	})
	o, _ := completedOrder(t, w, 2, 7, order.Terms{PromotionCode: "SALE10"})
	require.True(t, o.Discount.Equal(money(100_000)))

	r, err := w.Returns.RequestReturn(context.Background(), o.CustomerID, o.ID,
		returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	require.NoError(t, err)
	assert.True(t, r.RefundAmount.Equal(money(450_000)), "got %s", r.RefundAmount)
}

func TestLineRefund_Rounds(t *testing.T) {
	o := &order.Order{TotalAmount: money(300_000), Discount: money(100_000)}
	// 100000 * 100000 / 300000 = 33333.33
	assert.True(t, returns.LineRefund(o, money(100_000), 1).Equal(money(66_667)))

	noDiscount := &order.Order{TotalAmount: money(300_000), Discount: types.Zero()}
	assert.True(t, returns.LineRefund(noDiscount, money(100_000), 2).Equal(money(200_000)))
}

func TestWorkflow_ReturnRestoresStock(t *testing.T) {
	w := testutil.NewWorld(t)
	o, p := completedOrder(t, w, 2, 7, order.Terms{})
	ctx := context.Background()
	staff := id.New()
	require.Equal(t, int64(8), w.Store.Product(p.ID).StockQuantity)

	r, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	require.NoError(t, err)

	_, err = w.Returns.Complete(ctx, r.ID, staff)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidReturnState), "complete before approve")

	override := money(400_000)
	approved, err := w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{Note: "ok", RefundAmount: &override})
	require.NoError(t, err)
	assert.Equal(t, returns.StatusApproved, approved.Status)
	assert.True(t, approved.RefundAmount.Equal(override))
	assert.Equal(t, staff, *approved.ProcessedBy)

	_, err = w.Returns.Reject(ctx, r.ID, staff, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidReturnState))

	done, err := w.Returns.Complete(ctx, r.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, returns.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, int64(9), w.Store.Product(p.ID).StockQuantity)

	var kinds []string
	for _, ev := range w.Store.Published() {
		if ev.AggregateID == r.ID {
			kinds = append(kinds, ev.Type)
		}
	}
	assert.Equal(t, []string{events.ReturnRequested, events.ReturnApproved, events.ReturnCompleted}, kinds)

	active, err := w.Returns.HasActive(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestWorkflow_ExchangeWithoutStockStaysApproved(t *testing.T) {
	w := testutil.NewWorld(t)
	o, p := completedOrder(t, w, 1, 7, order.Terms{})
	replacement := w.Product(500_000, 0)
	ctx := context.Background()
	staff := id.New()

	r, err := w.Returns.RequestExchange(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{{
		OrderLineID:       o.Lines[0].ID,
		Quantity:          1,
		ExchangeProductID: &replacement.ID,
	}}})
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, int64(1), *r.Items[0].ExchangeQuantity)

	_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
	require.NoError(t, err)

	_, err = w.Returns.Complete(ctx, r.ID, staff)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, returns.StatusApproved, w.Store.Return(r.ID).Status)
	assert.Equal(t, int64(9), w.Store.Product(p.ID).StockQuantity, "returned unit not booked")

	restocked := w.Store.Product(replacement.ID)
	restocked.StockQuantity = 3
	restocked.OpeningStock = 3
	restocked.Status = catalog.ProductInStock
	w.Store.PutProduct(restocked)

	_, err = w.Returns.Complete(ctx, r.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.Store.Product(p.ID).StockQuantity)
	assert.Equal(t, int64(2), w.Store.Product(replacement.ID).StockQuantity)
}

func TestWorkflow_ExchangeRefusesDiscontinuedReplacement(t *testing.T) {
	w := testutil.NewWorld(t)
	o, p := completedOrder(t, w, 1, 7, order.Terms{})
	replacement := w.Product(500_000, 4)
	ctx := context.Background()
	staff := id.New()

	r, err := w.Returns.RequestExchange(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{{
		OrderLineID:       o.Lines[0].ID,
		Quantity:          1,
		ExchangeProductID: &replacement.ID,
	}}})
	require.NoError(t, err)
	_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
	require.NoError(t, err)

	retired := w.Store.Product(replacement.ID)
	retired.Status = catalog.ProductDiscontinued
	w.Store.PutProduct(retired)

	_, err = w.Returns.Complete(ctx, r.ID, staff)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, returns.StatusApproved, w.Store.Return(r.ID).Status)
	assert.Equal(t, int64(4), w.Store.Product(replacement.ID).StockQuantity)
	assert.Equal(t, int64(9), w.Store.Product(p.ID).StockQuantity)
}

func TestWorkflow_ExchangeIntoSoldOutSameProduct(t *testing.T) {
	w := testutil.NewWorld(t)
	o, p := completedOrder(t, w, 1, 7, order.Terms{})
	ctx := context.Background()
	staff := id.New()

	soldOut := w.Store.Product(p.ID)
	soldOut.StockQuantity = 0
	soldOut.Status = catalog.ProductOutOfStock
	w.Store.PutProduct(soldOut)

	r, err := w.Returns.RequestExchange(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	require.NoError(t, err)
	_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
	require.NoError(t, err)

	_, err = w.Returns.Complete(ctx, r.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Store.Product(p.ID).StockQuantity)
}

func TestRequestExchange_DefaultsToSameProduct(t *testing.T) {
	w := testutil.NewWorld(t)
	o, p := completedOrder(t, w, 2, 7, order.Terms{})

	r, err := w.Returns.RequestExchange(context.Background(), o.CustomerID, o.ID,
		returns.Request{Items: []returns.ItemRequest{lineItem(o, 2)}})
	require.NoError(t, err)
	assert.Equal(t, p.ID, *r.Items[0].ExchangeProductID)
	assert.Equal(t, int64(2), *r.Items[0].ExchangeQuantity)

	ghost := id.New()
	_, err = w.Returns.Reject(context.Background(), r.ID, id.New(), "")
	require.NoError(t, err)
	_, err = w.Returns.RequestExchange(context.Background(), o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{{
		OrderLineID: o.Lines[0].ID, Quantity: 1, ExchangeProductID: &ghost,
	}}})
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetAndList(t *testing.T) {
	w := testutil.NewWorld(t)
	o, _ := completedOrder(t, w, 1, 7, order.Terms{})
	ctx := context.Background()

	r, err := w.Returns.RequestReturn(ctx, o.CustomerID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(o, 1)}})
	require.NoError(t, err)

	got, err := w.Returns.Get(ctx, r.ID, &o.CustomerID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	stranger := id.New()
	_, err = w.Returns.Get(ctx, r.ID, &stranger)
	assert.True(t, apperror.HasCode(err, apperror.CodeAccessDenied))

	pending := returns.StatusPending
	list, total, err := w.Returns.List(ctx, returns.ListFilter{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, r.ID, list[0].ID)

	bogus := returns.Status("LOST")
	_, _, err = w.Returns.List(ctx, returns.ListFilter{Status: &bogus})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
