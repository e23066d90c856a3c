package returns_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/order"
	"storeops/internal/domain/payment"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/returns"
	"storeops/internal/domain/webhook"
	"storeops/internal/testutil"
)

// requireLedgerBalanced checks every product's counter against
// opening stock plus the ledger's IN minus OUT.
func requireLedgerBalanced(t *testing.T, w *testutil.World, products ...id.ID) {
	t.Helper()
	net := make(map[id.ID]int64)
	for _, e := range w.Store.Ledger() {
		if e.Direction == stock.DirectionIn {
			net[e.ProductID] += e.Quantity
		} else {
			net[e.ProductID] -= e.Quantity
		}
	}
	for _, pid := range products {
		p := w.Store.Product(pid)
		assert.Equal(t, p.OpeningStock+net[pid], p.StockQuantity, "product %s", pid)
	}

	drifted, err := w.Stock.Drift(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func paidWebhook(t *testing.T, w *testutil.World, linkID string, amount int64) []byte {
	t.Helper()
	data, err := json.Marshal(payment.Data{Amount: amount, Reference: "FT-" + linkID, PaymentLinkID: linkID, Code: payment.SuccessCode})
	require.NoError(t, err)
	body, err := json.Marshal(payment.Webhook{Code: payment.SuccessCode, Success: true, Data: data, Signature: w.Verifier.Sign(data)})
	require.NoError(t, err)
	return body
}

func TestStockMatchesLedgerAcrossWorkflows(t *testing.T) {
	w := testutil.NewWorld(t)
	ctx := context.Background()
	staff := id.New()
	c := w.Customer()
	a := w.Product(100_000, 10)
	b := w.Product(250_000, 10)
	x := w.Product(250_000, 5)
	cash := order.Terms{PaymentMethod: order.PaymentCash}

	var delivered *order.Order

	steps := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"cash order then cancel", func(t *testing.T) {
			o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: c.ID, ProductID: a.ID, Quantity: 2, Terms: cash})
			require.NoError(t, err)
			assert.Equal(t, int64(8), w.Store.Product(a.ID).StockQuantity)
			_, err = w.Orders.Cancel(ctx, o.ID, order.CustomerActor(c.ID))
			require.NoError(t, err)
			assert.Equal(t, int64(10), w.Store.Product(a.ID).StockQuantity)
		}},
		{"payos order then payment", func(t *testing.T) {
			o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{
				CustomerID: c.ID,
				ProductID:  a.ID,
				Quantity:   1,
				Terms:      order.Terms{PaymentMethod: order.PaymentPayOS},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(10), w.Store.Product(a.ID).StockQuantity, "nothing taken before payment")
			_, err = w.Orders.AttachPaymentLink(ctx, o.ID, "link-ledger", order.CustomerActor(c.ID))
			require.NoError(t, err)

			res := w.Payments.HandleWebhook(ctx, paidWebhook(t, w, "link-ledger", o.FinalAmount.IntPart()))
			require.Equal(t, webhook.OutcomeApplied, res.Outcome)
			assert.Equal(t, int64(9), w.Store.Product(a.ID).StockQuantity)
		}},
		{"delivered then return completed", func(t *testing.T) {
			o, err := w.Orders.BuyNow(ctx, order.BuyNowRequest{CustomerID: c.ID, ProductID: b.ID, Quantity: 3, Terms: cash})
			require.NoError(t, err)
			_, err = w.Orders.Confirm(ctx, o.ID, staff)
			require.NoError(t, err)
			require.NoError(t, w.Store.RunInTransaction(ctx, func(ctx context.Context) error {
				locked, err := w.Store.Orders().GetForUpdate(ctx, o.ID)
				if err != nil {
					return err
				}
				_, err = w.Orders.CompleteDelivered(ctx, locked, w.Clock.Now(), 7)
				return err
			}))
			got := w.Store.Order(o.ID)
			delivered = &got

			r, err := w.Returns.RequestReturn(ctx, c.ID, o.ID, returns.Request{Items: []returns.ItemRequest{lineItem(delivered, 1)}})
			require.NoError(t, err)
			_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
			require.NoError(t, err)
			_, err = w.Returns.Complete(ctx, r.ID, staff)
			require.NoError(t, err)
			assert.Equal(t, int64(8), w.Store.Product(b.ID).StockQuantity)
		}},
		{"exchange completed", func(t *testing.T) {
			require.NotNil(t, delivered)
			item := lineItem(delivered, 1)
			item.ExchangeProductID = &x.ID
			r, err := w.Returns.RequestExchange(ctx, c.ID, delivered.ID, returns.Request{Items: []returns.ItemRequest{item}})
			require.NoError(t, err)
			_, err = w.Returns.Approve(ctx, r.ID, staff, returns.ApproveRequest{})
			require.NoError(t, err)
			_, err = w.Returns.Complete(ctx, r.ID, staff)
			require.NoError(t, err)
			assert.Equal(t, int64(9), w.Store.Product(b.ID).StockQuantity)
			assert.Equal(t, int64(4), w.Store.Product(x.ID).StockQuantity)
		}},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			step.run(t)
			requireLedgerBalanced(t, w, a.ID, b.ID, x.ID)
		})
	}

	assert.Equal(t, catalog.ProductInStock, w.Store.Product(x.ID).Status)
}
