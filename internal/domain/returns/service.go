package returns

import (
	"context"
	"fmt"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/entity"
	"storeops/internal/core/id"
	"storeops/internal/core/numerator"
	"storeops/internal/core/tx"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/events"
	"storeops/internal/domain/order"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/settings"
	"storeops/pkg/logger"
)

// StockLedger applies the stock movements of completed requests.
type StockLedger interface {
	Commit(ctx context.Context, c stock.Commit) error
}

// Deps are the collaborators of Service.
type Deps struct {
	Tx       tx.Manager
	Returns  Repository
	Orders   order.Repository
	Products catalog.ProductRepository
	Stock    StockLedger
	Settings settings.Provider
	Numbers  numerator.Generator
	Events   events.Publisher
	Clock    clock.Func

	// NumberStrategy selects how return numbers are drawn (default strict).
	NumberStrategy numerator.Strategy
}

// Service runs the return and exchange workflow.
type Service struct {
	txm       tx.Manager
	returns   Repository
	orders    order.Repository
	products  catalog.ProductRepository
	stock     StockLedger
	settings  settings.Provider
	numbers   numerator.Generator
	numbering numerator.Config
	events    events.Publisher
	now       clock.Func
}

// NewService creates a return workflow service.
func NewService(d Deps) *Service {
	now := d.Clock
	if now == nil {
		now = clock.System
	}
	numbering := numerator.DefaultConfig("RET")
	numbering.Strategy = d.NumberStrategy
	return &Service{
		txm:       d.Tx,
		returns:   d.Returns,
		orders:    d.Orders,
		products:  d.Products,
		stock:     d.Stock,
		settings:  d.Settings,
		numbers:   d.Numbers,
		numbering: numbering,
		events:    d.Events,
		now:       now,
	}
}

// ItemRequest asks to return quantity units of one order line. For an
// exchange the replacement defaults to the same product and quantity.
type ItemRequest struct {
	OrderLineID       id.ID
	Quantity          int64
	ExchangeProductID *id.ID
	ExchangeQuantity  *int64
}

// Request is a customer's return or exchange request.
type Request struct {
	Reason string
	Items  []ItemRequest
}

// RequestReturn opens a RETURN request on a completed order.
func (s *Service) RequestReturn(ctx context.Context, customerID, orderID id.ID, req Request) (*OrderReturn, error) {
	return s.open(ctx, TypeReturn, customerID, orderID, req)
}

// RequestExchange opens an EXCHANGE request on a completed order.
func (s *Service) RequestExchange(ctx context.Context, customerID, orderID id.ID, req Request) (*OrderReturn, error) {
	return s.open(ctx, TypeExchange, customerID, orderID, req)
}

func (s *Service) open(ctx context.Context, typ Type, customerID, orderID id.ID, req Request) (*OrderReturn, error) {
	if len(req.Items) == 0 {
		return nil, apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	seen := make(map[id.ID]bool, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("item %d: quantity must be positive", i)).WithDetail("field", "quantity")
		}
		if seen[it.OrderLineID] {
			return nil, apperror.NewValidation(fmt.Sprintf("item %d: order line listed twice", i)).WithDetail("field", "orderLineId")
		}
		seen[it.OrderLineID] = true
		if it.ExchangeQuantity != nil && *it.ExchangeQuantity <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("item %d: exchange quantity must be positive", i)).WithDetail("field", "exchangeQuantity")
		}
	}

	var created *OrderReturn
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// the order row lock serializes concurrent requests for the same order
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.OwnedBy(customerID) {
			return apperror.NewAccessDenied("Order belongs to another customer")
		}
		if o.Status != order.StatusCompleted {
			return apperror.NewInvalidOrderState(o.ID, string(o.Status), "return")
		}

		now := s.now()
		if !s.windowOpen(ctx, o, now) {
			return apperror.NewBusinessRule(apperror.CodeReturnWindowExpired, "Return window has expired").
				WithDetail("order_id", o.ID)
		}

		active, err := s.returns.HasActive(ctx, o.ID, nil)
		if err != nil {
			return fmt.Errorf("check active returns: %w", err)
		}
		if active {
			return apperror.NewActiveReturnExists(o.ID)
		}

		returned, err := s.returns.ReturnedQuantities(ctx, o.ID, nil)
		if err != nil {
			return fmt.Errorf("load returned quantities: %w", err)
		}

		r := &OrderReturn{
			BaseDocument: entity.NewBaseDocument(now),
			OrderID:      o.ID,
			CustomerID:   customerID,
			Type:         typ,
			Status:       StatusPending,
			Reason:       req.Reason,
		}
		for i, it := range req.Items {
			line, ok := o.Line(it.OrderLineID)
			if !ok {
				return apperror.NewValidation(fmt.Sprintf("item %d: line does not belong to the order", i)).
					WithDetail("orderLineId", it.OrderLineID)
			}
			if err := checkQuantity(line, it.Quantity, returned[line.ID]); err != nil {
				return err
			}

			item := Item{
				ID:          id.New(),
				ReturnID:    r.ID,
				OrderLineID: line.ID,
				ProductID:   line.ProductID,
				Quantity:    it.Quantity,
				UnitPrice:   line.UnitPrice,
				Refund:      LineRefund(o, line.UnitPrice, it.Quantity),
			}
			if typ == TypeExchange {
				if err := s.prepareExchange(ctx, &item, it); err != nil {
					return err
				}
			}
			r.Items = append(r.Items, item)
		}
		r.RefundAmount = totalRefund(r.Items)

		number, err := s.numbers.Next(ctx, s.numbering, now)
		if err != nil {
			return fmt.Errorf("allocate return number: %w", err)
		}
		r.Number = number

		if err := s.returns.Create(ctx, r); err != nil {
			return err
		}
		if err := s.publish(ctx, r, events.ReturnRequested); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return requested", "return_id", created.ID, "order_id", orderID, "type", typ)
	return created, nil
}

func (s *Service) prepareExchange(ctx context.Context, item *Item, it ItemRequest) error {
	productID := item.ProductID
	if it.ExchangeProductID != nil {
		productID = *it.ExchangeProductID
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return err
	}
	qty := item.Quantity
	if it.ExchangeQuantity != nil {
		qty = *it.ExchangeQuantity
	}
	item.ExchangeProductID = &productID
	item.ExchangeQuantity = &qty
	return nil
}

// windowOpen applies the order's return window. The window snapshotted at
// completion wins over the current setting; zero days means no limit.
func (s *Service) windowOpen(ctx context.Context, o *order.Order, now time.Time) bool {
	days := s.settings.ReturnWindowDays(ctx)
	if o.ReturnWindowDays != nil {
		days = *o.ReturnWindowDays
	}
	if days <= 0 {
		return true
	}

	base := o.OrderDate
	switch {
	case o.CompletedAt != nil:
		base = *o.CompletedAt
	case o.DeliveredAt != nil:
		base = *o.DeliveredAt
	}
	return !now.After(base.AddDate(0, 0, days))
}

func checkQuantity(line order.Line, requested, alreadyReturned int64) error {
	remaining := line.Quantity - alreadyReturned
	if requested > remaining {
		return apperror.NewValidation("return quantity exceeds the returnable quantity").
			WithDetail("orderLineId", line.ID).
			WithDetail("ordered", line.Quantity).
			WithDetail("alreadyReturned", alreadyReturned).
			WithDetail("requested", requested)
	}
	return nil
}

// LineRefund is the refundable value of quantity units of a line: their
// subtotal minus their proportional share of the order discount, rounded
// to the currency minor unit and never negative.
func LineRefund(o *order.Order, unitPrice types.Money, quantity int64) types.Money {
	subtotal := unitPrice.Mul(types.NewMoneyFromInt(quantity))
	refund := subtotal
	if o.Discount.IsPositive() && o.TotalAmount.IsPositive() {
		share := o.Discount.Mul(subtotal).Div(o.TotalAmount)
		refund = subtotal.Sub(share)
	}
	refund = types.RoundMoney(refund)
	if refund.IsNegative() {
		return types.Zero()
	}
	return refund
}

func totalRefund(items []Item) types.Money {
	total := types.Zero()
	for _, it := range items {
		total = total.Add(it.Refund)
	}
	return total
}

// EventPayload is the outbox payload of return events.
type EventPayload struct {
	ReturnID     id.ID  `json:"returnId"`
	Number       string `json:"number"`
	OrderID      id.ID  `json:"orderId"`
	Type         Type   `json:"type"`
	Status       Status `json:"status"`
	RefundAmount string `json:"refundAmount"`
}

func (s *Service) publish(ctx context.Context, r *OrderReturn, eventType string) error {
	err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateReturn,
		AggregateID:   r.ID,
		Type:          eventType,
		Payload: EventPayload{
			ReturnID:     r.ID,
			Number:       r.Number,
			OrderID:      r.OrderID,
			Type:         r.Type,
			Status:       r.Status,
			RefundAmount: r.RefundAmount.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
