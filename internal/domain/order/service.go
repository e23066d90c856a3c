package order

import (
	"context"
	"fmt"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/entity"
	"storeops/internal/core/id"
	"storeops/internal/core/numerator"
	"storeops/internal/core/tx"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/events"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/pkg/logger"
)

// StockLedger is the part of the stock service orders use.
type StockLedger interface {
	Lock(ctx context.Context, productIDs []id.ID) (map[id.ID]catalog.Product, error)
	Commit(ctx context.Context, c stock.Commit) error
}

// Pricer prices orders and consumes promotion uses.
type Pricer interface {
	Price(ctx context.Context, req promotion.PriceRequest) (promotion.Pricing, error)
	Redeem(ctx context.Context, promotionID id.ID) error
}

// Deps are the collaborators of Service.
type Deps struct {
	Tx        tx.Manager
	Orders    Repository
	Customers catalog.CustomerRepository
	Carts     catalog.CartRepository
	Stock     StockLedger
	Pricer    Pricer
	Numbers   numerator.Generator
	Events    events.Publisher
	Clock     clock.Func

	// NumberStrategy selects how order numbers are drawn (default strict).
	NumberStrategy numerator.Strategy
}

// Service creates orders and moves them through their lifecycle.
type Service struct {
	txm       tx.Manager
	orders    Repository
	customers catalog.CustomerRepository
	carts     catalog.CartRepository
	stock     StockLedger
	pricer    Pricer
	numbers   numerator.Generator
	numbering numerator.Config
	events    events.Publisher
	now       clock.Func
}

// NewService creates an order service.
func NewService(d Deps) *Service {
	now := d.Clock
	if now == nil {
		now = clock.System
	}
	numbering := numerator.DefaultConfig("ORD")
	numbering.Strategy = d.NumberStrategy
	return &Service{
		txm:       d.Tx,
		orders:    d.Orders,
		customers: d.Customers,
		carts:     d.Carts,
		stock:     d.Stock,
		pricer:    d.Pricer,
		numbers:   d.Numbers,
		numbering: numbering,
		events:    d.Events,
		now:       now,
	}
}

// LineRequest is one requested product and quantity.
type LineRequest struct {
	ProductID id.ID
	Quantity  int64
}

// Terms are the order options shared by every creation path.
type Terms struct {
	AddressID             *id.ID
	PaymentMethod         PaymentMethod
	PromotionCode         string
	ShippingPromotionCode string
	ShippingFee           types.Money
	Note                  string
}

// CheckoutRequest orders the whole cart of a customer.
type CheckoutRequest struct {
	CustomerID id.ID
	Terms
}

// BuyNowRequest orders a single product directly.
type BuyNowRequest struct {
	CustomerID id.ID
	ProductID  id.ID
	Quantity   int64
	Terms
}

// StaffOrderRequest is an order entered by an employee for a customer,
// typically a walk-in.
type StaffOrderRequest struct {
	EmployeeID id.ID
	CustomerID id.ID
	Lines      []LineRequest
	Terms
}

// Checkout creates an order from the customer's cart and clears the cart
// once the order is committed.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	items, err := s.carts.Items(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, apperror.NewValidation("cart is empty")
	}

	lines := make([]LineRequest, 0, len(items))
	for _, it := range items {
		lines = append(lines, LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := s.commit(ctx, draft{customerID: req.CustomerID, lines: lines, terms: req.Terms})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, req.CustomerID); err != nil {
		logger.Error(ctx, "failed to clear cart after checkout", "customer_id", req.CustomerID, "order_id", o.ID, "error", err)
	}
	return o, nil
}

// BuyNow creates a single-line order.
func (s *Service) BuyNow(ctx context.Context, req BuyNowRequest) (*Order, error) {
	return s.commit(ctx, draft{
		customerID: req.CustomerID,
		lines:      []LineRequest{{ProductID: req.ProductID, Quantity: req.Quantity}},
		terms:      req.Terms,
	})
}

// CreateForCustomer creates an order on behalf of a customer.
func (s *Service) CreateForCustomer(ctx context.Context, req StaffOrderRequest) (*Order, error) {
	if id.IsNil(req.EmployeeID) {
		return nil, apperror.NewValidation("employee is required").WithDetail("field", "employeeId")
	}
	employeeID := req.EmployeeID
	return s.commit(ctx, draft{
		customerID: req.CustomerID,
		employeeID: &employeeID,
		lines:      req.Lines,
		terms:      req.Terms,
	})
}

type draft struct {
	customerID id.ID
	employeeID *id.ID
	lines      []LineRequest
	terms      Terms
}

func (d *draft) validate() error {
	if id.IsNil(d.customerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if len(d.lines) == 0 {
		return apperror.NewValidation("order must have at least one line").WithDetail("field", "lines")
	}
	for i, l := range d.lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: product is required", i)).WithDetail("field", "productId")
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i)).WithDetail("field", "quantity")
		}
	}
	if d.terms.PaymentMethod == "" {
		d.terms.PaymentMethod = PaymentCash
	}
	if !d.terms.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").WithDetail("field", "paymentMethod")
	}
	if d.terms.ShippingFee.IsNegative() {
		return apperror.NewValidation("shipping fee must not be negative").WithDetail("field", "shippingFee")
	}
	return nil
}

// commit is the single creation procedure behind every entry point:
// lock and check products, resolve the address, snapshot lines, price,
// persist, and deduct stock when the payment method requires it.
func (s *Service) commit(ctx context.Context, d draft) (*Order, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	var created *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetCustomer(ctx, d.customerID)
		if err != nil {
			return err
		}

		productIDs := make([]id.ID, 0, len(d.lines))
		requested := make(map[id.ID]int64, len(d.lines))
		for _, l := range d.lines {
			productIDs = append(productIDs, l.ProductID)
			requested[l.ProductID] += l.Quantity
		}

		products, err := s.stock.Lock(ctx, productIDs)
		if err != nil {
			if pid, ok := missingProduct(err); ok {
				return apperror.NewInsufficientStock(pid.String(), requested[pid], 0).
					WithDetail("reason", "product not found")
			}
			return err
		}
		for pid, qty := range requested {
			p := products[pid]
			if !p.Status.Sellable() {
				return apperror.NewInsufficientStock(pid.String(), qty, 0).WithDetail("status", string(p.Status))
			}
			if p.StockQuantity < qty {
				return apperror.NewInsufficientStock(pid.String(), qty, p.StockQuantity)
			}
		}

		address, err := s.resolveAddress(ctx, d.customerID, d.terms.AddressID)
		if err != nil {
			return err
		}

		now := s.now()
		o := &Order{
			BaseDocument:    entity.NewBaseDocument(now),
			CustomerID:      d.customerID,
			EmployeeID:      d.employeeID,
			Status:          StatusPending,
			PaymentMethod:   d.terms.PaymentMethod,
			ShippingAddress: SnapshotAddress(address),
			Note:            d.terms.Note,
			OrderDate:       now,
			Discount:        types.Zero(),
		}
		for _, l := range d.lines {
			p := products[l.ProductID]
			o.Lines = append(o.Lines, Line{
				ID:        id.New(),
				OrderID:   o.ID,
				ProductID: p.ID,
				Quantity:  l.Quantity,
				UnitPrice: p.Price,
				ProductSnapshot: ProductSnapshot{
					Name:     p.Name,
					Code:     p.Code,
					ImageURL: p.ImageURL,
				},
			})
		}
		o.recalculate()

		pricing, err := s.pricer.Price(ctx, promotion.PriceRequest{
			Subtotal:     o.TotalAmount,
			ShippingFee:  d.terms.ShippingFee,
			CustomerType: customer.TypeOrDefault(),
			ItemCount:    len(o.Lines),
			Code:         d.terms.PromotionCode,
			ShippingCode: d.terms.ShippingPromotionCode,
		})
		if err != nil {
			return err
		}
		applyPricing(o, pricing, d.terms.ShippingFee)
		for _, pid := range pricing.Redemptions() {
			if err := s.pricer.Redeem(ctx, pid); err != nil {
				return err
			}
		}

		o.recalculate()
		if err := o.checkTotals(); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, s.numbering, now)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}
		o.Number = number

		deduct := o.PaymentMethod.DeductsAtCreation()
		o.StockCommitted = deduct
		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if deduct {
			if err := s.stock.Commit(ctx, stock.Commit{
				Movements:       o.movements(stock.DirectionOut),
				ReferenceType:   stock.RefSaleOrder,
				ReferenceID:     o.ID,
				ActorID:         o.EmployeeID,
				Notes:           "order " + o.Number,
				RequireSellable: true,
			}); err != nil {
				return err
			}
		}

		if err := s.publish(ctx, o, events.OrderCreated); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", created.ID,
		"number", created.Number,
		"payment_method", created.PaymentMethod,
		"final_amount", created.FinalAmount.String(),
	)
	return created, nil
}

func (s *Service) resolveAddress(ctx context.Context, customerID id.ID, addressID *id.ID) (*catalog.Address, error) {
	if addressID != nil {
		return s.customers.GetAddress(ctx, customerID, *addressID)
	}
	addr, err := s.customers.GetDefaultAddress(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("default address: %w", err)
	}
	if addr == nil {
		return nil, apperror.NewNoShippingAddress(customerID)
	}
	return addr, nil
}

func applyPricing(o *Order, p promotion.Pricing, shippingFee types.Money) {
	o.Discount = p.Discount
	if q := p.Order; q != nil {
		o.PromotionID = q.PromotionID
		o.RuleID = q.RuleID
		if q.Code != "" {
			code := q.Code
			o.PromotionCode = &code
		}
	}

	o.ShippingDiscount = p.ShippingDiscount
	o.ShippingFee = shippingFee.Sub(p.ShippingDiscount)
	if q := p.Shipping; q != nil {
		o.ShippingPromotionID = q.PromotionID
		o.ShippingRuleID = q.RuleID
	}
}

func (o *Order) movements(dir stock.Direction) []stock.Movement {
	out := make([]stock.Movement, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, stock.Movement{ProductID: l.ProductID, Direction: dir, Quantity: l.Quantity})
	}
	return out
}

// EventPayload is the outbox payload of order events.
type EventPayload struct {
	OrderID       id.ID         `json:"orderId"`
	Number        string        `json:"number"`
	CustomerID    id.ID         `json:"customerId"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	FinalAmount   string        `json:"finalAmount"`
}

func (s *Service) publish(ctx context.Context, o *Order, eventType string) error {
	err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateOrder,
		AggregateID:   o.ID,
		Type:          eventType,
		Payload: EventPayload{
			OrderID:       o.ID,
			Number:        o.Number,
			CustomerID:    o.CustomerID,
			Status:        o.Status,
			PaymentMethod: o.PaymentMethod,
			FinalAmount:   o.FinalAmount.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// missingProduct extracts the product id from the NotFound that Lock returns
// for an unknown product.
func missingProduct(err error) (id.ID, bool) {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeNotFound {
		return id.Nil(), false
	}
	pid, ok := appErr.Details["id"].(id.ID)
	return pid, ok
}
