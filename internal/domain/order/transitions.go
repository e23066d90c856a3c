package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/events"
	"storeops/internal/domain/registers/stock"
	"storeops/pkg/logger"
)

// Get returns an order the actor may see.
func (s *Service) Get(ctx context.Context, orderID id.ID, actor Actor) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.authorize(o); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns order headers. Customers only see their own orders.
func (s *Service) List(ctx context.Context, filter ListFilter, actor Actor) ([]Order, int, error) {
	if actor.EmployeeID == nil {
		if actor.CustomerID == nil {
			return nil, 0, apperror.NewAccessDenied("Customer required")
		}
		filter.CustomerID = actor.CustomerID
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, apperror.NewValidation("unknown status").WithDetail("field", "status")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.orders.List(ctx, filter)
}

// Cancel cancels a PENDING order and returns deducted stock.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, actor Actor) (*Order, error) {
	var result *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := actor.authorize(o); err != nil {
			return err
		}
		if o.Status != StatusPending {
			return o.transitionError("cancel")
		}
		if err := s.applyCancel(ctx, o, actor.EmployeeID, "order canceled"); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "order canceled", "order_id", result.ID, "number", result.Number)
	return result, nil
}

// Confirm is the staff confirmation of a cash or transfer order.
// PayOS orders are confirmed by their payment webhook.
func (s *Service) Confirm(ctx context.Context, orderID, employeeID id.ID) (*Order, error) {
	var result *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPending || o.PaymentMethod == PaymentPayOS {
			return o.transitionError("confirm")
		}

		now := s.now()
		o.Status = StatusConfirmed
		o.ConfirmedAt = &now
		if o.EmployeeID == nil {
			o.EmployeeID = &employeeID
		}
		o.Touch(now)
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if err := s.publish(ctx, o, events.OrderConfirmed); err != nil {
			return err
		}
		result = o
		return nil
	})
	return result, err
}

// AttachPaymentLink stores the PayOS payment link id of a pending PayOS order.
// Webhooks find the order by this id.
func (s *Service) AttachPaymentLink(ctx context.Context, orderID id.ID, paymentLinkID string, actor Actor) (*Order, error) {
	paymentLinkID = strings.TrimSpace(paymentLinkID)
	if paymentLinkID == "" {
		return nil, apperror.NewValidation("payment link id is required").WithDetail("field", "paymentLinkId")
	}

	var result *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := actor.authorize(o); err != nil {
			return err
		}
		if o.PaymentMethod != PaymentPayOS || o.Status != StatusPending {
			return o.transitionError("attach payment link to")
		}
		o.PaymentLinkID = &paymentLinkID
		o.Touch(s.now())
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	return result, err
}

// The methods below apply externally reported transitions to an order the
// caller has already locked inside its transaction.

// ConfirmPaid confirms a PENDING order whose payment succeeded and deducts
// its stock. The goods are paid for, so a shortfall is logged, not refused.
func (s *Service) ConfirmPaid(ctx context.Context, o *Order) error {
	if o.Status != StatusPending {
		return o.transitionError("confirm payment of")
	}
	if !o.StockCommitted {
		if err := s.stock.Commit(ctx, stock.Commit{
			Movements:      o.movements(stock.DirectionOut),
			ReferenceType:  stock.RefSaleOrder,
			ReferenceID:    o.ID,
			Notes:          "payment confirmed for order " + o.Number,
			AllowShortfall: true,
		}); err != nil {
			return err
		}
		o.StockCommitted = true
	}

	now := s.now()
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.Touch(now)
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}
	return s.publish(ctx, o, events.OrderConfirmed)
}

// CancelUnpaid cancels a PENDING order whose payment failed or was abandoned.
func (s *Service) CancelUnpaid(ctx context.Context, o *Order, reason string) error {
	if o.Status != StatusPending {
		return o.transitionError("cancel")
	}
	return s.applyCancel(ctx, o, nil, "payment failed: "+reason)
}

// CancelByCarrier cancels an order the carrier reported as canceled.
// Only PENDING and CONFIRMED orders change; it returns false otherwise.
func (s *Service) CancelByCarrier(ctx context.Context, o *Order) (bool, error) {
	if o.Status != StatusPending && o.Status != StatusConfirmed {
		return false, nil
	}
	if err := s.applyCancel(ctx, o, nil, "canceled by carrier"); err != nil {
		return false, err
	}
	return true, nil
}

// CompleteDelivered completes a delivered order, stamping the delivery time
// and the return window in force. It returns false when nothing changed.
func (s *Service) CompleteDelivered(ctx context.Context, o *Order, deliveredAt time.Time, returnWindowDays int) (bool, error) {
	switch o.Status {
	case StatusCompleted:
		return false, nil
	case StatusCanceled:
		logger.Warn(ctx, "delivery reported for canceled order", "order_id", o.ID, "number", o.Number)
		return false, nil
	}

	if !o.StockCommitted {
		// delivered before the payment webhook arrived
		if err := s.stock.Commit(ctx, stock.Commit{
			Movements:      o.movements(stock.DirectionOut),
			ReferenceType:  stock.RefSaleOrder,
			ReferenceID:    o.ID,
			Notes:          "delivered order " + o.Number,
			AllowShortfall: true,
		}); err != nil {
			return false, err
		}
		o.StockCommitted = true
	}

	now := s.now()
	window := returnWindowDays
	o.Status = StatusCompleted
	o.DeliveredAt = &deliveredAt
	o.CompletedAt = &now
	o.ReturnWindowDays = &window
	o.Touch(now)
	if err := s.orders.Update(ctx, o); err != nil {
		return false, err
	}
	if err := s.publish(ctx, o, events.OrderCompleted); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) applyCancel(ctx context.Context, o *Order, actorID *id.ID, notes string) error {
	if o.StockCommitted {
		if err := s.stock.Commit(ctx, stock.Commit{
			Movements:     o.movements(stock.DirectionIn),
			ReferenceType: stock.RefSaleOrder,
			ReferenceID:   o.ID,
			ActorID:       actorID,
			Notes:         notes,
		}); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
		o.StockCommitted = false
	}

	now := s.now()
	o.Status = StatusCanceled
	o.CanceledAt = &now
	o.Touch(now)
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}
	return s.publish(ctx, o, events.OrderCanceled)
}
