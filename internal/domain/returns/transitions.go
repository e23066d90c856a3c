package returns

import (
	"context"
	"fmt"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/events"
	"storeops/internal/domain/registers/stock"
	"storeops/pkg/logger"
)

// ApproveRequest carries the staff decision details.
type ApproveRequest struct {
	Note string
	// RefundAmount overrides the computed refund when set.
	RefundAmount *types.Money
}

// Approve moves a PENDING request to APPROVED. Quantity bounds and the
// single-active-request rule are checked again, since other requests may
// have been filed since this one.
func (s *Service) Approve(ctx context.Context, returnID, employeeID id.ID, req ApproveRequest) (*OrderReturn, error) {
	if req.RefundAmount != nil && req.RefundAmount.IsNegative() {
		return nil, apperror.NewValidation("refund amount must not be negative").WithDetail("field", "refundAmount")
	}

	return s.transition(ctx, returnID, "approve", StatusPending, func(ctx context.Context, r *OrderReturn) error {
		o, err := s.orders.GetForUpdate(ctx, r.OrderID)
		if err != nil {
			return err
		}

		active, err := s.returns.HasActive(ctx, r.OrderID, &r.ID)
		if err != nil {
			return fmt.Errorf("check active returns: %w", err)
		}
		if active {
			return apperror.NewActiveReturnExists(r.OrderID)
		}

		returned, err := s.returns.ReturnedQuantities(ctx, r.OrderID, &r.ID)
		if err != nil {
			return fmt.Errorf("load returned quantities: %w", err)
		}
		for _, it := range r.Items {
			line, ok := o.Line(it.OrderLineID)
			if !ok {
				return apperror.NewInternal(fmt.Errorf("return item references unknown line %s", it.OrderLineID))
			}
			if err := checkQuantity(line, it.Quantity, returned[line.ID]); err != nil {
				return err
			}
		}

		if req.RefundAmount != nil {
			r.RefundAmount = types.RoundMoney(*req.RefundAmount)
		}
		r.Status = StatusApproved
		r.AdminNote = req.Note
		s.stampProcessed(r, employeeID)
		return s.save(ctx, r, events.ReturnApproved)
	})
}

// Reject moves a PENDING request to REJECTED.
func (s *Service) Reject(ctx context.Context, returnID, employeeID id.ID, note string) (*OrderReturn, error) {
	return s.transition(ctx, returnID, "reject", StatusPending, func(ctx context.Context, r *OrderReturn) error {
		r.Status = StatusRejected
		r.AdminNote = note
		s.stampProcessed(r, employeeID)
		return s.save(ctx, r, events.ReturnRejected)
	})
}

// Complete moves an APPROVED request to COMPLETED and restores stock.
// Exchanges also ship the replacement; when it is out of stock the request
// stays APPROVED and may be completed later.
func (s *Service) Complete(ctx context.Context, returnID, employeeID id.ID) (*OrderReturn, error) {
	return s.transition(ctx, returnID, "complete", StatusApproved, func(ctx context.Context, r *OrderReturn) error {
		movements := make([]stock.Movement, 0, 2*len(r.Items))
		for _, it := range r.Items {
			movements = append(movements, stock.Movement{ProductID: it.ProductID, Direction: stock.DirectionIn, Quantity: it.Quantity})
		}
		if r.Type == TypeExchange {
			for _, it := range r.Items {
				productID, qty := it.ProductID, it.Quantity
				if it.ExchangeProductID != nil {
					productID = *it.ExchangeProductID
				}
				if it.ExchangeQuantity != nil {
					qty = *it.ExchangeQuantity
				}
				movements = append(movements, stock.Movement{ProductID: productID, Direction: stock.DirectionOut, Quantity: qty})
			}
		}

		actor := employeeID
		if err := s.stock.Commit(ctx, stock.Commit{
			Movements:       movements,
			ReferenceType:   stock.RefReturn,
			ReferenceID:     r.ID,
			ActorID:         &actor,
			Notes:           string(r.Type) + " " + r.Number,
			RequireSellable: r.Type == TypeExchange,
		}); err != nil {
			return err
		}

		now := s.now()
		r.Status = StatusCompleted
		r.CompletedAt = &now
		if r.ProcessedBy == nil {
			s.stampProcessed(r, employeeID)
		}
		return s.save(ctx, r, events.ReturnCompleted)
	})
}

func (s *Service) transition(
	ctx context.Context,
	returnID id.ID,
	action string,
	from Status,
	apply func(ctx context.Context, r *OrderReturn) error,
) (*OrderReturn, error) {
	var result *OrderReturn
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.returns.GetForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if r.Status != from {
			return apperror.NewInvalidReturnState(r.ID, string(r.Status), action)
		}
		if err := apply(ctx, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return request updated", "return_id", result.ID, "action", action, "status", result.Status)
	return result, nil
}

func (s *Service) stampProcessed(r *OrderReturn, employeeID id.ID) {
	now := s.now()
	r.ProcessedBy = &employeeID
	r.ProcessedAt = &now
}

func (s *Service) save(ctx context.Context, r *OrderReturn, eventType string) error {
	r.Touch(s.now())
	if err := s.returns.Update(ctx, r); err != nil {
		return err
	}
	return s.publish(ctx, r, eventType)
}

// Get returns a request. Customers may only read their own.
func (s *Service) Get(ctx context.Context, returnID id.ID, customerID *id.ID) (*OrderReturn, error) {
	r, err := s.returns.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if customerID != nil && r.CustomerID != *customerID {
		return nil, apperror.NewAccessDenied("Return request belongs to another customer")
	}
	return r, nil
}

// List returns request headers.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]OrderReturn, int, error) {
	if filter.Status != nil {
		switch *filter.Status {
		case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		default:
			return nil, 0, apperror.NewValidation("unknown status").WithDetail("field", "status")
		}
	}
	if filter.Type != nil && *filter.Type != TypeReturn && *filter.Type != TypeExchange {
		return nil, 0, apperror.NewValidation("unknown type").WithDetail("field", "type")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.returns.List(ctx, filter)
}

// HasActive reports whether the order has a PENDING or APPROVED request.
func (s *Service) HasActive(ctx context.Context, orderID id.ID) (bool, error) {
	return s.returns.HasActive(ctx, orderID, nil)
}
