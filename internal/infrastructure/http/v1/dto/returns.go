package dto

import (
	"github.com/shopspring/decimal"

	"storeops/internal/domain/returns"
)

// ReturnItemRequest is one order line to return or exchange.
type ReturnItemRequest struct {
	OrderLineID       string  `json:"orderLineId" binding:"required,uuid"`
	Quantity          int64   `json:"quantity" binding:"required,min=1"`
	ExchangeProductID *string `json:"exchangeProductId" binding:"omitempty,uuid"`
	ExchangeQuantity  *int64  `json:"exchangeQuantity" binding:"omitempty,min=1"`
}

// ReturnRequest opens a return or exchange.
type ReturnRequest struct {
	Reason string              `json:"reason" binding:"required,max=1000"`
	Items  []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToRequest converts DTO to the service request.
func (r ReturnRequest) ToRequest() (returns.Request, error) {
	items := make([]returns.ItemRequest, len(r.Items))
	for i, it := range r.Items {
		lineID, err := ParseID("orderLineId", it.OrderLineID)
		if err != nil {
			return returns.Request{}, err
		}
		exchangeProductID, err := ParseOptionalID("exchangeProductId", it.ExchangeProductID)
		if err != nil {
			return returns.Request{}, err
		}
		items[i] = returns.ItemRequest{
			OrderLineID:       lineID,
			Quantity:          it.Quantity,
			ExchangeProductID: exchangeProductID,
			ExchangeQuantity:  it.ExchangeQuantity,
		}
	}
	return returns.Request{Reason: r.Reason, Items: items}, nil
}

// ApproveReturnRequest carries the staff decision.
type ApproveReturnRequest struct {
	Note         string           `json:"note" binding:"max=1000"`
	RefundAmount *decimal.Decimal `json:"refundAmount"`
}

// ToRequest converts DTO to the service request.
func (r ApproveReturnRequest) ToRequest() returns.ApproveRequest {
	return returns.ApproveRequest{Note: r.Note, RefundAmount: r.RefundAmount}
}

// RejectReturnRequest explains a rejection.
type RejectReturnRequest struct {
	Note string `json:"note" binding:"required,max=1000"`
}

// ReturnListQuery filters return requests.
type ReturnListQuery struct {
	Status     string `form:"status"`
	Type       string `form:"type"`
	CustomerID string `form:"customerId"`
	OrderID    string `form:"orderId"`
	PageQuery
}

// ToFilter converts query to the service filter.
func (q ReturnListQuery) ToFilter() (returns.ListFilter, error) {
	customerID, err := ParseOptionalID("customerId", optional(q.CustomerID))
	if err != nil {
		return returns.ListFilter{}, err
	}
	orderID, err := ParseOptionalID("orderId", optional(q.OrderID))
	if err != nil {
		return returns.ListFilter{}, err
	}
	f := returns.ListFilter{CustomerID: customerID, OrderID: orderID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		s := returns.Status(q.Status)
		f.Status = &s
	}
	if q.Type != "" {
		t := returns.Type(q.Type)
		f.Type = &t
	}
	return f, nil
}
