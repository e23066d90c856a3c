// Package returns is the return and exchange workflow for completed orders.
package returns

import (
	"time"

	"storeops/internal/core/entity"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
)

// Type of a request.
type Type string

const (
	TypeReturn   Type = "RETURN"
	TypeExchange Type = "EXCHANGE"
)

// Status of a request. PENDING and APPROVED are active.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// Active reports whether the request still blocks new requests on its order.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Item is one order line being returned or exchanged.
type Item struct {
	ID          id.ID       `db:"id" json:"id"`
	ReturnID    id.ID       `db:"return_id" json:"returnId"`
	OrderLineID id.ID       `db:"order_line_id" json:"orderLineId"`
	ProductID   id.ID       `db:"product_id" json:"productId"`
	Quantity    int64       `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	Refund      types.Money `db:"refund" json:"refund"`

	ExchangeProductID *id.ID `db:"exchange_product_id" json:"exchangeProductId,omitempty"`
	ExchangeQuantity  *int64 `db:"exchange_quantity" json:"exchangeQuantity,omitempty"`
}

// OrderReturn is a return or exchange request.
type OrderReturn struct {
	entity.BaseDocument

	OrderID      id.ID       `db:"order_id" json:"orderId"`
	CustomerID   id.ID       `db:"customer_id" json:"customerId"`
	Type         Type        `db:"type" json:"type"`
	Status       Status      `db:"status" json:"status"`
	Reason       string      `db:"reason" json:"reason"`
	RefundAmount types.Money `db:"refund_amount" json:"refundAmount"`
	AdminNote    string      `db:"admin_note" json:"adminNote,omitempty"`
	ProcessedBy  *id.ID      `db:"processed_by" json:"processedBy,omitempty"`
	ProcessedAt  *time.Time  `db:"processed_at" json:"processedAt,omitempty"`
	CompletedAt  *time.Time  `db:"completed_at" json:"completedAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// ListFilter selects return requests.
type ListFilter struct {
	Status     *Status
	Type       *Type
	CustomerID *id.ID
	OrderID    *id.ID
	Limit      int
	Offset     int
}
