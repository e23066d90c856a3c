// Package order owns orders, their line snapshots and every order status
// transition, including the stock movements each transition implies.
package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/entity"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
)

// Status of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// PaymentMethod of an order.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentPayOS    PaymentMethod = "PAYOS"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentPayOS:
		return true
	}
	return false
}

// DeductsAtCreation reports whether stock leaves the counter when the order
// is created. PayOS orders deduct when the payment is confirmed.
func (m PaymentMethod) DeductsAtCreation() bool {
	return m != PaymentPayOS
}

// AddressSnapshot is the delivery address copied onto the order.
// Stored as JSONB.
type AddressSnapshot struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	Ward          string `json:"ward,omitempty"`
	District      string `json:"district,omitempty"`
	Province      string `json:"province,omitempty"`
}

// SnapshotAddress copies a saved address.
func SnapshotAddress(a *catalog.Address) AddressSnapshot {
	return AddressSnapshot{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Street:        a.Street,
		Ward:          a.Ward,
		District:      a.District,
		Province:      a.Province,
	}
}

// Value implements driver.Valuer.
func (a AddressSnapshot) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AddressSnapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = AddressSnapshot{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("scan address snapshot: unsupported type %T", src)
	}
}

// ProductSnapshot freezes how the product looked when it was bought.
// It is written once with the line and never refreshed from the catalog.
type ProductSnapshot struct {
	Name     string `db:"product_name" json:"productName"`
	Code     string `db:"product_code" json:"productCode"`
	ImageURL string `db:"product_image" json:"productImage,omitempty"`
}

// Line is one product of an order.
type Line struct {
	ID        id.ID       `db:"id" json:"id"`
	OrderID   id.ID       `db:"order_id" json:"orderId"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	ProductSnapshot
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() types.Money {
	return l.UnitPrice.Mul(types.NewMoneyFromInt(l.Quantity))
}

// Order is the order aggregate. Lines are loaded with the header.
type Order struct {
	entity.BaseDocument

	CustomerID    id.ID         `db:"customer_id" json:"customerId"`
	EmployeeID    *id.ID        `db:"employee_id" json:"employeeId,omitempty"`
	Status        Status        `db:"status" json:"status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// TotalAmount is the sum of line subtotals.
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`
	Discount    types.Money `db:"discount" json:"discount"`
	// ShippingFee is what the customer pays for shipping, after ShippingDiscount.
	ShippingFee      types.Money `db:"shipping_fee" json:"shippingFee"`
	ShippingDiscount types.Money `db:"shipping_discount" json:"shippingDiscount"`
	FinalAmount      types.Money `db:"final_amount" json:"finalAmount"`

	PromotionID         *id.ID  `db:"promotion_id" json:"promotionId,omitempty"`
	PromotionCode       *string `db:"promotion_code" json:"promotionCode,omitempty"`
	RuleID              *id.ID  `db:"rule_id" json:"ruleId,omitempty"`
	ShippingPromotionID *id.ID  `db:"shipping_promotion_id" json:"shippingPromotionId,omitempty"`
	ShippingRuleID      *id.ID  `db:"shipping_rule_id" json:"shippingRuleId,omitempty"`

	// PaymentLinkID correlates PayOS webhooks with the order.
	PaymentLinkID   *string         `db:"payment_link_id" json:"paymentLinkId,omitempty"`
	ShippingAddress AddressSnapshot `db:"shipping_address" json:"shippingAddress"`
	Note            string          `db:"note" json:"note,omitempty"`

	// StockCommitted is true while the order's quantities are deducted from stock.
	StockCommitted bool `db:"stock_committed" json:"-"`

	OrderDate   time.Time  `db:"order_date" json:"orderDate"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CanceledAt  *time.Time `db:"canceled_at" json:"canceledAt,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	// ReturnWindowDays is the return window in force when the order completed.
	ReturnWindowDays *int `db:"return_window_days" json:"returnWindowDays,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// IsTerminal reports whether the order accepts no further status changes.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCanceled
}

// OwnedBy reports whether the order belongs to the customer.
func (o *Order) OwnedBy(customerID id.ID) bool {
	return o.CustomerID == customerID
}

// Line returns the line with the given id.
func (o *Order) Line(lineID id.ID) (Line, bool) {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return Line{}, false
}

// recalculate derives TotalAmount and FinalAmount from lines and discounts.
func (o *Order) recalculate() {
	total := types.Zero()
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	o.TotalAmount = total
	o.FinalAmount = total.Sub(o.Discount).Add(o.ShippingFee)
}

func (o *Order) checkTotals() error {
	if o.Discount.IsNegative() || o.Discount.GreaterThan(o.TotalAmount) {
		return apperror.NewInternal(fmt.Errorf("discount %s outside [0, %s]", o.Discount, o.TotalAmount))
	}
	if o.FinalAmount.IsNegative() {
		return apperror.NewInternal(fmt.Errorf("negative final amount %s", o.FinalAmount))
	}
	return nil
}

func (o *Order) transitionError(action string) error {
	return apperror.NewInvalidOrderState(o.ID, string(o.Status), action)
}

// Actor is who performs an operation. Customers are limited to their own orders.
type Actor struct {
	CustomerID *id.ID
	EmployeeID *id.ID
}

// CustomerActor is a customer acting on their own orders.
func CustomerActor(customerID id.ID) Actor {
	return Actor{CustomerID: &customerID}
}

// EmployeeActor is a staff member.
func EmployeeActor(employeeID id.ID) Actor {
	return Actor{EmployeeID: &employeeID}
}

// authorize fails with AccessDenied when a customer touches someone else's order.
func (a Actor) authorize(o *Order) error {
	if a.EmployeeID != nil {
		return nil
	}
	if a.CustomerID == nil || !o.OwnedBy(*a.CustomerID) {
		return apperror.NewAccessDenied("Order belongs to another customer")
	}
	return nil
}
