package dto

import (
	"github.com/shopspring/decimal"

	"storeops/internal/core/id"
	"storeops/internal/domain/order"
)

// OrderTerms are the options shared by every order creation request.
type OrderTerms struct {
	AddressID             *string         `json:"addressId" binding:"omitempty,uuid"`
	PaymentMethod         string          `json:"paymentMethod" binding:"required,oneof=CASH TRANSFER PAYOS"`
	PromotionCode         string          `json:"promotionCode" binding:"max=50"`
	ShippingPromotionCode string          `json:"shippingPromotionCode" binding:"max=50"`
	ShippingFee           decimal.Decimal `json:"shippingFee"`
	Note                  string          `json:"note" binding:"max=500"`
}

func (t OrderTerms) toTerms() (order.Terms, error) {
	addressID, err := ParseOptionalID("addressId", t.AddressID)
	if err != nil {
		return order.Terms{}, err
	}
	return order.Terms{
		AddressID:             addressID,
		PaymentMethod:         order.PaymentMethod(t.PaymentMethod),
		PromotionCode:         t.PromotionCode,
		ShippingPromotionCode: t.ShippingPromotionCode,
		ShippingFee:           t.ShippingFee,
		Note:                  t.Note,
	}, nil
}

// CheckoutRequest orders the caller's cart.
type CheckoutRequest struct {
	OrderTerms
}

// ToRequest converts DTO to the service request.
func (r CheckoutRequest) ToRequest(customerID id.ID) (order.CheckoutRequest, error) {
	terms, err := r.toTerms()
	if err != nil {
		return order.CheckoutRequest{}, err
	}
	return order.CheckoutRequest{CustomerID: customerID, Terms: terms}, nil
}

// BuyNowRequest orders one product.
type BuyNowRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
	OrderTerms
}

// ToRequest converts DTO to the service request.
func (r BuyNowRequest) ToRequest(customerID id.ID) (order.BuyNowRequest, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return order.BuyNowRequest{}, err
	}
	terms, err := r.toTerms()
	if err != nil {
		return order.BuyNowRequest{}, err
	}
	return order.BuyNowRequest{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   r.Quantity,
		Terms:      terms,
	}, nil
}

// OrderLineRequest is one requested product of a staff order.
type OrderLineRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// StaffOrderRequest is an order entered by staff for a customer.
type StaffOrderRequest struct {
	CustomerID string             `json:"customerId" binding:"required,uuid"`
	Lines      []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	OrderTerms
}

// ToRequest converts DTO to the service request.
func (r StaffOrderRequest) ToRequest(employeeID id.ID) (order.StaffOrderRequest, error) {
	customerID, err := ParseID("customerId", r.CustomerID)
	if err != nil {
		return order.StaffOrderRequest{}, err
	}
	lines := make([]order.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		productID, err := ParseID("productId", l.ProductID)
		if err != nil {
			return order.StaffOrderRequest{}, err
		}
		lines[i] = order.LineRequest{ProductID: productID, Quantity: l.Quantity}
	}
	terms, err := r.toTerms()
	if err != nil {
		return order.StaffOrderRequest{}, err
	}
	return order.StaffOrderRequest{
		EmployeeID: employeeID,
		CustomerID: customerID,
		Lines:      lines,
		Terms:      terms,
	}, nil
}

// PaymentLinkRequest attaches a PayOS payment link to an order.
type PaymentLinkRequest struct {
	PaymentLinkID string `json:"paymentLinkId" binding:"required,max=100"`
}

// OrderListQuery filters the order list.
type OrderListQuery struct {
	Status     string `form:"status"`
	CustomerID string `form:"customerId"`
	PageQuery
}

// ToFilter converts query to the repository filter. CustomerID is only
// honored for staff; the service pins customers to themselves.
func (q OrderListQuery) ToFilter() (order.ListFilter, error) {
	customerID, err := ParseOptionalID("customerId", optional(q.CustomerID))
	if err != nil {
		return order.ListFilter{}, err
	}
	f := order.ListFilter{CustomerID: customerID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		s := order.Status(q.Status)
		f.Status = &s
	}
	return f, nil
}

// RegisterShipmentRequest records the carrier order created for an order.
type RegisterShipmentRequest struct {
	CarrierOrderCode string `json:"carrierOrderCode" binding:"required,max=64"`
}
