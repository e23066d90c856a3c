package handlers

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/order"
	"storeops/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles order creation and lifecycle endpoints.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// actor resolves who is acting. Staff act as employees even when their
// token also carries a customer profile.
func (h *OrderHandler) actor(c *gin.Context) (order.Actor, bool) {
	user, ok := h.User(c)
	if !ok {
		return order.Actor{}, false
	}
	if user.IsStaff() && user.EmployeeID != "" {
		employeeID, err := id.Parse(user.EmployeeID)
		if err != nil {
			h.Error(c, apperror.NewUnauthorized("invalid employee claim"))
			return order.Actor{}, false
		}
		return order.EmployeeActor(employeeID), true
	}
	customerID, ok := h.CustomerID(c)
	if !ok {
		return order.Actor{}, false
	}
	return order.CustomerActor(customerID), true
}

// Checkout handles POST /orders/checkout
func (h *OrderHandler) Checkout(c *gin.Context) {
	customerID, ok := h.CustomerID(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToRequest(customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.Checkout(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// BuyNow handles POST /orders/buy-now
func (h *OrderHandler) BuyNow(c *gin.Context) {
	customerID, ok := h.CustomerID(c)
	if !ok {
		return
	}
	var req dto.BuyNowRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToRequest(customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.BuyNow(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// Create handles POST /orders (staff order for a customer)
func (h *OrderHandler) Create(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	var req dto.StaffOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToRequest(employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.CreateForCustomer(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q dto.OrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), filter, actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []order.Order{}
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	o, err := h.service.Get(c.Request.Context(), orderID, actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	o, err := h.service.Cancel(c.Request.Context(), orderID, actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Confirm handles POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	o, err := h.service.Confirm(c.Request.Context(), orderID, employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// AttachPaymentLink handles POST /orders/:id/payment-link
func (h *OrderHandler) AttachPaymentLink(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentLinkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := h.service.AttachPaymentLink(c.Request.Context(), orderID, req.PaymentLinkID, actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}
