package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"storeops/internal/core/id"
	"storeops/internal/domain/returns"
	"storeops/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles return and exchange requests.
type ReturnHandler struct {
	*BaseHandler
	service *returns.Service
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, service *returns.Service) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service}
}

// RequestReturn handles POST /orders/:id/returns
func (h *ReturnHandler) RequestReturn(c *gin.Context) {
	h.open(c, h.service.RequestReturn)
}

// RequestExchange handles POST /orders/:id/exchanges
func (h *ReturnHandler) RequestExchange(c *gin.Context) {
	h.open(c, h.service.RequestExchange)
}

type openFunc func(ctx context.Context, customerID, orderID id.ID, req returns.Request) (*returns.OrderReturn, error)

func (h *ReturnHandler) open(c *gin.Context, fn openFunc) {
	customerID, ok := h.CustomerID(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}

	r, err := fn(c.Request.Context(), customerID, orderID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r)
}

// List handles GET /returns (staff)
func (h *ReturnHandler) List(c *gin.Context) {
	var q dto.ReturnListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	h.list(c, filter)
}

// ListMine handles GET /returns/mine
func (h *ReturnHandler) ListMine(c *gin.Context) {
	customerID, ok := h.CustomerID(c)
	if !ok {
		return
	}
	var q dto.ReturnListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	filter.CustomerID = &customerID
	h.list(c, filter)
}

func (h *ReturnHandler) list(c *gin.Context, filter returns.ListFilter) {
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if items == nil {
		items = []returns.OrderReturn{}
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset})
}

// Get handles GET /returns/:id. Customers only see their own requests.
func (h *ReturnHandler) Get(c *gin.Context) {
	user, ok := h.User(c)
	if !ok {
		return
	}
	returnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var owner *id.ID
	if !user.IsStaff() {
		customerID, ok := h.CustomerID(c)
		if !ok {
			return
		}
		owner = &customerID
	}

	r, err := h.service.Get(c.Request.Context(), returnID, owner)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// Approve handles POST /returns/:id/approve
func (h *ReturnHandler) Approve(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	returnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.ApproveReturnRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Approve(c.Request.Context(), returnID, employeeID, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// Reject handles POST /returns/:id/reject
func (h *ReturnHandler) Reject(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	returnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Reject(c.Request.Context(), returnID, employeeID, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// Complete handles POST /returns/:id/complete
func (h *ReturnHandler) Complete(c *gin.Context) {
	employeeID, ok := h.EmployeeID(c)
	if !ok {
		return
	}
	returnID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Complete(c.Request.Context(), returnID, employeeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}
