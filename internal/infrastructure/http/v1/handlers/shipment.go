package handlers

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/core/id"
	"storeops/internal/domain/shipping"
	"storeops/internal/infrastructure/http/v1/dto"
)

// ShipmentHandler handles shipment registration and lookup.
type ShipmentHandler struct {
	*BaseHandler
	service *shipping.Service
}

// NewShipmentHandler creates a new shipment handler.
func NewShipmentHandler(base *BaseHandler, service *shipping.Service) *ShipmentHandler {
	return &ShipmentHandler{BaseHandler: base, service: service}
}

// Register handles POST /orders/:id/shipment
func (h *ShipmentHandler) Register(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.RegisterShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sh, err := h.service.Register(c.Request.Context(), orderID, req.CarrierOrderCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, sh)
}

// GetByOrder handles GET /orders/:id/shipment
func (h *ShipmentHandler) GetByOrder(c *gin.Context) {
	user, ok := h.User(c)
	if !ok {
		return
	}
	orderID, ok := h.PathID(c, "id")
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

	sh, err := h.service.GetByOrder(c.Request.Context(), orderID, owner)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sh)
}
