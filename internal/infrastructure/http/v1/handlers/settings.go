package handlers

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	"storeops/internal/domain/settings"
	"storeops/internal/infrastructure/http/v1/dto"
)

// SettingsHandler reads and updates system settings.
type SettingsHandler struct {
	*BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(base *BaseHandler, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, service: service}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, snap)
}

// Update handles PUT /settings
func (h *SettingsHandler) Update(c *gin.Context) {
	user, ok := h.User(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.ReturnWindowDays == nil && req.ReviewEditWindowHours == nil {
		h.Error(c, apperror.NewValidation("nothing to update"))
		return
	}

	ctx := c.Request.Context()
	var (
		snap settings.Snapshot
		err  error
	)
	if req.ReturnWindowDays != nil {
		if snap, err = h.service.UpdateReturnWindow(ctx, *req.ReturnWindowDays, user.UserID); err != nil {
			h.Error(c, err)
			return
		}
	}
	if req.ReviewEditWindowHours != nil {
		if snap, err = h.service.UpdateReviewEditWindow(ctx, *req.ReviewEditWindowHours, user.UserID); err != nil {
			h.Error(c, err)
			return
		}
	}
	h.OK(c, snap)
}
