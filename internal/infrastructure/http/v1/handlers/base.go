// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	appctx "storeops/internal/core/context"
	"storeops/internal/core/id"
	"storeops/internal/infrastructure/http/v1/dto"
	"storeops/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// PathID parses a UUID path parameter.
func (h *BaseHandler) PathID(c *gin.Context, param string) (id.ID, bool) {
	parsed, err := dto.ParseID(param, c.Param(param))
	if err != nil {
		h.Error(c, err)
		return id.Nil(), false
	}
	return parsed, true
}

// User returns the authenticated user or aborts with 401.
func (h *BaseHandler) User(c *gin.Context) (*appctx.UserContext, bool) {
	user := appctx.GetUser(c.Request.Context())
	if user == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return nil, false
	}
	return user, true
}

// CustomerID returns the caller's customer id. Callers without a customer
// profile are denied.
func (h *BaseHandler) CustomerID(c *gin.Context) (id.ID, bool) {
	user, ok := h.User(c)
	if !ok {
		return id.Nil(), false
	}
	if user.CustomerID == "" {
		h.Error(c, apperror.NewAccessDenied("Customer required"))
		return id.Nil(), false
	}
	parsed, err := id.Parse(user.CustomerID)
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("invalid customer claim"))
		return id.Nil(), false
	}
	return parsed, true
}

// EmployeeID returns the caller's employee id. Callers without an employee
// profile are denied.
func (h *BaseHandler) EmployeeID(c *gin.Context) (id.ID, bool) {
	user, ok := h.User(c)
	if !ok {
		return id.Nil(), false
	}
	if user.EmployeeID == "" || !user.IsStaff() {
		h.Error(c, apperror.NewAccessDenied("Employee required"))
		return id.Nil(), false
	}
	parsed, err := id.Parse(user.EmployeeID)
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("invalid employee claim"))
		return id.Nil(), false
	}
	return parsed, true
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
