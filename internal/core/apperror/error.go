// Package apperror is the error type every layer returns for failures the
// client should see. The HTTP layer renders Code, Message and Details;
// anything else becomes an opaque 500.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal = "INTERNAL_ERROR"

	CodeValidation = "VALIDATION_ERROR"

	// Order, stock and return rules (422 unless noted)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInvalidOrderState      = "INVALID_ORDER_STATE"
	CodeInvalidReturnState     = "INVALID_RETURN_STATE"
	CodeNoShippingAddress      = "NO_SHIPPING_ADDRESS"
	CodeReturnWindowExpired    = "RETURN_WINDOW_EXPIRED"
	CodeActiveReturnExists     = "ACTIVE_RETURN_EXISTS"     // 409
	CodeConcurrentModification = "CONCURRENT_MODIFICATION" // 409

	// Promotion rejections (422)
	CodePromotionNotFound      = "PROMOTION_NOT_FOUND"
	CodePromotionExpired       = "PROMOTION_EXPIRED"
	CodePromotionInactive      = "PROMOTION_INACTIVE"
	CodePromotionUsageExceeded = "PROMOTION_USAGE_EXCEEDED"
	CodeMinOrderAmountNotMet   = "MIN_ORDER_AMOUNT_NOT_MET"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeAccessDenied = "ACCESS_DENIED"

	CodeNotFound = "NOT_FOUND"

	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeIdempotencyMismatch = "IDEMPOTENCY_KEY_REUSED"
)

// AppError is a failure with a machine readable code.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int `json:"-"`

	// Err is logged, never rendered.
	Err error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation is a 400 for malformed or missing input.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule is a 422 with a caller chosen code.
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock reports the first product that cannot cover the
// requested quantity.
func NewInsufficientStock(productID string, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewConcurrentModification is returned when a versioned update lost the
// race. The client should reload and retry.
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently, reload and try again",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden is a 403 for a missing role.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewAccessDenied is a 403 for a resource owned by someone else.
func NewAccessDenied(message string) *AppError {
	return &AppError{
		Code:       CodeAccessDenied,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewIdempotencyConflict is returned while the first request with the key
// is still running.
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyConflict,
		Message:    "A request with this idempotency key is in progress",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when a key is reused for another
// operation or body.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyMismatch,
		Message:    "Idempotency key was used for a different request",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"idempotency_key": key},
	}
}

func NewInvalidOrderState(orderID any, current, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidOrderState,
		Message:    fmt.Sprintf("Cannot %s order in status %s", action, current),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"order_id": orderID, "status": current, "action": action},
	}
}

func NewInvalidReturnState(returnID any, current, action string) *AppError {
	return &AppError{
		Code:       CodeInvalidReturnState,
		Message:    fmt.Sprintf("Cannot %s return request in status %s", action, current),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"return_id": returnID, "status": current, "action": action},
	}
}

// NewNoShippingAddress: the request named no address and the customer has
// no default one.
func NewNoShippingAddress(customerID any) *AppError {
	return &AppError{
		Code:       CodeNoShippingAddress,
		Message:    "No shipping address available for customer",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"customer_id": customerID},
	}
}

func NewActiveReturnExists(orderID any) *AppError {
	return &AppError{
		Code:       CodeActiveReturnExists,
		Message:    "Order already has an active return request",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"order_id": orderID},
	}
}

// NewPromotion rejects a promotion code. code is one of the CodePromotion*
// constants or CodeMinOrderAmountNotMet.
func NewPromotion(code, promoCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"promotion_code": promoCode},
	}
}

func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// AsAppError finds an AppError in the chain of err.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
