// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
)

// --- Pagination ---

// PageQuery contains limit/offset paging parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any `json:"items"`
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Webhooks ---

// WebhookAck is the body of every webhook answer. Providers only look at the
// HTTP status, which is always 200.
type WebhookAck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// --- Parsing helpers ---

// ParseID parses a required identifier.
func ParseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(strings.TrimSpace(raw))
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid " + field + " format").WithDetail("field", field)
	}
	return parsed, nil
}

// ParseOptionalID parses an identifier that may be empty.
func ParseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// optional returns nil for an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
