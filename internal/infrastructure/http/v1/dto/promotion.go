package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"storeops/internal/domain/catalog"
	"storeops/internal/domain/promotion"
)

// ValidateCodeRequest checks a code against a prospective order.
type ValidateCodeRequest struct {
	Code        string          `json:"code" binding:"required,max=50"`
	Scope       string          `json:"scope" binding:"omitempty,oneof=ORDER SHIPPING"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
}

// ToRequest converts DTO to the engine request.
func (r ValidateCodeRequest) ToRequest() promotion.CodeRequest {
	return promotion.CodeRequest{
		Code:        r.Code,
		Scope:       promotion.Scope(r.Scope),
		Subtotal:    r.Subtotal,
		ShippingFee: r.ShippingFee,
	}
}

// PromotionRequest creates a coded promotion.
type PromotionRequest struct {
	Code           string          `json:"code" binding:"required,max=50"`
	Description    string          `json:"description" binding:"max=500"`
	DiscountType   string          `json:"discountType" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	StartsAt       time.Time       `json:"startsAt" binding:"required"`
	EndsAt         time.Time       `json:"endsAt" binding:"required"`
	UsageLimit     *int64          `json:"usageLimit"`
	Scope          string          `json:"scope" binding:"omitempty,oneof=ORDER SHIPPING"`
	Active         *bool           `json:"active"`
}

// ToModel converts DTO to a new promotion. Promotions start active unless
// the request says otherwise.
func (r PromotionRequest) ToModel() *promotion.Promotion {
	return &promotion.Promotion{
		Code:           r.Code,
		Description:    r.Description,
		DiscountType:   promotion.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		UsageLimit:     r.UsageLimit,
		Scope:          promotion.Scope(r.Scope),
		Active:         r.Active == nil || *r.Active,
	}
}

// RuleRequest creates an automatic promotion rule.
type RuleRequest struct {
	Name           string          `json:"name" binding:"required,max=200"`
	DiscountType   string          `json:"discountType" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	StartsAt       time.Time       `json:"startsAt" binding:"required"`
	EndsAt         time.Time       `json:"endsAt" binding:"required"`
	CustomerType   string          `json:"customerType" binding:"omitempty,oneof=REGULAR VIP WHOLESALE ALL"`
	Priority       int             `json:"priority"`
	Scope          string          `json:"scope" binding:"omitempty,oneof=ORDER SHIPPING"`
	Condition      string          `json:"condition" binding:"max=1000"`
	Active         *bool           `json:"active"`
}

// ToModel converts DTO to a new rule.
func (r RuleRequest) ToModel() *promotion.Rule {
	return &promotion.Rule{
		Name:           r.Name,
		DiscountType:   promotion.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		CustomerType:   catalog.CustomerType(r.CustomerType),
		Priority:       r.Priority,
		Scope:          promotion.Scope(r.Scope),
		Condition:      r.Condition,
		Active:         r.Active == nil || *r.Active,
	}
}

// SetActiveRequest toggles a promotion or rule.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// PromotionListQuery filters the admin lists.
type PromotionListQuery struct {
	Scope      string `form:"scope" binding:"omitempty,oneof=ORDER SHIPPING"`
	Keyword    string `form:"q"`
	ActiveOnly bool   `form:"activeOnly"`
}

// ToFilter converts query to the repository filter.
func (q PromotionListQuery) ToFilter() promotion.ListFilter {
	f := promotion.ListFilter{Keyword: q.Keyword, ActiveOnly: q.ActiveOnly}
	if q.Scope != "" {
		s := promotion.Scope(q.Scope)
		f.Scope = &s
	}
	return f
}
