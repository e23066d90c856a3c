// Package promotion prices orders: coded promotions, automatic rules and
// their usage accounting.
package promotion

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
)

// DiscountType is how the discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Scope is what the discount reduces.
type Scope string

const (
	ScopeOrder    Scope = "ORDER"
	ScopeShipping Scope = "SHIPPING"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeOrder || s == ScopeShipping
}

// Promotion is a discount redeemed by entering its code.
type Promotion struct {
	ID             id.ID        `db:"id" json:"id"`
	Code           string       `db:"code" json:"code"`
	Description    string       `db:"description" json:"description,omitempty"`
	DiscountType   DiscountType `db:"discount_type" json:"discountType"`
	DiscountValue  types.Money  `db:"discount_value" json:"discountValue"`
	MinOrderAmount types.Money  `db:"min_order_amount" json:"minOrderAmount"`
	StartsAt       time.Time    `db:"starts_at" json:"startsAt"`
	EndsAt         time.Time    `db:"ends_at" json:"endsAt"`
	UsageLimit     *int64       `db:"usage_limit" json:"usageLimit,omitempty"`
	UsageCount     int64        `db:"usage_count" json:"usageCount"`
	Active         bool         `db:"is_active" json:"active"`
	Scope          Scope        `db:"scope" json:"scope"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
}

// UsageExhausted reports whether the usage limit is reached.
func (p *Promotion) UsageExhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}

// Rule is a discount applied automatically when its conditions hold.
type Rule struct {
	ID             id.ID                `db:"id" json:"id"`
	Name           string               `db:"name" json:"name"`
	DiscountType   DiscountType         `db:"discount_type" json:"discountType"`
	DiscountValue  types.Money          `db:"discount_value" json:"discountValue"`
	MinOrderAmount types.Money          `db:"min_order_amount" json:"minOrderAmount"`
	StartsAt       time.Time            `db:"starts_at" json:"startsAt"`
	EndsAt         time.Time            `db:"ends_at" json:"endsAt"`
	CustomerType   catalog.CustomerType `db:"customer_type" json:"customerType"`
	Priority       int                  `db:"priority" json:"priority"`
	Scope          Scope                `db:"scope" json:"scope"`
	// Condition is an optional CEL expression over subtotal, customer_type
	// and item_count.
	Condition string    `db:"condition" json:"condition,omitempty"`
	Active    bool      `db:"is_active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Quote is an applicable discount and where it came from.
type Quote struct {
	PromotionID *id.ID      `json:"promotionId,omitempty"`
	RuleID      *id.ID      `json:"ruleId,omitempty"`
	Code        string      `json:"code,omitempty"`
	Name        string      `json:"name,omitempty"`
	Scope       Scope       `json:"scope"`
	Discount    types.Money `json:"discount"`
}

// Pricing is the outcome of pricing one order.
type Pricing struct {
	Discount         types.Money
	ShippingDiscount types.Money
	Order            *Quote
	Shipping         *Quote
}

// Redemptions lists promotions whose usage count must be incremented.
func (p Pricing) Redemptions() []id.ID {
	var out []id.ID
	for _, q := range []*Quote{p.Order, p.Shipping} {
		if q != nil && q.PromotionID != nil {
			out = append(out, *q.PromotionID)
		}
	}
	return out
}

// NormalizeCode canonicalizes a user-entered promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the discount on base, clamped to [0, base].
// Percentages round to the currency minor unit, half up.
func ComputeDiscount(t DiscountType, value, base types.Money) types.Money {
	if !base.IsPositive() || !value.IsPositive() {
		return types.Zero()
	}

	var d types.Money
	switch t {
	case DiscountPercentage:
		d = types.RoundMoney(base.Mul(value).Div(hundred))
	case DiscountFixedAmount:
		d = value
	default:
		return types.Zero()
	}
	return types.ClampMoney(d, types.Zero(), base)
}

func validateDiscount(t DiscountType, value types.Money) error {
	switch t {
	case DiscountPercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return apperror.NewValidation("percentage must be in (0, 100]").WithDetail("field", "discountValue")
		}
	case DiscountFixedAmount:
		if !value.IsPositive() {
			return apperror.NewValidation("discount value must be positive").WithDetail("field", "discountValue")
		}
	default:
		return apperror.NewValidation("unknown discount type").WithDetail("field", "discountType")
	}
	return nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return apperror.NewValidation("validity window must have start before end").WithDetail("field", "endsAt")
	}
	return nil
}

func inWindow(now, start, end time.Time) bool {
	return !now.Before(start) && !now.After(end)
}
