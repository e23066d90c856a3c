package promotion

import (
	"context"
	"fmt"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/catalog"
	"storeops/pkg/logger"
)

// Engine validates codes, selects automatic rules and redeems promotions.
type Engine struct {
	repo       Repository
	conditions *conditions
	now        clock.Func
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides the time source used for validity windows.
func WithClock(now clock.Func) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a promotion engine.
func NewEngine(repo Repository, opts ...Option) (*Engine, error) {
	conds, err := newConditions()
	if err != nil {
		return nil, err
	}
	e := &Engine{repo: repo, conditions: conds, now: clock.System}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CodeRequest asks whether a code applies to an order.
type CodeRequest struct {
	Code     string
	Scope    Scope
	Subtotal types.Money
	// ShippingFee is the discount base for SHIPPING scope.
	ShippingFee types.Money
}

// ValidateCode checks a promotion code against an order and returns its discount.
// It does not consume a use; see Redeem.
func (e *Engine) ValidateCode(ctx context.Context, req CodeRequest) (Quote, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return Quote{}, apperror.NewValidation("promotion code is required").WithDetail("field", "code")
	}
	if req.Scope == "" {
		req.Scope = ScopeOrder
	}

	p, err := e.repo.GetByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Quote{}, apperror.NewPromotion(apperror.CodePromotionNotFound, code, "Promotion code not found")
		}
		return Quote{}, fmt.Errorf("get promotion %s: %w", code, err)
	}

	if !p.Active {
		return Quote{}, apperror.NewPromotion(apperror.CodePromotionInactive, code, "Promotion is not active")
	}
	if p.Scope != req.Scope {
		return Quote{}, apperror.NewValidation("promotion does not apply to "+string(req.Scope)).
			WithDetail("promotion_code", code).
			WithDetail("scope", string(p.Scope))
	}
	if !inWindow(e.now(), p.StartsAt, p.EndsAt) {
		return Quote{}, apperror.NewPromotion(apperror.CodePromotionExpired, code, "Promotion is not valid at this time")
	}
	if p.UsageExhausted() {
		return Quote{}, apperror.NewPromotion(apperror.CodePromotionUsageExceeded, code, "Promotion usage limit reached")
	}
	if req.Subtotal.LessThan(p.MinOrderAmount) {
		return Quote{}, apperror.NewPromotion(apperror.CodeMinOrderAmountNotMet, code, "Order amount is below the promotion minimum").
			WithDetail("min_order_amount", p.MinOrderAmount.String())
	}

	pid := p.ID
	return Quote{
		PromotionID: &pid,
		Code:        p.Code,
		Name:        p.Description,
		Scope:       p.Scope,
		Discount:    ComputeDiscount(p.DiscountType, p.DiscountValue, discountBase(p.Scope, req.Subtotal, req.ShippingFee)),
	}, nil
}

// RuleRequest describes an order for automatic rule selection.
type RuleRequest struct {
	Scope        Scope
	Subtotal     types.Money
	ShippingFee  types.Money
	CustomerType catalog.CustomerType
	ItemCount    int
}

// SelectRule returns the winning automatic rule of the scope: highest
// priority first, then largest discount, then the oldest rule.
func (e *Engine) SelectRule(ctx context.Context, req RuleRequest) (Quote, bool, error) {
	if req.Scope == "" {
		req.Scope = ScopeOrder
	}
	if req.CustomerType == "" {
		req.CustomerType = catalog.CustomerRegular
	}

	rules, err := e.repo.ActiveRules(ctx, req.Scope)
	if err != nil {
		return Quote{}, false, fmt.Errorf("load rules: %w", err)
	}

	now := e.now()
	base := discountBase(req.Scope, req.Subtotal, req.ShippingFee)

	var (
		best         *Rule
		bestDiscount types.Money
	)
	for i := range rules {
		r := &rules[i]
		if !r.Active || r.Scope != req.Scope || !inWindow(now, r.StartsAt, r.EndsAt) {
			continue
		}
		if req.Subtotal.LessThan(r.MinOrderAmount) {
			continue
		}
		if r.CustomerType != catalog.CustomerAll && r.CustomerType != req.CustomerType {
			continue
		}
		if !e.conditionHolds(ctx, r, req) {
			continue
		}

		d := ComputeDiscount(r.DiscountType, r.DiscountValue, base)
		if best == nil || beats(r, d, best, bestDiscount) {
			best, bestDiscount = r, d
		}
	}

	if best == nil {
		return Quote{}, false, nil
	}
	rid := best.ID
	return Quote{RuleID: &rid, Name: best.Name, Scope: best.Scope, Discount: bestDiscount}, true, nil
}

func beats(r *Rule, d types.Money, best *Rule, bestDiscount types.Money) bool {
	if r.Priority != best.Priority {
		return r.Priority > best.Priority
	}
	if c := d.Cmp(bestDiscount); c != 0 {
		return c > 0
	}
	// UUIDv7 ids sort by creation time
	return id.Compare(r.ID, best.ID) < 0
}

func (e *Engine) conditionHolds(ctx context.Context, r *Rule, req RuleRequest) bool {
	if r.Condition == "" {
		return true
	}
	ok, err := e.conditions.eval(r.Condition, conditionInput{
		Subtotal:     req.Subtotal.InexactFloat64(),
		CustomerType: string(req.CustomerType),
		ItemCount:    int64(req.ItemCount),
	})
	if err != nil {
		logger.Warn(ctx, "promotion rule condition failed", "rule_id", r.ID, "error", err)
		return false
	}
	return ok
}

// PriceRequest is everything pricing needs to know about an order.
type PriceRequest struct {
	Subtotal     types.Money
	ShippingFee  types.Money
	CustomerType catalog.CustomerType
	ItemCount    int

	// Code replaces the automatic ORDER rule; ShippingCode the SHIPPING rule.
	Code         string
	ShippingCode string
}

// Price computes the order and shipping discounts. An invalid explicit
// code fails the whole operation.
func (e *Engine) Price(ctx context.Context, req PriceRequest) (Pricing, error) {
	pricing := Pricing{Discount: types.Zero(), ShippingDiscount: types.Zero()}

	orderQuote, err := e.quote(ctx, ScopeOrder, req.Code, req)
	if err != nil {
		return Pricing{}, err
	}
	if orderQuote != nil {
		pricing.Order = orderQuote
		pricing.Discount = orderQuote.Discount
	}

	if req.ShippingFee.IsPositive() || req.ShippingCode != "" {
		shipQuote, err := e.quote(ctx, ScopeShipping, req.ShippingCode, req)
		if err != nil {
			return Pricing{}, err
		}
		if shipQuote != nil {
			pricing.Shipping = shipQuote
			pricing.ShippingDiscount = shipQuote.Discount
		}
	}

	return pricing, nil
}

func (e *Engine) quote(ctx context.Context, scope Scope, code string, req PriceRequest) (*Quote, error) {
	if NormalizeCode(code) != "" {
		q, err := e.ValidateCode(ctx, CodeRequest{
			Code:        code,
			Scope:       scope,
			Subtotal:    req.Subtotal,
			ShippingFee: req.ShippingFee,
		})
		if err != nil {
			return nil, err
		}
		return &q, nil
	}

	q, ok, err := e.SelectRule(ctx, RuleRequest{
		Scope:        scope,
		Subtotal:     req.Subtotal,
		ShippingFee:  req.ShippingFee,
		CustomerType: req.CustomerType,
		ItemCount:    req.ItemCount,
	})
	if err != nil || !ok {
		return nil, err
	}
	return &q, nil
}

// Redeem consumes one use of a promotion. Call it inside the transaction
// that creates the order.
func (e *Engine) Redeem(ctx context.Context, promotionID id.ID) error {
	ok, err := e.repo.IncrementUsage(ctx, promotionID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	if !ok {
		return apperror.NewPromotion(apperror.CodePromotionUsageExceeded, promotionID.String(), "Promotion usage limit reached")
	}
	return nil
}

func discountBase(scope Scope, subtotal, shippingFee types.Money) types.Money {
	if scope == ScopeShipping {
		return shippingFee
	}
	return subtotal
}
