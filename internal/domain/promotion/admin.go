package promotion

import (
	"context"
	"fmt"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
)

// CreatePromotion validates and stores a coded promotion.
func (e *Engine) CreatePromotion(ctx context.Context, p *Promotion) error {
	p.Code = NormalizeCode(p.Code)
	if p.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if p.Scope == "" {
		p.Scope = ScopeOrder
	}
	if !p.Scope.Valid() {
		return apperror.NewValidation("unknown scope").WithDetail("field", "scope")
	}
	if err := validateDiscount(p.DiscountType, p.DiscountValue); err != nil {
		return err
	}
	if p.MinOrderAmount.IsNegative() {
		return apperror.NewValidation("min order amount must not be negative").WithDetail("field", "minOrderAmount")
	}
	if err := validateWindow(p.StartsAt, p.EndsAt); err != nil {
		return err
	}
	if p.UsageLimit != nil && *p.UsageLimit <= 0 {
		return apperror.NewValidation("usage limit must be positive").WithDetail("field", "usageLimit")
	}

	p.ID = id.New()
	p.UsageCount = 0
	p.CreatedAt = e.now()
	if err := e.repo.CreatePromotion(ctx, p); err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// CreateRule validates and stores an automatic rule. The condition, when
// present, must compile to a boolean CEL expression.
func (e *Engine) CreateRule(ctx context.Context, r *Rule) error {
	if r.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if r.Scope == "" {
		r.Scope = ScopeOrder
	}
	if !r.Scope.Valid() {
		return apperror.NewValidation("unknown scope").WithDetail("field", "scope")
	}
	if r.CustomerType == "" {
		r.CustomerType = catalog.CustomerAll
	}
	switch r.CustomerType {
	case catalog.CustomerAll, catalog.CustomerRegular, catalog.CustomerVIP, catalog.CustomerWholesale:
	default:
		return apperror.NewValidation("unknown customer type").WithDetail("field", "customerType")
	}
	if err := validateDiscount(r.DiscountType, r.DiscountValue); err != nil {
		return err
	}
	if err := validateWindow(r.StartsAt, r.EndsAt); err != nil {
		return err
	}
	if r.Condition != "" {
		if err := e.conditions.check(r.Condition); err != nil {
			return apperror.NewValidation("invalid condition: " + err.Error()).WithDetail("field", "condition")
		}
	}

	r.ID = id.New()
	r.CreatedAt = e.now()
	if err := e.repo.CreateRule(ctx, r); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// ListPromotions returns coded promotions.
func (e *Engine) ListPromotions(ctx context.Context, filter ListFilter) ([]Promotion, error) {
	return e.repo.ListPromotions(ctx, filter)
}

// ListRules returns automatic rules.
func (e *Engine) ListRules(ctx context.Context, filter ListFilter) ([]Rule, error) {
	return e.repo.ListRules(ctx, filter)
}

// SetPromotionActive enables or disables a coded promotion.
func (e *Engine) SetPromotionActive(ctx context.Context, promotionID id.ID, active bool) error {
	return e.repo.SetPromotionActive(ctx, promotionID, active)
}

// SetRuleActive enables or disables an automatic rule.
func (e *Engine) SetRuleActive(ctx context.Context, ruleID id.ID, active bool) error {
	return e.repo.SetRuleActive(ctx, ruleID, active)
}
