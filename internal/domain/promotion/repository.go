package promotion

import (
	"context"

	"storeops/internal/core/id"
)

// Repository persists promotions and rules.
type Repository interface {
	// GetByCode looks up a promotion by its normalized code.
	GetByCode(ctx context.Context, code string) (*Promotion, error)

	// ActiveRules returns rules of the scope with the active flag set.
	// Validity windows are checked by the engine.
	ActiveRules(ctx context.Context, scope Scope) ([]Rule, error)

	// IncrementUsage bumps usage_count unless the limit is reached.
	// It returns false when no row was updated.
	IncrementUsage(ctx context.Context, promotionID id.ID) (bool, error)

	CreatePromotion(ctx context.Context, p *Promotion) error
	CreateRule(ctx context.Context, r *Rule) error
	ListPromotions(ctx context.Context, filter ListFilter) ([]Promotion, error)
	ListRules(ctx context.Context, filter ListFilter) ([]Rule, error)
	SetPromotionActive(ctx context.Context, promotionID id.ID, active bool) error
	SetRuleActive(ctx context.Context, ruleID id.ID, active bool) error
}

// ListFilter selects promotions or rules for administration screens.
type ListFilter struct {
	Scope      *Scope
	Keyword    string
	ActiveOnly bool
}
