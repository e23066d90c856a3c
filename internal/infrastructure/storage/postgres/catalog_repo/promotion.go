package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/promotion"
	"storeops/internal/infrastructure/storage/postgres"
)

const (
	promotionsTable = "promotions"
	rulesTable      = "promotion_rules"
)

var (
	promotionColumns = postgres.ExtractDBColumns[promotion.Promotion]()
	ruleColumns      = postgres.ExtractDBColumns[promotion.Rule]()
)

// PromotionRepo implements promotion.Repository.
type PromotionRepo struct {
	baseRepo
}

// NewPromotionRepo creates a new promotion repository.
func NewPromotionRepo(txm *postgres.TxManager) *PromotionRepo {
	return &PromotionRepo{baseRepo: newBaseRepo(txm)}
}

func (r *PromotionRepo) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	var p promotion.Promotion
	q := r.builder.Select(promotionColumns...).From(promotionsTable).Where(squirrel.Eq{"code": code})
	if err := r.get(ctx, &p, q, "promotion", code); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepo) ActiveRules(ctx context.Context, scope promotion.Scope) ([]promotion.Rule, error) {
	var rules []promotion.Rule
	q := r.builder.Select(ruleColumns...).From(rulesTable).
		Where(squirrel.Eq{"scope": scope, "is_active": true}).
		OrderBy("priority DESC", "id")
	if err := r.selectAll(ctx, &rules, q); err != nil {
		return nil, err
	}
	return rules, nil
}

// IncrementUsage is a single conditional UPDATE, so concurrent redemptions
// can never push usage_count past usage_limit.
func (r *PromotionRepo) IncrementUsage(ctx context.Context, promotionID id.ID) (bool, error) {
	n, err := r.exec(ctx, r.incrementUsageQuery(promotionID))
	if err != nil {
		return false, fmt.Errorf("increment promotion usage: %w", err)
	}
	return n == 1, nil
}

func (r *PromotionRepo) incrementUsageQuery(promotionID id.ID) squirrel.UpdateBuilder {
	return r.builder.Update(promotionsTable).
		Set("usage_count", squirrel.Expr("usage_count + 1")).
		Where(squirrel.Eq{"id": promotionID}).
		Where(squirrel.Or{
			squirrel.Eq{"usage_limit": nil},
			squirrel.Expr("usage_count < usage_limit"),
		})
}

func (r *PromotionRepo) CreatePromotion(ctx context.Context, p *promotion.Promotion) error {
	_, err := r.exec(ctx, r.builder.Insert(promotionsTable).SetMap(postgres.StructToMap(p)))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("promotion", "code", p.Code)
		}
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

func (r *PromotionRepo) CreateRule(ctx context.Context, rule *promotion.Rule) error {
	if _, err := r.exec(ctx, r.builder.Insert(rulesTable).SetMap(postgres.StructToMap(rule))); err != nil {
		return fmt.Errorf("insert promotion rule: %w", err)
	}
	return nil
}

func (r *PromotionRepo) ListPromotions(ctx context.Context, filter promotion.ListFilter) ([]promotion.Promotion, error) {
	q := r.builder.Select(promotionColumns...).From(promotionsTable)
	if filter.Keyword != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": "%" + filter.Keyword + "%"},
			squirrel.ILike{"description": "%" + filter.Keyword + "%"},
		})
	}
	q = applyPromotionFilter(q, filter).OrderBy("created_at", "id")

	promotions := make([]promotion.Promotion, 0)
	if err := r.selectAll(ctx, &promotions, q); err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *PromotionRepo) ListRules(ctx context.Context, filter promotion.ListFilter) ([]promotion.Rule, error) {
	q := r.builder.Select(ruleColumns...).From(rulesTable)
	if filter.Keyword != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Keyword + "%"})
	}
	q = applyPromotionFilter(q, filter).OrderBy("priority DESC", "id")

	rules := make([]promotion.Rule, 0)
	if err := r.selectAll(ctx, &rules, q); err != nil {
		return nil, err
	}
	return rules, nil
}

func applyPromotionFilter(q squirrel.SelectBuilder, filter promotion.ListFilter) squirrel.SelectBuilder {
	if filter.Scope != nil {
		q = q.Where(squirrel.Eq{"scope": *filter.Scope})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	return q
}

func (r *PromotionRepo) SetPromotionActive(ctx context.Context, promotionID id.ID, active bool) error {
	return r.setActive(ctx, promotionsTable, "promotion", promotionID, active)
}

func (r *PromotionRepo) SetRuleActive(ctx context.Context, ruleID id.ID, active bool) error {
	return r.setActive(ctx, rulesTable, "promotion_rule", ruleID, active)
}

func (r *PromotionRepo) setActive(ctx context.Context, table, entity string, entityID id.ID, active bool) error {
	n, err := r.exec(ctx, r.builder.Update(table).Set("is_active", active).Where(squirrel.Eq{"id": entityID}))
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n == 0 {
		return apperror.NewNotFound(entity, entityID)
	}
	return nil
}

var _ promotion.Repository = (*PromotionRepo)(nil)
