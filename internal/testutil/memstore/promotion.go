package memstore

import (
	"context"
	"slices"
	"strings"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/promotion"
)

type promotionRepo struct{ s *Store }

func (r promotionRepo) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	var out *promotion.Promotion
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.promotions {
			if p.Code == code {
				out = &p
				return nil
			}
		}
		return apperror.NewNotFound("promotion", code)
	})
	return out, err
}

func (r promotionRepo) ActiveRules(ctx context.Context, scope promotion.Scope) ([]promotion.Rule, error) {
	var out []promotion.Rule
	err := r.s.do(ctx, func(st *state) error {
		for _, rule := range st.rules {
			if rule.Active && rule.Scope == scope {
				out = append(out, rule)
			}
		}
		return nil
	})
	return out, err
}

func (r promotionRepo) IncrementUsage(ctx context.Context, promotionID id.ID) (bool, error) {
	var ok bool
	err := r.s.do(ctx, func(st *state) error {
		p, found := st.promotions[promotionID]
		if !found || p.UsageExhausted() {
			return nil
		}
		p.UsageCount++
		st.promotions[promotionID] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r promotionRepo) CreatePromotion(ctx context.Context, p *promotion.Promotion) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.promotions {
			if existing.Code == p.Code {
				return apperror.NewDuplicate("promotion", "code", p.Code)
			}
		}
		st.promotions[p.ID] = *p
		return nil
	})
}

func (r promotionRepo) CreateRule(ctx context.Context, rule *promotion.Rule) error {
	return r.s.do(ctx, func(st *state) error {
		st.rules[rule.ID] = *rule
		return nil
	})
}

func (r promotionRepo) ListPromotions(ctx context.Context, filter promotion.ListFilter) ([]promotion.Promotion, error) {
	var out []promotion.Promotion
	kw := strings.ToLower(filter.Keyword)
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.promotions {
			if filter.Scope != nil && p.Scope != *filter.Scope {
				continue
			}
			if filter.ActiveOnly && !p.Active {
				continue
			}
			if kw != "" && !strings.Contains(strings.ToLower(p.Code+" "+p.Description), kw) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b promotion.Promotion) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

func (r promotionRepo) ListRules(ctx context.Context, filter promotion.ListFilter) ([]promotion.Rule, error) {
	var out []promotion.Rule
	kw := strings.ToLower(filter.Keyword)
	err := r.s.do(ctx, func(st *state) error {
		for _, rule := range st.rules {
			if filter.Scope != nil && rule.Scope != *filter.Scope {
				continue
			}
			if filter.ActiveOnly && !rule.Active {
				continue
			}
			if kw != "" && !strings.Contains(strings.ToLower(rule.Name), kw) {
				continue
			}
			out = append(out, rule)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b promotion.Rule) int { return b.Priority - a.Priority })
	return out, err
}

func (r promotionRepo) SetPromotionActive(ctx context.Context, promotionID id.ID, active bool) error {
	return r.s.do(ctx, func(st *state) error {
		p, ok := st.promotions[promotionID]
		if !ok {
			return apperror.NewNotFound("promotion", promotionID)
		}
		p.Active = active
		st.promotions[promotionID] = p
		return nil
	})
}

func (r promotionRepo) SetRuleActive(ctx context.Context, ruleID id.ID, active bool) error {
	return r.s.do(ctx, func(st *state) error {
		rule, ok := st.rules[ruleID]
		if !ok {
			return apperror.NewNotFound("promotion rule", ruleID)
		}
		rule.Active = active
		st.rules[ruleID] = rule
		return nil
	})
}
