package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/id"
	"storeops/internal/domain/promotion"
)

func TestIncrementUsageQuery_RespectsLimit(t *testing.T) {
	r := NewPromotionRepo(nil)

	sql, args, err := r.incrementUsageQuery(id.New()).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"UPDATE promotions SET usage_count = usage_count + 1 WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)",
		sql)
	assert.Len(t, args, 1)
}

func TestApplyPromotionFilter(t *testing.T) {
	r := NewPromotionRepo(nil)
	scope := promotion.ScopeShipping

	sql, args, err := applyPromotionFilter(
		r.builder.Select("id").From(rulesTable),
		promotion.ListFilter{Scope: &scope, ActiveOnly: true},
	).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM promotion_rules WHERE scope = $1 AND is_active = $2", sql)
	assert.Equal(t, []any{scope, true}, args)
}

func TestColumnsFollowModel(t *testing.T) {
	assert.Contains(t, promotionColumns, "usage_limit")
	assert.Contains(t, ruleColumns, "condition")
	assert.Contains(t, productColumns, "opening_stock")
	assert.NotContains(t, addressColumns, "")
}
