package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storeops/internal/core/types"
)

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name  string
		typ   DiscountType
		value int64
		base  int64
		want  int64
	}{
		{"ten percent", DiscountPercentage, 10, 1_000_000, 100_000},
		{"percentage rounds half up", DiscountPercentage, 15, 33_333, 5_000},
		{"fixed amount", DiscountFixedAmount, 50_000, 1_000_000, 50_000},
		{"fixed amount clamped to base", DiscountFixedAmount, 50_000, 30_000, 30_000},
		{"full percentage", DiscountPercentage, 100, 25_000, 25_000},
		{"zero base", DiscountPercentage, 10, 0, 0},
		{"unknown type", DiscountType("BOGO"), 10, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscount(tt.typ, types.NewMoneyFromInt(tt.value), types.NewMoneyFromInt(tt.base))
			assert.True(t, got.Equal(types.NewMoneyFromInt(tt.want)), "got %s want %d", got, tt.want)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SALE10", NormalizeCode("  sale10 "))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestConditions(t *testing.T) {
	c, err := newConditions()
	if !assert.NoError(t, err) {
		return
	}

	ok, err := c.eval(`subtotal >= 500000.0 && customer_type == "VIP"`, conditionInput{Subtotal: 600_000, CustomerType: "VIP"})
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.eval(`item_count > 2`, conditionInput{ItemCount: 2})
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, c.check(`subtotal + 1.0`), "non-bool output")
	assert.Error(t, c.check(`unknown_var > 1`))
}
