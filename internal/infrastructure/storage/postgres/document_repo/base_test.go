package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeops/internal/core/entity"
	"storeops/internal/core/id"
	"storeops/internal/core/types"
	"storeops/internal/domain/order"
	"storeops/internal/domain/shipping"
)

func TestUpdateQuery_GuardsVersion(t *testing.T) {
	r := NewShipmentRepo(nil)
	s := &shipping.Shipment{
		ID:               id.New(),
		OrderID:          id.New(),
		Status:           shipping.StatusShipped,
		CarrierOrderCode: "GHN123",
		Version:          4,
		CreatedAt:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	q, err := r.updateQuery(s)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE shipments SET")
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "WHERE id = $")
	assert.Contains(t, sql, "AND version = $")
	assert.NotContains(t, sql, "created_at =")
	assert.Equal(t, 4, args[len(args)-1])
}

func TestUpdateQuery_EmbeddedDocument(t *testing.T) {
	r := NewOrderRepo(nil)
	o := &order.Order{
		BaseDocument: entity.BaseDocument{BaseEntity: entity.BaseEntity{ID: id.New(), Version: 2}},
		Status:       order.StatusConfirmed,
	}

	q, err := r.updateQuery(o)
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "status = $")
	assert.Contains(t, sql, "stock_committed = $")
	assert.NotContains(t, sql, "lines")
}

func TestLinesInsertQuery(t *testing.T) {
	r := NewOrderRepo(nil)
	o := &order.Order{BaseDocument: entity.NewBaseDocument(time.Now())}
	o.Lines = []order.Line{
		{ID: id.New(), ProductID: id.New(), Quantity: 2, UnitPrice: types.NewMoneyFromInt(100000),
			ProductSnapshot: order.ProductSnapshot{Name: "Tea", Code: "TEA"}},
		{ID: id.New(), ProductID: id.New(), Quantity: 1, UnitPrice: types.NewMoneyFromInt(50000),
			ProductSnapshot: order.ProductSnapshot{Name: "Cup", Code: "CUP"}},
	}

	sql, args, err := r.linesInsertQuery(o).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO order_lines")
	assert.Len(t, args, 16)
	assert.Equal(t, o.ID, args[1])
	assert.Equal(t, "Tea", args[5])
}
