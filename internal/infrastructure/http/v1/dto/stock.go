package dto

import (
	"strings"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/id"
	"storeops/internal/domain/registers/stock"
)

// LedgerQuery filters stock ledger entries. From is inclusive, To exclusive.
type LedgerQuery struct {
	ProductID     string     `form:"productId"`
	ReferenceType string     `form:"referenceType"`
	ReferenceID   string     `form:"referenceId"`
	Direction     string     `form:"direction" binding:"omitempty,oneof=IN OUT"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	PageQuery
}

// ToFilter converts query to the ledger filter.
func (q LedgerQuery) ToFilter() (stock.ListFilter, error) {
	productID, err := ParseOptionalID("productId", optional(q.ProductID))
	if err != nil {
		return stock.ListFilter{}, err
	}
	referenceID, err := ParseOptionalID("referenceId", optional(q.ReferenceID))
	if err != nil {
		return stock.ListFilter{}, err
	}
	f := stock.ListFilter{
		ProductID:   productID,
		ReferenceID: referenceID,
		From:        q.From,
		To:          q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.ReferenceType != "" {
		rt := stock.ReferenceType(q.ReferenceType)
		if !rt.Valid() {
			return stock.ListFilter{}, apperror.NewValidation("unknown reference type").WithDetail("field", "referenceType")
		}
		f.ReferenceType = &rt
	}
	if q.Direction != "" {
		d := stock.Direction(q.Direction)
		f.Direction = &d
	}
	return f, nil
}

// StockMovementRequest books a goods receipt or a manual correction.
// Sale and return movements are written by their workflows only.
type StockMovementRequest struct {
	ReferenceType string              `json:"referenceType" binding:"required,oneof=PURCHASE_ORDER ADJUSTMENT"`
	ReferenceID   *string             `json:"referenceId"`
	Notes         string              `json:"notes" binding:"max=500"`
	Movements     []MovementLineInput `json:"movements" binding:"required,min=1,dive"`
}

// MovementLineInput is one product of a movement request.
type MovementLineInput struct {
	ProductID string `json:"productId" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=IN OUT"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// ToCommit converts the request. A missing reference id gets a fresh one.
func (r StockMovementRequest) ToCommit(employeeID id.ID) (stock.Commit, error) {
	referenceID, err := ParseOptionalID("referenceId", r.ReferenceID)
	if err != nil {
		return stock.Commit{}, err
	}
	if referenceID == nil {
		generated := id.New()
		referenceID = &generated
	}

	movements := make([]stock.Movement, 0, len(r.Movements))
	for _, m := range r.Movements {
		productID, err := ParseID("productId", m.ProductID)
		if err != nil {
			return stock.Commit{}, err
		}
		movements = append(movements, stock.Movement{
			ProductID: productID,
			Direction: stock.Direction(m.Direction),
			Quantity:  m.Quantity,
		})
	}

	return stock.Commit{
		Movements:     movements,
		ReferenceType: stock.ReferenceType(r.ReferenceType),
		ReferenceID:   *referenceID,
		ActorID:       &employeeID,
		Notes:         r.Notes,
	}, nil
}

// ParseProductIDs reads a comma separated id list. Empty means all products.
func ParseProductIDs(raw string) ([]id.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]id.ID, 0, len(parts))
	for _, p := range parts {
		parsed, err := ParseID("productIds", p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}

// DriftResponse lists products whose counter disagrees with the ledger.
type DriftResponse struct {
	Items []DriftItem `json:"items"`
}

// DriftItem is one drifted product.
type DriftItem struct {
	stock.Balance
	Expected int64 `json:"expected"`
}

// NewDriftResponse builds the response, never with a null item list.
func NewDriftResponse(balances []stock.Balance) DriftResponse {
	items := make([]DriftItem, len(balances))
	for i, b := range balances {
		items[i] = DriftItem{Balance: b, Expected: b.Expected()}
	}
	return DriftResponse{Items: items}
}
