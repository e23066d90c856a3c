// Package stock is the append-only stock ledger and the only writer of
// product stock counters.
package stock

import (
	"time"

	"storeops/internal/core/id"
)

// Direction of a movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ReferenceType names the kind of document that caused a movement.
type ReferenceType string

const (
	RefPurchaseOrder ReferenceType = "PURCHASE_ORDER"
	RefSaleOrder     ReferenceType = "SALE_ORDER"
	RefAdjustment    ReferenceType = "ADJUSTMENT"
	RefReturn        ReferenceType = "RETURN"
)

// Valid reports whether t is a known reference type.
func (t ReferenceType) Valid() bool {
	switch t {
	case RefPurchaseOrder, RefSaleOrder, RefAdjustment, RefReturn:
		return true
	}
	return false
}

// Entry is one ledger row. Entries are never updated or deleted.
type Entry struct {
	ID            id.ID         `db:"id" json:"id"`
	ProductID     id.ID         `db:"product_id" json:"productId"`
	Direction     Direction     `db:"direction" json:"direction"`
	Quantity      int64         `db:"quantity" json:"quantity"`
	ReferenceType ReferenceType `db:"reference_type" json:"referenceType"`
	ReferenceID   id.ID         `db:"reference_id" json:"referenceId"`
	ActorID       *id.ID        `db:"actor_id" json:"actorId,omitempty"`
	Notes         string        `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

// Signed returns the quantity with the sign of its direction.
func (e Entry) Signed() int64 {
	if e.Direction == DirectionOut {
		return -e.Quantity
	}
	return e.Quantity
}

// Movement is a requested change of one product's stock.
type Movement struct {
	ProductID id.ID
	Direction Direction
	Quantity  int64
}

// Commit is a set of movements applied atomically for one reference.
type Commit struct {
	Movements     []Movement
	ReferenceType ReferenceType
	ReferenceID   id.ID
	ActorID       *id.ID
	Notes         string

	// RequireSellable rejects OUT movements of products that are not on sale.
	RequireSellable bool

	// AllowShortfall lets OUT movements exceed the counter. Used when the
	// goods are already paid for; the shortfall is logged.
	AllowShortfall bool
}

// ListFilter selects ledger entries. From is inclusive, To exclusive.
type ListFilter struct {
	ProductID     *id.ID
	ReferenceType *ReferenceType
	ReferenceID   *id.ID
	Direction     *Direction
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Normalize applies paging defaults and bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Items      []Entry `json:"items"`
	TotalCount int     `json:"totalCount"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

// Balance compares a product counter with its ledger.
type Balance struct {
	ProductID    id.ID `db:"product_id" json:"productId"`
	Counter      int64 `db:"stock_quantity" json:"counter"`
	OpeningStock int64 `db:"opening_stock" json:"openingStock"`
	TotalIn      int64 `db:"total_in" json:"totalIn"`
	TotalOut     int64 `db:"total_out" json:"totalOut"`
}

// Expected is the counter value implied by the ledger.
func (b Balance) Expected() int64 {
	return b.OpeningStock + b.TotalIn - b.TotalOut
}

// Drifted reports whether counter and ledger disagree.
func (b Balance) Drifted() bool {
	return b.Counter != b.Expected()
}
