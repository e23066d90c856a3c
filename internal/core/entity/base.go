// Package entity holds the fields shared by persisted aggregates.
package entity

import (
	"time"

	"storeops/internal/core/id"
)

// BaseEntity contains common fields for all aggregates.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// BaseDocument extends BaseEntity with a number and audit timestamps.
// Orders and return requests are documents.
type BaseDocument struct {
	BaseEntity

	// Number is the human-readable number (ORD-2026-00001)
	Number string `db:"number" json:"number"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseDocument creates a new BaseDocument with generated ID and timestamps.
func NewBaseDocument(now time.Time) BaseDocument {
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch updates the UpdatedAt timestamp.
// The version is bumped by the repository when the optimistic check succeeds.
func (b *BaseDocument) Touch(now time.Time) {
	b.UpdatedAt = now
}
