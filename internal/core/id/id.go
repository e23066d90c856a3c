// Package id holds the identifier type of every stored aggregate.
package id

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// ID is a UUIDv7. Ids created later sort after earlier ones, so ledger and
// outbox rows keep insertion order on the primary key.
type ID = uuid.UUID

// New returns a UUIDv7, or a random UUID when the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is for fixtures.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

func Nil() ID {
	return uuid.Nil
}

func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Compare orders ids bytewise, the same order Postgres uses for uuid.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// SortedUnique returns a sorted copy of ids without duplicates. Row locks
// are always taken in this order.
func SortedUnique(ids []ID) []ID {
	out := slices.Clone(ids)
	slices.SortFunc(out, Compare)
	return slices.Compact(out)
}
