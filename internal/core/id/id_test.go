package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsTimeOrdered(t *testing.T) {
	a := New()
	b := New()

	assert.Equal(t, 7, int(a.Version()))
	assert.LessOrEqual(t, Compare(a, b), 0)
}

func TestSortedUnique(t *testing.T) {
	a := MustParse("00000000-0000-7000-8000-000000000001")
	b := MustParse("00000000-0000-7000-8000-000000000002")
	c := MustParse("00000000-0000-7000-8000-000000000003")

	in := []ID{c, a, b, a, c}
	got := SortedUnique(in)

	assert.Equal(t, []ID{a, b, c}, got)
	assert.Equal(t, []ID{c, a, b, a, c}, in, "input must not be reordered")
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(Nil()))
	assert.False(t, IsNil(New()))
}
