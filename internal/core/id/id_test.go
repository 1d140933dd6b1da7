package id_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/core/id"
)

func TestSorted_OrdersAndDeduplicates(t *testing.T) {
	a := id.MustParse("00000000-0000-0000-0000-000000000001")
	b := id.MustParse("00000000-0000-0000-0000-000000000002")
	c := id.MustParse("ffffffff-0000-0000-0000-000000000000")

	got := id.Sorted([]id.ID{c, a, b, a})

	assert.Equal(t, []id.ID{a, b, c}, got)
}

func TestNew_IsVersion7(t *testing.T) {
	v := id.New()
	assert.False(t, id.IsNil(v))
	assert.EqualValues(t, 7, v.Version())
}
