package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func letters(n int) *Table {
	rows := make([][]Value, n)
	for i := range rows {
		rows[i] = []Value{StringValue(string(rune('a' + i)))}
	}
	return MustTable([]string{"L"}, rows)
}

func TestTableOriginFollowsRows(t *testing.T) {
	base := letters(6)
	assert.Equal(t, 4, base.Origin(4))

	picked := base.Select([]int{1, 3, 5})
	assert.Equal(t, 3, picked.Origin(1))

	again := picked.Select([]int{2, 0})
	assert.Equal(t, "f", again.Value(0, "L").Key())
	assert.Equal(t, 5, again.Origin(0))
	assert.Equal(t, 1, again.Origin(1))

	page := base.Slice(2, 2)
	assert.Equal(t, 2, page.Origin(0))
	assert.Equal(t, 3, page.Origin(1))
	assert.Equal(t, 5, picked.Slice(2, 5).Origin(0))
}

func TestTableRebuildAndDerive(t *testing.T) {
	picked := letters(5).Select([]int{4, 2})

	wide, err := picked.Rebuild([]string{"L", "N"}, [][]Value{
		{StringValue("e"), NumberValue(1)},
		{StringValue("c"), NumberValue(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, wide.Origin(0))
	assert.Equal(t, 2, wide.Origin(1))

	_, err = picked.Rebuild([]string{"L"}, nil)
	assert.Error(t, err)

	one, err := picked.Derive([]string{"L"}, [][]Value{{StringValue("c")}}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 2, one.Origin(0))

	_, err = picked.Derive([]string{"L"}, [][]Value{{StringValue("c")}}, nil)
	assert.Error(t, err)
	empty, err := picked.Derive([]string{"L"}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestTopDoesNotShareRows(t *testing.T) {
	s := &SummaryTable{Rows: []SummaryRow{
		{Key: []Value{StringValue("a")}, Value: 3},
		{Key: []Value{StringValue("b")}, Value: 2},
		{Key: []Value{StringValue("c")}, Value: 1},
	}}
	top := s.Top(2)
	top.Rows[0], top.Rows[1] = top.Rows[1], top.Rows[0]
	assert.Equal(t, "a", s.Rows[0].Label())
	assert.Equal(t, 2, top.Len())
	assert.Equal(t, 3, s.Top(10).Len())
}
