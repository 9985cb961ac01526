package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slowlang/irdiff/compiler/ir"
)

func TestStorePropose(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Propose(1, 10))
	assert.False(t, s.Propose(1, 11), "left already tentative")
	assert.False(t, s.Propose(2, 10), "right already tentative")

	assert.True(t, s.Matched(1, 10))
	assert.False(t, s.Matched(1, 11))
	assert.True(t, s.IsMatched(Right, 10))
	assert.False(t, s.IsConfirmed(Left, 1))

	p, ok := s.Partner(Right, 10)
	assert.True(t, ok)
	assert.Equal(t, ir.ValueID(1), p)

	assert.Equal(t, 1, s.Tentative())

	s.ClearTentative()

	assert.Equal(t, 0, s.Tentative())
	assert.False(t, s.IsMatched(Left, 1))
	assert.False(t, s.IsMatched(Right, 10))
}

func TestStoreProposeConfirmed(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Confirm(1, 10))

	assert.False(t, s.Propose(1, 11))
	assert.False(t, s.Propose(2, 10))
	assert.Equal(t, 0, s.Tentative())
}

func TestStoreConfirmConflict(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Confirm(1, 10))
	assert.True(t, s.Confirm(1, 10), "idempotent")
	assert.False(t, s.Confirm(1, 11))
	assert.False(t, s.Confirm(2, 10))

	p, _ := s.Partner(Left, 1)
	assert.Equal(t, ir.ValueID(10), p)

	p, _ = s.Partner(Right, 10)
	assert.Equal(t, ir.ValueID(1), p)

	assert.Equal(t, 1, s.Confirmed())
}

func TestStoreCommit(t *testing.T) {
	s := NewStore()

	s.Propose(3, 30)
	s.Propose(1, 10)
	s.Propose(2, 20)

	assert.Equal(t, 3, s.Commit())
	assert.Equal(t, 0, s.Tentative())
	assert.Equal(t, 3, s.Confirmed())

	var got []Pair

	s.RangeValues(func(l, r ir.ValueID) bool {
		got = append(got, Pair{L: l, R: r})
		return true
	})

	assert.Equal(t, []Pair{{1, 10}, {2, 20}, {3, 30}}, got)

	got = got[:0]

	s.RangeValues(func(l, r ir.ValueID) bool {
		got = append(got, Pair{L: l, R: r})
		return false
	})

	assert.Len(t, got, 1)
}

func TestStoreBlocks(t *testing.T) {
	s := NewStore()

	assert.True(t, s.ConfirmBlocks(0, 5))
	assert.True(t, s.ConfirmBlocks(0, 5))
	assert.False(t, s.ConfirmBlocks(0, 6))
	assert.False(t, s.ConfirmBlocks(1, 5))

	assert.True(t, s.BlocksMatched(0, 5))
	assert.True(t, s.BlockConfirmed(Right, 5))
	assert.False(t, s.BlockConfirmed(Left, 5))

	b, ok := s.BlockPartner(Right, 5)
	assert.True(t, ok)
	assert.Equal(t, ir.BlockID(0), b)

	assert.Equal(t, 1, s.ConfirmedBlocks())
}

func TestSide(t *testing.T) {
	assert.Equal(t, Right, Left.Other())
	assert.Equal(t, Left, Right.Other())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
}
