package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/ir/irtest"
)

func TestCandsOrder(t *testing.T) {
	c := makeCands()

	assert.True(t, c.push(Pair{L: 3, R: 1}))
	assert.True(t, c.push(Pair{L: 1, R: 7}))
	assert.True(t, c.push(Pair{L: 1, R: 2}))
	assert.False(t, c.push(Pair{L: 1, R: 7}))

	var got []Pair

	for c.Len() != 0 {
		got = append(got, c.Pop())
	}

	assert.Equal(t, []Pair{{L: 1, R: 2}, {L: 1, R: 7}, {L: 3, R: 1}}, got)
}

func TestDrain(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", ".r")

	lf, rf := l.FuncByName("f"), r.FuncByName("f")

	lookup := func(p *ir.Program, f ir.FuncID, name string) ir.ValueID {
		id, err := p.Lookup(f, name)
		require.NoError(t, err, name)

		return id
	}

	e := New(l, r, Options{})

	require.True(t, e.Confirm(l.Funcs[lf].Args[0], r.Funcs[rf].Args[0]))

	lc, rc := lookup(l, lf, "c"), lookup(r, rf, "c.r")
	ls, rs := lookup(l, lf, "s"), lookup(r, rf, "s.r")

	require.True(t, e.cands.push(Pair{L: ls, R: rs}))
	require.True(t, e.cands.push(Pair{L: lc, R: rc}))

	lentry, rentry := l.Funcs[lf].Entry(), r.Funcs[rf].Entry()

	// the compare resolves and expands to the branch, which resolves in the same pass
	n := e.drain(lentry, rentry)
	assert.Equal(t, 2, n)

	assert.True(t, e.Matched(lc, rc))

	lbrID := l.Blocks[lentry].Insts[len(l.Blocks[lentry].Insts)-1]
	rbrID := r.Blocks[rentry].Insts[len(r.Blocks[rentry].Insts)-1]
	assert.True(t, e.Matched(lbrID, rbrID))

	// the pair in another block stays queued and untouched
	assert.False(t, e.IsMatched(Left, ls))
	assert.Contains(t, e.cands.pending, Pair{L: ls, R: rs})

	// resolved pairs are dropped on the next pass, the outside pair survives
	n = e.drain(lentry, rentry)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, e.cands.Len())
	assert.Equal(t, Pair{L: ls, R: rs}, e.cands.Pop())
}
