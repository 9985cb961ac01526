package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/ir/irtest"
)

func TestDiffFuncAddOne(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)
	r := irtest.AddOne("right", irtest.RightNames)

	e := New(l, r, Options{})

	err := e.DiffFunc(context.Background(), l.FuncByName("f"), r.FuncByName("f"))
	require.NoError(t, err)

	assert.Equal(t, 3, e.Confirmed())
	assert.Equal(t, 1, e.ConfirmedBlocks())

	s := e.Summarize(l.FuncByName("f"), r.FuncByName("f"))
	assert.True(t, s.Preserved())
	assert.Equal(t, 2, s.Left.Insts)
	assert.Equal(t, 1, s.Blocks)

	lsum, err := l.Lookup(0, "sum")
	require.NoError(t, err)

	rsum, err := r.Lookup(0, "t")
	require.NoError(t, err)

	assert.True(t, e.IsConfirmed(Left, lsum))

	p, ok := e.Partner(Left, lsum)
	assert.True(t, ok)
	assert.Equal(t, rsum, p)
}

func TestDiffFuncSimplifiedAdd(t *testing.T) {
	l := irtest.AddZero("left", irtest.LeftNames)
	r := irtest.Identity("right", irtest.RightNames)

	e := New(l, r, Options{})

	err := e.DiffFunc(context.Background(), 0, 0)
	require.NoError(t, err)

	s := e.Summarize(0, 0)
	assert.False(t, s.Preserved())

	sum, err := l.Lookup(0, "sum")
	require.NoError(t, err)

	assert.Equal(t, []ir.ValueID{sum}, s.Left.Unmatched.Slice())
	assert.Equal(t, 0, s.Right.Unmatched.Size())

	assert.True(t, e.IsConfirmed(Left, l.Funcs[0].Args[0]))
	assert.True(t, e.BlocksMatched(l.Funcs[0].Entry(), r.Funcs[0].Entry()))
}

func TestDiffFuncArity(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)
	r := irtest.TwoArgs("right")

	e := New(l, r, Options{})

	err := e.DiffFunc(context.Background(), 0, 0)

	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)

	assert.Equal(t, "f", pe.Func)
	assert.Equal(t, -1, pe.Arg)
	assert.Equal(t, 1, pe.Left)
	assert.Equal(t, 2, pe.Right)

	assert.Empty(t, e.queue)
	assert.Empty(t, e.visitedL)
	assert.Equal(t, 0, e.ConfirmedBlocks())
	assert.Equal(t, 0, e.Confirmed())
}

func TestDiffSkipsBadPair(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)
	r := irtest.TwoArgs("right")

	e := New(l, r, Options{})

	err := e.Diff(context.Background())

	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)

	if assert.Len(t, e.Skipped, 1) {
		assert.Equal(t, pe, e.Skipped[0])
	}

	assert.Equal(t, 0, e.ConfirmedBlocks())
}

func TestSelfIdentity(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", ".r")

	e := New(l, r, Options{})

	err := e.Diff(context.Background())
	require.NoError(t, err)

	assert.False(t, e.Exhausted)
	assert.Len(t, l.Blocks, e.ConfirmedBlocks())

	s := e.Summarize(l.FuncByName("f"), r.FuncByName("f"))
	assert.True(t, s.Preserved(), "left unmatched %v, right unmatched %v", s.Left.Unmatched.Slice(), s.Right.Unmatched.Slice())
	assert.Equal(t, 3, s.Blocks)

	for _, g := range l.Globals {
		name := l.NameOf(g)

		p, ok := e.Partner(Left, g)
		if assert.True(t, ok, "global %v", name) {
			assert.Equal(t, name, r.NameOf(p))
		}
	}

	for lb, blk := range l.Blocks {
		rb, ok := e.BlockPartner(Left, ir.BlockID(lb))
		if assert.True(t, ok, "block %v", blk.Name) {
			assert.Equal(t, blk.Name+".r", r.Blocks[rb].Name)
		}
	}
}

func TestSymmetry(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", "")

	e := New(l, r, Options{})

	err := e.Diff(context.Background())
	require.NoError(t, err)

	n := 0

	e.RangeValues(func(lv, rv ir.ValueID) bool {
		back, ok := e.Partner(Right, rv)

		assert.True(t, ok)
		assert.Equal(t, lv, back)

		n++

		return true
	})

	assert.Equal(t, e.Confirmed(), n)

	e.RangeBlocks(func(lb, rb ir.BlockID) bool {
		back, ok := e.BlockPartner(Right, rb)

		assert.True(t, ok)
		assert.Equal(t, lb, back)

		return true
	})
}

func TestMonotonicity(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", "")

	e := New(l, r, Options{})

	lf, rf := l.FuncByName("f"), r.FuncByName("f")

	err := e.DiffFunc(context.Background(), lf, rf)
	require.NoError(t, err)

	before := map[ir.ValueID]ir.ValueID{}

	e.RangeValues(func(lv, rv ir.ValueID) bool {
		before[lv] = rv
		return true
	})

	require.NotEmpty(t, before)

	err = e.Diff(context.Background())
	require.NoError(t, err)

	for lv, rv := range before {
		p, ok := e.Partner(Left, lv)

		assert.True(t, ok)
		assert.Equal(t, rv, p, "value %v", l.NameOf(lv))
	}
}

func TestInsertionTolerance(t *testing.T) {
	l := irtest.Chain("left", false)
	r := irtest.Chain("right", true)

	e := New(l, r, Options{})

	err := e.DiffFunc(context.Background(), 0, 0)
	require.NoError(t, err)

	s := e.Summarize(0, 0)

	assert.Equal(t, 0, s.Left.Unmatched.Size())

	junk, err := r.Lookup(0, "junk")
	require.NoError(t, err)

	assert.Equal(t, []ir.ValueID{junk}, s.Right.Unmatched.Slice())

	for _, name := range []string{"a", "m"} {
		lv, err := l.Lookup(0, name)
		require.NoError(t, err)

		rv, err := r.Lookup(0, name)
		require.NoError(t, err)

		assert.True(t, e.Matched(lv, rv), "inst %v", name)
	}
}

func TestBudget(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", "")

	e := New(l, r, Options{Budget: 1})

	err := e.DiffFunc(context.Background(), l.FuncByName("f"), r.FuncByName("f"))
	require.NoError(t, err)

	assert.True(t, e.Exhausted)
	assert.Equal(t, 1, e.ConfirmedBlocks())
	assert.Empty(t, e.queue)
}

func TestRevisitCap(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", "")

	e := New(l, r, Options{})

	for i := 0; i < 5; i++ {
		e.proposeBlocks(1, 1)
	}

	assert.Len(t, e.queue, DefaultRevisits)

	e = New(l, r, Options{Revisits: 1})

	e.proposeBlocks(1, 1)
	e.proposeBlocks(1, 2)
	e.proposeBlocks(2, 1)

	assert.Equal(t, []BlockPair{{L: 1, R: 1}}, e.queue)
}

type recordPreds struct {
	pairs []BlockPair
}

func (p *recordPreds) PairPreds(l, r *ir.Program, lb, rb ir.BlockID, propose func(l, r ir.BlockID)) {
	p.pairs = append(p.pairs, BlockPair{L: lb, R: rb})

	Positional{}.PairPreds(l, r, lb, rb, propose)
}

func TestPredPairingStrategy(t *testing.T) {
	l := irtest.Loop("left", "")
	r := irtest.Loop("right", "")

	rec := &recordPreds{}

	e := New(l, r, Options{Preds: rec})

	err := e.Diff(context.Background())
	require.NoError(t, err)

	assert.Len(t, rec.pairs, 3)
	assert.Len(t, l.Blocks, e.ConfirmedBlocks())
}

func TestDiffRestoresSpan(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)
	r := irtest.AddOne("right", irtest.RightNames)

	e := New(l, r, Options{})
	require.Equal(t, tlog.Root(), e.tr)

	err := e.Diff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tlog.Root(), e.tr)

	err = e.DiffFunc(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, tlog.Root(), e.tr)
}
