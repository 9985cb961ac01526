package canon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/ir/irtest"
	"github.com/slowlang/irdiff/compiler/match"
	"github.com/slowlang/irdiff/compiler/tp"
)

func diff(t *testing.T, l, r *ir.Program) *match.Engine {
	t.Helper()

	e := match.New(l, r, match.Options{})

	err := e.DiffFunc(context.Background(), 0, 0)
	require.NoError(t, err)

	return e
}

func TestNameMatched(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)
	r := irtest.AddOne("right", irtest.RightNames)

	e := diff(t, l, r)

	n := Name(context.Background(), l, r, e)
	assert.Equal(t, 4, n)

	f := r.Funcs[0]

	assert.Equal(t, "x", r.NameOf(f.Args[0]))
	assert.Equal(t, "entry", r.Blocks[f.Entry()].Name)

	sum, err := r.Lookup(0, "sum")
	require.NoError(t, err)
	assert.Equal(t, ir.OpAdd, r.Inst(sum).Op)

	_, err = r.Lookup(0, "t")
	assert.Error(t, err)

	assert.Equal(t, "sum", l.NameOf(l.Blocks[l.Funcs[0].Entry()].Insts[0]))
}

func TestNameCopiesBack(t *testing.T) {
	l := irtest.AddOne("left", irtest.LeftNames)

	r := ir.New("right")
	b := r.Define("f", irtest.Sig, "a")
	b.At(b.NewBlock("start"))
	rt := b.Bin("t", ir.OpAdd, b.Arg(0), r.ConstInt(tp.I32, 1))
	junk := b.Bin("sum", ir.OpXor, b.Arg(0), r.ConstInt(tp.I32, 3))
	b.Ret(rt)
	r.Link()

	e := diff(t, l, r)

	lsum, err := l.Lookup(0, "sum")
	require.NoError(t, err)
	require.True(t, e.Matched(lsum, rt))

	Name(context.Background(), l, r, e)

	assert.Equal(t, "sum", r.NameOf(junk), "unmatched keeps its name")
	assert.Equal(t, "sum1", r.NameOf(rt))
	assert.Equal(t, "sum1", l.NameOf(lsum))
}

func TestNameCopyBackCollides(t *testing.T) {
	l := ir.New("left")
	b := l.Define("f", irtest.Sig, "x")
	b.At(b.NewBlock("entry"))
	lsum := b.Bin("sum", ir.OpAdd, b.Arg(0), l.ConstInt(tp.I32, 1))
	lother := b.Bin("sum1", ir.OpMul, b.Arg(0), l.ConstInt(tp.I32, 5))
	b.Ret(lsum)
	l.Link()

	r := ir.New("right")
	b = r.Define("f", irtest.Sig, "a")
	b.At(b.NewBlock("start"))
	rt := b.Bin("t", ir.OpAdd, b.Arg(0), r.ConstInt(tp.I32, 1))
	rother := b.Bin("sum", ir.OpXor, b.Arg(0), r.ConstInt(tp.I32, 3))
	b.Ret(rt)
	r.Link()

	e := diff(t, l, r)
	require.True(t, e.Matched(lsum, rt))
	require.False(t, e.IsMatched(match.Left, lother))

	Name(context.Background(), l, r, e)

	assert.Equal(t, "sum1", l.NameOf(lother))
	assert.Equal(t, "sum", r.NameOf(rother))

	assert.Equal(t, "sum11", l.NameOf(lsum))
	assert.Equal(t, l.NameOf(lsum), r.NameOf(rt))
}

func TestNameAll(t *testing.T) {
	p := ir.New("p")

	b := p.Define("f", tp.Func{In: []tp.Type{tp.Ptr{}}, Out: tp.Void{}})
	b.At(b.NewBlock(""))

	x := b.Load("", tp.I32, b.Arg(0))
	y := b.Bin("", ir.OpAdd, x, x)
	st := b.Store(y, b.Arg(0))
	ret := b.Ret()

	p.AddFunc("decl", tp.Func{Out: tp.Void{}})
	p.Link()

	NameAll(p)

	f := p.Funcs[0]

	assert.Equal(t, BlockPlaceholder, p.Blocks[f.Entry()].Name)
	assert.Equal(t, ArgPlaceholder, p.NameOf(f.Args[0]))
	assert.Equal(t, "i", p.NameOf(x))
	assert.Equal(t, "i1", p.NameOf(y))
	assert.Equal(t, "", p.NameOf(st))
	assert.Equal(t, "", p.NameOf(ret))
}
