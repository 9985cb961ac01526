package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type constFn func(p *ir.Program) ir.ValueID

func TestIdenticalConst(t *testing.T) {
	i32 := func(v uint64) constFn {
		return func(p *ir.Program) ir.ValueID { return p.ConstInt(tp.I32, v) }
	}

	arr := func(vs ...uint64) constFn {
		return func(p *ir.Program) ir.ValueID {
			var el []ir.ValueID

			for _, v := range vs {
				el = append(el, p.ConstInt(tp.I32, v))
			}

			return p.ConstArray(tp.Array{X: tp.I32, Len: len(vs)}, el...)
		}
	}

	st := func(packed bool, a, b uint64) constFn {
		return func(p *ir.Program) ir.ValueID {
			return p.ConstStruct(tp.Struct{Fields: []tp.Type{tp.I32, tp.I8}, Packed: packed}, p.ConstInt(tp.I32, a), p.ConstInt(tp.I8, b))
		}
	}

	cmp := func(op ir.Op, pred ir.Pred) constFn {
		return func(p *ir.Program) ir.ValueID {
			return p.ConstExpr(op, pred, tp.I1, p.ConstInt(tp.I32, 1), p.ConstInt(tp.I32, 2))
		}
	}

	blockaddr := func(p *ir.Program) ir.ValueID {
		f := p.AddFunc("h", tp.Func{Out: tp.Void{}})
		b := p.AddBlock(f, "entry")

		return p.BlockAddress(f, b)
	}

	for _, tc := range []struct {
		name string
		l, r constFn
		eq   bool
	}{
		{name: "int", l: i32(7), r: i32(7), eq: true},
		{name: "int_value", l: i32(7), r: i32(8)},
		{name: "int_width", l: i32(7), r: func(p *ir.Program) ir.ValueID { return p.ConstInt(tp.I64, 7) }},
		{name: "int_negative", l: func(p *ir.Program) ir.ValueID { return p.ConstIntS(tp.I8, -1) }, r: func(p *ir.Program) ir.ValueID { return p.ConstInt(tp.I8, 255) }, eq: true},
		{name: "float", l: func(p *ir.Program) ir.ValueID { return p.ConstFloat(tp.F64, 1.5) }, r: func(p *ir.Program) ir.ValueID { return p.ConstFloat(tp.F64, 1.5) }, eq: true},
		{name: "float_value", l: func(p *ir.Program) ir.ValueID { return p.ConstFloat(tp.F64, 1.5) }, r: func(p *ir.Program) ir.ValueID { return p.ConstFloat(tp.F64, 2.5) }},
		{name: "undef", l: func(p *ir.Program) ir.ValueID { return p.ConstUndef(tp.I32) }, r: func(p *ir.Program) ir.ValueID { return p.ConstUndef(tp.I32) }, eq: true},
		{name: "null_undef", l: func(p *ir.Program) ir.ValueID { return p.ConstNull(tp.Ptr{}) }, r: func(p *ir.Program) ir.ValueID { return p.ConstUndef(tp.Ptr{}) }},
		{name: "zero", l: func(p *ir.Program) ir.ValueID { return p.ConstZero(tp.Array{X: tp.I8, Len: 4}) }, r: func(p *ir.Program) ir.ValueID { return p.ConstZero(tp.Array{X: tp.I8, Len: 4}) }, eq: true},
		{name: "int_sentinel", l: i32(0), r: func(p *ir.Program) ir.ValueID { return p.ConstZero(tp.I32) }},
		{name: "array", l: arr(1, 2), r: arr(1, 2), eq: true},
		{name: "array_elem", l: arr(1, 2), r: arr(1, 3)},
		{name: "array_len", l: arr(1, 2), r: arr(1, 2, 3)},
		{name: "struct", l: st(false, 1, 2), r: st(false, 1, 2), eq: true},
		{name: "struct_packed", l: st(false, 1, 2), r: st(true, 1, 2)},
		{name: "struct_field", l: st(false, 1, 2), r: st(false, 1, 3)},
		{name: "expr", l: cmp(ir.OpICmp, "eq"), r: cmp(ir.OpICmp, "eq"), eq: true},
		{name: "expr_pred", l: cmp(ir.OpICmp, "eq"), r: cmp(ir.OpICmp, "ne")},
		{name: "expr_op", l: cmp(ir.OpAdd, ""), r: cmp(ir.OpSub, "")},
		{name: "blockaddr_unconfirmed", l: blockaddr, r: blockaddr},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			pa, pb := ir.New("a"), ir.New("b")

			a, b := tc.l(pa), tc.r(pb)

			ab := New(pa, pb, Options{}).IdenticalConst(a, b)
			ba := New(pb, pa, Options{}).IdenticalConst(b, a)

			assert.Equal(t, tc.eq, ab)
			assert.Equal(t, ab, ba, "not symmetric")
		})
	}
}

func TestIdenticalConstSameObject(t *testing.T) {
	p := ir.New("p")
	x := p.ConstArray(tp.Array{X: tp.I32, Len: 1}, p.ConstInt(tp.I32, 1))

	e := New(p, p, Options{})

	assert.True(t, e.IdenticalConst(x, x))
	assert.True(t, e.ProvenEquivalent(x, x))
}

func TestConstLeavesConsultStore(t *testing.T) {
	build := func(name string) (*ir.Program, ir.ValueID, ir.ValueID) {
		p := ir.New(name)

		g := p.AddGlobal("g", tp.I32, ir.Nil)
		x := p.ConstExpr(ir.OpPtrToInt, "", tp.I64, g)

		return p, g, x
	}

	l, lg, lx := build("left")
	r, rg, rx := build("right")

	e := New(l, r, Options{})

	assert.False(t, e.ProvenEquivalent(lx, rx))

	require.True(t, e.Confirm(lg, rg))

	assert.True(t, e.ProvenEquivalent(lx, rx))
	assert.False(t, e.ProvenEquivalent(lx, ir.Nil))
}

func TestBlockAddrConfirmed(t *testing.T) {
	build := func(name string) (*ir.Program, ir.BlockID, ir.ValueID) {
		p := ir.New(name)

		f := p.AddFunc("h", tp.Func{Out: tp.Void{}})
		b := p.AddBlock(f, "entry")

		return p, b, p.BlockAddress(f, b)
	}

	l, lb, lx := build("left")
	r, rb, rx := build("right")

	e := New(l, r, Options{})

	assert.False(t, e.IdenticalConst(lx, rx))

	require.True(t, e.ConfirmBlocks(lb, rb))

	assert.True(t, e.IdenticalConst(lx, rx))
}
