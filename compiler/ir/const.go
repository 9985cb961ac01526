package ir

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	ConstKind int

	// Const is pure data. Two constants are compared by shape, not by handle.
	Const interface {
		Value
		Kind() ConstKind
	}

	Int struct {
		Type tp.Type
		V    uint256.Int
	}

	Float struct {
		Type tp.Type
		Bits uint64
	}

	Null  struct{ Type tp.Type }
	Undef struct{ Type tp.Type }
	Zero  struct{ Type tp.Type }

	Array struct {
		Type  tp.Type
		Elems []ValueID
	}

	Vector struct {
		Type  tp.Type
		Elems []ValueID
	}

	Struct struct {
		Type   tp.Struct
		Fields []ValueID
	}

	Expr struct {
		Op   Op
		Pred Pred
		Type tp.Type
		Args []ValueID
	}

	BlockAddr struct {
		Func  FuncID
		Block BlockID
	}
)

const (
	KindInt ConstKind = iota
	KindFloat
	KindNull
	KindUndef
	KindZero
	KindArray
	KindVector
	KindStruct
	KindExpr
	KindBlockAddr
)

func (*Int) Kind() ConstKind       { return KindInt }
func (*Float) Kind() ConstKind     { return KindFloat }
func (*Null) Kind() ConstKind      { return KindNull }
func (*Undef) Kind() ConstKind     { return KindUndef }
func (*Zero) Kind() ConstKind      { return KindZero }
func (*Array) Kind() ConstKind     { return KindArray }
func (*Vector) Kind() ConstKind    { return KindVector }
func (*Struct) Kind() ConstKind    { return KindStruct }
func (*Expr) Kind() ConstKind      { return KindExpr }
func (*BlockAddr) Kind() ConstKind { return KindBlockAddr }

func (x *Int) ValueType() tp.Type       { return x.Type }
func (x *Float) ValueType() tp.Type     { return x.Type }
func (x *Null) ValueType() tp.Type      { return x.Type }
func (x *Undef) ValueType() tp.Type     { return x.Type }
func (x *Zero) ValueType() tp.Type      { return x.Type }
func (x *Array) ValueType() tp.Type     { return x.Type }
func (x *Vector) ValueType() tp.Type    { return x.Type }
func (x *Struct) ValueType() tp.Type    { return x.Type }
func (x *Expr) ValueType() tp.Type      { return x.Type }
func (x *BlockAddr) ValueType() tp.Type { return tp.Ptr{} }

func (x *Float) Float64() float64 {
	return math.Float64frombits(x.Bits)
}

// Const returns the constant behind id or nil.
func (p *Program) Const(id ValueID) Const {
	if id < 0 || int(id) >= len(p.Values) {
		return nil
	}

	c, _ := p.Values[id].(Const)

	return c
}

func (p *Program) IsConst(id ValueID) bool {
	return p.Const(id) != nil
}

func (p *Program) ConstInt(t tp.Type, v uint64) ValueID {
	x := &Int{Type: t}
	x.V.SetUint64(v)

	return p.alloc(x)
}

// ConstIntS stores v as a two's complement bit pattern of the type width.
func (p *Program) ConstIntS(t tp.Type, v int64) ValueID {
	x := &Int{Type: t}
	x.V.SetUint64(uint64(v))

	if v < 0 {
		x.V.SetAllOne()
		x.V.Lsh(&x.V, 64)
		x.V.Or(&x.V, uint256.NewInt(uint64(v)))
	}

	truncate(&x.V, t)

	return p.alloc(x)
}

func (p *Program) ConstIntBig(t tp.Type, v *uint256.Int) ValueID {
	x := &Int{Type: t}
	x.V.Set(v)

	truncate(&x.V, t)

	return p.alloc(x)
}

func (p *Program) ConstFloat(t tp.Type, v float64) ValueID {
	return p.alloc(&Float{Type: t, Bits: math.Float64bits(v)})
}

func (p *Program) ConstNull(t tp.Type) ValueID  { return p.alloc(&Null{Type: t}) }
func (p *Program) ConstUndef(t tp.Type) ValueID { return p.alloc(&Undef{Type: t}) }
func (p *Program) ConstZero(t tp.Type) ValueID  { return p.alloc(&Zero{Type: t}) }

func (p *Program) ConstArray(t tp.Type, elems ...ValueID) ValueID {
	return p.alloc(&Array{Type: t, Elems: elems})
}

func (p *Program) ConstVector(t tp.Type, elems ...ValueID) ValueID {
	return p.alloc(&Vector{Type: t, Elems: elems})
}

func (p *Program) ConstStruct(t tp.Struct, fields ...ValueID) ValueID {
	return p.alloc(&Struct{Type: t, Fields: fields})
}

func (p *Program) ConstExpr(op Op, pred Pred, t tp.Type, args ...ValueID) ValueID {
	return p.alloc(&Expr{Op: op, Pred: pred, Type: t, Args: args})
}

func (p *Program) BlockAddress(f FuncID, b BlockID) ValueID {
	return p.alloc(&BlockAddr{Func: f, Block: b})
}

func truncate(v *uint256.Int, t tp.Type) {
	it, ok := t.(tp.Int)
	if !ok || it.Bits >= 256 {
		return
	}

	var mask uint256.Int

	mask.SetOne()
	mask.Lsh(&mask, uint(it.Bits))
	mask.SubUint64(&mask, 1)

	v.And(v, &mask)
}
