package match

import (
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

// ProvenEquivalent reports whether l and r are matched or are structurally
// identical constants. False means "not proven", not "different".
func (e *Engine) ProvenEquivalent(l, r ir.ValueID) bool {
	if l == ir.Nil || r == ir.Nil {
		return false
	}

	if e.Matched(l, r) {
		return true
	}

	if !e.L.IsConst(l) || !e.R.IsConst(r) {
		return false
	}

	return e.IdenticalConst(l, r)
}

// IdenticalConst compares constants by shape. Constant elements recurse
// purely; non-constant leaves (global symbols) and block addresses
// consult the match tables.
func (e *Engine) IdenticalConst(l, r ir.ValueID) bool {
	if e.L == e.R && l == r {
		return true
	}

	lc, rc := e.L.Const(l), e.R.Const(r)
	if lc == nil || rc == nil {
		return false
	}

	if lc.Kind() != rc.Kind() {
		return false
	}

	switch lc := lc.(type) {
	case *ir.Int:
		rc := rc.(*ir.Int)

		return tp.Equal(lc.Type, rc.Type) && lc.V.Eq(&rc.V)
	case *ir.Float:
		rc := rc.(*ir.Float)

		return tp.Equal(lc.Type, rc.Type) && lc.Bits == rc.Bits
	case *ir.Null, *ir.Undef, *ir.Zero:
		return true
	case *ir.Expr:
		rc := rc.(*ir.Expr)

		if lc.Op != rc.Op {
			return false
		}

		if lc.Op.Class() == ir.ClassCmp && lc.Pred != rc.Pred {
			return false
		}

		return e.sameElems(lc.Args, rc.Args)
	case *ir.Array:
		return e.sameElems(lc.Elems, rc.(*ir.Array).Elems)
	case *ir.Vector:
		return e.sameElems(lc.Elems, rc.(*ir.Vector).Elems)
	case *ir.Struct:
		rc := rc.(*ir.Struct)

		if lc.Type.Packed != rc.Type.Packed {
			return false
		}

		return e.sameElems(lc.Fields, rc.Fields)
	case *ir.BlockAddr:
		return e.BlocksMatched(lc.Block, rc.(*ir.BlockAddr).Block)
	}

	return false
}

func (e *Engine) sameElems(l, r []ir.ValueID) bool {
	if len(l) != len(r) {
		return false
	}

	for i := range l {
		if !e.sameElem(l[i], r[i]) {
			return false
		}
	}

	return true
}

func (e *Engine) sameElem(l, r ir.ValueID) bool {
	lc, rc := e.L.IsConst(l), e.R.IsConst(r)

	switch {
	case lc && rc:
		return e.IdenticalConst(l, r)
	case lc || rc:
		return false
	default:
		return e.Matched(l, r)
	}
}
