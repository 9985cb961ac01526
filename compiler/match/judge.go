package match

import (
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

// judge decides whether two instructions of the same opcode may correspond.
type judge func(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool

// As-user rules look at what an instruction consumes.
var asUser = [ir.NumClasses]judge{
	ir.ClassCmp:         userCmp,
	ir.ClassCall:        userCall,
	ir.ClassInvoke:      userCall,
	ir.ClassPhi:         userPhi,
	ir.ClassBranch:      userBranch,
	ir.ClassIndirectBr:  userIndirectBr,
	ir.ClassSwitch:      userSwitch,
	ir.ClassUnreachable: always,
	ir.ClassAlloca:      sameAlloc,
}

// As-usee rules look at who consumes an instruction.
var asUsee = [ir.NumClasses]judge{
	ir.ClassCmp:         useeCmp,
	ir.ClassPhi:         useePhi,
	ir.ClassIndirectBr:  userIndirectBr,
	ir.ClassSwitch:      userSwitch,
	ir.ClassUnreachable: always,
	ir.ClassAlloca:      sameAlloc,
}

func (e *Engine) judgeAsUser(l, r ir.ValueID) bool {
	if e.Matched(l, r) {
		return true
	}

	li, ri := e.L.Inst(l), e.R.Inst(r)

	if li.Op != ri.Op {
		return false
	}

	if j := asUser[li.Class()]; j != nil {
		return j(e, li, ri, l, r)
	}

	return sameOperands(e, li, ri, l, r)
}

func (e *Engine) judgeAsUsee(l, r ir.ValueID) bool {
	if e.Matched(l, r) {
		return true
	}

	if e.IsMatched(Left, l) || e.IsMatched(Right, r) {
		return false
	}

	li, ri := e.L.Inst(l), e.R.Inst(r)

	if li.Op != ri.Op || li.Class() != ri.Class() {
		return false
	}

	if j := asUsee[li.Class()]; j != nil {
		return j(e, li, ri, l, r)
	}

	return sameUsers(e, li, ri, l, r)
}

// mustDiffer rejects pairs that can never correspond.
func (e *Engine) mustDiffer(l, r ir.ValueID) bool {
	li, ri := e.L.Inst(l), e.R.Inst(r)
	if li == nil || ri == nil {
		return true
	}

	return li.Op != ri.Op || li.Class() != ri.Class()
}

func always(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool { return true }

func sameOperands(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if len(l.Args) != len(r.Args) {
		return false
	}

	for i := range l.Args {
		if !e.ProvenEquivalent(l.Args[i], r.Args[i]) {
			return false
		}
	}

	return true
}

// sameUsers pairs the use-lists of both sides in their own order.
func sameUsers(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	lu, ru := e.L.Users(lid), e.R.Users(rid)

	if len(lu) != len(ru) {
		return false
	}

	for i := range lu {
		if !e.ProvenEquivalent(lu[i], ru[i]) {
			return false
		}
	}

	return true
}

func userCmp(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	return l.Pred == r.Pred && sameOperands(e, l, r, lid, rid)
}

func useeCmp(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	return l.Pred == r.Pred && sameUsers(e, l, r, lid, rid)
}

func userCall(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if !e.ProvenEquivalent(l.Callee(), r.Callee()) {
		return false
	}

	la, ra := l.CallArgs(), r.CallArgs()

	if len(la) != len(ra) {
		return false
	}

	for i := range la {
		if !e.ProvenEquivalent(la[i], ra[i]) {
			return false
		}
	}

	return true
}

func userPhi(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if !tp.Equal(l.Type, r.Type) || len(l.Args) != len(r.Args) {
		return false
	}

	for i := range l.Args {
		e.proposeBlocks(l.Labels[i], r.Labels[i])

		if !e.ProvenEquivalent(l.Args[i], r.Args[i]) {
			return false
		}
	}

	return true
}

// useePhi checks incoming values only where one of them is not an
// instruction; instruction inputs are left to the other propagator.
func useePhi(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if !tp.Equal(l.Type, r.Type) || len(l.Args) != len(r.Args) {
		return false
	}

	for i := range l.Args {
		lv, rv := l.Args[i], r.Args[i]

		if !(e.L.IsInst(lv) && e.R.IsInst(rv)) && !e.ProvenEquivalent(lv, rv) {
			return false
		}

		e.proposeBlocks(l.Labels[i], r.Labels[i])
	}

	return true
}

func userBranch(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	// a conditional branch never corresponds to an unconditional one
	if l.IsConditional() != r.IsConditional() {
		return false
	}

	if !l.IsConditional() {
		e.proposeBlocks(l.Labels[0], r.Labels[0])

		return true
	}

	e.proposeBlocks(l.Labels[0], r.Labels[0])
	e.proposeBlocks(l.Labels[1], r.Labels[1])

	if !e.ProvenEquivalent(l.Cond(), r.Cond()) {
		// the condition may have been inverted
		e.proposeBlocks(l.Labels[1], r.Labels[0])
		e.proposeBlocks(l.Labels[0], r.Labels[1])
	}

	return true
}

func userIndirectBr(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	return len(l.Labels) == len(r.Labels) && e.ProvenEquivalent(l.Args[0], r.Args[0])
}

// userSwitch requires an equivalent selector. Case tables of equal size
// are compared value by value and their targets proposed by position.
// Tables of different size are left unresolved.
func userSwitch(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if !e.ProvenEquivalent(l.Args[0], r.Args[0]) {
		return false
	}

	if len(l.Args) != len(r.Args) {
		return true
	}

	for i := 1; i < len(l.Args); i++ {
		if !e.ProvenEquivalent(l.Args[i], r.Args[i]) {
			return false
		}
	}

	for i := range l.Labels {
		e.proposeBlocks(l.Labels[i], r.Labels[i])
	}

	return true
}

func sameAlloc(e *Engine, l, r *ir.Inst, lid, rid ir.ValueID) bool {
	if l.Alloc == nil || r.Alloc == nil {
		return l.Alloc == nil && r.Alloc == nil
	}

	return l.Alloc.Category() == r.Alloc.Category()
}
