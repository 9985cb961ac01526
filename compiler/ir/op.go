package ir

import "strconv"

type (
	Op    int
	Class int
	Pred  string

	opInfo struct {
		name  string
		class Class
	}
)

const (
	OpInvalid Op = iota

	OpRet
	OpBr
	OpSwitch
	OpIndirectBr
	OpInvoke
	OpUnreachable

	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg

	OpAlloca
	OpLoad
	OpStore
	OpGEP

	OpTrunc
	OpZExt
	OpSExt
	OpBitcast
	OpPtrToInt
	OpIntToPtr
	OpFPToSI
	OpSIToFP

	OpICmp
	OpFCmp
	OpPhi
	OpCall
	OpSelect
	OpExtractValue
	OpInsertValue
	OpFreeze

	numOps
)

// Concrete instruction subtypes. Comparators are registered per class.
const (
	ClassOther Class = iota
	ClassReturn
	ClassBranch
	ClassSwitch
	ClassIndirectBr
	ClassInvoke
	ClassUnreachable
	ClassBinary
	ClassUnary
	ClassAlloca
	ClassMemory
	ClassCast
	ClassCmp
	ClassPhi
	ClassCall

	NumClasses
)

var ops = [numOps]opInfo{
	OpInvalid: {"invalid", ClassOther},

	OpRet:         {"ret", ClassReturn},
	OpBr:          {"br", ClassBranch},
	OpSwitch:      {"switch", ClassSwitch},
	OpIndirectBr:  {"indirectbr", ClassIndirectBr},
	OpInvoke:      {"invoke", ClassInvoke},
	OpUnreachable: {"unreachable", ClassUnreachable},

	OpAdd:  {"add", ClassBinary},
	OpSub:  {"sub", ClassBinary},
	OpMul:  {"mul", ClassBinary},
	OpUDiv: {"udiv", ClassBinary},
	OpSDiv: {"sdiv", ClassBinary},
	OpURem: {"urem", ClassBinary},
	OpSRem: {"srem", ClassBinary},
	OpShl:  {"shl", ClassBinary},
	OpLShr: {"lshr", ClassBinary},
	OpAShr: {"ashr", ClassBinary},
	OpAnd:  {"and", ClassBinary},
	OpOr:   {"or", ClassBinary},
	OpXor:  {"xor", ClassBinary},
	OpFAdd: {"fadd", ClassBinary},
	OpFSub: {"fsub", ClassBinary},
	OpFMul: {"fmul", ClassBinary},
	OpFDiv: {"fdiv", ClassBinary},
	OpFNeg: {"fneg", ClassUnary},

	OpAlloca: {"alloca", ClassAlloca},
	OpLoad:   {"load", ClassMemory},
	OpStore:  {"store", ClassMemory},
	OpGEP:    {"getelementptr", ClassMemory},

	OpTrunc:    {"trunc", ClassCast},
	OpZExt:     {"zext", ClassCast},
	OpSExt:     {"sext", ClassCast},
	OpBitcast:  {"bitcast", ClassCast},
	OpPtrToInt: {"ptrtoint", ClassCast},
	OpIntToPtr: {"inttoptr", ClassCast},
	OpFPToSI:   {"fptosi", ClassCast},
	OpSIToFP:   {"sitofp", ClassCast},

	OpICmp:         {"icmp", ClassCmp},
	OpFCmp:         {"fcmp", ClassCmp},
	OpPhi:          {"phi", ClassPhi},
	OpCall:         {"call", ClassCall},
	OpSelect:       {"select", ClassOther},
	OpExtractValue: {"extractvalue", ClassOther},
	OpInsertValue:  {"insertvalue", ClassOther},
	OpFreeze:       {"freeze", ClassUnary},
}

var opByName map[string]Op

func init() {
	opByName = make(map[string]Op, len(ops))

	for op, x := range ops {
		opByName[x.name] = Op(op)
	}

	opByName["gep"] = OpGEP
}

func ParseOp(name string) (Op, bool) {
	op, ok := opByName[name]
	if !ok || op == OpInvalid {
		return OpInvalid, false
	}

	return op, true
}

func (op Op) Class() Class {
	if op < 0 || op >= numOps {
		return ClassOther
	}

	return ops[op].class
}

func (op Op) IsTerminator() bool {
	switch op.Class() {
	case ClassReturn, ClassBranch, ClassSwitch, ClassIndirectBr, ClassInvoke, ClassUnreachable:
		return true
	}

	return false
}

func (op Op) String() string {
	if op < 0 || op >= numOps {
		return "op" + strconv.Itoa(int(op))
	}

	return ops[op].name
}

func (c Class) String() string {
	switch c {
	case ClassReturn:
		return "return"
	case ClassBranch:
		return "branch"
	case ClassSwitch:
		return "switch"
	case ClassIndirectBr:
		return "indirectbr"
	case ClassInvoke:
		return "invoke"
	case ClassUnreachable:
		return "unreachable"
	case ClassBinary:
		return "binary"
	case ClassUnary:
		return "unary"
	case ClassAlloca:
		return "alloca"
	case ClassMemory:
		return "memory"
	case ClassCast:
		return "cast"
	case ClassCmp:
		return "cmp"
	case ClassPhi:
		return "phi"
	case ClassCall:
		return "call"
	default:
		return "other"
	}
}
