package ir

import "github.com/slowlang/irdiff/compiler/tp"

type (
	// Builder appends instructions to the current block of a function.
	Builder struct {
		*Program

		F FuncID
		B BlockID
	}

	Case struct {
		Value ValueID
		Block BlockID
	}

	Incoming struct {
		Value ValueID
		Block BlockID
	}
)

func (p *Program) Define(name string, sig tp.Func, args ...string) *Builder {
	return &Builder{
		Program: p,
		F:       p.AddFunc(name, sig, args...),
		B:       NoBlock,
	}
}

func (b *Builder) Arg(i int) ValueID {
	return b.Funcs[b.F].Args[i]
}

// NewBlock creates a block without switching to it.
func (b *Builder) NewBlock(name string) BlockID {
	return b.AddBlock(b.F, name)
}

func (b *Builder) At(blk BlockID) *Builder {
	b.B = blk
	return b
}

func (b *Builder) Emit(x *Inst) ValueID {
	return b.AddInst(b.B, x)
}

func (b *Builder) Bin(name string, op Op, l, r ValueID) ValueID {
	return b.Emit(&Inst{Op: op, Name: name, Type: b.Values[l].ValueType(), Args: []ValueID{l, r}})
}

func (b *Builder) Cmp(name string, pred Pred, l, r ValueID) ValueID {
	op := OpICmp
	if b.Values[l].ValueType().Category() == tp.CatFloat {
		op = OpFCmp
	}

	return b.Emit(&Inst{Op: op, Pred: pred, Name: name, Type: tp.I1, Args: []ValueID{l, r}})
}

func (b *Builder) Alloca(name string, t tp.Type) ValueID {
	return b.Emit(&Inst{Op: OpAlloca, Name: name, Type: tp.Ptr{}, Alloc: t})
}

func (b *Builder) Load(name string, t tp.Type, ptr ValueID) ValueID {
	return b.Emit(&Inst{Op: OpLoad, Name: name, Type: t, Args: []ValueID{ptr}})
}

func (b *Builder) Store(v, ptr ValueID) ValueID {
	return b.Emit(&Inst{Op: OpStore, Args: []ValueID{v, ptr}})
}

func (b *Builder) Call(name string, callee FuncID, args ...ValueID) ValueID {
	f := b.Funcs[callee]

	return b.Emit(&Inst{Op: OpCall, Name: name, Type: f.Sig.Out, Args: append([]ValueID{f.Sym}, args...)})
}

func (b *Builder) Phi(name string, t tp.Type, in ...Incoming) ValueID {
	x := &Inst{Op: OpPhi, Name: name, Type: t}

	for _, in := range in {
		x.Args = append(x.Args, in.Value)
		x.Labels = append(x.Labels, in.Block)
	}

	return b.Emit(x)
}

func (b *Builder) Ret(v ...ValueID) ValueID {
	return b.Emit(&Inst{Op: OpRet, Args: v})
}

func (b *Builder) Br(to BlockID) ValueID {
	return b.Emit(&Inst{Op: OpBr, Labels: []BlockID{to}})
}

func (b *Builder) CondBr(c ValueID, then, els BlockID) ValueID {
	return b.Emit(&Inst{Op: OpBr, Args: []ValueID{c}, Labels: []BlockID{then, els}})
}

func (b *Builder) Switch(c ValueID, def BlockID, cases ...Case) ValueID {
	x := &Inst{Op: OpSwitch, Args: []ValueID{c}, Labels: []BlockID{def}}

	for _, cs := range cases {
		x.Args = append(x.Args, cs.Value)
		x.Labels = append(x.Labels, cs.Block)
	}

	return b.Emit(x)
}

func (b *Builder) IndirectBr(addr ValueID, dests ...BlockID) ValueID {
	return b.Emit(&Inst{Op: OpIndirectBr, Args: []ValueID{addr}, Labels: dests})
}

func (b *Builder) Unreachable() ValueID {
	return b.Emit(&Inst{Op: OpUnreachable})
}
