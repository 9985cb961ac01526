package ir

import (
	"strconv"

	"github.com/slowlang/irdiff/compiler/tp"
)

func (p *Program) alloc(x Value) ValueID {
	id := ValueID(len(p.Values))
	p.Values = append(p.Values, x)

	return id
}

// AddGlobal declares a module-scoped variable. init may be Nil.
func (p *Program) AddGlobal(name string, t tp.Type, init ValueID) ValueID {
	id := p.alloc(&Global{Name: name, Type: t, Init: init, Func: NoFunc})

	p.Globals = append(p.Globals, id)
	p.globals[name] = id

	return id
}

// AddFunc creates a function without a body. Blocks added later turn it into a definition.
func (p *Program) AddFunc(name string, sig tp.Func, args ...string) FuncID {
	fid := FuncID(len(p.Funcs))

	f := &Func{
		Name: name,
		Sig:  sig,
		syms: map[string]symbol{},
	}

	p.Funcs = append(p.Funcs, f)

	f.Sym = p.alloc(&Global{Name: name, Type: sig, Init: Nil, Func: fid})
	p.Globals = append(p.Globals, f.Sym)
	p.globals[name] = f.Sym

	for i, t := range sig.In {
		a := p.alloc(&Arg{Type: t, Func: fid, Index: i})
		f.Args = append(f.Args, a)

		if i < len(args) {
			p.SetName(a, args[i])
		}
	}

	return fid
}

// DeclareFunc returns the existing function with the name or declares a new one.
func (p *Program) DeclareFunc(name string, sig tp.Func) FuncID {
	if f := p.FuncByName(name); f != NoFunc {
		return f
	}

	return p.AddFunc(name, sig)
}

func (p *Program) AddBlock(f FuncID, name string) BlockID {
	id := BlockID(len(p.Blocks))

	p.Blocks = append(p.Blocks, &Block{Func: f})
	p.Funcs[f].Blocks = append(p.Funcs[f].Blocks, id)

	if name != "" {
		p.SetBlockName(id, name)
	}

	return id
}

// AddInst appends x to the block. The name in x is registered in the function symbol table.
func (p *Program) AddInst(b BlockID, x *Inst) ValueID {
	name := x.Name
	x.Name = ""
	x.Block = b

	if x.Type == nil {
		x.Type = tp.Void{}
	}

	id := p.alloc(x)

	blk := p.Blocks[b]
	blk.Insts = append(blk.Insts, id)

	if name != "" {
		p.SetName(id, name)
	}

	return id
}

// InsertBefore places x in front of the instruction at.
func (p *Program) InsertBefore(at ValueID, x *Inst) ValueID {
	b := p.Inst(at).Block
	blk := p.Blocks[b]

	id := p.AddInst(b, x)

	// AddInst appended id; move it in front of at
	insts := blk.Insts[:len(blk.Insts)-1]

	for i, v := range insts {
		if v != at {
			continue
		}

		copy(blk.Insts[i+1:], insts[i:])
		blk.Insts[i] = id

		break
	}

	return id
}

func (p *Program) SetArgs(id ValueID, args ...ValueID) {
	p.Inst(id).Args = args
}

func (p *Program) SetLabels(id ValueID, labels ...BlockID) {
	p.Inst(id).Labels = labels
}

// SetName renames a function-local value. A name already taken in the
// function is disambiguated with a numeric suffix; the name actually
// assigned is returned.
func (p *Program) SetName(id ValueID, name string) string {
	f := p.FuncOf(id)
	if f == NoFunc {
		return p.NameOf(id)
	}

	cur := p.NameOf(id)
	if cur == name {
		return cur
	}

	fn := p.Funcs[f]

	if cur != "" {
		delete(fn.syms, cur)
	}

	if name != "" {
		name = fn.unique(name)
		fn.syms[name] = symbol{v: id, b: NoBlock}
	}

	switch x := p.Values[id].(type) {
	case *Inst:
		x.Name = name
	case *Arg:
		x.Name = name
	}

	return name
}

func (p *Program) SetBlockName(b BlockID, name string) string {
	blk := p.Blocks[b]
	if blk.Name == name {
		return name
	}

	fn := p.Funcs[blk.Func]

	if blk.Name != "" {
		delete(fn.syms, blk.Name)
	}

	if name != "" {
		name = fn.unique(name)
		fn.syms[name] = symbol{v: Nil, b: b}
	}

	blk.Name = name

	return name
}

func (f *Func) unique(name string) string {
	if _, ok := f.syms[name]; !ok {
		return name
	}

	for i := 1; ; i++ {
		n := name + strconv.Itoa(i)

		if _, ok := f.syms[n]; !ok {
			return n
		}
	}
}

// Link derives use-lists and control flow edges. It must be called after
// the program is built and after every structural change.
func (p *Program) Link() {
	p.users = make([][]ValueID, len(p.Values))

	for _, b := range p.Blocks {
		b.Preds = b.Preds[:0]
		b.Succs = b.Succs[:0]
	}

	for _, f := range p.Funcs {
		for _, b := range f.Blocks {
			blk := p.Blocks[b]

			for _, id := range blk.Insts {
				x := p.Inst(id)

				for _, a := range x.Args {
					if a == Nil {
						continue
					}

					p.users[a] = append(p.users[a], id)
				}
			}

			t := p.Terminator(b)
			if t == nil {
				continue
			}

			for _, s := range t.Labels {
				blk.Succs = appendUniq(blk.Succs, s)
			}
		}

		for _, b := range f.Blocks {
			for _, s := range p.Blocks[b].Succs {
				p.Blocks[s].Preds = appendUniq(p.Blocks[s].Preds, b)
			}
		}
	}
}

func appendUniq[T comparable](l []T, x T) []T {
	for _, y := range l {
		if y == x {
			return l
		}
	}

	return append(l, x)
}
