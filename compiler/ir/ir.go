package ir

import (
	"fmt"

	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	ValueID int
	BlockID int
	FuncID  int

	// Value is anything usable as an operand.
	Value interface {
		ValueType() tp.Type
	}

	Program struct {
		Name string

		Funcs   []*Func
		Blocks  []*Block
		Values  []Value
		Globals []ValueID

		globals map[string]ValueID
		users   [][]ValueID
	}

	Func struct {
		Name string
		Sig  tp.Func
		Sym  ValueID

		Args   []ValueID
		Blocks []BlockID

		syms map[string]symbol
	}

	Block struct {
		Name string
		Func FuncID

		Insts []ValueID

		Preds []BlockID
		Succs []BlockID
	}

	Arg struct {
		Name  string
		Type  tp.Type
		Func  FuncID
		Index int
	}

	Global struct {
		Name string
		Type tp.Type
		Init ValueID
		Func FuncID
	}

	Inst struct {
		Op    Op
		Pred  Pred
		Name  string
		Type  tp.Type
		Alloc tp.Type
		Block BlockID

		Args   []ValueID
		Labels []BlockID
	}

	symbol struct {
		v ValueID
		b BlockID
	}

	UnknownValueError struct {
		Func string
		Name string
	}
)

const (
	Nil     ValueID = -1
	NoBlock BlockID = -1
	NoFunc  FuncID  = -1
)

func New(name string) *Program {
	return &Program{
		Name:    name,
		globals: map[string]ValueID{},
	}
}

func (x *Arg) ValueType() tp.Type    { return x.Type }
func (x *Global) ValueType() tp.Type { return tp.Ptr{} }
func (x *Inst) ValueType() tp.Type   { return x.Type }

func (x *Inst) Class() Class { return x.Op.Class() }

// Cond returns the condition of a conditional branch or Nil.
func (x *Inst) Cond() ValueID {
	if x.Op != OpBr || len(x.Args) == 0 {
		return Nil
	}

	return x.Args[0]
}

func (x *Inst) IsConditional() bool {
	return x.Op == OpBr && len(x.Args) != 0
}

func (x *Inst) Callee() ValueID {
	if x.Class() != ClassCall && x.Class() != ClassInvoke || len(x.Args) == 0 {
		return Nil
	}

	return x.Args[0]
}

func (x *Inst) CallArgs() []ValueID {
	if x.Callee() == Nil {
		return nil
	}

	return x.Args[1:]
}

func (f *Func) Declaration() bool { return len(f.Blocks) == 0 }

func (f *Func) Entry() BlockID {
	if f.Declaration() {
		return NoBlock
	}

	return f.Blocks[0]
}

func (p *Program) Func(id FuncID) *Func    { return p.Funcs[id] }
func (p *Program) Block(id BlockID) *Block { return p.Blocks[id] }
func (p *Program) Value(id ValueID) Value  { return p.Values[id] }

// Inst returns the instruction behind id or nil if id is another kind of value.
func (p *Program) Inst(id ValueID) *Inst {
	if id < 0 || int(id) >= len(p.Values) {
		return nil
	}

	x, _ := p.Values[id].(*Inst)

	return x
}

func (p *Program) IsInst(id ValueID) bool {
	return p.Inst(id) != nil
}

// Users returns the instructions consuming id, one entry per operand use.
// Valid after Link.
func (p *Program) Users(id ValueID) []ValueID {
	if int(id) >= len(p.users) {
		return nil
	}

	return p.users[id]
}

func (p *Program) FuncByName(name string) FuncID {
	id, ok := p.globals[name]
	if !ok {
		return NoFunc
	}

	return p.Values[id].(*Global).Func
}

func (p *Program) GlobalByName(name string) ValueID {
	id, ok := p.globals[name]
	if !ok {
		return Nil
	}

	return id
}

// Terminator returns the last instruction of the block if it ends control flow.
func (p *Program) Terminator(b BlockID) *Inst {
	blk := p.Blocks[b]
	if len(blk.Insts) == 0 {
		return nil
	}

	x := p.Inst(blk.Insts[len(blk.Insts)-1])
	if x == nil || !x.Op.IsTerminator() {
		return nil
	}

	return x
}

// Lookup finds an argument or instruction of f by its name.
func (p *Program) Lookup(f FuncID, name string) (ValueID, error) {
	fn := p.Funcs[f]

	s, ok := fn.syms[name]
	if !ok || s.v == Nil {
		return Nil, UnknownValueError{Func: fn.Name, Name: name}
	}

	return s.v, nil
}

func (p *Program) LookupBlock(f FuncID, name string) (BlockID, error) {
	fn := p.Funcs[f]

	s, ok := fn.syms[name]
	if !ok || s.b == NoBlock {
		return NoBlock, UnknownValueError{Func: fn.Name, Name: name}
	}

	return s.b, nil
}

// Name returns the display name of a function-local value or global.
func (p *Program) NameOf(id ValueID) string {
	switch x := p.Values[id].(type) {
	case *Inst:
		return x.Name
	case *Arg:
		return x.Name
	case *Global:
		return x.Name
	default:
		return ""
	}
}

// FuncOf returns the function owning a local value.
func (p *Program) FuncOf(id ValueID) FuncID {
	switch x := p.Values[id].(type) {
	case *Inst:
		return p.Blocks[x.Block].Func
	case *Arg:
		return x.Func
	default:
		return NoFunc
	}
}

// NumInsts counts instructions across all function bodies.
func (p *Program) NumInsts() (n int) {
	for _, b := range p.Blocks {
		n += len(b.Insts)
	}

	return n
}

func (e UnknownValueError) Error() string {
	return fmt.Sprintf("func %v: unknown value %q", e.Func, e.Name)
}
