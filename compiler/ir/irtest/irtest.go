// Package irtest builds small programs for tests.
package irtest

import (
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type Names struct {
	Arg, Entry, Sum string
}

var (
	// Sig is func(i32) i32.
	Sig = tp.Func{In: []tp.Type{tp.I32}, Out: tp.I32}

	LeftNames  = Names{Arg: "x", Entry: "entry", Sum: "sum"}
	RightNames = Names{Arg: "a", Entry: "start", Sum: "t"}
)

// AddOne is f(x) = x + 1.
func AddOne(name string, n Names) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, n.Arg)
	b.At(b.NewBlock(n.Entry))

	s := b.Bin(n.Sum, ir.OpAdd, b.Arg(0), p.ConstInt(tp.I32, 1))
	b.Ret(s)

	p.Link()

	return p
}

// AddZero is f(x) = x + 0 with the add kept.
func AddZero(name string, n Names) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, n.Arg)
	b.At(b.NewBlock(n.Entry))

	s := b.Bin(n.Sum, ir.OpAdd, b.Arg(0), p.ConstInt(tp.I32, 0))
	b.Ret(s)

	p.Link()

	return p
}

// Identity is f(x) = x, the simplified form of AddZero.
func Identity(name string, n Names) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, n.Arg)
	b.At(b.NewBlock(n.Entry))

	b.Ret(b.Arg(0))

	p.Link()

	return p
}

// TwoArgs is f(x, y) = x + y.
func TwoArgs(name string) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", tp.Func{In: []tp.Type{tp.I32, tp.I32}, Out: tp.I32}, "x", "y")
	b.At(b.NewBlock("entry"))

	s := b.Bin("sum", ir.OpAdd, b.Arg(0), b.Arg(1))
	b.Ret(s)

	p.Link()

	return p
}

// Chain computes (x+1)*2. With junk set an unused xor is inserted
// between the add and the mul.
func Chain(name string, junk bool) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, "x")
	b.At(b.NewBlock("entry"))

	a := b.Bin("a", ir.OpAdd, b.Arg(0), p.ConstInt(tp.I32, 1))

	if junk {
		b.Bin("junk", ir.OpXor, b.Arg(0), p.ConstInt(tp.I32, 3))
	}

	m := b.Bin("m", ir.OpMul, a, p.ConstInt(tp.I32, 2))
	b.Ret(m)

	p.Link()

	return p
}

// Loop is a module with a global, an external function and a counting
// loop calling it. suffix is appended to every local name.
//
//	@g = global i32 7
//	declare void @sink(i32)
//
//	define i32 @f(i32 %n) {
//	entry: c = icmp sgt n, 0; br c, loop, exit
//	loop:  i = phi [0, entry], [inc, loop]; v = load @g; s = add i, v
//	       call @sink(s); inc = add i, 1; done = icmp eq inc, n; br done, exit, loop
//	exit:  r = phi [0, entry], [inc, loop]; ret r
//	}
func Loop(name, suffix string) *ir.Program {
	p := ir.New(name)

	g := p.AddGlobal("g", tp.I32, p.ConstInt(tp.I32, 7))
	sink := p.AddFunc("sink", tp.Func{In: []tp.Type{tp.I32}, Out: tp.Void{}})

	b := p.Define("f", Sig, "n"+suffix)
	n := b.Arg(0)

	entry := b.NewBlock("entry" + suffix)
	loop := b.NewBlock("loop" + suffix)
	exit := b.NewBlock("exit" + suffix)

	b.At(entry)
	c := b.Cmp("c"+suffix, "sgt", n, p.ConstInt(tp.I32, 0))
	b.CondBr(c, loop, exit)

	b.At(loop)
	i := b.Phi("i"+suffix, tp.I32, ir.Incoming{Value: p.ConstInt(tp.I32, 0), Block: entry}, ir.Incoming{Value: ir.Nil, Block: loop})
	v := b.Load("v"+suffix, tp.I32, g)
	s := b.Bin("s"+suffix, ir.OpAdd, i, v)
	b.Call("", sink, s)
	inc := b.Bin("inc"+suffix, ir.OpAdd, i, p.ConstInt(tp.I32, 1))
	done := b.Cmp("done"+suffix, "eq", inc, n)
	b.CondBr(done, exit, loop)

	p.Inst(i).Args[1] = inc

	b.At(exit)
	r := b.Phi("r"+suffix, tp.I32, ir.Incoming{Value: p.ConstInt(tp.I32, 0), Block: entry}, ir.Incoming{Value: inc, Block: loop})
	b.Ret(r)

	p.Link()

	return p
}

// Switch dispatches on x with one case per value, each target returning
// its case value. The default returns 0.
func Switch(name string, cases ...int64) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, "x")

	entry := b.NewBlock("entry")
	def := b.NewBlock("def")

	var cs []ir.Case

	for _, v := range cases {
		blk := b.NewBlock("")
		cs = append(cs, ir.Case{Value: p.ConstIntS(tp.I32, v), Block: blk})

		b.At(blk).Ret(p.ConstIntS(tp.I32, v))
	}

	b.At(def).Ret(p.ConstInt(tp.I32, 0))

	b.At(entry).Switch(b.Arg(0), def, cs...)

	p.Link()

	return p
}

// Branch tests x against zero and returns 1 or 2. With swapped set the
// targets are exchanged and the predicate inverted.
func Branch(name string, swapped bool) *ir.Program {
	p := ir.New(name)

	b := p.Define("f", Sig, "x")

	entry := b.NewBlock("entry")
	yes := b.NewBlock("yes")
	no := b.NewBlock("no")

	b.At(yes).Ret(p.ConstInt(tp.I32, 1))
	b.At(no).Ret(p.ConstInt(tp.I32, 2))

	b.At(entry)

	if swapped {
		c := b.Cmp("c", "ne", b.Arg(0), p.ConstInt(tp.I32, 0))
		b.CondBr(c, no, yes)
	} else {
		c := b.Cmp("c", "eq", b.Arg(0), p.ConstInt(tp.I32, 0))
		b.CondBr(c, yes, no)
	}

	p.Link()

	return p
}
