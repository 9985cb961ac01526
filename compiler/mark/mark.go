// Package mark instruments unmatched instructions with numbered marker calls.
package mark

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/match"
	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	// Table reports which values have a confirmed partner.
	Table interface {
		IsConfirmed(side match.Side, v ir.ValueID) bool
	}

	// Marker numbers markers across any number of programs.
	Marker struct {
		Prefix string
		N      int
	}
)

const DefaultPrefix = "irdiff.mark."

var markerSig = tp.Func{Out: tp.Void{}}

// Mark instruments both programs, left first, with one counter.
// It returns the inserted marker names per side in insertion order.
func Mark(ctx context.Context, l, r *ir.Program, t Table, prefix string) (lm, rm []string, err error) {
	m := Marker{Prefix: prefix}

	lm, err = m.Mark(ctx, l, match.Left, t)
	if err != nil {
		return nil, nil, errors.Wrap(err, "left")
	}

	rm, err = m.Mark(ctx, r, match.Right, t)
	if err != nil {
		return nil, nil, errors.Wrap(err, "right")
	}

	return lm, rm, nil
}

// Mark inserts a call to a fresh void function in front of every
// instruction of p without a confirmed partner. Merge instructions are
// skipped since nothing may precede them in a block.
func (m *Marker) Mark(ctx context.Context, p *ir.Program, side match.Side, t Table) (names []string, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "mark", "program", p.Name, "side", side)
	defer tr.Finish("err", &err)

	if m.Prefix == "" {
		m.Prefix = DefaultPrefix
	}

	var todo []ir.ValueID

	for _, f := range p.Funcs {
		for _, b := range f.Blocks {
			for _, id := range p.Blocks[b].Insts {
				if p.Inst(id).Op == ir.OpPhi || t.IsConfirmed(side, id) {
					continue
				}

				todo = append(todo, id)
			}
		}
	}

	for _, id := range todo {
		name := m.Prefix + strconv.Itoa(m.N)

		callee, err := m.declare(p, name)
		if err != nil {
			return nil, err
		}

		p.InsertBefore(id, &ir.Inst{
			Op:   ir.OpCall,
			Args: []ir.ValueID{p.Funcs[callee].Sym},
		})

		tr.V("mark").Printw("marker inserted", "marker", name, "before", id, "op", p.Inst(id).Op, "name", p.NameOf(id))

		names = append(names, name)
		m.N++
	}

	p.Link()

	tr.Printw("program marked", "markers", len(names))

	return names, nil
}

func (m *Marker) declare(p *ir.Program, name string) (ir.FuncID, error) {
	if p.GlobalByName(name) != ir.Nil && p.FuncByName(name) == ir.NoFunc {
		return ir.NoFunc, errors.New("marker %v: name is taken by a global", name)
	}

	f := p.DeclareFunc(name, markerSig)

	fn := p.Funcs[f]

	if !fn.Declaration() || len(fn.Sig.In) != 0 || !tp.IsVoid(fn.Sig.Out) {
		return ir.NoFunc, errors.New("marker %v: name is taken by another function", name)
	}

	return f, nil
}
