// Package canon relabels matched entities so both programs print alike.
package canon

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	// Table is the finished match table.
	Table interface {
		RangeValues(f func(l, r ir.ValueID) bool)
		RangeBlocks(f func(l, r ir.BlockID) bool)
	}
)

const (
	BlockPlaceholder = "bb"
	InstPlaceholder  = "i"
	ArgPlaceholder   = "arg"
)

// Name gives every matched right entity the name of its left partner.
// When the right symbol table has to disambiguate, the resulting name is
// copied back to the left entity. Unmatched entities keep their names.
// It returns the number of renamed pairs.
func Name(ctx context.Context, l, r *ir.Program, t Table) (n int) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "canon: name", "left", l.Name, "right", r.Name)
	defer tr.Finish()

	NameAll(l)
	NameAll(r)

	// matched right names are released before any is assigned
	t.RangeBlocks(func(_, rb ir.BlockID) bool {
		r.SetBlockName(rb, "")
		return true
	})

	t.RangeValues(func(lv, rv ir.ValueID) bool {
		if local(l, lv) && local(r, rv) {
			r.SetName(rv, "")
		}

		return true
	})

	t.RangeBlocks(func(lb, rb ir.BlockID) bool {
		want := l.Blocks[lb].Name

		got := agree(want,
			func(name string) string { return l.SetBlockName(lb, name) },
			func(name string) string { return r.SetBlockName(rb, name) })

		tr.V("rename").Printw("block", "left", lb, "right", rb, "name", got, "was", want)

		n++

		return true
	})

	t.RangeValues(func(lv, rv ir.ValueID) bool {
		if !local(l, lv) || !local(r, rv) {
			return true
		}

		want := l.NameOf(lv)

		got := agree(want,
			func(name string) string { return l.SetName(lv, name) },
			func(name string) string { return r.SetName(rv, name) })

		tr.V("rename").Printw("value", "left", lv, "right", rv, "name", got, "was", want)

		n++

		return true
	})

	tr.Printw("renamed", "pairs", n)

	return n
}

// agree assigns name on the right and copies any disambiguated result
// back to the left until both sides hold the same name. The left side
// must already hold name.
func agree(name string, setL, setR func(string) string) string {
	for {
		got := setR(name)
		if got == name {
			return got
		}

		name = setL(got)
		if name == got {
			return got
		}
	}
}

// NameAll assigns placeholder names to unnamed blocks, arguments and
// value-producing instructions of every function body.
func NameAll(p *ir.Program) {
	for _, f := range p.Funcs {
		if f.Declaration() {
			continue
		}

		for _, a := range f.Args {
			if p.NameOf(a) == "" {
				p.SetName(a, ArgPlaceholder)
			}
		}

		for _, b := range f.Blocks {
			blk := p.Blocks[b]

			if blk.Name == "" {
				p.SetBlockName(b, BlockPlaceholder)
			}

			for _, id := range blk.Insts {
				x := p.Inst(id)

				if x.Name == "" && !tp.IsVoid(x.Type) {
					p.SetName(id, InstPlaceholder)
				}
			}
		}
	}
}

func local(p *ir.Program, id ir.ValueID) bool {
	return p.FuncOf(id) != ir.NoFunc
}
