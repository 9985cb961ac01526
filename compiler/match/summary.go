package match

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/set"
)

type (
	// Summary describes how well one function pair matched.
	Summary struct {
		Func string

		Left, Right SideSummary

		Blocks int
	}

	SideSummary struct {
		Insts int

		Matched   set.Bitmap[ir.ValueID]
		Unmatched set.Bitmap[ir.ValueID]
	}
)

// Summarize collects confirmed instruction pairs of a function pair.
// Tentative pairs are not counted.
func (e *Engine) Summarize(lf, rf ir.FuncID) Summary {
	s := Summary{
		Func:  e.L.Funcs[lf].Name,
		Left:  e.summarizeSide(Left, e.L, lf),
		Right: e.summarizeSide(Right, e.R, rf),
	}

	for _, b := range e.L.Funcs[lf].Blocks {
		if e.BlockConfirmed(Left, b) {
			s.Blocks++
		}
	}

	return s
}

func (e *Engine) summarizeSide(side Side, p *ir.Program, f ir.FuncID) (s SideSummary) {
	s.Matched = set.MakeBitmap[ir.ValueID](len(p.Values))
	s.Unmatched = set.MakeBitmap[ir.ValueID](len(p.Values))

	for _, b := range p.Funcs[f].Blocks {
		for _, id := range p.Blocks[b].Insts {
			s.Insts++

			if e.IsConfirmed(side, id) {
				s.Matched.Set(id)
			} else {
				s.Unmatched.Set(id)
			}
		}
	}

	return s
}

// Preserved reports whether no instruction is left unmatched on either side.
func (s Summary) Preserved() bool {
	return s.Left.Unmatched.Size() == 0 && s.Right.Unmatched.Size() == 0
}

func (s Summary) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 5)

	b = e.AppendKeyString(b, "func", s.Func)
	b = e.AppendKeyInt(b, "blocks", s.Blocks)
	b = e.AppendKeyInt(b, "insts", s.Left.Insts)
	b = e.AppendKeyInt(b, "left_unmatched", s.Left.Unmatched.Size())
	b = e.AppendKeyInt(b, "right_unmatched", s.Right.Unmatched.Size())

	return b
}
