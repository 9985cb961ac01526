package match

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	// Engine finds structural correspondence between two programs.
	// One Engine serves one run; its tables are shared by all function pairs of the run.
	Engine struct {
		*Store

		L, R *ir.Program

		Options

		// Skipped lists function pairs rejected before matching.
		Skipped []*PreconditionError

		// Exhausted is set when the block attempt budget ran out.
		Exhausted bool

		tr tlog.Span

		queue    []BlockPair
		visitedL map[ir.BlockID]int
		visitedR map[ir.BlockID]int
		steps    int

		cands cands
	}

	Options struct {
		// Revisits caps how many times one block may be proposed. Zero means 3.
		Revisits int

		// Budget caps block attempts per run. Zero means unlimited.
		Budget int

		// Preds pairs predecessor blocks. Nil means Positional.
		Preds PredPairing
	}

	// PreconditionError reports same-named functions that cannot correspond.
	PreconditionError struct {
		Func string

		Left, Right int

		// Arg is the first argument with mismatching type, or -1 for an arity mismatch.
		Arg int
	}
)

const DefaultRevisits = 3

func New(l, r *ir.Program, opts Options) *Engine {
	if opts.Revisits == 0 {
		opts.Revisits = DefaultRevisits
	}

	if opts.Preds == nil {
		opts.Preds = Positional{}
	}

	return &Engine{
		Store:   NewStore(),
		L:       l,
		R:       r,
		Options: opts,

		tr: tlog.Root(),

		visitedL: map[ir.BlockID]int{},
		visitedR: map[ir.BlockID]int{},

		cands: makeCands(),
	}
}

// Diff matches globals and every pair of same-named defined functions.
// A precondition violation skips only its pair; the first one is returned
// after all other pairs were processed.
func (e *Engine) Diff(ctx context.Context) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "match: diff", "left", e.L.Name, "right", e.R.Name)
	defer tr.Finish("err", &err)

	prev := e.tr
	e.tr = tr
	defer func() { e.tr = prev }()

	e.MatchGlobals()

	for lf, f := range e.L.Funcs {
		rf := e.R.FuncByName(f.Name)
		if rf == ir.NoFunc {
			continue
		}

		ferr := e.DiffFunc(ctx, ir.FuncID(lf), rf)
		if ferr == nil {
			continue
		}

		pe, ok := ferr.(*PreconditionError)
		if !ok {
			return errors.Wrap(ferr, "func %v", f.Name)
		}

		e.Skipped = append(e.Skipped, pe)

		tr.Printw("function pair skipped", "func", f.Name, "err", pe)

		if err == nil {
			err = errors.Wrap(pe, "func %v", f.Name)
		}
	}

	if tr.If("dump_table") {
		e.RangeValues(func(l, r ir.ValueID) bool {
			tr.Printw("pair", "l", l, "l_name", e.L.NameOf(l), "r", r, "r_name", e.R.NameOf(r))
			return true
		})

		e.RangeBlocks(func(l, r ir.BlockID) bool {
			tr.Printw("block pair", "l", l, "l_name", e.L.Blocks[l].Name, "r", r, "r_name", e.R.Blocks[r].Name)
			return true
		})
	}

	return err
}

// MatchGlobals confirms same-named globals and function symbols. A
// variable with exactly one instruction user on both sides has the users
// confirmed too.
func (e *Engine) MatchGlobals() {
	for _, lg := range e.L.Globals {
		g := e.L.Values[lg].(*ir.Global)

		rg := e.R.GlobalByName(g.Name)
		if rg == ir.Nil {
			continue
		}

		e.confirm(lg, rg)

		if g.Func != ir.NoFunc {
			continue
		}

		lu, ru := e.L.Users(lg), e.R.Users(rg)

		if len(lu) == 1 && len(ru) == 1 && !e.mustDiffer(lu[0], ru[0]) {
			e.confirm(lu[0], ru[0])
		}
	}
}

// DiffFunc runs the block-level fixpoint over one function pair.
// Functions without a body on either side are left alone.
func (e *Engine) DiffFunc(ctx context.Context, lf, rf ir.FuncID) error {
	l, r := e.L.Funcs[lf], e.R.Funcs[rf]

	if l.Declaration() || r.Declaration() {
		return nil
	}

	if err := checkSignature(l, r); err != nil {
		return err
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "match: func", "name", l.Name, "left_blocks", len(l.Blocks), "right_blocks", len(r.Blocks))
	defer tr.Finish()

	prev := e.tr
	e.tr = tr
	defer func() { e.tr = prev }()

	lret, rret := uniqueReturn(e.L, l), uniqueReturn(e.R, r)

	if lret != ir.Nil && rret != ir.Nil {
		e.confirm(lret, rret)
	}

	for i := range l.Args {
		e.confirm(l.Args[i], r.Args[i])
	}

	e.proposeBlocks(l.Entry(), r.Entry())

	if lret != ir.Nil && rret != ir.Nil {
		e.proposeBlocks(e.L.Inst(lret).Block, e.R.Inst(rret).Block)
	}

	before := e.ConfirmedBlocks()

	for len(e.queue) != 0 {
		if e.Budget != 0 && e.steps >= e.Budget {
			e.Exhausted = true
			e.queue = e.queue[:0]

			tr.Printw("budget exhausted", "steps", e.steps)

			break
		}

		bp := e.queue[0]
		e.queue = e.queue[1:]

		e.steps++

		e.attempt(bp)
	}

	e.ClearTentative()

	tr.Printw("func matched", "blocks", e.ConfirmedBlocks()-before, "steps", e.steps)

	return nil
}

func (e *Engine) attempt(bp BlockPair) {
	if e.BlockConfirmed(Left, bp.L) || e.BlockConfirmed(Right, bp.R) {
		e.tr.V("block").Printw("stale block pair", "pair", bp)
		return
	}

	e.ClearTentative()

	e.forward(bp.L, bp.R)
	e.backward(bp.L, bp.R)

	e.Preds.PairPreds(e.L, e.R, bp.L, bp.R, e.proposeBlocks)

	e.drain(bp.L, bp.R)

	ln, rn := len(e.L.Blocks[bp.L].Insts), len(e.R.Blocks[bp.R].Insts)
	need := min(ln, rn) / 2

	if n := e.Tentative(); n < need {
		e.tr.V("block").Printw("block pair dropped", "pair", bp, "tentative", n, "need", need)
		return
	}

	n := e.Commit()
	e.ConfirmBlocks(bp.L, bp.R)

	e.tr.V("commit").Printw("block pair committed", "pair", bp, "pairs", n, "left", e.L.Blocks[bp.L].Name, "right", e.R.Blocks[bp.R].Name)
}

// proposeBlocks queues a candidate block pair unless either block is
// confirmed or was already proposed Revisits times.
func (e *Engine) proposeBlocks(l, r ir.BlockID) {
	if l == ir.NoBlock || r == ir.NoBlock {
		return
	}

	if e.visitedL[l] >= e.Revisits || e.visitedR[r] >= e.Revisits {
		return
	}

	if e.BlockConfirmed(Left, l) || e.BlockConfirmed(Right, r) {
		return
	}

	e.queue = append(e.queue, BlockPair{L: l, R: r})

	e.visitedL[l]++
	e.visitedR[r]++

	e.tr.V("propose").Printw("block pair proposed", "pair", BlockPair{L: l, R: r}, "visits", e.visitedL[l], "from", loc.Caller(1))
}

// confirm registers a seed pair and floods candidates from it.
func (e *Engine) confirm(l, r ir.ValueID) {
	if !e.Confirm(l, r) {
		e.tr.Printw("conflicting seed ignored", "l", l, "r", r, "from", loc.Caller(1))
		return
	}

	e.addCandidates(l, r)
}

func uniqueReturn(p *ir.Program, f *ir.Func) ir.ValueID {
	ret := ir.Nil

	for _, b := range f.Blocks {
		for _, id := range p.Blocks[b].Insts {
			if p.Inst(id).Op != ir.OpRet {
				continue
			}

			if ret != ir.Nil {
				return ir.Nil
			}

			ret = id
		}
	}

	return ret
}

func checkSignature(l, r *ir.Func) error {
	if len(l.Args) != len(r.Args) {
		return &PreconditionError{Func: l.Name, Left: len(l.Args), Right: len(r.Args), Arg: -1}
	}

	for i := range l.Sig.In {
		if i < len(r.Sig.In) && !tp.Equal(l.Sig.In[i], r.Sig.In[i]) {
			return &PreconditionError{Func: l.Name, Left: len(l.Args), Right: len(r.Args), Arg: i}
		}
	}

	return nil
}

func (e *PreconditionError) Error() string {
	if e.Arg >= 0 {
		return fmt.Sprintf("func %v: argument %d type mismatch", e.Func, e.Arg)
	}

	return fmt.Sprintf("func %v: argument count mismatch: %d vs %d", e.Func, e.Left, e.Right)
}
