package compiler

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/canon"
	"github.com/slowlang/irdiff/compiler/front"
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/mark"
	"github.com/slowlang/irdiff/compiler/match"
)

type (
	Options struct {
		Match match.Options

		// Prefix names marker functions. Empty means mark.DefaultPrefix.
		Prefix string

		// Func restricts matching to one function pair.
		Func string
	}

	// Marks lists inserted marker names per side.
	Marks struct {
		Left, Right []string
	}
)

// Load reads a program from a YAML description, a Go source file or a
// Go package directory.
func Load(ctx context.Context, name string) (*ir.Program, error) {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return front.LoadYAML(ctx, name)
	default:
		return front.LoadGo(ctx, name)
	}
}

// LoadPair loads both programs concurrently.
func LoadPair(ctx context.Context, lname, rname string) (l, r *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: load", "left", lname, "right", rname)
	defer tr.Finish("err", &err)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		l, err = Load(gctx, lname)
		if err != nil {
			return errors.Wrap(err, "left %v", lname)
		}

		return nil
	})

	g.Go(func() (err error) {
		r, err = Load(gctx, rname)
		if err != nil {
			return errors.Wrap(err, "right %v", rname)
		}

		return nil
	})

	err = g.Wait()
	if err != nil {
		return nil, nil, err
	}

	return l, r, nil
}

// Diff matches the programs, or only the selected function pair.
func Diff(ctx context.Context, l, r *ir.Program, opts Options) (e *match.Engine, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: diff", "func", opts.Func)
	defer tr.Finish("err", &err)

	e = match.New(l, r, opts.Match)

	if opts.Func == "" {
		err = e.Diff(ctx)
	} else {
		err = diffOne(ctx, e, opts.Func)
	}

	if err != nil {
		return nil, err
	}

	if e.Exhausted {
		tr.Printw("match budget exhausted", "budget", opts.Match.Budget)
	}

	tr.Printw("programs matched", "values", e.Confirmed(), "blocks", e.ConfirmedBlocks())

	return e, nil
}

func diffOne(ctx context.Context, e *match.Engine, name string) error {
	lf, rf, err := funcPair(e.L, e.R, name)
	if err != nil {
		return err
	}

	e.MatchGlobals()

	err = e.DiffFunc(ctx, lf, rf)
	if err != nil {
		return errors.Wrap(err, "func %v", name)
	}

	return nil
}

// Canon diffs the programs and renames matched right entities after
// their left partners.
func Canon(ctx context.Context, l, r *ir.Program, opts Options) (e *match.Engine, n int, err error) {
	e, err = Diff(ctx, l, r, opts)
	if err != nil {
		return nil, 0, err
	}

	n = canon.Name(ctx, l, r, e)

	return e, n, nil
}

// Mark diffs the programs and inserts a marker call before every
// instruction left unmatched.
func Mark(ctx context.Context, l, r *ir.Program, opts Options) (e *match.Engine, m Marks, err error) {
	e, err = Diff(ctx, l, r, opts)
	if err != nil {
		return nil, m, err
	}

	m.Left, m.Right, err = mark.Mark(ctx, l, r, e, opts.Prefix)
	if err != nil {
		return nil, m, errors.Wrap(err, "mark")
	}

	return e, m, nil
}

// Check summarizes matched function pairs. Without anyPair set every pair
// must be preserved; with anyPair set one preserved pair is enough.
func Check(ctx context.Context, l, r *ir.Program, opts Options, anyPair bool) (ok bool, sums []match.Summary, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: check", "func", opts.Func, "any", anyPair)
	defer tr.Finish("err", &err)

	e, err := Diff(ctx, l, r, opts)
	if err != nil {
		return false, nil, err
	}

	if opts.Func != "" {
		lf, rf, err := funcPair(l, r, opts.Func)
		if err != nil {
			return false, nil, err
		}

		sums = append(sums, e.Summarize(lf, rf))
	} else {
		for lf, f := range l.Funcs {
			rf := r.FuncByName(f.Name)
			if rf == ir.NoFunc || f.Declaration() || r.Funcs[rf].Declaration() {
				continue
			}

			sums = append(sums, e.Summarize(ir.FuncID(lf), rf))
		}
	}

	if len(sums) == 0 {
		return false, nil, errors.New("no function pairs to check")
	}

	ok = !anyPair

	for _, s := range sums {
		tr.V("check").Printw("function pair", "summary", s)

		if anyPair {
			ok = ok || s.Preserved()
		} else {
			ok = ok && s.Preserved()
		}
	}

	tr.Printw("checked", "pairs", len(sums), "ok", ok)

	return ok, sums, nil
}

func funcPair(l, r *ir.Program, name string) (lf, rf ir.FuncID, err error) {
	lf = l.FuncByName(name)
	if lf == ir.NoFunc {
		return lf, rf, errors.New("func %v: not found in left program", name)
	}

	rf = r.FuncByName(name)
	if rf == ir.NoFunc {
		return lf, rf, errors.New("func %v: not found in right program", name)
	}

	return lf, rf, nil
}
