package main

import (
	"context"
	"os"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"

	"github.com/slowlang/irdiff/compiler"
	"github.com/slowlang/irdiff/compiler/format"
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/match"
)

func main() {
	diffCmd := &cli.Command{
		Name:        "diff",
		Description: "match two programs and list instructions left unmatched",
		Action:      diffAct,
		Args:        cli.Args{},
	}

	canonCmd := &cli.Command{
		Name:        "canon",
		Description: "rename the right program after its matched left partners and print both",
		Action:      canonAct,
		Args:        cli.Args{},
	}

	markCmd := &cli.Command{
		Name:        "mark",
		Description: "insert a marker call before every unmatched instruction and print both programs",
		Action:      markAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("prefix", "", "marker function name prefix"),
		},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "succeed if function pairs have no unmatched instructions",
		Action:      checkAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("all", false, "succeed if any function pair is preserved"),
		},
	}

	app := &cli.Command{
		Name:        "irdiff",
		Description: "irdiff finds corresponding parts of two versions of a program",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("func", "", "match only the named function pair"),
			cli.NewFlag("budget", 0, "block attempts limit, 0 is unlimited"),
			cli.NewFlag("revisits", match.DefaultRevisits, "times one block may be proposed"),
			cli.NewFlag("reverse", false, "swap left and right programs"),
			cli.NewFlag("log", "stderr?console=dm", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			diffCmd,
			canonCmd,
			markCmd,
			checkCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func diffAct(c *cli.Command) (err error) {
	ctx, l, r, opts, err := load(c)
	if err != nil {
		return err
	}

	e, err := compiler.Diff(ctx, l, r, opts)
	if err != nil {
		return errors.Wrap(err, "diff")
	}

	var b []byte

	for lf, f := range l.Funcs {
		rf := r.FuncByName(f.Name)
		if rf == ir.NoFunc || f.Declaration() || r.Funcs[rf].Declaration() {
			continue
		}

		if opts.Func != "" && f.Name != opts.Func {
			continue
		}

		s := e.Summarize(ir.FuncID(lf), rf)

		b = hfmt.Appendf(b, "%s: blocks %d/%d  left unmatched %d/%d  right unmatched %d/%d\n",
			s.Func, s.Blocks, len(f.Blocks), s.Left.Unmatched.Size(), s.Left.Insts, s.Right.Unmatched.Size(), s.Right.Insts)

		b, err = unmatched(b, "-", l, s.Left)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}

		b, err = unmatched(b, "+", r, s.Right)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	if e.Exhausted {
		b = append(b, "budget exhausted, matching is incomplete\n"...)
	}

	_, err = os.Stdout.Write(b)

	return err
}

func canonAct(c *cli.Command) (err error) {
	ctx, l, r, opts, err := load(c)
	if err != nil {
		return err
	}

	_, n, err := compiler.Canon(ctx, l, r, opts)
	if err != nil {
		return errors.Wrap(err, "canon")
	}

	tlog.SpanFromContext(ctx).Printw("renamed", "pairs", n)

	return printBoth(ctx, l, r)
}

func markAct(c *cli.Command) (err error) {
	ctx, l, r, opts, err := load(c)
	if err != nil {
		return err
	}

	opts.Prefix = c.String("prefix")

	_, m, err := compiler.Mark(ctx, l, r, opts)
	if err != nil {
		return errors.Wrap(err, "mark")
	}

	tlog.SpanFromContext(ctx).Printw("marked", "left", m.Left, "right", m.Right)

	return printBoth(ctx, l, r)
}

func checkAct(c *cli.Command) (err error) {
	ctx, l, r, opts, err := load(c)
	if err != nil {
		return err
	}

	ok, sums, err := compiler.Check(ctx, l, r, opts, c.Bool("all"))
	if err != nil {
		return errors.Wrap(err, "check")
	}

	var b []byte

	for _, s := range sums {
		st := "DIFF"
		if s.Preserved() {
			st = "OK"
		}

		b = hfmt.Appendf(b, "%-4s %s\n", st, s.Func)
	}

	_, err = os.Stdout.Write(b)
	if err != nil {
		return err
	}

	if !ok {
		return errors.New("programs differ")
	}

	return nil
}

func load(c *cli.Command) (ctx context.Context, l, r *ir.Program, opts compiler.Options, err error) {
	ctx = context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 2 {
		return ctx, nil, nil, opts, errors.New("expected two programs, got %d args", len(c.Args))
	}

	lname, rname := c.Args[0], c.Args[1]

	if c.Bool("reverse") {
		lname, rname = rname, lname
	}

	l, r, err = compiler.LoadPair(ctx, lname, rname)
	if err != nil {
		return ctx, nil, nil, opts, errors.Wrap(err, "load")
	}

	opts = compiler.Options{
		Match: match.Options{
			Budget:   c.Int("budget"),
			Revisits: c.Int("revisits"),
		},
		Func: c.String("func"),
	}

	return ctx, l, r, opts, nil
}

func unmatched(b []byte, sign string, p *ir.Program, s match.SideSummary) (_ []byte, err error) {
	for _, id := range s.Unmatched.Slice() {
		b = hfmt.Appendf(b, "%s %s: ", sign, p.Blocks[p.Inst(id).Block].Name)

		b, err = format.FormatInst(b, p, id)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')
	}

	return b, nil
}

func printBoth(ctx context.Context, l, r *ir.Program) (err error) {
	b := hfmt.Appendf(nil, "; left: %s\n", l.Name)

	b, err = format.Format(ctx, b, l)
	if err != nil {
		return errors.Wrap(err, "format left")
	}

	b = hfmt.Appendf(b, "\n; right: %s\n", r.Name)

	b, err = format.Format(ctx, b, r)
	if err != nil {
		return errors.Wrap(err, "format right")
	}

	_, err = os.Stdout.Write(b)

	return err
}
