package front

import (
	"context"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	// goLoader lowers one ssa package into a Program.
	goLoader struct {
		p   *ir.Program
		pkg *types.Package

		funcs map[*ssa.Function]ir.FuncID
	}

	goFunc struct {
		*goLoader

		fn *ssa.Function
		f  ir.FuncID

		blocks map[*ssa.BasicBlock]ir.BlockID
		values map[ssa.Value]ir.ValueID

		fixups []fixup
	}

	// fixup fills operands once every instruction of the function exists.
	fixup struct {
		id   ir.ValueID
		args []operand
	}

	operand struct {
		v  ssa.Value
		id ir.ValueID
	}
)

// IntrinsicPrefix names the declarations standing for Go operations
// without a direct counterpart in the instruction set.
const IntrinsicPrefix = "go."

// LoadGo compiles the Go package in dir, or the single file if path ends
// with .go, to SSA form and lowers every function of it.
func LoadGo(ctx context.Context, path string) (p *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: load go", "path", path)
	defer tr.Finish("err", &err)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "abs path")
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.LoadAllSyntax,
		Fset:    token.NewFileSet(),
		Dir:     abs,
	}

	pattern := "."

	if strings.HasSuffix(abs, ".go") {
		cfg.Dir = filepath.Dir(abs)
		pattern = "file=" + abs
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "load packages")
	}

	if len(pkgs) == 0 {
		return nil, errors.New("no packages found")
	}

	var msgs []string

	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			msgs = append(msgs, e.Error())
		}
	})

	if len(msgs) != 0 {
		return nil, errors.New("package errors: %v", strings.Join(msgs, "; "))
	}

	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)

	if spkgs[0] == nil {
		return nil, errors.New("no ssa package for %v", pkgs[0].ID)
	}

	spkgs[0].Build()

	tr.Printw("ssa built", "pkg", pkgs[0].PkgPath, "members", len(spkgs[0].Members))

	return LowerSSA(ctx, prog, spkgs[0])
}

// LowerSSA converts every function and method of pkg including closures.
func LowerSSA(ctx context.Context, prog *ssa.Program, pkg *ssa.Package) (_ *ir.Program, err error) {
	l := &goLoader{
		p:     ir.New(pkg.Pkg.Path()),
		pkg:   pkg.Pkg,
		funcs: map[*ssa.Function]ir.FuncID{},
	}

	var fns []*ssa.Function
	seen := map[*ssa.Function]bool{}

	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || len(fn.Blocks) == 0 || seen[fn] {
			return
		}

		seen[fn] = true
		fns = append(fns, fn)

		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}

	names := make([]string, 0, len(pkg.Members))

	for name := range pkg.Members {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		switch m := pkg.Members[name].(type) {
		case *ssa.Function:
			add(m)
		case *ssa.Type:
			if n, ok := m.Type().(*types.Named); ok && n.TypeParams().Len() != 0 {
				continue
			}

			mset := prog.MethodSets.MethodSet(types.NewPointer(m.Type()))

			for i := 0; i < mset.Len(); i++ {
				add(prog.MethodValue(mset.At(i)))
			}
		}
	}

	for _, fn := range fns {
		l.funcs[fn] = l.p.AddFunc(l.funcName(fn), l.sig(fn))
	}

	for _, fn := range fns {
		if err = l.lower(fn); err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name())
		}
	}

	l.p.Link()

	tlog.SpanFromContext(ctx).Printw("lowered ssa", "pkg", pkg.Pkg.Path(), "funcs", len(fns), "insts", l.p.NumInsts())

	return l.p, nil
}

func (l *goLoader) lower(fn *ssa.Function) (err error) {
	g := &goFunc{
		goLoader: l,
		fn:       fn,
		f:        l.funcs[fn],
		blocks:   map[*ssa.BasicBlock]ir.BlockID{},
		values:   map[ssa.Value]ir.ValueID{},
	}

	args := l.p.Funcs[g.f].Args

	for i, par := range fn.Params {
		g.values[par] = args[i]
		l.p.SetName(args[i], par.Name())
	}

	for i, fv := range fn.FreeVars {
		id := args[len(fn.Params)+i]

		g.values[fv] = id
		l.p.SetName(id, fv.Name())
	}

	for _, b := range fn.Blocks {
		name := b.Comment
		if name == "" {
			name = "bb"
		}

		g.blocks[b] = l.p.AddBlock(g.f, name)
	}

	for _, b := range fn.Blocks {
		for _, x := range b.Instrs {
			if err = g.inst(g.blocks[b], x); err != nil {
				return errors.Wrap(err, "block %v: %v", b.Index, x)
			}
		}
	}

	for _, fx := range g.fixups {
		args := make([]ir.ValueID, len(fx.args))

		for i, a := range fx.args {
			args[i], err = g.operand(a)
			if err != nil {
				return errors.Wrap(err, "operand %d of %v", i, l.p.NameOf(fx.id))
			}
		}

		l.p.SetArgs(fx.id, args...)
	}

	return nil
}

func (g *goFunc) inst(b ir.BlockID, x ssa.Instruction) error {
	p := g.p

	emit := func(in *ir.Inst, args ...operand) ir.ValueID {
		id := p.AddInst(b, in)

		if v, ok := x.(ssa.Value); ok && !tp.IsVoid(p.Inst(id).Type) {
			g.values[v] = id
			p.SetName(id, v.Name())
		}

		g.fixups = append(g.fixups, fixup{id: id, args: args})

		return id
	}

	val := func(v ssa.Value) operand { return operand{v: v, id: ir.Nil} }
	lit := func(id ir.ValueID) operand { return operand{id: id} }

	switch x := x.(type) {
	case *ssa.DebugRef:
		return nil
	case *ssa.BinOp:
		op, pred, ok := binOp(x)
		if !ok {
			g.intrinsic(x, emit)
			break
		}

		t := goType(x.Type())

		emit(&ir.Inst{Op: op, Pred: pred, Type: t}, val(x.X), val(x.Y))
	case *ssa.UnOp:
		t := goType(x.Type())

		switch x.Op {
		case token.NOT:
			emit(&ir.Inst{Op: ir.OpXor, Type: t}, val(x.X), lit(p.ConstInt(t, 1)))
		case token.SUB:
			if t.Category() == tp.CatFloat {
				emit(&ir.Inst{Op: ir.OpFNeg, Type: t}, val(x.X))
			} else {
				emit(&ir.Inst{Op: ir.OpSub, Type: t}, lit(p.ConstInt(t, 0)), val(x.X))
			}
		case token.XOR:
			emit(&ir.Inst{Op: ir.OpXor, Type: t}, val(x.X), lit(p.ConstIntS(t, -1)))
		case token.MUL:
			emit(&ir.Inst{Op: ir.OpLoad, Type: t}, val(x.X))
		default:
			g.intrinsic(x, emit)
		}
	case *ssa.Phi:
		in := &ir.Inst{Op: ir.OpPhi, Type: goType(x.Type())}

		args := make([]operand, len(x.Edges))

		for i, e := range x.Edges {
			args[i] = val(e)
			in.Labels = append(in.Labels, g.blocks[x.Block().Preds[i]])
		}

		emit(in, args...)
	case *ssa.If:
		s := x.Block().Succs

		emit(&ir.Inst{Op: ir.OpBr, Labels: []ir.BlockID{g.blocks[s[0]], g.blocks[s[1]]}}, val(x.Cond))
	case *ssa.Jump:
		emit(&ir.Inst{Op: ir.OpBr, Labels: []ir.BlockID{g.blocks[x.Block().Succs[0]]}})
	case *ssa.Return:
		args := make([]operand, len(x.Results))

		for i, r := range x.Results {
			args[i] = val(r)
		}

		emit(&ir.Inst{Op: ir.OpRet}, args...)
	case *ssa.Panic:
		g.intrinsic(x, emit)
		emit(&ir.Inst{Op: ir.OpUnreachable})
	case *ssa.Call:
		c := &x.Call

		var callee operand

		switch {
		case c.IsInvoke():
			callee = lit(g.declare(IntrinsicPrefix+"invoke."+c.Method.Name(), tp.Func{Out: goType(x.Type())}))
		case c.StaticCallee() != nil:
			callee = lit(g.funcSym(c.StaticCallee()))
		default:
			callee = val(c.Value)
		}

		args := []operand{callee}

		if c.IsInvoke() {
			args = append(args, val(c.Value))
		}

		for _, a := range c.Args {
			args = append(args, val(a))
		}

		emit(&ir.Inst{Op: ir.OpCall, Type: goType(x.Type())}, args...)
	case *ssa.Alloc:
		elem := x.Type().Underlying().(*types.Pointer).Elem()

		emit(&ir.Inst{Op: ir.OpAlloca, Type: tp.Ptr{}, Alloc: goType(elem)})
	case *ssa.Store:
		emit(&ir.Inst{Op: ir.OpStore}, val(x.Val), val(x.Addr))
	case *ssa.FieldAddr:
		emit(&ir.Inst{Op: ir.OpGEP, Type: tp.Ptr{}}, val(x.X), lit(p.ConstInt(tp.I32, uint64(x.Field))))
	case *ssa.IndexAddr:
		emit(&ir.Inst{Op: ir.OpGEP, Type: tp.Ptr{}}, val(x.X), val(x.Index))
	case *ssa.Field:
		emit(&ir.Inst{Op: ir.OpExtractValue, Type: goType(x.Type())}, val(x.X), lit(p.ConstInt(tp.I32, uint64(x.Field))))
	case *ssa.Extract:
		emit(&ir.Inst{Op: ir.OpExtractValue, Type: goType(x.Type())}, val(x.Tuple), lit(p.ConstInt(tp.I32, uint64(x.Index))))
	case *ssa.Convert:
		emit(&ir.Inst{Op: castOp(x.X.Type(), x.Type()), Type: goType(x.Type())}, val(x.X))
	case *ssa.ChangeType:
		emit(&ir.Inst{Op: ir.OpBitcast, Type: goType(x.Type())}, val(x.X))
	default:
		g.intrinsic(x, emit)
	}

	return nil
}

// intrinsic lowers an instruction to a call of a declaration named after
// its kind, keeping every operand as an argument.
func (g *goFunc) intrinsic(x ssa.Instruction, emit func(*ir.Inst, ...operand) ir.ValueID) {
	kind := strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", x), "*ssa."))

	if bin, ok := x.(*ssa.BinOp); ok {
		kind += "." + tokenName(bin.Op)
	}

	if un, ok := x.(*ssa.UnOp); ok {
		kind += "." + tokenName(un.Op)
	}

	out := tp.Type(tp.Void{})

	if v, ok := x.(ssa.Value); ok {
		out = goType(v.Type())
	}

	var sig tp.Func
	args := []operand{{}}

	for _, r := range x.Operands(nil) {
		if r == nil || *r == nil {
			continue
		}

		sig.In = append(sig.In, goType((*r).Type()))
		args = append(args, operand{v: *r, id: ir.Nil})
	}

	sig.Out = out

	args[0] = operand{id: g.declare(IntrinsicPrefix+kind, sig)}

	emit(&ir.Inst{Op: ir.OpCall, Type: out}, args...)
}

func (g *goFunc) operand(a operand) (ir.ValueID, error) {
	if a.v == nil {
		return a.id, nil
	}

	if id, ok := g.values[a.v]; ok {
		return id, nil
	}

	p := g.p

	switch v := a.v.(type) {
	case *ssa.Const:
		return g.constant(v), nil
	case *ssa.Global:
		name := g.globalName(v)

		if id := p.GlobalByName(name); id != ir.Nil {
			return id, nil
		}

		elem := v.Type().Underlying().(*types.Pointer).Elem()

		return p.AddGlobal(name, goType(elem), ir.Nil), nil
	case *ssa.Function:
		return g.funcSym(v), nil
	case *ssa.Builtin:
		return g.declare(IntrinsicPrefix+"builtin."+v.Name(), tp.Func{Out: tp.Void{}}), nil
	}

	return ir.Nil, errors.New("unsupported operand %T %v", a.v, a.v.Name())
}

func (g *goFunc) constant(c *ssa.Const) ir.ValueID {
	p := g.p
	t := goType(c.Type())

	if c.Value == nil {
		if t.Category() == tp.CatPtr {
			return p.ConstNull(t)
		}

		return p.ConstZero(t)
	}

	switch c.Value.Kind() {
	case constant.Bool:
		if constant.BoolVal(c.Value) {
			return p.ConstInt(tp.I1, 1)
		}

		return p.ConstInt(tp.I1, 0)
	case constant.Int:
		if v, ok := constant.Int64Val(c.Value); ok {
			return p.ConstIntS(t, v)
		}

		v, _ := constant.Uint64Val(c.Value)

		return p.ConstInt(t, v)
	case constant.Float:
		v, _ := constant.Float64Val(c.Value)

		return p.ConstFloat(t, v)
	}

	// strings and complex numbers have no constant form
	return p.ConstUndef(t)
}

func (g *goFunc) funcSym(fn *ssa.Function) ir.ValueID {
	if f, ok := g.funcs[fn]; ok {
		return g.p.Funcs[f].Sym
	}

	return g.declare(g.funcName(fn), g.sig(fn))
}

func (l *goLoader) declare(name string, sig tp.Func) ir.ValueID {
	f := l.p.DeclareFunc(name, sig)

	return l.p.Funcs[f].Sym
}

func (l *goLoader) funcName(fn *ssa.Function) string {
	return fn.RelString(l.pkg)
}

func (l *goLoader) globalName(g *ssa.Global) string {
	if g.Pkg != nil && g.Pkg.Pkg == l.pkg {
		return g.Name()
	}

	return g.String()
}

func (l *goLoader) sig(fn *ssa.Function) (s tp.Func) {
	for _, par := range fn.Params {
		s.In = append(s.In, goType(par.Type()))
	}

	for _, fv := range fn.FreeVars {
		s.In = append(s.In, goType(fv.Type()))
	}

	s.Out = tupleType(fn.Signature.Results())

	return s
}

func tupleType(t *types.Tuple) tp.Type {
	switch t.Len() {
	case 0:
		return tp.Void{}
	case 1:
		return goType(t.At(0).Type())
	}

	var s tp.Struct

	for i := 0; i < t.Len(); i++ {
		s.Fields = append(s.Fields, goType(t.At(i).Type()))
	}

	return s
}

func goType(t types.Type) tp.Type {
	if tt, ok := t.(*types.Tuple); ok {
		return tupleType(tt)
	}

	switch t := t.Underlying().(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Bool, types.UntypedBool:
			return tp.I1
		case types.Int8, types.Uint8:
			return tp.I8
		case types.Int16, types.Uint16:
			return tp.Int{Bits: 16}
		case types.Int32, types.Uint32, types.UntypedRune:
			return tp.I32
		case types.Int, types.Int64, types.Uint, types.Uint64, types.Uintptr, types.UntypedInt:
			return tp.I64
		case types.Float32:
			return tp.Float{Bits: 32}
		case types.Float64, types.UntypedFloat:
			return tp.F64
		case types.Complex64:
			return tp.Struct{Fields: []tp.Type{tp.Float{Bits: 32}, tp.Float{Bits: 32}}}
		case types.Complex128, types.UntypedComplex:
			return tp.Struct{Fields: []tp.Type{tp.F64, tp.F64}}
		case types.String, types.UntypedString:
			return tp.Struct{Fields: []tp.Type{tp.Ptr{}, tp.I64}}
		}

		return tp.Ptr{}
	case *types.Array:
		return tp.Array{X: goType(t.Elem()), Len: int(t.Len())}
	case *types.Struct:
		var s tp.Struct

		for i := 0; i < t.NumFields(); i++ {
			s.Fields = append(s.Fields, goType(t.Field(i).Type()))
		}

		return s
	case *types.Slice:
		return tp.Struct{Fields: []tp.Type{tp.Ptr{}, tp.I64, tp.I64}}
	}

	return tp.Ptr{}
}

func isUnsigned(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)

	return ok && b.Info()&types.IsUnsigned != 0
}

func isFloat(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)

	return ok && b.Info()&types.IsFloat != 0
}

func isInteger(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)

	return ok && b.Info()&types.IsInteger != 0
}

func binOp(x *ssa.BinOp) (ir.Op, ir.Pred, bool) {
	t := x.X.Type()
	fl, un := isFloat(t), isUnsigned(t)

	pick := func(i, u, f ir.Op) ir.Op {
		switch {
		case fl:
			return f
		case un:
			return u
		default:
			return i
		}
	}

	cmp := func(s, u, f ir.Pred) (ir.Op, ir.Pred, bool) {
		switch {
		case fl:
			return ir.OpFCmp, f, true
		case un:
			return ir.OpICmp, u, true
		default:
			return ir.OpICmp, s, true
		}
	}

	if !fl && !isInteger(t) && x.Op != token.EQL && x.Op != token.NEQ {
		return 0, "", false
	}

	switch x.Op {
	case token.ADD:
		return pick(ir.OpAdd, ir.OpAdd, ir.OpFAdd), "", true
	case token.SUB:
		return pick(ir.OpSub, ir.OpSub, ir.OpFSub), "", true
	case token.MUL:
		return pick(ir.OpMul, ir.OpMul, ir.OpFMul), "", true
	case token.QUO:
		return pick(ir.OpSDiv, ir.OpUDiv, ir.OpFDiv), "", true
	case token.REM:
		if fl {
			return 0, "", false
		}

		return pick(ir.OpSRem, ir.OpURem, 0), "", true
	case token.AND:
		return ir.OpAnd, "", !fl
	case token.OR:
		return ir.OpOr, "", !fl
	case token.XOR:
		return ir.OpXor, "", !fl
	case token.SHL:
		return ir.OpShl, "", !fl
	case token.SHR:
		return pick(ir.OpAShr, ir.OpLShr, 0), "", !fl
	case token.EQL:
		return cmp("eq", "eq", "oeq")
	case token.NEQ:
		return cmp("ne", "ne", "une")
	case token.LSS:
		return cmp("slt", "ult", "olt")
	case token.LEQ:
		return cmp("sle", "ule", "ole")
	case token.GTR:
		return cmp("sgt", "ugt", "ogt")
	case token.GEQ:
		return cmp("sge", "uge", "oge")
	}

	return 0, "", false
}

func castOp(from, to types.Type) ir.Op {
	ft, tt := goType(from), goType(to)

	switch {
	case isInteger(from) && isInteger(to):
		fs, ts := ft.Size(), tt.Size()

		switch {
		case fs > ts:
			return ir.OpTrunc
		case fs < ts && isUnsigned(from):
			return ir.OpZExt
		case fs < ts:
			return ir.OpSExt
		}
	case isInteger(from) && isFloat(to):
		return ir.OpSIToFP
	case isFloat(from) && isInteger(to):
		return ir.OpFPToSI
	}

	return ir.OpBitcast
}

func tokenName(t token.Token) string {
	switch t {
	case token.AND_NOT:
		return "andnot"
	case token.ARROW:
		return "recv"
	}

	return t.String()
}
