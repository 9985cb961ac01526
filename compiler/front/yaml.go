package front

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

type (
	yamlProgram struct {
		Name      string       `yaml:"name"`
		Globals   []yamlGlobal `yaml:"globals"`
		Functions []yamlFunc   `yaml:"functions"`
	}

	yamlGlobal struct {
		Name string    `yaml:"name"`
		Type string    `yaml:"type"`
		Init yaml.Node `yaml:"init"`
	}

	yamlFunc struct {
		Name   string      `yaml:"name"`
		Args   []yamlArg   `yaml:"args"`
		Ret    string      `yaml:"ret"`
		Blocks []yamlBlock `yaml:"blocks"`
	}

	yamlArg struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}

	yamlBlock struct {
		Name  string      `yaml:"name"`
		Insts []yaml.Node `yaml:"insts"`
	}

	yamlInst struct {
		Name   string      `yaml:"name"`
		Op     string      `yaml:"op"`
		Pred   string      `yaml:"pred"`
		Type   string      `yaml:"type"`
		Alloc  string      `yaml:"alloc"`
		Args   []yaml.Node `yaml:"args"`
		Labels []string    `yaml:"labels"`
	}

	yamlConst struct {
		Type         string      `yaml:"type"`
		Elems        []yaml.Node `yaml:"elems"`
		Expr         string      `yaml:"expr"`
		Pred         string      `yaml:"pred"`
		Args         []yaml.Node `yaml:"args"`
		BlockAddress string      `yaml:"blockaddress"`
		Func         string      `yaml:"func"`
	}

	yamlDecoder struct {
		p *ir.Program

		// instructions whose operands are resolved in the second pass
		pending []pendingInst
		typed   map[ir.ValueID]bool
	}

	pendingInst struct {
		f    ir.FuncID
		id   ir.ValueID
		x    *yamlInst
		line int
	}
)

// LoadYAML reads a program description file.
func LoadYAML(ctx context.Context, name string) (*ir.Program, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return ParseYAML(ctx, name, data)
}

// ParseYAML builds a program from its YAML description. Operands are
// written as %local, @global, bare literals typed by their position, or
// "type literal" strings. Aggregate, expression and block address
// constants are mappings.
func ParseYAML(ctx context.Context, name string, data []byte) (p *ir.Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "front: parse yaml", "name", name, "size", len(data))
	defer tr.Finish("err", &err)

	var y yamlProgram

	err = yaml.Unmarshal(data, &y)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}

	if y.Name == "" {
		y.Name = name
	}

	d := &yamlDecoder{
		p:     ir.New(y.Name),
		typed: map[ir.ValueID]bool{},
	}

	err = d.declare(&y)
	if err != nil {
		return nil, err
	}

	err = d.resolve(&y)
	if err != nil {
		return nil, err
	}

	d.p.Link()

	tr.Printw("program parsed", "funcs", len(d.p.Funcs), "globals", len(d.p.Globals), "insts", d.p.NumInsts())

	if tr.If("dump_prog") {
		tr.Printw("program", "values", len(d.p.Values), "blocks", len(d.p.Blocks))
	}

	return d.p, nil
}

// declare creates every global, function, block and instruction so
// operands may refer forward.
func (d *yamlDecoder) declare(y *yamlProgram) error {
	p := d.p

	for _, g := range y.Globals {
		t, err := tp.Parse(g.Type)
		if err != nil {
			return errors.Wrap(err, "global %v", g.Name)
		}

		p.AddGlobal(g.Name, t, ir.Nil)
	}

	for _, yf := range y.Functions {
		var sig tp.Func
		var names []string

		for _, a := range yf.Args {
			t, err := tp.Parse(a.Type)
			if err != nil {
				return errors.Wrap(err, "func %v: arg %v", yf.Name, a.Name)
			}

			sig.In = append(sig.In, t)
			names = append(names, a.Name)
		}

		sig.Out = tp.Void{}

		if yf.Ret != "" {
			t, err := tp.Parse(yf.Ret)
			if err != nil {
				return errors.Wrap(err, "func %v: ret", yf.Name)
			}

			sig.Out = t
		}

		if p.GlobalByName(yf.Name) != ir.Nil {
			return errors.New("func %v: name redeclared", yf.Name)
		}

		f := p.AddFunc(yf.Name, sig, names...)

		for _, yb := range yf.Blocks {
			p.AddBlock(f, yb.Name)
		}
	}

	for fi, yf := range y.Functions {
		f := ir.FuncID(fi)
		fn := p.Funcs[f]

		for bi, yb := range yf.Blocks {
			for ii := range yb.Insts {
				n := &yb.Insts[ii]

				var x yamlInst

				err := n.Decode(&x)
				if err != nil {
					return errors.Wrap(err, "func %v: line %d", yf.Name, n.Line)
				}

				id, err := d.inst(f, fn.Blocks[bi], &x)
				if err != nil {
					return errors.Wrap(err, "func %v: line %d", yf.Name, n.Line)
				}

				d.pending = append(d.pending, pendingInst{f: f, id: id, x: &x, line: n.Line})
			}
		}
	}

	return nil
}

// inst creates an instruction with its result type where it does not
// depend on operands.
func (d *yamlDecoder) inst(f ir.FuncID, b ir.BlockID, x *yamlInst) (ir.ValueID, error) {
	op, ok := ir.ParseOp(x.Op)
	if !ok {
		return ir.Nil, errors.New("unknown op %q", x.Op)
	}

	err := checkShape(op, len(x.Args), len(x.Labels))
	if err != nil {
		return ir.Nil, err
	}

	in := &ir.Inst{Op: op, Pred: ir.Pred(x.Pred), Name: x.Name}

	var explicit tp.Type

	if x.Type != "" {
		t, err := tp.Parse(x.Type)
		if err != nil {
			return ir.Nil, errors.Wrap(err, "type")
		}

		explicit = t
	}

	typed := true

	switch op.Class() {
	case ir.ClassReturn, ir.ClassBranch, ir.ClassSwitch, ir.ClassIndirectBr, ir.ClassUnreachable:
		in.Type = tp.Void{}
	case ir.ClassCmp:
		in.Type = tp.I1
	case ir.ClassAlloca:
		alloc := x.Alloc
		if alloc == "" {
			alloc = x.Type
		}

		t, err := tp.Parse(alloc)
		if err != nil {
			return ir.Nil, errors.Wrap(err, "alloc")
		}

		in.Alloc = t
		in.Type = tp.Ptr{}
	case ir.ClassCall, ir.ClassInvoke:
		in.Type = explicit

		if explicit == nil {
			t, ok := d.calleeType(x)
			if !ok {
				return ir.Nil, errors.New("%v: callee is not a function, type required", x.Op)
			}

			in.Type = t
		}
	default:
		switch {
		case op == ir.OpStore:
			in.Type = tp.Void{}
		case op == ir.OpGEP:
			in.Type = tp.Ptr{}
		case explicit != nil:
			in.Type = explicit
		case op.Class() == ir.ClassBinary || op.Class() == ir.ClassUnary || op == ir.OpSelect:
			typed = false
		default:
			return ir.Nil, errors.New("%v: type required", x.Op)
		}
	}

	if in.Type == nil {
		// placeholder until operands are resolved; AddInst would make it void
		in.Type = tp.Ptr{}
	}

	if len(x.Labels) != 0 {
		for _, name := range x.Labels {
			lb, err := d.p.LookupBlock(f, name)
			if err != nil {
				return ir.Nil, err
			}

			in.Labels = append(in.Labels, lb)
		}
	}

	id := d.p.AddInst(b, in)

	d.typed[id] = typed

	return id, nil
}

// checkShape validates operand and label counts. A negative max is unbounded.
func checkShape(op ir.Op, args, labels int) error {
	amin, amax := 0, -1
	lmin, lmax := 0, 0

	switch op.Class() {
	case ir.ClassReturn:
		amax = 1
	case ir.ClassBranch:
		if args == 0 {
			lmin, lmax = 1, 1
		} else {
			amin, amax = 1, 1
			lmin, lmax = 2, 2
		}
	case ir.ClassSwitch, ir.ClassPhi:
		// one label per operand
		amin = 1
		lmin, lmax = args, args
	case ir.ClassIndirectBr:
		amin, amax = 1, 1
		lmax = -1
	case ir.ClassInvoke:
		amin = 1
		lmin, lmax = 2, 2
	case ir.ClassUnreachable:
		amax = 0
	case ir.ClassCall:
		amin = 1
	case ir.ClassBinary, ir.ClassCmp:
		amin, amax = 2, 2
	case ir.ClassUnary, ir.ClassCast:
		amin, amax = 1, 1
	case ir.ClassAlloca:
		amax = 1
	default:
		switch op {
		case ir.OpLoad:
			amin, amax = 1, 1
		case ir.OpStore:
			amin, amax = 2, 2
		case ir.OpGEP:
			amin = 1
		case ir.OpSelect:
			amin, amax = 3, 3
		case ir.OpExtractValue:
			amin = 2
		case ir.OpInsertValue:
			amin = 3
		}
	}

	if args < amin {
		return errors.New("%v: %d operands, want at least %d", op, args, amin)
	}

	if amax >= 0 && args > amax {
		return errors.New("%v: %d operands, want at most %d", op, args, amax)
	}

	if labels < lmin {
		return errors.New("%v: %d labels, want at least %d", op, labels, lmin)
	}

	if lmax >= 0 && labels > lmax {
		return errors.New("%v: %d labels, want at most %d", op, labels, lmax)
	}

	return nil
}

func (d *yamlDecoder) calleeType(x *yamlInst) (tp.Type, bool) {
	if len(x.Args) == 0 || x.Args[0].Kind != yaml.ScalarNode || !strings.HasPrefix(x.Args[0].Value, "@") {
		return nil, false
	}

	f := d.p.FuncByName(x.Args[0].Value[1:])
	if f == ir.NoFunc {
		return nil, false
	}

	return d.p.Funcs[f].Sig.Out, true
}

// resolve fills global initializers and instruction operands.
func (d *yamlDecoder) resolve(y *yamlProgram) error {
	p := d.p

	for _, g := range y.Globals {
		if g.Init.Kind == 0 {
			continue
		}

		id := p.GlobalByName(g.Name)
		gl := p.Values[id].(*ir.Global)

		init, err := d.operand(ir.NoFunc, &g.Init, gl.Type)
		if err != nil {
			return errors.Wrap(err, "global %v: line %d", g.Name, g.Init.Line)
		}

		gl.Init = init
	}

	for _, pi := range d.pending {
		err := d.operands(pi.f, pi.id, pi.x)
		if err != nil {
			return errors.Wrap(err, "func %v: line %d", p.Funcs[pi.f].Name, pi.line)
		}
	}

	return nil
}

func (d *yamlDecoder) operands(f ir.FuncID, id ir.ValueID, x *yamlInst) (err error) {
	p := d.p
	in := p.Inst(id)
	args := make([]ir.ValueID, len(x.Args))

	// context type of untyped literals at each position
	ctxType := func(i int) tp.Type {
		switch in.Class() {
		case ir.ClassReturn:
			return p.Funcs[f].Sig.Out
		case ir.ClassBranch:
			return tp.I1
		case ir.ClassIndirectBr:
			return tp.Ptr{}
		case ir.ClassPhi:
			return in.Type
		case ir.ClassCall, ir.ClassInvoke:
			if i == 0 {
				return tp.Ptr{}
			}

			cf := p.FuncByName(strings.TrimPrefix(x.Args[0].Value, "@"))
			if cf != ir.NoFunc && i-1 < len(p.Funcs[cf].Sig.In) {
				return p.Funcs[cf].Sig.In[i-1]
			}

			return nil
		case ir.ClassSwitch:
			if i != 0 {
				return p.Values[args[0]].ValueType()
			}

			return d.guess(f, x.Args[:1])
		}

		switch in.Op {
		case ir.OpLoad:
			return tp.Ptr{}
		case ir.OpStore:
			if i == 1 {
				return tp.Ptr{}
			}

			return d.guess(f, x.Args[:1])
		case ir.OpGEP:
			if i == 0 {
				return tp.Ptr{}
			}

			return tp.I64
		case ir.OpSelect:
			if i == 0 {
				return tp.I1
			}
		case ir.OpExtractValue, ir.OpInsertValue:
			if i != 0 {
				return tp.I32
			}
		}

		if d.typed[id] && in.Class() == ir.ClassBinary {
			return in.Type
		}

		return d.guess(f, x.Args)
	}

	for i := range x.Args {
		args[i], err = d.operand(f, &x.Args[i], ctxType(i))
		if err != nil {
			return errors.Wrap(err, "operand %d", i)
		}
	}

	in.Args = args

	if !d.typed[id] {
		src := args[0]
		if in.Op == ir.OpSelect {
			src = args[1]
		}

		in.Type = p.Values[src].ValueType()
		d.typed[id] = true
	}

	return nil
}

// guess finds the type of the first operand that carries one.
func (d *yamlDecoder) guess(f ir.FuncID, args []yaml.Node) tp.Type {
	for i := range args {
		n := &args[i]

		if n.Kind != yaml.ScalarNode {
			continue
		}

		s := n.Value

		switch {
		case strings.HasPrefix(s, "@"):
			return tp.Ptr{}
		case strings.HasPrefix(s, "%"):
			id, err := d.p.Lookup(f, s[1:])
			if err != nil || !d.typed[id] && d.p.IsInst(id) {
				continue
			}

			return d.p.Values[id].ValueType()
		case n.Tag == "!!str":
			if t, _, ok := splitTyped(s); ok {
				return t
			}
		}
	}

	return nil
}

func (d *yamlDecoder) operand(f ir.FuncID, n *yaml.Node, t tp.Type) (ir.ValueID, error) {
	p := d.p

	switch n.Kind {
	case yaml.ScalarNode:
	case yaml.MappingNode:
		return d.aggregate(f, n, t)
	default:
		return ir.Nil, errors.New("line %d: unsupported operand node", n.Line)
	}

	s := n.Value

	if n.Tag == "!!str" {
		switch {
		case strings.HasPrefix(s, "%"):
			if f == ir.NoFunc {
				return ir.Nil, errors.New("local %v outside of a function", s)
			}

			return p.Lookup(f, s[1:])
		case strings.HasPrefix(s, "@"):
			id := p.GlobalByName(s[1:])
			if id == ir.Nil {
				return ir.Nil, errors.New("unknown global %v", s)
			}

			return id, nil
		}

		if tt, lit, ok := splitTyped(s); ok {
			return d.literal(lit, "", tt)
		}
	}

	return d.literal(s, n.Tag, t)
}

func (d *yamlDecoder) literal(s, tag string, t tp.Type) (ir.ValueID, error) {
	p := d.p

	switch s {
	case "true", "false":
		if t == nil {
			t = tp.I1
		}

		if s == "true" {
			return p.ConstInt(t, 1), nil
		}

		return p.ConstInt(t, 0), nil
	case "null":
		if t == nil {
			t = tp.Ptr{}
		}

		return p.ConstNull(t), nil
	}

	if t == nil {
		return ir.Nil, errors.New("untyped literal %q", s)
	}

	switch s {
	case "undef":
		return p.ConstUndef(t), nil
	case "zeroinitializer":
		return p.ConstZero(t), nil
	}

	switch t.Category() {
	case tp.CatInt:
		neg := strings.HasPrefix(s, "-")

		v, err := uint256.FromDecimal(strings.TrimPrefix(s, "-"))
		if err != nil {
			return ir.Nil, errors.Wrap(err, "int literal %q", s)
		}

		if neg {
			v.Neg(v)
		}

		return p.ConstIntBig(t, v), nil
	case tp.CatFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ir.Nil, errors.Wrap(err, "float literal %q", s)
		}

		return p.ConstFloat(t, v), nil
	}

	return ir.Nil, errors.New("literal %q of type %v (tag %v)", s, t, tag)
}

func (d *yamlDecoder) aggregate(f ir.FuncID, n *yaml.Node, t tp.Type) (ir.ValueID, error) {
	p := d.p

	var c yamlConst

	err := n.Decode(&c)
	if err != nil {
		return ir.Nil, errors.Wrap(err, "line %d", n.Line)
	}

	if c.BlockAddress != "" {
		bf := f

		if c.Func != "" {
			bf = p.FuncByName(c.Func)
		}

		if bf == ir.NoFunc {
			return ir.Nil, errors.New("blockaddress %v: unknown function", c.BlockAddress)
		}

		b, err := p.LookupBlock(bf, c.BlockAddress)
		if err != nil {
			return ir.Nil, err
		}

		return p.BlockAddress(bf, b), nil
	}

	if c.Type != "" {
		t, err = tp.Parse(c.Type)
		if err != nil {
			return ir.Nil, errors.Wrap(err, "line %d", n.Line)
		}
	}

	if t == nil {
		return ir.Nil, errors.New("line %d: untyped constant", n.Line)
	}

	if c.Expr != "" {
		op, ok := ir.ParseOp(c.Expr)
		if !ok {
			return ir.Nil, errors.New("line %d: unknown op %q", n.Line, c.Expr)
		}

		args, err := d.elems(f, c.Args, func(int) tp.Type { return d.guess(f, c.Args) })
		if err != nil {
			return ir.Nil, err
		}

		return p.ConstExpr(op, ir.Pred(c.Pred), t, args...), nil
	}

	switch tt := t.(type) {
	case tp.Array:
		el, err := d.elems(f, c.Elems, func(int) tp.Type { return tt.X })
		if err != nil {
			return ir.Nil, err
		}

		return p.ConstArray(tt, el...), nil
	case tp.Vector:
		el, err := d.elems(f, c.Elems, func(int) tp.Type { return tt.X })
		if err != nil {
			return ir.Nil, err
		}

		return p.ConstVector(tt, el...), nil
	case tp.Struct:
		if len(c.Elems) != len(tt.Fields) {
			return ir.Nil, errors.New("line %d: struct of %d fields has %d elems", n.Line, len(tt.Fields), len(c.Elems))
		}

		el, err := d.elems(f, c.Elems, func(i int) tp.Type { return tt.Fields[i] })
		if err != nil {
			return ir.Nil, err
		}

		return p.ConstStruct(tt, el...), nil
	}

	return ir.Nil, errors.New("line %d: %v is not an aggregate type", n.Line, t)
}

func (d *yamlDecoder) elems(f ir.FuncID, ns []yaml.Node, t func(i int) tp.Type) (el []ir.ValueID, err error) {
	el = make([]ir.ValueID, len(ns))

	for i := range ns {
		el[i], err = d.operand(f, &ns[i], t(i))
		if err != nil {
			return nil, errors.Wrap(err, "elem %d", i)
		}
	}

	return el, nil
}

// splitTyped splits "i32 7" into its type and literal.
func splitTyped(s string) (tp.Type, string, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return nil, "", false
	}

	t, err := tp.Parse(s[:i])
	if err != nil {
		return nil, "", false
	}

	return t, s[i+1:], true
}
