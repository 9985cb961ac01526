package format

import (
	"context"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/tp"
)

// Format appends the textual form of the whole program.
func Format(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	n := 0

	for _, g := range p.Globals {
		x := p.Values[g].(*ir.Global)
		if x.Func != ir.NoFunc {
			continue
		}

		b = app(b, 0, "@%s = global %v", x.Name, x.Type)

		if x.Init != ir.Nil {
			b = append(b, ' ')

			b, err = formatValue(b, p, x.Init)
			if err != nil {
				return nil, errors.Wrap(err, "global %v", x.Name)
			}
		}

		b = append(b, '\n')
		n++
	}

	for i, f := range p.Funcs {
		if n != 0 {
			b = append(b, '\n')
		}

		n++

		b, err = FormatFunc(ctx, b, p, ir.FuncID(i))
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func FormatFunc(ctx context.Context, b []byte, p *ir.Program, fid ir.FuncID) (_ []byte, err error) {
	f := p.Funcs[fid]

	if f.Declaration() {
		b = app(b, 0, "declare %v @%s(", f.Sig.Out, f.Name)

		for i, t := range f.Sig.In {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, t.String()...)
		}

		return append(b, ")\n"...), nil
	}

	b = app(b, 0, "define %v @%s(", f.Sig.Out, f.Name)

	for i, a := range f.Args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v %s", p.Values[a].ValueType(), local(p, a))
	}

	b = append(b, ") {\n"...)

	for i, blk := range f.Blocks {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatBlock(b, p, blk)
		if err != nil {
			return nil, errors.Wrap(err, "block %v", blockName(p, blk))
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func formatBlock(b []byte, p *ir.Program, blk ir.BlockID) (_ []byte, err error) {
	b = app(b, 0, "%s:\n", blockName(p, blk))

	for i, id := range p.Blocks[blk].Insts {
		b = app(b, 1, "")

		b, err = formatInst(b, p, id)
		if err != nil {
			return nil, errors.Wrap(err, "inst %d", i)
		}

		b = append(b, '\n')
	}

	return b, nil
}

// FormatInst appends one instruction without indentation or newline.
func FormatInst(b []byte, p *ir.Program, id ir.ValueID) ([]byte, error) {
	return formatInst(b, p, id)
}

func formatInst(b []byte, p *ir.Program, id ir.ValueID) (_ []byte, err error) {
	x := p.Inst(id)

	if !tp.IsVoid(x.Type) {
		b = app(b, 0, "%s = ", local(p, id))
	}

	b = append(b, x.Op.String()...)

	switch x.Class() {
	case ir.ClassReturn:
		if len(x.Args) == 0 {
			return append(b, " void"...), nil
		}

		b = append(b, ' ')

		return typed(b, p, x.Args[0])
	case ir.ClassBranch:
		if !x.IsConditional() {
			return label(append(b, ' '), p, x.Labels[0]), nil
		}

		b = append(b, ' ')

		b, err = typed(b, p, x.Args[0])
		if err != nil {
			return nil, err
		}

		b = label(append(b, ", "...), p, x.Labels[0])
		b = label(append(b, ", "...), p, x.Labels[1])

		return b, nil
	case ir.ClassSwitch:
		b = append(b, ' ')

		b, err = typed(b, p, x.Args[0])
		if err != nil {
			return nil, err
		}

		b = label(append(b, ", "...), p, x.Labels[0])
		b = append(b, " ["...)

		for i := 1; i < len(x.Args); i++ {
			b = append(b, ' ')

			b, err = typed(b, p, x.Args[i])
			if err != nil {
				return nil, errors.Wrap(err, "case %d", i-1)
			}

			b = label(append(b, ", "...), p, x.Labels[i])
		}

		return append(b, " ]"...), nil
	case ir.ClassIndirectBr:
		b = append(b, ' ')

		b, err = typed(b, p, x.Args[0])
		if err != nil {
			return nil, err
		}

		b = append(b, ", ["...)

		for i, l := range x.Labels {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = label(b, p, l)
		}

		return append(b, ']'), nil
	case ir.ClassUnreachable:
		return b, nil
	case ir.ClassPhi:
		b = app(b, 0, " %v ", x.Type)

		for i := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, "[ "...)

			b, err = formatValue(b, p, x.Args[i])
			if err != nil {
				return nil, errors.Wrap(err, "incoming %d", i)
			}

			b = app(b, 0, ", %%%s ]", blockName(p, x.Labels[i]))
		}

		return b, nil
	case ir.ClassCall, ir.ClassInvoke:
		b = app(b, 0, " %v ", x.Type)

		b, err = formatValue(b, p, x.Callee())
		if err != nil {
			return nil, errors.Wrap(err, "callee")
		}

		b, err = operands(append(b, '('), p, x.CallArgs())
		if err != nil {
			return nil, err
		}

		b = append(b, ')')

		if x.Class() == ir.ClassInvoke && len(x.Labels) == 2 {
			b = label(append(b, " to "...), p, x.Labels[0])
			b = label(append(b, " unwind "...), p, x.Labels[1])
		}

		return b, nil
	case ir.ClassCmp:
		b = app(b, 0, " %s ", x.Pred)

		b, err = typed(b, p, x.Args[0])
		if err != nil {
			return nil, err
		}

		b = append(b, ", "...)

		return formatValue(b, p, x.Args[1])
	case ir.ClassAlloca:
		return app(b, 0, " %v", x.Alloc), nil
	case ir.ClassCast:
		b = append(b, ' ')

		b, err = typed(b, p, x.Args[0])
		if err != nil {
			return nil, err
		}

		return app(b, 0, " to %v", x.Type), nil
	}

	if x.Op == ir.OpLoad {
		b = app(b, 0, " %v,", x.Type)
	}

	return operands(append(b, ' '), p, x.Args)
}

func operands(b []byte, p *ir.Program, args []ir.ValueID) (_ []byte, err error) {
	for i, a := range args {
		if i != 0 {
			b = append(b, ", "...)
		}

		b, err = typed(b, p, a)
		if err != nil {
			return nil, errors.Wrap(err, "operand %d", i)
		}
	}

	return b, nil
}

func typed(b []byte, p *ir.Program, id ir.ValueID) ([]byte, error) {
	if id == ir.Nil {
		return append(b, "<nil>"...), nil
	}

	b = app(b, 0, "%v ", p.Values[id].ValueType())

	return formatValue(b, p, id)
}

func formatValue(b []byte, p *ir.Program, id ir.ValueID) (_ []byte, err error) {
	if id == ir.Nil {
		return append(b, "<nil>"...), nil
	}

	switch x := p.Values[id].(type) {
	case *ir.Inst, *ir.Arg:
		return append(b, local(p, id)...), nil
	case *ir.Global:
		return app(b, 0, "@%s", x.Name), nil
	case *ir.Int:
		if it, ok := x.Type.(tp.Int); ok && it.Bits == 1 {
			if x.V.IsZero() {
				return append(b, "false"...), nil
			}

			return append(b, "true"...), nil
		}

		return appendInt(b, x), nil
	case *ir.Float:
		return strconv.AppendFloat(b, x.Float64(), 'g', -1, 64), nil
	case *ir.Null:
		return append(b, "null"...), nil
	case *ir.Undef:
		return append(b, "undef"...), nil
	case *ir.Zero:
		return append(b, "zeroinitializer"...), nil
	case *ir.Array:
		return aggregate(b, p, "[", "]", x.Elems)
	case *ir.Vector:
		return aggregate(b, p, "<", ">", x.Elems)
	case *ir.Struct:
		if x.Type.Packed {
			return aggregate(b, p, "<{", "}>", x.Fields)
		}

		return aggregate(b, p, "{", "}", x.Fields)
	case *ir.Expr:
		b = append(b, x.Op.String()...)

		if x.Pred != "" {
			b = app(b, 0, " %s", x.Pred)
		}

		return aggregate(append(b, ' '), p, "(", ")", x.Args)
	case *ir.BlockAddr:
		return app(b, 0, "blockaddress(@%s, %%%s)", p.Funcs[x.Func].Name, blockName(p, x.Block)), nil
	default:
		return nil, errors.New("unsupported value: %T", x)
	}
}

// appendInt prints the bit pattern as a signed number of the type width.
func appendInt(b []byte, x *ir.Int) []byte {
	it, ok := x.Type.(tp.Int)
	if !ok || it.Bits <= 0 || it.Bits > 256 {
		return append(b, x.V.Dec()...)
	}

	var sign uint256.Int
	sign.Rsh(&x.V, uint(it.Bits-1))

	if sign.IsZero() {
		return append(b, x.V.Dec()...)
	}

	var abs uint256.Int

	if it.Bits == 256 {
		abs.Neg(&x.V)
	} else {
		abs.Lsh(uint256.NewInt(1), uint(it.Bits))
		abs.Sub(&abs, &x.V)
	}

	b = append(b, '-')

	return append(b, abs.Dec()...)
}

func aggregate(b []byte, p *ir.Program, open, close string, el []ir.ValueID) (_ []byte, err error) {
	b = append(b, open...)

	for i, id := range el {
		if i != 0 {
			b = append(b, ", "...)
		}

		b, err = typed(b, p, id)
		if err != nil {
			return nil, errors.Wrap(err, "element %d", i)
		}
	}

	return append(b, close...), nil
}

func label(b []byte, p *ir.Program, blk ir.BlockID) []byte {
	return app(b, 0, "label %%%s", blockName(p, blk))
}

func local(p *ir.Program, id ir.ValueID) string {
	if n := p.NameOf(id); n != "" {
		return "%" + n
	}

	return "%" + strconv.Itoa(int(id))
}

func blockName(p *ir.Program, blk ir.BlockID) string {
	if n := p.Blocks[blk].Name; n != "" {
		return n
	}

	return "b" + strconv.Itoa(int(blk))
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
