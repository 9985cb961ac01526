package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/irdiff/compiler/format"
	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/ir/irtest"
	"github.com/slowlang/irdiff/compiler/match"
	"github.com/slowlang/irdiff/compiler/tp"
)

func TestLoadYAMLAddOne(t *testing.T) {
	ctx := context.Background()

	p, err := LoadYAML(ctx, "testdata/addone.yaml")
	require.NoError(t, err)

	assert.Equal(t, "addone", p.Name)

	b, err := format.Format(ctx, nil, p)
	require.NoError(t, err)

	want, err := format.Format(ctx, nil, irtest.AddOne("want", irtest.LeftNames))
	require.NoError(t, err)

	assert.Equal(t, string(want), string(b))
}

func TestLoadYAMLLoop(t *testing.T) {
	ctx := context.Background()

	l, err := LoadYAML(ctx, "testdata/loop.yaml")
	require.NoError(t, err)

	r := irtest.Loop("right", ".r")

	e := match.New(l, r, match.Options{})

	err = e.Diff(ctx)
	require.NoError(t, err)

	s := e.Summarize(l.FuncByName("f"), r.FuncByName("f"))
	assert.True(t, s.Preserved(), "left unmatched %v, right unmatched %v", s.Left.Unmatched.Slice(), s.Right.Unmatched.Slice())
	assert.Equal(t, 3, s.Blocks)

	sink := l.FuncByName("sink")
	require.NotEqual(t, ir.NoFunc, sink)
	assert.True(t, l.Funcs[sink].Declaration())

	call := l.Users(l.Funcs[sink].Sym)
	require.Len(t, call, 1)
	assert.True(t, tp.IsVoid(l.Inst(call[0]).Type))
}

func TestLoadYAMLConsts(t *testing.T) {
	ctx := context.Background()

	p, err := LoadYAML(ctx, "testdata/consts.yaml")
	require.NoError(t, err)

	initOf := func(name string) ir.Const {
		g := p.GlobalByName(name)
		require.NotEqual(t, ir.Nil, g, name)

		c := p.Const(p.Values[g].(*ir.Global).Init)
		require.NotNil(t, c, name)

		return c
	}

	tbl, ok := initOf("tbl").(*ir.Array)
	require.True(t, ok)
	require.Len(t, tbl.Elems, 2)
	assert.Equal(t, "4294967294", p.Const(tbl.Elems[1]).(*ir.Int).V.Dec())

	pair, ok := initOf("pair").(*ir.Struct)
	require.True(t, ok)
	assert.Equal(t, tp.I8, p.Values[pair.Fields[0]].ValueType())
	assert.Equal(t, p.GlobalByName("tbl"), pair.Fields[1])

	addr, ok := initOf("addr").(*ir.Expr)
	require.True(t, ok)
	assert.Equal(t, ir.OpPtrToInt, addr.Op)
	assert.Equal(t, tp.I64, addr.Type)

	assert.IsType(t, &ir.Zero{}, initOf("z"))
	assert.Equal(t, 0.5, initOf("half").(*ir.Float).Float64())
	assert.IsType(t, &ir.Null{}, initOf("p"))

	f := p.FuncByName("jump")
	entry := p.Blocks[p.Funcs[f].Entry()]

	sel := p.Inst(entry.Insts[0])
	assert.Equal(t, tp.Ptr{}, sel.Type)
	assert.IsType(t, &ir.BlockAddr{}, p.Values[sel.Args[1]])

	two, err := p.LookupBlock(f, "two")
	require.NoError(t, err)

	sw := p.Terminator(two)
	require.NotNil(t, sw)
	assert.Equal(t, ir.OpSwitch, sw.Op)
	assert.Equal(t, tp.I8, p.Values[sw.Args[2]].ValueType())
	assert.Len(t, p.Blocks[two].Succs, 2)
}

func TestParseYAMLErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		data string
		want string
	}{
		{"bad_yaml", "functions: [\n", ""},
		{"unknown_op", `
functions:
  - name: f
    blocks:
      - name: entry
        insts:
          - {op: frobnicate}
`, ""},
		{"unknown_local", `
functions:
  - name: f
    ret: i32
    blocks:
      - name: entry
        insts:
          - {op: ret, args: ["%nope"]}
`, ""},
		{"unknown_block", `
functions:
  - name: f
    blocks:
      - name: entry
        insts:
          - {op: br, labels: [nowhere]}
`, ""},
		{"bad_type", `
globals:
  - {name: g, type: i0x}
`, ""},
		{"untyped_literal", `
functions:
  - name: f
    blocks:
      - name: entry
        insts:
          - {op: store, args: [1, "@f"]}
`, ""},
		{"redeclared", `
globals:
  - {name: f, type: i32}
functions:
  - name: f
`, ""},
		{"add_no_args", `
functions:
  - name: f
    blocks:
      - name: entry
        insts:
          - {name: s, op: add}
`, "line 7: add: 0 operands"},
		{"br_no_labels", `
functions:
  - name: f
    blocks:
      - name: entry
        insts:
          - {op: br}
`, "line 7: br: 0 labels"},
		{"phi_short_labels", `
functions:
  - name: f
    ret: i32
    blocks:
      - name: entry
        insts:
          - {op: br, labels: [join]}
      - name: join
        insts:
          - {name: p, op: phi, type: i32, args: [0, 1], labels: [entry]}
          - {op: ret, args: ["%p"]}
`, "phi: 1 labels"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML(ctx, tc.name, []byte(tc.data))
			if tc.want == "" {
				assert.Error(t, err)
			} else {
				assert.ErrorContains(t, err, tc.want)
			}
		})
	}
}
