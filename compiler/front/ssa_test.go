package front

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/irdiff/compiler/ir"
	"github.com/slowlang/irdiff/compiler/match"
)

const demoLeft = `package demo

func Max(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func Sum(xs []int) int {
	s := 0

	for _, x := range xs {
		s += x
	}

	return s
}
`

const demoRight = `package demo

func Max(x, y int) int {
	if x > y {
		return x
	}

	return y
}

func Sum(list []int) (total int) {
	for _, v := range list {
		total += v
	}

	return total
}
`

func writeModule(t *testing.T, src string) string {
	t.Helper()

	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module demo\n\ngo 1.21\n"), 0o644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "demo.go"), []byte(src), 0o644)
	require.NoError(t, err)

	return dir
}

func TestLoadGo(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go list")
	}

	ctx := context.Background()

	dir := writeModule(t, demoLeft)

	p, err := LoadGo(ctx, dir)
	require.NoError(t, err)

	for _, name := range []string{"Max", "Sum"} {
		f := p.FuncByName(name)
		if assert.NotEqual(t, ir.NoFunc, f, name) {
			assert.False(t, p.Funcs[f].Declaration(), name)
		}
	}

	mx := p.Funcs[p.FuncByName("Max")]
	assert.Len(t, mx.Args, 2)
	assert.Len(t, mx.Blocks, 3)

	file, err := LoadGo(ctx, filepath.Join(dir, "demo.go"))
	require.NoError(t, err)

	assert.Equal(t, len(p.Funcs), len(file.Funcs))
}

func TestLoadGoRenamed(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go list")
	}

	ctx := context.Background()

	l, err := LoadGo(ctx, writeModule(t, demoLeft))
	require.NoError(t, err)

	r, err := LoadGo(ctx, writeModule(t, demoRight))
	require.NoError(t, err)

	e := match.New(l, r, match.Options{})

	err = e.Diff(ctx)
	require.NoError(t, err)

	s := e.Summarize(l.FuncByName("Max"), r.FuncByName("Max"))
	assert.True(t, s.Preserved(), "left unmatched %v, right unmatched %v", s.Left.Unmatched.Slice(), s.Right.Unmatched.Slice())
	assert.Equal(t, 3, s.Blocks)
}

func TestLoadGoErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("runs go list")
	}

	_, err := LoadGo(context.Background(), writeModule(t, "package demo\n\nfunc F() int { return undefined }\n"))
	assert.Error(t, err)
}
