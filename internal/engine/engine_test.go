package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/codegen"
	"github.com/PeterShinners/comp-sub000/internal/fold"
	"github.com/PeterShinners/comp-sub000/internal/parser"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

func compile(t *testing.T, src string) (*codegen.Context, int) {
	t.Helper()
	p := parser.New(src)
	node, err := p.ParseExpression()
	require.NoError(t, err)
	f := fold.New(nil)
	folded := f.Fold(node)
	ctx, idx, err := codegen.Generate(folded)
	require.NoError(t, err)
	return ctx, idx
}

func run(t *testing.T, src string) value.Value {
	t.Helper()
	ctx, _ := compile(t, src)
	e := New(nil)
	v, err := e.Run(ctx, nil, nil, false)
	require.NoError(t, err)
	return v
}

// E1: 1 + 2 evaluates to 3.
func TestRunAddition(t *testing.T) {
	v := run(t, "1 + 2")
	assert.Equal(t, "3", v.String())
}

// E2: 1 / 0 evaluates to a #fail.div_zero struct, not a panic or a Go error.
func TestRunDivZeroIsFailureValue(t *testing.T) {
	v := run(t, "1 / 0")
	assert.True(t, value.IsFailure(v))
}

func TestRunStructFields(t *testing.T) {
	v := run(t, "(x=1 y=2)")
	st := v.(*value.Struct)
	x, ok := st.Get("x")
	require.True(t, ok)
	assert.Equal(t, "1", x.String())
}

func TestRunStructSpread(t *testing.T) {
	v := run(t, "(a=1 ..(b=2 c=3))")
	st := v.(*value.Struct)
	b, ok := st.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", b.String())
}

// E6: pipeline stage invocation binds the piped value to the block's
// first signature parameter. A block body is always a struct literal, so
// the result is a one-field struct wrapping the arithmetic result (§3:
// structs are the sole compound type; unwrapping is morph's job, not the
// engine's, §4.4 step 1).
func TestRunPipeline(t *testing.T) {
	ctx, _ := compile(t, "[3 |:(n)(sum=n + 1)]")
	e := New(nil)
	v, err := e.Run(ctx, nil, nil, false)
	require.NoError(t, err)
	st, ok := v.(*value.Struct)
	require.True(t, ok)
	sum, ok := st.Get("sum")
	require.True(t, ok)
	assert.Equal(t, "4", sum.String())
}

func TestRunBlockClosesOverOuterLet(t *testing.T) {
	ctx, _ := compile(t, "(!let base = 10 !let fn = :(n)(sum=n + base) result = fn(n=5))")
	e := New(nil)
	v, err := e.Run(ctx, nil, nil, false)
	require.NoError(t, err)
	st := v.(*value.Struct)
	result, ok := st.Get("result")
	require.True(t, ok)
	resultStruct := result.(*value.Struct)
	sum, ok := resultStruct.Get("sum")
	require.True(t, ok)
	assert.Equal(t, "15", sum.String())
}

func TestRunUndefinedReferenceIsMissingFailure(t *testing.T) {
	ctx, _ := compile(t, "nosuchname")
	e := New(nil)
	v, err := e.Run(ctx, nil, nil, false)
	require.NoError(t, err)
	assert.True(t, value.IsFailure(v))
}

func TestRunFieldAccess(t *testing.T) {
	v := run(t, "(x=1 y=2).y")
	assert.Equal(t, "2", v.String())
}
