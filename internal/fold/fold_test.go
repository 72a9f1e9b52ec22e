package fold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/parser"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

func foldSrc(t *testing.T, src string) *cop.Node {
	t.Helper()
	p := parser.New(src)
	node, err := p.ParseExpression()
	require.NoError(t, err)
	f := New(nil)
	return f.Fold(node)
}

// E1: x = 1 + 2 folds to 3.
func TestFoldE1Addition(t *testing.T) {
	n := foldSrc(t, "1 + 2")
	cv, ok := Const(n)
	require.True(t, ok)
	assert.Equal(t, "3", cv.String())
}

// E2: x = 1 / 0 leaves the binary node unfolded and records a diagnostic.
func TestFoldE2DivByZero(t *testing.T) {
	p := parser.New("1 / 0")
	node, err := p.ParseExpression()
	require.NoError(t, err)
	f := New(nil)
	out := f.Fold(node)
	_, ok := Const(out)
	assert.False(t, ok)
	require.Len(t, f.Diagnostics(), 1)
}

func TestFoldStructAllConstant(t *testing.T) {
	n := foldSrc(t, "(x=1 y=2)")
	cv, ok := Const(n)
	require.True(t, ok)
	st := cv.(*value.Struct)
	x, _ := st.Get("x")
	assert.Equal(t, "1", x.String())
}

func TestFoldUnaryMinus(t *testing.T) {
	n := foldSrc(t, "-5")
	cv, ok := Const(n)
	require.True(t, ok)
	assert.Equal(t, "-5", cv.String())
}

type fakeEnv struct{ values map[string]value.Value }

func (e fakeEnv) FoldReference(qualified string) (value.Value, bool) {
	v, ok := e.values[qualified]
	return v, ok
}

func TestFoldReferenceSubstitution(t *testing.T) {
	ref := cop.New(cop.TagValueReference, cop.Span{})
	ref.SetAttr("qualified", "p")
	env := fakeEnv{values: map[string]value.Value{"p": value.NewNumberFromInt64(9)}}
	f := New(env)
	out := f.Fold(ref)
	cv, ok := Const(out)
	require.True(t, ok)
	assert.Equal(t, "9", cv.String())
}
