package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/fold"
	"github.com/PeterShinners/comp-sub000/internal/parser"
)

func generate(t *testing.T, src string) (*Context, int) {
	t.Helper()
	p := parser.New(src)
	node, err := p.ParseExpression()
	require.NoError(t, err)
	f := fold.New(nil)
	folded := f.Fold(node)
	ctx, idx, err := Generate(folded)
	require.NoError(t, err)
	return ctx, idx
}

func TestGenerateConstant(t *testing.T) {
	ctx, idx := generate(t, "1 + 2")
	assert.Equal(t, OpConst, ctx.Instrs[idx].Op)
}

func TestGenerateStructFields(t *testing.T) {
	ctx, idx := generate(t, "(x=1 y=2)")
	// struct folds fully to a constant, so it's just a Const register too.
	assert.Equal(t, OpConst, ctx.Instrs[idx].Op)
}

func TestGenerateUnfoldedStructEmitsBuildStruct(t *testing.T) {
	p := parser.New("(x=1 y=unboundref)")
	node, err := p.ParseExpression()
	require.NoError(t, err)
	f := fold.New(nil)
	folded := f.Fold(node)
	ctx, idx, err := Generate(folded)
	require.NoError(t, err)
	assert.Equal(t, OpBuildStruct, ctx.Instrs[idx].Op)
}

func TestGeneratePipeline(t *testing.T) {
	p := parser.New("[3 |add (n=4) |double]")
	node, err := p.ParseExpression()
	require.NoError(t, err)
	ctx, idx, err := Generate(node)
	require.NoError(t, err)
	assert.Equal(t, OpPipeInvoke, ctx.Instrs[idx].Op)
	last := ctx.Instrs[idx]
	assert.Equal(t, OpPipeInvoke, ctx.Instrs[last.Piped].Op)
}

func TestGenerateBlockUsesNestedContext(t *testing.T) {
	p := parser.New(":(x y)(x + y)")
	node, err := p.ParseExpression()
	require.NoError(t, err)
	ctx, idx, err := Generate(node)
	require.NoError(t, err)
	instr := ctx.Instrs[idx]
	require.Equal(t, OpBuildBlock, instr.Op)
	require.NotNil(t, instr.Body)
	assert.Greater(t, len(instr.Body.Instrs), 0)
}
