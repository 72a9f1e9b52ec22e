package pure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/codegen"
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/engine"
	"github.com/PeterShinners/comp-sub000/internal/fold"
	"github.com/PeterShinners/comp-sub000/internal/parser"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// fakeEnv implements both pure.Env and engine.Env against a fixed table of
// pre-compiled pure blocks, standing in for internal/module in isolation.
type fakeEnv struct {
	blocks map[string]*value.Block
}

func (f *fakeEnv) PureBlock(qualified string) (*value.Block, bool) {
	b, ok := f.blocks[qualified]
	return b, ok
}

func (f *fakeEnv) LoadGlobal(qualified string) (value.Value, bool) {
	b, ok := f.blocks[qualified]
	return b, ok
}

func (f *fakeEnv) Invoke(callee value.Value, args *value.Struct) (value.Value, bool) {
	return nil, false
}

func foldExpr(t *testing.T, src string) *cop.Node {
	t.Helper()
	p := parser.New(src)
	node, err := p.ParseExpression()
	require.NoError(t, err)
	return fold.New(nil).Fold(node)
}

func compileBlock(t *testing.T, src string) *value.Block {
	t.Helper()
	ctx, _, err := codegen.Generate(foldExpr(t, src))
	require.NoError(t, err)
	v, err := engine.New(nil).Run(ctx, nil, nil, false)
	require.NoError(t, err)
	blk, ok := v.(*value.Block)
	require.True(t, ok)
	return blk
}

func referenceNode(qualified string) *cop.Node {
	n := cop.New(cop.TagValueReference, cop.Span{})
	n.SetAttr("qualified", qualified)
	return n
}

func TestEvalReferenceNullaryPureInvocation(t *testing.T) {
	blk := compileBlock(t, ":pure ()(result=7)")
	env := &fakeEnv{blocks: map[string]*value.Block{"seven": blk}}
	ev := New(env, engine.New(env))

	out := ev.Eval(referenceNode("seven"))
	v, ok := fold.Const(out)
	require.True(t, ok)
	s, ok := v.(*value.Struct)
	require.True(t, ok)
	got, ok := s.Get("result")
	require.True(t, ok)
	assert.Equal(t, "7", got.String())
}

func TestEvalInvokeWithConstantArgsSubstitutes(t *testing.T) {
	blk := compileBlock(t, ":pure (n)(result = n * 2)")
	env := &fakeEnv{blocks: map[string]*value.Block{"double": blk}}
	ev := New(env, engine.New(env))

	invoke := cop.New(cop.TagValueInvoke, cop.Span{})
	invoke.AddPositional(referenceNode("double"))
	invoke.AddPositional(foldExpr(t, "(n=5)"))

	out := ev.Eval(invoke)
	require.Equal(t, cop.TagValueConstant, out.Tag)
	v, ok := fold.Const(out)
	require.True(t, ok)
	s, ok := v.(*value.Struct)
	require.True(t, ok)
	got, _ := s.Get("result")
	assert.Equal(t, "10", got.String())
}

func TestEvalInvokeLeavesNonPureCalleeAlone(t *testing.T) {
	blk := compileBlock(t, ":(n)(result = n * 2)") // no "pure" decorator
	env := &fakeEnv{blocks: map[string]*value.Block{"double": blk}}
	ev := New(env, engine.New(env))

	invoke := cop.New(cop.TagValueInvoke, cop.Span{})
	invoke.AddPositional(referenceNode("double"))
	invoke.AddPositional(foldExpr(t, "(n=5)"))

	out := ev.Eval(invoke)
	assert.Equal(t, cop.TagValueInvoke, out.Tag)
}

func TestEvalPipelineFoldsPurePrefix(t *testing.T) {
	addBlk := compileBlock(t, ":pure (n y)(result = n + y)")
	doubleBlk := compileBlock(t, ":pure (n)(result = n * 2)")
	env := &fakeEnv{blocks: map[string]*value.Block{"add": addBlk, "double": doubleBlk}}
	ev := New(env, engine.New(env))

	invokeAdd := cop.New(cop.TagValueInvoke, cop.Span{})
	invokeAdd.AddPositional(referenceNode("add"))
	invokeAdd.AddPositional(foldExpr(t, "(y=4)"))

	pipeline := cop.New(cop.TagValuePipeline, cop.Span{})
	pipeline.AddPositional(foldExpr(t, "3"))
	pipeline.AddPositional(invokeAdd)
	pipeline.AddPositional(referenceNode("double"))

	out := ev.Eval(pipeline)
	require.Equal(t, cop.TagValueConstant, out.Tag)
	v, ok := fold.Const(out)
	require.True(t, ok)
	num, ok := v.(value.Number)
	require.True(t, ok)
	assert.Equal(t, "14", num.String())
}
