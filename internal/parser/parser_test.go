package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/cop"
)

func parseExpr(t *testing.T, src string) *cop.Node {
	t.Helper()
	p := New(src)
	node, err := p.parseExpression(lowest)
	require.NoError(t, err)
	return node
}

func TestParseNumberAndText(t *testing.T) {
	n := parseExpr(t, "42")
	assert.Equal(t, cop.TagValueNumber, n.Tag)
	lit, _ := n.Attr("literal")
	assert.Equal(t, "42", lit)

	s := parseExpr(t, `"hi"`)
	assert.Equal(t, cop.TagValueText, s.Tag)
}

func TestParseStructLiteralNamedAndPositional(t *testing.T) {
	// E3-style struct literal: p = (x=1 y=2)
	n := parseExpr(t, "(x=1 y=2)")
	assert.Equal(t, cop.TagStructDefine, n.Tag)
	require.Len(t, n.Positional, 2)
	name, _ := n.Positional[0].Attr("name")
	assert.Equal(t, "x", name)
}

func TestParseStructSpread(t *testing.T) {
	n := parseExpr(t, "(..p z=3)")
	require.Len(t, n.Positional, 2)
	assert.Equal(t, cop.TagStructSpread, n.Positional[0].Tag)
	assert.Equal(t, cop.TagStructField, n.Positional[1].Tag)
}

func TestParsePipeline(t *testing.T) {
	// E6: [3 |add (n=4) |double]
	n := parseExpr(t, "[3 |add (n=4) |double]")
	assert.Equal(t, cop.TagValuePipeline, n.Tag)
	require.Len(t, n.Positional, 3)
	assert.Equal(t, cop.TagValueNumber, n.Positional[0].Tag)
	assert.Equal(t, cop.TagValueInvoke, n.Positional[1].Tag)
	assert.Equal(t, cop.TagValueIdentifier, n.Positional[2].Tag)
}

func TestParseMorphOperator(t *testing.T) {
	n := parseExpr(t, "v ~PersonShape")
	assert.Equal(t, cop.TagValueMorph, n.Tag)
	mode, _ := n.Attr("mode")
	assert.Equal(t, "normal", mode)
}

func TestParseStrongWeakMorph(t *testing.T) {
	strong := parseExpr(t, "v ~* PersonShape")
	mode, _ := strong.Attr("mode")
	assert.Equal(t, "strong", mode)

	weak := parseExpr(t, "v ~? PersonShape")
	mode, _ = weak.Attr("mode")
	assert.Equal(t, "weak", mode)
}

func TestParseBinaryPrecedence(t *testing.T) {
	// 1 + 2 * 3 should group as 1 + (2 * 3)
	n := parseExpr(t, "1 + 2 * 3")
	assert.Equal(t, cop.TagValueMathBinary, n.Tag)
	op, _ := n.Attr("op")
	assert.Equal(t, "+", op)
	right := n.Positional[1]
	assert.Equal(t, cop.TagValueMathBinary, right.Tag)
	rop, _ := right.Attr("op")
	assert.Equal(t, "*", rop)
}

func TestParseBlockLiteral(t *testing.T) {
	n := parseExpr(t, ":(x y)(x + y)")
	assert.Equal(t, cop.TagValueBlock, n.Tag)
	sig, ok := n.NamedChild("sig")
	require.True(t, ok)
	assert.Equal(t, cop.TagStructDefine, sig.Tag)
}

func TestParseBlockDecoratorSugar(t *testing.T) {
	// :wrap1 wrap2 (sig)(body) desugars to wrap(wrap1, wrap(wrap2, block))
	n := parseExpr(t, ":memoize log (x)(x)")
	require.Equal(t, cop.TagValueInvoke, n.Tag)
	callee := n.Positional[0]
	name, _ := callee.Attr("name")
	assert.Equal(t, "wrap", name)

	args := n.Positional[1]
	decoratorField := args.Positional[0]
	decoratorIdent := decoratorField.Positional[0]
	decoratorName, _ := decoratorIdent.Attr("name")
	assert.Equal(t, "memoize", decoratorName)

	inner := args.Positional[1].Positional[0]
	assert.Equal(t, cop.TagValueInvoke, inner.Tag)
}

func TestParseModuleNamefield(t *testing.T) {
	p := New("p = (x=1 y=2)\nq = (..p z=3)\n")
	mod, err := p.ParseModule()
	require.NoError(t, err)
	require.Len(t, mod.Positional, 2)
	assert.Equal(t, cop.TagModNamefield, mod.Positional[0].Tag)
	name, _ := mod.Positional[0].Attr("name")
	assert.Equal(t, "p", name)
}

func TestParseImportStatement(t *testing.T) {
	p := New(`!import utils (stdlib "text")`)
	mod, err := p.ParseModule()
	require.NoError(t, err)
	require.Len(t, mod.Positional, 1)
	assert.Equal(t, cop.TagModImport, mod.Positional[0].Tag)
	name, _ := mod.Positional[0].Attr("name")
	assert.Equal(t, "utils", name)
}

func TestScanNeverFailsOnGarbage(t *testing.T) {
	res := Scan("!import (((( broken\npkg.name = \nnot valid comp !!! @@@")
	_ = res // must not panic
}

func TestScanFindsImportsAndDocs(t *testing.T) {
	res := Scan("//! a doc comment\n!import utils (stdlib \"text\")\n")
	require.Len(t, res.Docs, 1)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "utils", res.Imports[0].Name)
}
