package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allTokens(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func types(toks []Token) []Type {
	out := make([]Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestDottedIdentifierIsOneToken(t *testing.T) {
	toks := allTokens("pkg.a.b")
	assert.Equal(t, []Type{IDENT, EOF}, types(toks))
	assert.Equal(t, "pkg.a.b", toks[0].Literal)
}

func TestPostfixDotAfterParenIsSeparateToken(t *testing.T) {
	toks := allTokens("(x).field")
	assert.Equal(t, []Type{LPAREN, IDENT, RPAREN, DOT, IDENT, EOF}, types(toks))
}

func TestNumberLiterals(t *testing.T) {
	cases := map[string]string{
		"42":    "42",
		"3.14":  "3.14",
		"0x1F":  "31",
		"0b101": "5",
		"0o17":  "15",
	}
	for src, want := range cases {
		toks := allTokens(src)
		assert.Equal(t, NUMBER, toks[0].Type, src)
		assert.Equal(t, want, toks[0].Literal, src)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := allTokens(`"a\nbA"`)
	assert.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "a\nbA", toks[0].Literal)
}

func TestMorphOperators(t *testing.T) {
	toks := allTokens("x ~shape ~* ~?")
	assert.Equal(t, []Type{IDENT, TILDE, IDENT, STILDE, QTILDE, EOF}, types(toks))
}

func TestPipelineAndLogical(t *testing.T) {
	toks := allTokens("[a | b] && c || d")
	assert.Equal(t, []Type{LBRACKET, IDENT, PIPE, IDENT, RBRACKET, AND, IDENT, OR, IDENT, EOF}, types(toks))
}

func TestTagRefLiteral(t *testing.T) {
	toks := allTokens("#color.red")
	assert.Equal(t, TAGREF, toks[0].Type)
	assert.Equal(t, "color.red", toks[0].Literal)
}

func TestDocCommentDistinguishedFromPlain(t *testing.T) {
	toks := allTokens("//! doc\n// plain")
	assert.Equal(t, DOC, toks[0].Type)
	assert.Equal(t, COMMENT, toks[1].Type)
}

func TestSpreadOperator(t *testing.T) {
	toks := allTokens("(..p z=3)")
	assert.Equal(t, []Type{LPAREN, DOTDOT, IDENT, IDENT, ASSIGN, NUMBER, RPAREN, EOF}, types(toks))
}
