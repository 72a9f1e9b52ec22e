package parser

import (
	"github.com/PeterShinners/comp-sub000/internal/lexer"
)

// ScanResult is the cheap, never-failing pass over a source file that the
// module loader runs before the real parse (§4.7 step 1, mirroring the
// teacher's loader doing a lightweight pre-pass over import statements
// before full compilation). It only needs enough structure to discover a
// module's import graph and its package-level documentation; anything it
// can't make sense of is simply dropped rather than raised as an error.
type ScanResult struct {
	Imports []ImportRef
	Pkg     map[string]string // pkg.name assignments, raw source text of the value
	Docs    []string          // //! doc comment bodies, in source order
}

// ImportRef is one "!import name (...)" statement found during the scan.
type ImportRef struct {
	Name string
	Raw  string // literal text of the argument tokens, space-separated
}

// Scan tokenizes src and heuristically extracts imports, pkg.*
// assignments, and doc comments. It never returns an error: a malformed
// construct is skipped and scanning resumes at the next token. The
// module loader takes only Docs from the result; it reads imports from
// the full parse.
func Scan(src string) ScanResult {
	l := lexer.New(src)
	var res ScanResult

	tok := l.Next()
	for tok.Type != lexer.EOF {
		switch {
		case tok.Type == lexer.DOC:
			res.Docs = append(res.Docs, tok.Literal)
			tok = l.Next()

		case tok.Type == lexer.BANG:
			next := l.Next()
			if next.Type == lexer.IDENT && next.Literal == "import" {
				nameTok := l.Next()
				if nameTok.Type == lexer.IDENT {
					raw, last := scanBalancedParen(l)
					res.Imports = append(res.Imports, ImportRef{Name: nameTok.Literal, Raw: raw})
					tok = last
					continue
				}
			}
			tok = next

		case tok.Type == lexer.IDENT && isPkgPrefixed(tok.Literal):
			eq := l.Next()
			if eq.Type == lexer.ASSIGN {
				raw, last := scanValueText(l)
				if res.Pkg == nil {
					res.Pkg = make(map[string]string)
				}
				res.Pkg[tok.Literal] = raw
				tok = last
				continue
			}
			tok = eq

		default:
			tok = l.Next()
		}
	}
	return res
}

func isPkgPrefixed(name string) bool {
	return len(name) > 4 && name[:4] == "pkg."
}

// scanBalancedParen consumes tokens from the first LPAREN to its
// matching RPAREN (ignoring nesting depth mismatches by just counting
// parens), returning a crude textual reconstruction and the token
// following the closing paren. Used only to recover the raw import
// argument text for a later, real parse; never fails.
func scanBalancedParen(l *lexer.Lexer) (string, lexer.Token) {
	depth := 0
	var raw []byte
	tok := l.Next()
	for {
		if tok.Type == lexer.LPAREN {
			depth++
		}
		if tok.Type == lexer.RPAREN {
			depth--
		}
		raw = append(raw, []byte(tok.Literal)...)
		raw = append(raw, ' ')
		next := l.Next()
		if depth <= 0 || next.Type == lexer.EOF {
			return string(raw), next
		}
		tok = next
	}
}

// scanValueText consumes tokens up to (but not including) the next
// top-level statement boundary, used to recover a pkg.* assignment's raw
// source text without fully parsing its expression grammar.
func scanValueText(l *lexer.Lexer) (string, lexer.Token) {
	var raw []byte
	depth := 0
	tok := l.Next()
	for {
		switch tok.Type {
		case lexer.LPAREN, lexer.LBRACKET:
			depth++
		case lexer.RPAREN, lexer.RBRACKET:
			depth--
		}
		if depth < 0 || tok.Type == lexer.EOF {
			return string(raw), tok
		}
		raw = append(raw, []byte(tok.Literal)...)
		raw = append(raw, ' ')
		next := l.Next()
		if depth == 0 && (next.Type == lexer.IDENT || next.Type == lexer.BANG || next.Type == lexer.DOC) {
			return string(raw), next
		}
		if next.Type == lexer.EOF {
			return string(raw), next
		}
		tok = next
	}
}
