// Package parser builds internal/cop trees directly from a token stream,
// following the teacher's hand-written Pratt-parser idiom (prefix/infix
// function tables keyed by token type, precedence climbing) rather than
// a generated grammar or a separate AST-then-lower step (§4.1, C5).
package parser

import (
	"strconv"

	"github.com/PeterShinners/comp-sub000/internal/comperr"
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/lexer"
)

// precedence levels, lowest to highest.
const (
	_ int = iota
	lowest
	fallbackPrec
	orPrec
	andPrec
	equality
	comparison
	morphPrec
	additive
	multiplicative
	unary
	postfix
)

var precedences = map[lexer.Type]int{
	lexer.FALLBACK: fallbackPrec,
	lexer.OR:      orPrec,
	lexer.AND:     andPrec,
	lexer.EQ:      equality,
	lexer.NEQ:     equality,
	lexer.LT:      comparison,
	lexer.GT:      comparison,
	lexer.LE:      comparison,
	lexer.GE:      comparison,
	lexer.TILDE:   morphPrec,
	lexer.STILDE:  morphPrec,
	lexer.QTILDE:  morphPrec,
	lexer.PLUS:    additive,
	lexer.MINUS:   additive,
	lexer.STAR:    multiplicative,
	lexer.SLASH:   multiplicative,
	lexer.LPAREN:  postfix,
	lexer.LBRACKET: postfix,
	lexer.DOT:     postfix,
}

type prefixFn func() (*cop.Node, error)
type infixFn func(left *cop.Node) (*cop.Node, error)

// Parser consumes a lexer.Lexer and emits *cop.Node trees. It keeps a
// two-token lookahead window (cur/peek), the minimum a Pratt parser
// needs.
type Parser struct {
	l *lexer.Lexer

	cur  lexer.Token
	peek lexer.Token

	prefixFns map[lexer.Type]prefixFn
	infixFns  map[lexer.Type]infixFn
}

// New builds a Parser positioned at the first non-trivia token of src.
func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}
	p.prefixFns = map[lexer.Type]prefixFn{
		lexer.IDENT:  p.parseIdentifier,
		lexer.NUMBER: p.parseNumber,
		lexer.STRING: p.parseText,
		lexer.TAGREF: p.parseTagRef,
		lexer.MINUS:  p.parseUnary,
		lexer.LPAREN: p.parseStructLiteral,
		lexer.LBRACKET: p.parsePipeline,
		lexer.COLON:  p.parseBlockLiteral,
	}
	p.infixFns = map[lexer.Type]infixFn{
		lexer.PLUS:    p.parseBinaryMath,
		lexer.MINUS:   p.parseBinaryMath,
		lexer.STAR:    p.parseBinaryMath,
		lexer.SLASH:   p.parseBinaryMath,
		lexer.EQ:      p.parseCompare,
		lexer.NEQ:     p.parseCompare,
		lexer.LT:      p.parseCompare,
		lexer.GT:      p.parseCompare,
		lexer.LE:      p.parseCompare,
		lexer.GE:      p.parseCompare,
		lexer.AND:     p.parseLogical,
		lexer.OR:      p.parseLogical,
		lexer.FALLBACK: p.parseFallback,
		lexer.TILDE:   p.parseMorph,
		lexer.STILDE:  p.parseMorph,
		lexer.QTILDE:  p.parseMorph,
		lexer.LPAREN:  p.parseInvocation,
		lexer.LBRACKET: p.parseIndex,
		lexer.DOT:     p.parseAccess,
	}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	for {
		p.peek = p.l.Next()
		if p.peek.Type != lexer.COMMENT && p.peek.Type != lexer.DOC {
			break
		}
	}
}

func (p *Parser) span() cop.Span {
	pos := cop.Pos{Line: p.cur.Line, Column: p.cur.Column}
	return cop.Span{Start: pos, End: pos}
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return lowest
}

func (p *Parser) expect(t lexer.Type) error {
	if p.cur.Type != t {
		return comperr.Newf(comperr.PAR001UnexpectedToken, p.posString(),
			"expected %s, got %s", t, p.cur.Type)
	}
	p.advance()
	return nil
}

func (p *Parser) posString() string {
	return "line " + strconv.Itoa(p.cur.Line) + " col " + strconv.Itoa(p.cur.Column)
}

// ParseModule parses a whole source file: a sequence of top-level
// statements (§4.1, §4.7 step 1: extract definitions), skipping doc/plain
// comments which the independent scan pass (internal/parser/scan.go)
// handles on its own.
func (p *Parser) ParseModule() (*cop.Node, error) {
	root := cop.New(cop.TagModDefine, cop.Span{})
	for p.cur.Type != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			root.AddPositional(stmt)
		}
	}
	return root, nil
}

func (p *Parser) parseStatement() (*cop.Node, error) {
	if p.cur.Type == lexer.BANG {
		return p.parseImport()
	}
	if p.cur.Type == lexer.IDENT && p.peek.Type == lexer.ASSIGN {
		return p.parseNamefield()
	}
	// bare expression statement (rare at module scope, but some modules
	// use it for startup-only side effects)
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// parseImport handles "!import name (source_type compiler)" (§6).
func (p *Parser) parseImport() (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.BANG); err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.IDENT || p.cur.Literal != "import" {
		return nil, comperr.New(comperr.PAR003InvalidImport, p.posString(), "expected 'import' after '!'")
	}
	p.advance()
	if p.cur.Type != lexer.IDENT {
		return nil, comperr.New(comperr.PAR003InvalidImport, p.posString(), "expected import name")
	}
	name := p.cur.Literal
	p.advance()
	args, err := p.parseStructLiteral()
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagModImport, span)
	node.SetAttr("name", name)
	node.AddPositional(args)
	return node, nil
}

// parseNamefield handles "name = expr" (mod.namefield, §4.1).
func (p *Parser) parseNamefield() (*cop.Node, error) {
	span := p.span()
	name := p.cur.Literal
	p.advance() // IDENT
	if err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagModNamefield, span)
	node.SetAttr("name", name)
	node.AddPositional(value)
	return node, nil
}

// ParseExpression parses a single expression, exported for callers (and
// tests) that only need one COP subtree rather than a whole module.
func (p *Parser) ParseExpression() (*cop.Node, error) {
	return p.parseExpression(lowest)
}

func (p *Parser) parseExpression(prec int) (*cop.Node, error) {
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		return nil, comperr.Newf(comperr.PAR001UnexpectedToken, p.posString(),
			"no prefix parse for %s", p.cur.Type)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	// Prefix parsers leave cur on the token after their expression, and
	// infix parsers start with cur on their operator.
	for prec < precedences[p.cur.Type] {
		infix, ok := p.infixFns[p.cur.Type]
		if !ok {
			return left, nil
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseIdentifier() (*cop.Node, error) {
	span := p.span()
	node := cop.New(cop.TagValueIdentifier, span)
	node.SetAttr("name", p.cur.Literal)
	p.advance()
	return node, nil
}

func (p *Parser) parseNumber() (*cop.Node, error) {
	span := p.span()
	node := cop.New(cop.TagValueNumber, span)
	node.SetAttr("literal", p.cur.Literal)
	p.advance()
	return node, nil
}

func (p *Parser) parseText() (*cop.Node, error) {
	span := p.span()
	node := cop.New(cop.TagValueText, span)
	node.SetAttr("literal", p.cur.Literal)
	p.advance()
	return node, nil
}

func (p *Parser) parseTagRef() (*cop.Node, error) {
	span := p.span()
	node := cop.New(cop.TagValueTagLiteral, span)
	node.SetAttr("path", p.cur.Literal)
	p.advance()
	return node, nil
}

func (p *Parser) parseUnary() (*cop.Node, error) {
	span := p.span()
	op := p.cur.Literal
	p.advance()
	operand, err := p.parseExpression(unary)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueMathUnary, span)
	node.SetAttr("op", op)
	node.AddPositional(operand)
	return node, nil
}

func (p *Parser) parseBinaryMath(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	op := p.cur.Literal
	prec := precedences[p.cur.Type]
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueMathBinary, span)
	node.SetAttr("op", op)
	node.AddPositional(left)
	node.AddPositional(right)
	return node, nil
}

func (p *Parser) parseCompare(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	op := p.cur.Literal
	prec := precedences[p.cur.Type]
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueCompare, span)
	node.SetAttr("op", op)
	node.AddPositional(left)
	node.AddPositional(right)
	return node, nil
}

func (p *Parser) parseLogical(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	op := p.cur.Literal
	prec := precedences[p.cur.Type]
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueLogical, span)
	node.SetAttr("op", op)
	node.AddPositional(left)
	node.AddPositional(right)
	return node, nil
}

// parseFallback handles "left ?? right" (§4.6, §7): recovers from a
// failing left by falling back to right, the one construct in this
// grammar that requests allow_failures for one operand (left) and not
// the other, per the original_source FallbackOp it is grounded on.
func (p *Parser) parseFallback(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	prec := precedences[p.cur.Type]
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueFallback, span)
	node.AddPositional(left)
	node.AddPositional(right)
	return node, nil
}

// parseMorph handles the "value ~shape" / "~*" / "~?" operators (§4.4):
// an infix operator whose right operand is the shape expression.
func (p *Parser) parseMorph(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	mode := morphMode(p.cur.Type)
	prec := precedences[p.cur.Type]
	p.advance()
	shapeExpr, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueMorph, span)
	node.SetAttr("mode", mode)
	node.AddPositional(left)
	node.AddPositional(shapeExpr)
	return node, nil
}

func morphMode(t lexer.Type) string {
	switch t {
	case lexer.STILDE:
		return "strong"
	case lexer.QTILDE:
		return "weak"
	default:
		return "normal"
	}
}

// parseInvocation treats a struct literal directly following another
// expression as a function call (juxtaposition application): f(x=1).
func (p *Parser) parseInvocation(callee *cop.Node) (*cop.Node, error) {
	span := p.span()
	args, err := p.parseStructLiteral()
	if err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueInvoke, span)
	node.AddPositional(callee)
	node.AddPositional(args)
	return node, nil
}

// parseIndex handles postfix "expr[expr]" indexing/computed access.
func (p *Parser) parseIndex(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.LBRACKET); err != nil {
		return nil, err
	}
	idx, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValueIndex, span)
	node.AddPositional(left)
	node.AddPositional(idx)
	return node, nil
}

// parseAccess handles postfix ".field" access after a non-identifier
// expression, e.g. "(x).field" or "f(x).y" (§4.1 grammar).
func (p *Parser) parseAccess(left *cop.Node) (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.DOT); err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.IDENT {
		return nil, comperr.New(comperr.PAR001UnexpectedToken, p.posString(), "expected field name after '.'")
	}
	field := p.cur.Literal
	p.advance()
	node := cop.New(cop.TagValueAccess, span)
	node.SetAttr("field", field)
	node.AddPositional(left)
	return node, nil
}

// parseStructLiteral parses "(" field* ")". Fields are whitespace
// separated (no comma required, though a comma is accepted): a named
// field "name=expr", a positional field "expr", a spread "..expr", or a
// "!let name = expr" local binding that never becomes a struct field
// (§4.5 BuildStruct), or an "@name" decorator marker (struct.decorator),
// which adds no field to the built struct.
func (p *Parser) parseStructLiteral() (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	node := cop.New(cop.TagStructDefine, span)
	for p.cur.Type != lexer.RPAREN {
		if p.cur.Type == lexer.EOF {
			return nil, comperr.New(comperr.PAR002MissingDelimiter, p.posString(), "unterminated struct literal")
		}
		if p.cur.Type == lexer.COMMA {
			p.advance()
			continue
		}
		field, err := p.parseStructField()
		if err != nil {
			return nil, err
		}
		node.AddPositional(field)
	}
	if err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseStructField() (*cop.Node, error) {
	span := p.span()

	if p.cur.Type == lexer.DOTDOT {
		p.advance()
		expr, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		spread := cop.New(cop.TagStructSpread, span)
		spread.AddPositional(expr)
		return spread, nil
	}

	if p.cur.Type == lexer.AT {
		p.advance()
		if p.cur.Type != lexer.IDENT {
			return nil, comperr.New(comperr.PAR001UnexpectedToken, p.posString(), "expected decorator name after '@'")
		}
		name := p.cur.Literal
		p.advance()
		dec := cop.New(cop.TagStructDecorator, span)
		dec.SetAttr("name", name)
		return dec, nil
	}

	if p.cur.Type == lexer.BANG && p.peek.Type == lexer.IDENT && p.peek.Literal == "let" {
		p.advance() // '!'
		p.advance() // 'let'
		if p.cur.Type != lexer.IDENT {
			return nil, comperr.New(comperr.PAR001UnexpectedToken, p.posString(), "expected name after '!let'")
		}
		name := p.cur.Literal
		p.advance()
		if err := p.expect(lexer.ASSIGN); err != nil {
			return nil, err
		}
		value, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		let := cop.New(cop.TagStructLet, span)
		let.SetAttr("name", name)
		let.AddPositional(value)
		return let, nil
	}

	// Named field: "name=expr" or "name ~shape" style field constraint in
	// a signature struct (treated uniformly; the resolver/codegen only
	// care about the name + value child).
	if p.cur.Type == lexer.IDENT && p.peek.Type == lexer.ASSIGN {
		name := p.cur.Literal
		p.advance()
		p.advance() // '='
		value, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		field := cop.New(cop.TagStructField, span)
		field.SetAttr("name", name)
		field.AddPositional(value)
		return field, nil
	}

	if p.cur.Type == lexer.IDENT {
		// Either a bare positional identifier field, or a signature-style
		// "name ~Shape" field constraint (no '=' default).
		name := p.cur.Literal
		namePos := p.span()
		p.advance()
		if p.cur.Type == lexer.TILDE || p.cur.Type == lexer.STILDE || p.cur.Type == lexer.QTILDE {
			p.advance() // '~', '~*' or '~?'
			shapeExpr, err := p.parseExpression(morphPrec - 1)
			if err != nil {
				return nil, err
			}
			field := cop.New(cop.TagStructField, span)
			field.SetAttr("name", name)
			field.SetAttr("constraint", shapeExpr)
			return field, nil
		}
		ident := cop.New(cop.TagValueIdentifier, namePos)
		ident.SetAttr("name", name)
		expr, err := p.continueExpression(ident, lowest)
		if err != nil {
			return nil, err
		}
		field := cop.New(cop.TagStructField, span)
		field.AddPositional(expr)
		return field, nil
	}

	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	field := cop.New(cop.TagStructField, span)
	field.AddPositional(expr)
	return field, nil
}

// continueExpression resumes Pratt climbing from an already-parsed
// primary (used when parseStructField must decide, after the fact, that
// an IDENT it consumed was a plain expression rather than a "name="
// field or a "name ~Shape" constraint).
func (p *Parser) continueExpression(left *cop.Node, prec int) (*cop.Node, error) {
	var err error
	for prec < precedences[p.cur.Type] {
		infix, ok := p.infixFns[p.cur.Type]
		if !ok {
			return left, nil
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// parsePipeline handles "[ stage | stage | ... ]" (§4.1).
func (p *Parser) parsePipeline() (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.LBRACKET); err != nil {
		return nil, err
	}
	node := cop.New(cop.TagValuePipeline, span)
	for {
		stage, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		node.AddPositional(stage)
		if p.cur.Type == lexer.PIPE {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return node, nil
}

// parseBlockLiteral handles ":(sig)(body)" and its decorator sugar
// ":wrap1 wrap2 (sig)(body)", desugared at parse time into nested
// wrap(...) invocations (§4.1): "wrap(wrap1, wrap(wrap2, :(sig)(body)))".
func (p *Parser) parseBlockLiteral() (*cop.Node, error) {
	span := p.span()
	if err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}

	var decorators []string
	pure := false
	for p.cur.Type == lexer.IDENT {
		if p.cur.Literal == "pure" {
			// "pure" is a reserved decorator name recognized directly at
			// parse time rather than desugared into a wrap(...) invocation:
			// it marks the block eligible for internal/pure's compile-time
			// evaluation (§4.8), not a runtime wrapper call.
			pure = true
			p.advance()
			continue
		}
		decorators = append(decorators, p.cur.Literal)
		p.advance()
	}

	sig, err := p.parseStructLiteral()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStructLiteral()
	if err != nil {
		return nil, err
	}

	block := cop.New(cop.TagValueBlock, span)
	block.AddNamed("sig", sig)
	block.AddNamed("body", body)
	if pure {
		block.SetAttr("pure", true)
	}

	var result *cop.Node = block
	for i := len(decorators) - 1; i >= 0; i-- {
		wrapName := cop.New(cop.TagValueIdentifier, span)
		wrapName.SetAttr("name", "wrap")
		decoratorRef := cop.New(cop.TagValueIdentifier, span)
		decoratorRef.SetAttr("name", decorators[i])

		args := cop.New(cop.TagStructDefine, span)
		argDecorator := cop.New(cop.TagStructField, span)
		argDecorator.AddPositional(decoratorRef)
		argBlock := cop.New(cop.TagStructField, span)
		argBlock.AddPositional(result)
		args.AddPositional(argDecorator)
		args.AddPositional(argBlock)

		invoke := cop.New(cop.TagValueInvoke, span)
		invoke.AddPositional(wrapName)
		invoke.AddPositional(args)
		result = invoke
	}
	return result, nil
}
