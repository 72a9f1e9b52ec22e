// Package codegen lowers a resolved COP tree for one definition into a
// linear, SSA-style instruction list (§4.5, C10): every instruction
// refers to earlier instructions by index, never by name, so the
// execution engine never needs a symbol table for temporaries.
package codegen

import (
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Op identifies an instruction's operation (§4.5's opcode table).
type Op int

const (
	OpConst Op = iota
	OpLoadVar
	OpStoreVar
	OpBinOp
	OpUnOp
	OpInvoke
	OpPipeInvoke
	OpBuildStruct
	OpBuildBlock
	OpFallback
)

// StructFieldInstr is one field of a BuildStruct instruction: either a
// named or positional slot sourced from an earlier register, or a spread
// of another register's struct entries (expanded by the engine at
// runtime, not at codegen time, since the spread source may not be
// constant).
type StructFieldInstr struct {
	Name     string // "" for positional/unnamed
	IsSpread bool
	Src      int
}

// Instr is one SSA-style instruction. Only the fields relevant to Op are
// populated; the rest are zero values.
type Instr struct {
	Op Op

	Const value.Value // OpConst

	Name string // OpLoadVar / OpStoreVar
	Src  int    // OpStoreVar: register holding the value to bind

	BinOp        string // OpBinOp / OpUnOp: "+","-","*","/","==","<",...,"morph:normal","access","index"
	Left, Right  int    // OpBinOp operand registers
	Operand      int    // OpUnOp operand register

	Callee int // OpInvoke / OpPipeInvoke
	Args   int // OpInvoke / OpPipeInvoke
	Piped  int // OpPipeInvoke

	Fields []StructFieldInstr // OpBuildStruct

	Sig  *cop.Node // OpBuildBlock: the unresolved signature node
	Body *Context   // OpBuildBlock: nested instruction context for the block body
	Pure bool       // OpBuildBlock: block literal carried the "pure" decorator (§4.8)

	FallbackLeft  *Context // OpFallback: nested context evaluated with allow_failures
	FallbackRight *Context // OpFallback: nested context evaluated normally, only on left's failure
}

// Context is the instruction list being built for one definition or one
// nested block body. Blocks get a fresh Context (§4.5: "Blocks generate
// their own nested instruction list in a fresh codegen context").
type Context struct {
	Instrs []Instr
}

func newContext() *Context { return &Context{} }

// BodyKind implements value.CompiledBody, letting a *Context be stored
// on a value.Block without internal/value importing this package.
func (c *Context) BodyKind() string { return "codegen.Context" }

func (c *Context) emit(instr Instr) int {
	c.Instrs = append(c.Instrs, instr)
	return len(c.Instrs) - 1
}

// Generate lowers node into ctx, returning the index of the register
// holding its result.
func Generate(node *cop.Node) (*Context, int, error) {
	ctx := newContext()
	idx, err := ctx.generate(node)
	if err != nil {
		return nil, 0, err
	}
	return ctx, idx, nil
}

func (c *Context) generate(n *cop.Node) (int, error) {
	switch n.Tag {
	case cop.TagValueConstant:
		return c.ensureConst(n), nil
	case cop.TagValueIdentifier:
		name, _ := n.Attr("name")
		return c.emit(Instr{Op: OpLoadVar, Name: name.(string)}), nil
	case cop.TagValueReference:
		qualified, _ := n.Attr("qualified")
		return c.emit(Instr{Op: OpLoadVar, Name: qualified.(string)}), nil
	case cop.TagValueMathUnary:
		return c.generateUnary(n)
	case cop.TagValueMathBinary, cop.TagValueCompare, cop.TagValueLogical:
		return c.generateBinary(n)
	case cop.TagValueMorph:
		return c.generateMorph(n)
	case cop.TagValueFallback:
		return c.generateFallback(n)
	case cop.TagValueAccess:
		return c.generateAccess(n)
	case cop.TagValueIndex:
		return c.generateIndex(n)
	case cop.TagStructDefine:
		return c.generateStruct(n)
	case cop.TagValueBlock:
		return c.generateBlock(n)
	case cop.TagValueInvoke:
		return c.generateInvoke(n)
	case cop.TagValuePipeline:
		return c.generatePipeline(n)
	default:
		return c.emit(Instr{Op: OpLoadVar, Name: string(n.Tag)}), nil
	}
}

// ensureConst materializes a constant into a register, the literal
// translation of the teacher-idiom's "_build_value_ensure_register":
// constants in expression position are always wrapped in a Const before
// use.
func (c *Context) ensureConst(n *cop.Node) int {
	v, _ := n.Attr("value")
	rv, _ := v.(value.Value)
	return c.emit(Instr{Op: OpConst, Const: rv})
}

func (c *Context) generateUnary(n *cop.Node) (int, error) {
	op, _ := n.Attr("op")
	operand, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpUnOp, BinOp: op.(string), Operand: operand}), nil
}

func (c *Context) generateBinary(n *cop.Node) (int, error) {
	op, _ := n.Attr("op")
	left, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	right, err := c.generate(n.Positional[1])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpBinOp, BinOp: op.(string), Left: left, Right: right}), nil
}

func (c *Context) generateMorph(n *cop.Node) (int, error) {
	mode, _ := n.Attr("mode")
	left, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	right, err := c.generate(n.Positional[1])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpBinOp, BinOp: "morph:" + mode.(string), Left: left, Right: right}), nil
}

// generateFallback builds two fresh nested Contexts, one per side of
// "left ?? right" (§4.6, §7), mirroring generateBlock's nested-Context
// pattern: the engine needs to run left under allow_failures and only
// run right at all if left turns out to be a failure, which a flat,
// eagerly-evaluated instruction list (every other binary op) cannot
// express.
func (c *Context) generateFallback(n *cop.Node) (int, error) {
	leftCtx := newContext()
	if _, err := leftCtx.generate(n.Positional[0]); err != nil {
		return 0, err
	}
	rightCtx := newContext()
	if _, err := rightCtx.generate(n.Positional[1]); err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpFallback, FallbackLeft: leftCtx, FallbackRight: rightCtx}), nil
}

func (c *Context) generateAccess(n *cop.Node) (int, error) {
	field, _ := n.Attr("field")
	operand, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpUnOp, BinOp: "access:" + field.(string), Operand: operand}), nil
}

func (c *Context) generateIndex(n *cop.Node) (int, error) {
	left, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	right, err := c.generate(n.Positional[1])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpBinOp, BinOp: "index", Left: left, Right: right}), nil
}

// generateStruct emits a BuildStruct instruction: fields are sourced in
// declaration order, !let bindings are lifted out as inline StoreVars,
// struct.decorator markers are dropped (they contribute no field and
// emit no instruction), and spreads are left for the engine to expand at
// runtime.
func (c *Context) generateStruct(n *cop.Node) (int, error) {
	var fields []StructFieldInstr

	for _, child := range n.Positional {
		switch child.Tag {
		case cop.TagStructField:
			name, hasName := child.Attr("name")
			src, err := c.generate(child.Positional[0])
			if err != nil {
				return 0, err
			}
			f := StructFieldInstr{Src: src}
			if hasName {
				f.Name = name.(string)
			}
			fields = append(fields, f)
		case cop.TagStructSpread:
			src, err := c.generate(child.Positional[0])
			if err != nil {
				return 0, err
			}
			fields = append(fields, StructFieldInstr{IsSpread: true, Src: src})
		case cop.TagStructLet:
			// Bound immediately via StoreVar, not deferred to BuildStruct
			// time, so sibling fields generated later in this same loop
			// can already see the binding when the engine runs this
			// instruction list linearly (§4.5).
			name, _ := child.Attr("name")
			src, err := c.generate(child.Positional[0])
			if err != nil {
				return 0, err
			}
			c.emit(Instr{Op: OpStoreVar, Name: name.(string), Src: src})
		case cop.TagStructDecorator:
			// contributes no field and emits no instruction.
		}
	}
	return c.emit(Instr{Op: OpBuildStruct, Fields: fields}), nil
}

// generateBlock builds a fresh nested Context for the block body (§4.5)
// and emits a single BuildBlock instruction in the outer context.
func (c *Context) generateBlock(n *cop.Node) (int, error) {
	sig, _ := n.NamedChild("sig")
	body, hasBody := n.NamedChild("body")

	nested := newContext()
	if hasBody {
		if _, err := nested.generate(body); err != nil {
			return 0, err
		}
	}
	pure, _ := n.Attr("pure")
	isPure, _ := pure.(bool)
	return c.emit(Instr{Op: OpBuildBlock, Sig: sig, Body: nested, Pure: isPure}), nil
}

func (c *Context) generateInvoke(n *cop.Node) (int, error) {
	callee, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	args, err := c.generate(n.Positional[1])
	if err != nil {
		return 0, err
	}
	return c.emit(Instr{Op: OpInvoke, Callee: callee, Args: args}), nil
}

// generatePipeline chains PipeInvoke instructions: the first stage is
// the piped input; each subsequent stage supplies the callee (and, if
// it is itself an invocation, its args struct — otherwise an empty args
// struct is synthesized).
func (c *Context) generatePipeline(n *cop.Node) (int, error) {
	if len(n.Positional) == 0 {
		return c.emit(Instr{Op: OpBuildStruct}), nil
	}
	piped, err := c.generate(n.Positional[0])
	if err != nil {
		return 0, err
	}
	for _, stage := range n.Positional[1:] {
		var callee, args int
		if stage.Tag == cop.TagValueInvoke {
			callee, err = c.generate(stage.Positional[0])
			if err != nil {
				return 0, err
			}
			args, err = c.generate(stage.Positional[1])
			if err != nil {
				return 0, err
			}
		} else {
			callee, err = c.generate(stage)
			if err != nil {
				return 0, err
			}
			args = c.emit(Instr{Op: OpBuildStruct})
		}
		piped = c.emit(Instr{Op: OpPipeInvoke, Callee: callee, Piped: piped, Args: args})
	}
	return piped, nil
}
