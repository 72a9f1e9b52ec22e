// Package engine executes the linear instruction lists produced by
// internal/codegen (§4.6, C11). It is an iterative register-file
// interpreter: one Context's instructions run in a single loop, so chained
// pipeline/invoke stages iterate rather than recurse and long pipelines
// never grow the host stack. Invoking a nested Block runs its body in a
// fresh Frame through one Go call (CallBlock -> Run) per invocation, so
// host stack depth follows block-invocation nesting (no goroutines, no
// channels, explicit state instead of generators).
package engine

import (
	"fmt"

	"github.com/PeterShinners/comp-sub000/internal/codegen"
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/tagset"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Env resolves a qualified module-level name to its value, for LoadVar
// instructions that escape every enclosing Frame's local scope. Package
// internal/module implements this against its Definitions table.
type Env interface {
	LoadGlobal(qualified string) (value.Value, bool)
	// Invoke dispatches a call to a callee that is not a *value.Block
	// (e.g. a builtin), returning ok=false if callee is not callable
	// this way. Builtins live outside internal/engine so this package
	// stays free of any specific builtin-function catalogue.
	Invoke(callee value.Value, arg *value.Struct) (value.Value, bool)
}

// Engine runs codegen.Context instruction lists against a shared Env.
type Engine struct {
	env Env
}

// New builds an Engine. env may be nil for tests that only exercise
// closures and arithmetic (every global lookup then fails).
func New(env Env) *Engine {
	return &Engine{env: env}
}

// Frame is one activation record: a register file sized to its Context's
// instruction count, a local-binding map for !let/input/arg names, and a
// link to the defining scope for closures (§3: Block captures "body +
// defining frame"). Frame implements value.DefiningScope.
type Frame struct {
	ctx           *codegen.Context
	regs          []value.Value
	locals        map[string]value.Value
	parent        value.DefiningScope
	engine        *Engine
	allowFailures bool
}

// Lookup implements value.DefiningScope: locals first, then the
// enclosing (defining) scope, then the module-level Env (§4.6's scope
// chain: local -> arg/in -> defining frame -> mod).
func (f *Frame) Lookup(name string) (value.Value, bool) {
	if v, ok := f.locals[name]; ok {
		return v, true
	}
	if f.parent != nil {
		if v, ok := f.parent.Lookup(name); ok {
			return v, true
		}
	}
	if f.engine != nil && f.engine.env != nil {
		if v, ok := f.engine.env.LoadGlobal(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Run executes ctx to completion and returns the value of its final
// instruction's register, the usual convention for an expression context
// (codegen.Generate reports that index to its caller; top-level module
// definitions and pipeline stages always end on the value they produce).
func (e *Engine) Run(ctx *codegen.Context, parent value.DefiningScope, locals map[string]value.Value, allowFailures bool) (value.Value, error) {
	f := &Frame{
		ctx:           ctx,
		regs:          make([]value.Value, len(ctx.Instrs)),
		locals:        cloneLocals(locals),
		parent:        parent,
		engine:        e,
		allowFailures: allowFailures,
	}
	for i, instr := range ctx.Instrs {
		v, err := f.step(instr)
		if err != nil {
			return nil, err
		}
		f.regs[i] = v
		if isCallBoundary(instr.Op) && value.IsFailure(v) && !allowFailures {
			// A child compute's failure reaches the nearest frame entered
			// with allow_failures. This frame didn't request it, so its
			// own execution stops here and the failure keeps propagating
			// to whichever ancestor frame did (§4.6's generator-close
			// semantics, translated to this register machine: closing the
			// generator early is returning before the remaining
			// instructions run).
			return v, nil
		}
	}
	if len(ctx.Instrs) == 0 {
		return value.Empty(), nil
	}
	return f.regs[len(f.regs)-1], nil
}

// isCallBoundary reports whether instr.Op is one of the call-crossing
// instructions the generator-scheduler's failure propagation rule (§4.6)
// applies to: a child compute's result becomes visible to this frame only
// at an invocation boundary, never mid-expression (arithmetic/compare/
// morph ops already self-check IsFailure and short-circuit at their own
// computation point, which is a different, narrower mechanism).
func isCallBoundary(op codegen.Op) bool {
	return op == codegen.OpInvoke || op == codegen.OpPipeInvoke
}

func cloneLocals(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// step evaluates one instruction, given that every register it can
// reference by index has already been populated (codegen only ever
// refers backward, §4.5).
func (f *Frame) step(instr codegen.Instr) (value.Value, error) {
	switch instr.Op {
	case codegen.OpConst:
		return instr.Const, nil

	case codegen.OpLoadVar:
		if v, ok := f.Lookup(instr.Name); ok {
			return v, nil
		}
		return value.NewFailure(tagset.FailMissing, "undefined reference: "+instr.Name, nil), nil

	case codegen.OpStoreVar:
		v := f.regs[instr.Src]
		f.locals[instr.Name] = v
		return v, nil

	case codegen.OpUnOp:
		return f.evalUnOp(instr)

	case codegen.OpBinOp:
		return f.evalBinOp(instr)

	case codegen.OpBuildStruct:
		return f.evalBuildStruct(instr)

	case codegen.OpBuildBlock:
		return f.evalBuildBlock(instr), nil

	case codegen.OpInvoke:
		return f.evalInvoke(f.regs[instr.Callee], f.regs[instr.Args])

	case codegen.OpPipeInvoke:
		return f.evalPipeInvoke(instr)

	case codegen.OpFallback:
		return f.evalFallback(instr)

	default:
		return nil, fmt.Errorf("engine: unhandled op %v", instr.Op)
	}
}

func (f *Frame) evalUnOp(instr codegen.Instr) (value.Value, error) {
	operand := f.regs[instr.Operand]
	switch {
	case instr.BinOp == "+":
		return operand, nil
	case instr.BinOp == "-":
		n, ok := operand.(value.Number)
		if !ok {
			return typeFailure("unary - applied to non-number"), nil
		}
		return n.Neg(), nil
	case instr.BinOp == "!":
		b, ok := operand.(value.TagRef)
		if !ok || !value.IsBool(b) {
			return typeFailure("unary ! applied to non-bool"), nil
		}
		return value.Bool(!value.IsTrue(b)), nil
	case hasPrefix(instr.BinOp, "access:"):
		field := instr.BinOp[len("access:"):]
		st, ok := operand.(*value.Struct)
		if !ok {
			return typeFailure("." + field + " applied to non-struct"), nil
		}
		v, ok := st.Get(field)
		if !ok {
			return value.NewFailure(tagset.FailNotFound, "no field "+field, nil), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("engine: unhandled unary op %q", instr.BinOp)
	}
}

func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }

func (f *Frame) evalBinOp(instr codegen.Instr) (value.Value, error) {
	left := f.regs[instr.Left]
	right := f.regs[instr.Right]

	if value.IsFailure(left) {
		return left, nil
	}
	if value.IsFailure(right) {
		return right, nil
	}

	switch {
	case instr.BinOp == "+":
		return numOp(left, right, value.Number.Add)
	case instr.BinOp == "-":
		return numOp(left, right, value.Number.Sub)
	case instr.BinOp == "*":
		return numOp(left, right, value.Number.Mul)
	case instr.BinOp == "/":
		ln, lok := left.(value.Number)
		rn, rok := right.(value.Number)
		if !lok || !rok {
			return typeFailure("/ applied to non-numbers"), nil
		}
		q, ok := ln.Quo(rn)
		if !ok {
			return value.NewFailure(tagset.FailDivZero, "division by zero", nil), nil
		}
		return q, nil
	case instr.BinOp == "==":
		return value.Bool(equalValues(left, right)), nil
	case instr.BinOp == "!=":
		return value.Bool(!equalValues(left, right)), nil
	case instr.BinOp == "<", instr.BinOp == "<=", instr.BinOp == ">", instr.BinOp == ">=":
		return compareValues(instr.BinOp, left, right)
	case instr.BinOp == "&&":
		return value.Bool(value.IsTrue(left) && value.IsTrue(right)), nil
	case instr.BinOp == "||":
		return value.Bool(value.IsTrue(left) || value.IsTrue(right)), nil
	case instr.BinOp == "index":
		return f.evalIndex(left, right), nil
	case hasPrefix(instr.BinOp, "morph:"):
		return f.evalMorph(instr.BinOp[len("morph:"):], left, right), nil
	default:
		return nil, fmt.Errorf("engine: unhandled binary op %q", instr.BinOp)
	}
}

func numOp(l, r value.Value, op func(value.Number, value.Number) value.Number) (value.Value, error) {
	ln, lok := l.(value.Number)
	rn, rok := r.(value.Number)
	if !lok || !rok {
		return typeFailure("arithmetic applied to non-numbers"), nil
	}
	return op(ln, rn), nil
}

func typeFailure(msg string) value.Value {
	return value.NewFailure(tagset.FailType, msg, nil)
}

func equalValues(l, r value.Value) bool {
	switch lv := l.(type) {
	case value.Number:
		rv, ok := r.(value.Number)
		return ok && lv.Cmp(rv) == 0
	case value.Text:
		rv, ok := r.(value.Text)
		return ok && lv == rv
	case value.TagRef:
		rv, ok := r.(value.TagRef)
		return ok && lv.Equal(rv)
	default:
		return false
	}
}

func compareValues(op string, l, r value.Value) (value.Value, error) {
	ln, lok := l.(value.Number)
	rn, rok := r.(value.Number)
	if !lok || !rok {
		return typeFailure("comparison applied to non-numbers"), nil
	}
	c := ln.Cmp(rn)
	switch op {
	case "<":
		return value.Bool(c < 0), nil
	case "<=":
		return value.Bool(c <= 0), nil
	case ">":
		return value.Bool(c > 0), nil
	case ">=":
		return value.Bool(c >= 0), nil
	}
	return nil, fmt.Errorf("engine: unreachable comparison op %q", op)
}

func (f *Frame) evalIndex(left, right value.Value) value.Value {
	st, ok := left.(*value.Struct)
	if !ok {
		return typeFailure("index applied to non-struct")
	}
	switch idx := right.(type) {
	case value.Number:
		n, err := idx.D.Int64()
		positional := st.Positional()
		if err != nil || n < 0 || int(n) >= len(positional) {
			return value.NewFailure(tagset.FailNotFound, "index out of range", nil)
		}
		return positional[n]
	case value.Text:
		v, ok := st.Get(string(idx))
		if !ok {
			return value.NewFailure(tagset.FailNotFound, "no field "+string(idx), nil)
		}
		return v
	default:
		return typeFailure("index by unsupported key type")
	}
}

func (f *Frame) evalBuildStruct(instr codegen.Instr) (value.Value, error) {
	out := value.Empty()
	for _, fld := range instr.Fields {
		src := f.regs[fld.Src]
		if fld.IsSpread {
			st, ok := src.(*value.Struct)
			if !ok {
				return typeFailure("spread of non-struct"), nil
			}
			out = out.AppendAll(st)
			continue
		}
		if fld.Name != "" {
			out = out.Append(value.NamedKey(fld.Name), src)
		} else {
			out = out.Append(value.NewUnnamedKey(), src)
		}
	}
	return out, nil
}

func (f *Frame) evalBuildBlock(instr codegen.Instr) value.Value {
	return &value.Block{
		Params:   sigParamNames(instr.Sig),
		Body:     instr.Body,
		Defining: f,
		Pure:     instr.Pure,
	}
}

// sigParamNames reads a block's ordered parameter names off its
// (unresolved) signature node: "name" fields declare a bare parameter,
// "name ~Shape" fields declare one with a constraint the engine ignores
// (shape checking happens through morph, not here). A nil sig (a block
// taking no parameters) yields an empty list.
func sigParamNames(sig *cop.Node) []string {
	if sig == nil {
		return nil
	}
	var names []string
	for _, child := range sig.Positional {
		if child.Tag != cop.TagStructField {
			continue
		}
		if name, ok := child.Attr("name"); ok {
			names = append(names, name.(string))
			continue
		}
		if len(child.Positional) == 1 && child.Positional[0].Tag == cop.TagValueIdentifier {
			if name, ok := child.Positional[0].Attr("name"); ok {
				names = append(names, name.(string))
			}
		}
	}
	return names
}

// evalInvoke dispatches callee(args): a *value.Block runs its captured
// body in a fresh Frame closing over its Defining scope; anything else
// is handed to Env.Invoke (builtins).
func (f *Frame) evalInvoke(callee, args value.Value) (value.Value, error) {
	if value.IsFailure(callee) {
		return callee, nil
	}
	argStruct, _ := args.(*value.Struct)
	if argStruct == nil {
		argStruct = value.Empty()
	}

	blk, ok := callee.(*value.Block)
	if !ok {
		if f.engine != nil {
			if v, ok := f.engine.Invoke(callee, argStruct); ok {
				return v, nil
			}
		}
		return typeFailure("invocation of non-callable value"), nil
	}
	return f.invokeBlock(blk, nil, argStruct)
}

// evalPipeInvoke dispatches piped | callee(args): for a *value.Block the
// piped value is bound to the block's first parameter and args fill the
// remaining parameters (see CallBlock); any other callee is handed to
// Env.Invoke with the piped value and args merged into one struct.
func (f *Frame) evalPipeInvoke(instr codegen.Instr) (value.Value, error) {
	piped := f.regs[instr.Piped]
	if value.IsFailure(piped) {
		return piped, nil
	}
	callee := f.regs[instr.Callee]
	if value.IsFailure(callee) {
		return callee, nil
	}
	argStruct, _ := f.regs[instr.Args].(*value.Struct)
	if argStruct == nil {
		argStruct = value.Empty()
	}

	blk, ok := callee.(*value.Block)
	if !ok {
		if f.engine != nil {
			merged := value.Wrap(piped).AppendAll(argStruct)
			if v, ok := f.engine.Invoke(callee, merged); ok {
				return v, nil
			}
		}
		return typeFailure("pipeline stage is non-callable"), nil
	}
	return f.invokeBlock(blk, piped, argStruct)
}

// invokeBlock runs blk's compiled body in a fresh Frame through
// Engine.CallBlock, one Go call into Run per invocation (§9's stackless requirement is about
// avoiding unbounded depth from chained pipeline/invoke stages, not about
// eliminating every native call — deep *pipelines* iterate, they don't
// recurse).
func (f *Frame) invokeBlock(blk *value.Block, input value.Value, args *value.Struct) (value.Value, error) {
	return f.engine.CallBlock(blk, input, args, f.allowFailures)
}

// evalFallback runs "left ?? right" (§4.6, §7), grounded on
// original_source's FallbackOp: left runs as its own nested Run call with
// allowFailures=true, so this call — not some distant ancestor frame — is
// the one that actually receives left's failure via its return value
// instead of having it abort the call early. If left isn't a failure, its
// value is the whole expression's result. Otherwise right runs normally
// (allowFailures=false): a failure inside right is not caught here, and
// propagates past this fallback like any other.
func (f *Frame) evalFallback(instr codegen.Instr) (value.Value, error) {
	left, err := f.engine.Run(instr.FallbackLeft, f, nil, true)
	if err != nil {
		return nil, err
	}
	if !value.IsFailure(left) {
		return left, nil
	}
	return f.engine.Run(instr.FallbackRight, f, nil, false)
}

// evalMorph applies §4.4's morph algorithm at runtime. The engine only
// knows the mode; it has no way to resolve a shape expression register
// into a concrete *shape.Shape (internal/shape is a higher layer that
// depends on internal/value, not the reverse), so morph dispatch is
// delegated back to Env, which internal/module now wires to
// internal/morph via Module.Morph.
func (f *Frame) evalMorph(mode string, left, right value.Value) value.Value {
	if f.engine == nil {
		return typeFailure("morph unavailable: no environment")
	}
	v, ok := f.engine.morph(mode, left, right)
	if !ok {
		return value.NewFailure(tagset.FailType, "morph failed", nil)
	}
	return v
}

// Invoke exposes Env.Invoke for callers outside a running Frame (e.g.
// internal/pure's compile-time constant folding of pure block calls).
func (e *Engine) Invoke(callee value.Value, args *value.Struct) (value.Value, bool) {
	if e.env == nil {
		return nil, false
	}
	return e.env.Invoke(callee, args)
}

// CallBlock runs blk from outside any already-running Frame: the same
// parameter binding invokeBlock does, exposed for a caller (internal/pure,
// at module-build time) that has a *value.Block in hand but no Frame of
// its own.
func (e *Engine) CallBlock(blk *value.Block, input value.Value, args *value.Struct, allowFailures bool) (value.Value, error) {
	body, ok := blk.Body.(*codegen.Context)
	if !ok || body == nil {
		return typeFailure("block has no compiled body"), nil
	}
	locals := map[string]value.Value{}
	idx := 0
	if input != nil && len(blk.Params) > 0 {
		locals[blk.Params[0]] = input
		idx = 1
	}
	if args == nil {
		args = value.Empty()
	}
	argPositional := args.Positional()
	posIdx := 0
	for ; idx < len(blk.Params); idx++ {
		name := blk.Params[idx]
		if v, ok := args.Get(name); ok {
			locals[name] = v
			continue
		}
		if posIdx < len(argPositional) {
			locals[name] = argPositional[posIdx]
			posIdx++
		}
	}
	return e.Run(body, blk.Defining, locals, allowFailures)
}

// MorphEnv is the optional extension an Env may also implement to serve
// runtime `~`/`~*`/`~?` operators. Kept separate from Env so tests that
// never exercise morph can supply a minimal Env.
type MorphEnv interface {
	Morph(mode string, v value.Value, shape value.Value) (value.Value, bool)
}

func (e *Engine) morph(mode string, v, shapeVal value.Value) (value.Value, bool) {
	me, ok := e.env.(MorphEnv)
	if !ok {
		return nil, false
	}
	return me.Morph(mode, v, shapeVal)
}
