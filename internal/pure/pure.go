// Package pure implements the compile-time pure evaluator of §4.8 (C13):
// it drives C8's folded COP through C10 (codegen) and C11 (engine) a
// second time, substituting call sites whose callee is a pure block and
// whose arguments are already constant with the computed result.
package pure

import (
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/engine"
	"github.com/PeterShinners/comp-sub000/internal/fold"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Diagnostic is a non-fatal pure-evaluation failure: it prevents one call
// site from being rewritten but the original COP remains evaluable at
// runtime (§4.8's closing paragraph).
type Diagnostic struct {
	Span    string
	Message string
}

// Env resolves a qualified name to its compiled *value.Block, answering
// false for anything not a pure definition (internal/module implements
// this against its Definitions table; a plain, non-pure block or a
// not-yet-constant definition both answer false).
type Env interface {
	PureBlock(qualified string) (*value.Block, bool)
}

// Evaluator drives one module's worth of pure-evaluation rewrites,
// sharing one engine.Engine across every call site so closures captured
// by a pure block's Defining scope stay consistent.
type Evaluator struct {
	env   Env
	eng   *engine.Engine
	diags []Diagnostic
}

// New builds an Evaluator. eng is expected to be wired to the same Env
// internal/module uses for LoadGlobal, so a pure block's body can still
// reference other module-level constants while it runs.
func New(env Env, eng *engine.Engine) *Evaluator {
	return &Evaluator{env: env, eng: eng}
}

// Diagnostics returns every non-fatal failure recorded so far.
func (e *Evaluator) Diagnostics() []Diagnostic { return e.diags }

// Eval rewrites n bottom-up per §4.8's three rules, returning a rebuilt
// node (new kids, same tag) or n itself if nothing changed.
func (e *Evaluator) Eval(n *cop.Node) *cop.Node {
	if n == nil {
		return nil
	}
	switch n.Tag {
	case cop.TagValueConstant:
		return n
	case cop.TagValueReference:
		return e.evalReference(n)
	case cop.TagValueInvoke:
		return e.evalInvoke(n)
	case cop.TagValuePipeline:
		return e.evalPipeline(n)
	default:
		return e.evalGeneric(n)
	}
}

// evalReference implements §4.8 bullet 1: a bare reference to a pure,
// zero-argument callable becomes its computed result (an implicit
// nullary invocation) rather than the block value itself.
func (e *Evaluator) evalReference(n *cop.Node) *cop.Node {
	qAttr, _ := n.Attr("qualified")
	qualified, _ := qAttr.(string)
	blk, ok := e.env.PureBlock(qualified)
	if !ok || len(blk.Params) != 0 {
		return n
	}
	result, err := e.eng.CallBlock(blk, nil, nil, false)
	if err != nil || value.IsFailure(result) {
		e.diags = append(e.diags, Diagnostic{Span: n.Span.String(),
			Message: "pure evaluation of " + qualified + " failed"})
		return n
	}
	return constantNode(n.Span, result)
}

// evalInvoke implements §4.8 bullet 2 (`value.binding{pure_ref,
// constant_args}` in spec.md's terms is this repo's ordinary
// value.invoke node once its callee and args have both folded to
// constants — this repo's resolver/codegen never produce a distinct
// value.binding node, so invoke-with-constant-args is where that rule
// is grounded; see DESIGN.md).
func (e *Evaluator) evalInvoke(n *cop.Node) *cop.Node {
	if len(n.Positional) != 2 {
		return e.evalGeneric(n)
	}
	callee := e.Eval(n.Positional[0])
	args := e.Eval(n.Positional[1])
	rebuilt := rebuildBinary(n, callee, args)

	blk, argStruct, ok := e.pureCallTarget(callee, args)
	if !ok {
		return rebuilt
	}
	result, err := e.eng.CallBlock(blk, nil, argStruct, false)
	if err != nil || value.IsFailure(result) {
		e.diags = append(e.diags, Diagnostic{Span: n.Span.String(), Message: "pure invocation failed"})
		return rebuilt
	}
	return constantNode(n.Span, result)
}

// pureCallTarget reports whether callee is a pure *value.Block (a
// constant, or a value.reference that Env resolves to one) and args a
// constant struct, the two preconditions §4.8 requires before a call
// site can be substituted.
func (e *Evaluator) pureCallTarget(callee, args *cop.Node) (*value.Block, *value.Struct, bool) {
	var blk *value.Block
	if callee.Tag == cop.TagValueReference {
		qAttr, _ := callee.Attr("qualified")
		qualified, _ := qAttr.(string)
		blk, _ = e.env.PureBlock(qualified)
	} else if cv, ok := fold.Const(callee); ok {
		blk, _ = cv.(*value.Block)
	}
	if blk == nil || !blk.Pure {
		return nil, nil, false
	}
	av, ok := fold.Const(args)
	if !ok {
		return nil, nil, false
	}
	argStruct, ok := av.(*value.Struct)
	if !ok {
		return nil, nil, false
	}
	return blk, argStruct, true
}

// evalPipeline implements §4.8 bullet 3: evaluate the maximal constant
// prefix of pure stages, leaving the remainder (now seeded by a single
// value.constant) unchanged.
func (e *Evaluator) evalPipeline(n *cop.Node) *cop.Node {
	if len(n.Positional) == 0 {
		return n
	}
	stages := make([]*cop.Node, len(n.Positional))
	changed := false
	for i, s := range n.Positional {
		stages[i] = e.Eval(s)
		if stages[i] != s {
			changed = true
		}
	}

	acc, ok := fold.Const(stages[0])
	i := 1
	for ok && i < len(stages) {
		stage := stages[i]
		var calleeNode, argsNode *cop.Node
		if stage.Tag == cop.TagValueInvoke && len(stage.Positional) == 2 {
			calleeNode, argsNode = stage.Positional[0], stage.Positional[1]
		} else {
			calleeNode = stage
		}
		blk, argStruct, okTarget := e.pipelineStageTarget(calleeNode, argsNode)
		if !okTarget {
			break
		}
		result, err := e.eng.CallBlock(blk, acc, argStruct, false)
		if err != nil || value.IsFailure(result) {
			e.diags = append(e.diags, Diagnostic{Span: stage.Span.String(), Message: "pure pipeline stage failed"})
			break
		}
		acc = result
		i++
	}

	if i == 1 {
		if !changed {
			return n
		}
		clone := n.Clone()
		clone.Positional = stages
		return clone
	}
	if i == len(stages) {
		return constantNode(n.Span, acc)
	}
	clone := n.Clone()
	rest := append([]*cop.Node{constantNode(n.Span, acc)}, stages[i:]...)
	clone.Positional = rest
	return clone
}

func (e *Evaluator) pipelineStageTarget(calleeNode, argsNode *cop.Node) (*value.Block, *value.Struct, bool) {
	cv, ok := fold.Const(calleeNode)
	if !ok {
		return nil, nil, false
	}
	blk, ok := cv.(*value.Block)
	if !ok || !blk.Pure {
		return nil, nil, false
	}
	if argsNode == nil {
		return blk, value.Empty(), true
	}
	av, ok := fold.Const(argsNode)
	if !ok {
		return nil, nil, false
	}
	argStruct, ok := av.(*value.Struct)
	if !ok {
		return nil, nil, false
	}
	return blk, argStruct, true
}

func (e *Evaluator) evalGeneric(n *cop.Node) *cop.Node {
	changed := false

	newPositional := make([]*cop.Node, len(n.Positional))
	for i, c := range n.Positional {
		rc := e.Eval(c)
		newPositional[i] = rc
		if rc != c {
			changed = true
		}
	}
	newNamed := make([]cop.NamedChild, len(n.Named))
	for i, nc := range n.Named {
		rc := e.Eval(nc.Node)
		newNamed[i] = cop.NamedChild{Name: nc.Name, Node: rc}
		if rc != nc.Node {
			changed = true
		}
	}
	if !changed {
		return n
	}
	clone := n.Clone()
	clone.Positional = newPositional
	clone.Named = newNamed
	return clone
}

func rebuildBinary(n, left, right *cop.Node) *cop.Node {
	if len(n.Positional) == 2 && left == n.Positional[0] && right == n.Positional[1] {
		return n
	}
	clone := n.Clone()
	clone.Positional = []*cop.Node{left, right}
	return clone
}

func constantNode(span cop.Span, v value.Value) *cop.Node {
	n := cop.New(cop.TagValueConstant, span)
	n.SetAttr("value", v)
	return n
}
