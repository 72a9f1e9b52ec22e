// Package fold implements the constant-folding pass of §4.3 (C8):
// literals, unary/binary arithmetic, struct construction from constant
// fields, and reference substitution, producing value.constant nodes
// wherever a subtree reduces to a known runtime value.Value.
package fold

import (
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/morph"
	"github.com/PeterShinners/comp-sub000/internal/shape"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Diagnostic is a non-fatal folding failure (e.g. division by zero):
// recorded for later reporting rather than raised as a Go error, per
// §4.3's "left as a reference failure ... recorded for later reporting".
type Diagnostic struct {
	Span    string
	Message string
}

// Env resolves a value.reference node's qualified name to its folded
// constant, if already known. It is implemented by internal/module,
// which owns the "currently folding" cycle-detection set and the
// definition registry (§4.3's cycle handling is a module-level concern,
// not a per-tree one: the folder only needs a yes/no answer per name).
type Env interface {
	FoldReference(qualified string) (value.Value, bool)
}

// Folder drives cop_fold over one definition's resolved tree.
type Folder struct {
	env   Env
	diags []Diagnostic
}

// New builds a Folder against env.
func New(env Env) *Folder {
	return &Folder{env: env}
}

// Diagnostics returns every non-fatal folding failure recorded so far.
func (f *Folder) Diagnostics() []Diagnostic { return f.diags }

// Fold rewrites n bottom-up per the rules of §4.3, returning a
// value.constant node wherever the subtree reduces to a runtime value,
// or a rebuilt node (new kids, same tag) if any child changed without
// the whole node becoming constant, or n itself if nothing changed.
func (f *Folder) Fold(n *cop.Node) *cop.Node {
	if n == nil {
		return nil
	}
	switch n.Tag {
	case cop.TagValueText:
		return f.foldText(n)
	case cop.TagValueNumber:
		return f.foldNumber(n)
	case cop.TagValueMathUnary:
		return f.foldUnary(n)
	case cop.TagValueMathBinary:
		return f.foldBinary(n)
	case cop.TagStructDefine:
		return f.foldStruct(n)
	case cop.TagValueReference:
		return f.foldReference(n)
	case cop.TagValueFallback:
		return f.foldFallback(n)
	case cop.TagValueMorph:
		return f.foldMorph(n)
	default:
		return f.foldGeneric(n)
	}
}

// Const returns the value.constant node's carried value.Value, or
// (nil, false) if n is not a value.constant.
func Const(n *cop.Node) (value.Value, bool) {
	if n == nil || n.Tag != cop.TagValueConstant {
		return nil, false
	}
	v, _ := n.Attr("value")
	rv, ok := v.(value.Value)
	return rv, ok
}

func constantNode(span cop.Span, v value.Value) *cop.Node {
	n := cop.New(cop.TagValueConstant, span)
	n.SetAttr("value", v)
	return n
}

func (f *Folder) foldText(n *cop.Node) *cop.Node {
	lit, _ := n.Attr("literal")
	s, _ := lit.(string)
	return constantNode(n.Span, value.Text(s))
}

func (f *Folder) foldNumber(n *cop.Node) *cop.Node {
	lit, _ := n.Attr("literal")
	s, _ := lit.(string)
	num, err := value.ParseNumber(s)
	if err != nil {
		return n // malformed numeric literal: leave for the parser's own diagnostics
	}
	return constantNode(n.Span, num)
}

func (f *Folder) foldUnary(n *cop.Node) *cop.Node {
	if len(n.Positional) != 1 {
		return n
	}
	operand := f.Fold(n.Positional[0])
	opAttr, _ := n.Attr("op")
	op, _ := opAttr.(string)

	cv, ok := Const(operand)
	if !ok {
		return rebuildIfChanged(n, []*cop.Node{operand}, nil)
	}
	switch op {
	case "+":
		return constantNode(n.Span, cv) // unary + is a no-op (§4.3)
	case "-":
		if num, ok := cv.(value.Number); ok {
			return constantNode(n.Span, num.Neg())
		}
	}
	return rebuildIfChanged(n, []*cop.Node{operand}, nil)
}

func (f *Folder) foldBinary(n *cop.Node) *cop.Node {
	if len(n.Positional) != 2 {
		return n
	}
	left := f.Fold(n.Positional[0])
	right := f.Fold(n.Positional[1])
	opAttr, _ := n.Attr("op")
	op, _ := opAttr.(string)

	lv, lok := Const(left)
	rv, rok := Const(right)
	if !lok || !rok {
		return rebuildIfChanged(n, []*cop.Node{left, right}, nil)
	}
	ln, lIsNum := lv.(value.Number)
	rn, rIsNum := rv.(value.Number)
	if !lIsNum || !rIsNum {
		return rebuildIfChanged(n, []*cop.Node{left, right}, nil)
	}

	switch op {
	case "+":
		return constantNode(n.Span, ln.Add(rn))
	case "-":
		return constantNode(n.Span, ln.Sub(rn))
	case "*":
		return constantNode(n.Span, ln.Mul(rn))
	case "/":
		q, ok := ln.Quo(rn)
		if !ok {
			f.diags = append(f.diags, Diagnostic{Span: n.Span.String(), Message: "division by zero"})
			return rebuildIfChanged(n, []*cop.Node{left, right}, nil)
		}
		return constantNode(n.Span, q)
	}
	return rebuildIfChanged(n, []*cop.Node{left, right}, nil)
}

// foldStruct builds a value.Struct constant if every field (positional
// or named, in source order) folds to a constant. Spread, !let, and
// decorator fields make the whole struct non-foldable here: splicing
// another struct's entries and introducing a local binding are evaluated
// at run time, not during this pass, and a decorator marker has no
// constant value of its own. A struct like "(..p z=3)"
// (§8 E3) therefore never becomes a value.constant even when p itself
// is constant; it still evaluates correctly, just later, through
// codegen's OpBuildStruct / the engine's evalBuildStruct AppendAll path
// rather than through this pass.
func (f *Folder) foldStruct(n *cop.Node) *cop.Node {
	newFields := make([]*cop.Node, len(n.Positional))
	result := value.Empty()
	allConst := true
	changed := false

	for i, field := range n.Positional {
		if field.Tag != cop.TagStructField {
			allConst = false
			newFields[i] = field
			continue
		}
		if len(field.Positional) != 1 {
			allConst = false
			newFields[i] = field
			continue
		}
		folded := f.Fold(field.Positional[0])
		if folded != field.Positional[0] {
			changed = true
			newField := field.Clone()
			newField.Positional[0] = folded
			newFields[i] = newField
		} else {
			newFields[i] = field
		}

		cv, ok := Const(folded)
		if !ok {
			allConst = false
			continue
		}
		if nameAttr, hasName := field.Attr("name"); hasName {
			name, _ := nameAttr.(string)
			result = result.Append(value.NamedKey(name), cv)
		} else {
			result = result.Append(value.NewUnnamedKey(), cv)
		}
	}

	if allConst {
		return constantNode(n.Span, result)
	}
	if !changed {
		return n
	}
	clone := n.Clone()
	clone.Positional = newFields
	return clone
}

// foldFallback folds "left ?? right" (§4.6, §7). It can only resolve at
// compile time when left itself folds to a known constant: a
// non-failure constant short-circuits to left, a failure constant
// short-circuits to right (folded in turn). Anything else — left stays
// a reference, an invocation, a pipeline — must wait for the engine,
// since only it can tell a failing call result from a non-failing one.
func (f *Folder) foldFallback(n *cop.Node) *cop.Node {
	if len(n.Positional) != 2 {
		return n
	}
	left := f.Fold(n.Positional[0])
	lv, lok := Const(left)
	if lok {
		if !value.IsFailure(lv) {
			return left
		}
		return f.Fold(n.Positional[1])
	}
	right := f.Fold(n.Positional[1])
	return rebuildIfChanged(n, []*cop.Node{left, right}, nil)
}

// foldMorph folds "value ~mode shape" (§4.4). The value side folds
// normally; the shape side is resolved statically, without the
// namespace/identifier machinery a named shape.define would need,
// recognizing only the two forms the parser itself can produce for an
// inline shape expression: a bare primitive keyword, or a struct
// literal built entirely of "constraint" fields (§4.1's TILDE-field
// branch). A shape referenced by name (`Foo = (x ~num)`, used later as
// `~Foo`) is not resolved here — see DESIGN.md.
func (f *Folder) foldMorph(n *cop.Node) *cop.Node {
	if len(n.Positional) != 2 {
		return n
	}
	left := f.Fold(n.Positional[0])
	shapeVal, ok := resolveStaticShape(n.Positional[1])
	if !ok {
		return rebuildIfChanged(n, []*cop.Node{left, n.Positional[1]}, nil)
	}
	modeAttr, _ := n.Attr("mode")
	mode, _ := modeAttr.(string)

	lv, lok := Const(left)
	if lok {
		result, ok := morphValue(mode, lv, shapeVal)
		if ok {
			return constantNode(n.Span, result)
		}
	}

	clone := n.Clone()
	clone.Positional = []*cop.Node{left, constantNode(n.Positional[1].Span, shapeVal.AsValue())}
	return clone
}

// resolveStaticShape recognizes the shape expressions the parser can
// produce inline (primitive keyword identifiers, or struct literals
// built entirely of TILDE-constraint fields) and compiles them directly
// to a *shape.Shape, bypassing the (currently unreachable) named
// shape.define/namespace resolution path.
func resolveStaticShape(n *cop.Node) (*shape.Shape, bool) {
	if n == nil {
		return nil, false
	}
	if n.Tag == cop.TagValueIdentifier {
		nameAttr, _ := n.Attr("name")
		name, _ := nameAttr.(string)
		return primitiveShape(name)
	}
	if n.Tag == cop.TagStructDefine {
		return structShape(n)
	}
	return nil, false
}

func primitiveShape(name string) (*shape.Shape, bool) {
	switch name {
	case "num":
		return shape.Num, true
	case "text":
		return shape.Text, true
	case "bool":
		return shape.Bool, true
	case "tag":
		return shape.TagAny, true
	case "struct":
		return shape.Struct, true
	case "any":
		return shape.Any, true
	case "block":
		return shape.Block, true
	}
	return nil, false
}

// structShape compiles an inline struct-literal shape: every field must
// carry a "constraint" attr and have zero Positional children, the form
// produced only by the parser's "name ~Shape" field-constraint branch.
// An ordinary value-struct literal always has exactly one Positional
// child per field and never sets "constraint", so the two forms never
// collide.
func structShape(n *cop.Node) (*shape.Shape, bool) {
	fields := make([]*shape.FieldDef, 0, len(n.Positional))
	for _, child := range n.Positional {
		if child.Tag != cop.TagStructField {
			return nil, false
		}
		if len(child.Positional) != 0 {
			return nil, false
		}
		constraintAttr, ok := child.Attr("constraint")
		if !ok {
			return nil, false
		}
		constraintNode, ok := constraintAttr.(*cop.Node)
		if !ok {
			return nil, false
		}
		fieldShape, ok := resolveStaticShape(constraintNode)
		if !ok {
			return nil, false
		}
		nameAttr, _ := child.Attr("name")
		name, _ := nameAttr.(string)
		fields = append(fields, &shape.FieldDef{Name: name, Constraint: fieldShape})
	}
	return shape.NewStruct("", fields...), true
}

// morphValue dispatches to the three morph entry points by mode, mirroring
// the "morph:"+mode BinOp dispatch internal/engine uses at runtime. Folding
// reuses the exact same algorithm so a statically-known value ~shape
// expression produces the identical result it would at runtime.
func morphValue(mode string, v value.Value, s *shape.Shape) (value.Value, bool) {
	switch mode {
	case "strong":
		res, ok := morph.StrongMorph(v, s)
		return res.Value, ok
	case "weak":
		res, ok := morph.WeakMorph(v, s)
		return res.Value, ok
	default:
		res, ok := morph.Morph(v, s)
		return res.Value, ok
	}
}

func (f *Folder) foldReference(n *cop.Node) *cop.Node {
	qAttr, _ := n.Attr("qualified")
	qualified, _ := qAttr.(string)
	if f.env == nil {
		return n
	}
	cv, ok := f.env.FoldReference(qualified)
	if !ok {
		return n
	}
	return constantNode(n.Span, cv)
}

func (f *Folder) foldGeneric(n *cop.Node) *cop.Node {
	newPositional := make([]*cop.Node, len(n.Positional))
	changed := false
	for i, c := range n.Positional {
		rc := f.Fold(c)
		newPositional[i] = rc
		if rc != c {
			changed = true
		}
	}
	newNamed := make([]cop.NamedChild, len(n.Named))
	for i, nc := range n.Named {
		rc := f.Fold(nc.Node)
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

func rebuildIfChanged(n *cop.Node, positional []*cop.Node, named []cop.NamedChild) *cop.Node {
	changed := false
	for i, c := range positional {
		if i >= len(n.Positional) || c != n.Positional[i] {
			changed = true
			break
		}
	}
	if !changed {
		return n
	}
	clone := n.Clone()
	if positional != nil {
		clone.Positional = positional
	}
	if named != nil {
		clone.Named = named
	}
	return clone
}
