// Package shape implements the shape language (§3 Shape/FieldDef, C3):
// structural types built from named/positional fields, unions, block
// shapes, and the primitive shape singletons consumed by internal/morph.
package shape

import (
	"strings"

	"github.com/PeterShinners/comp-sub000/internal/tagset"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Kind discriminates the handful of shape flavors the morph engine treats
// specially (§4.4 step 3).
type Kind int

const (
	KindStruct Kind = iota // an ordered field list (possibly empty)
	KindUnion
	KindBlock
	KindPrimitiveNum
	KindPrimitiveText
	KindPrimitiveBool
	KindPrimitiveTag
	KindPrimitiveStruct
	KindPrimitiveAny
)

// FieldDef describes one field of a struct shape (§3).
type FieldDef struct {
	Name       string // "" for a positional-only field
	Constraint *Shape // nil means unconstrained (accepts any value)
	TagConstraint *tagset.Tag // set instead of Constraint for a bare tag field
	Default    value.Value // nil means required
	MinArity   int         // array_bounds; 0/0 means "exactly one"
	MaxArity   int
}

// HasDefault reports whether the field may be left unfilled.
func (f *FieldDef) HasDefault() bool { return f.Default != nil }

// Shape is a structural type: an ordered field list, or a union of
// variants, or a block shape, or one of the primitive singletons (§3).
type Shape struct {
	Qualified    string
	Kind         Kind
	Fields       []*FieldDef // KindStruct / KindBlock (block's own field list for its arg)
	Variants     []*Shape    // KindUnion
	BlockInput   *Shape      // KindBlock: required shape of the piped input
}

// ShapeName implements value.ShapeRef so a *Shape can be stored on a
// value.Block without internal/value importing this package (see
// internal/value/block.go).
func (s *Shape) ShapeName() string { return s.Qualified }

// AsValue wraps s so it can be carried as an ordinary constant register
// value (OpConst) and reach Module.Morph through the engine's generic
// value.Value plumbing. Shape itself already has a Kind field (its own
// shape.Kind discriminator) so it cannot also implement value.Value's
// Kind() directly; ValueRef is the adapter.
func (s *Shape) AsValue() ValueRef { return ValueRef{Shape: s} }

// ValueRef adapts a *Shape to value.Value so fold-time shape literals can
// be stored in a value.constant node alongside ordinary runtime values.
type ValueRef struct {
	Shape *Shape
}

func (r ValueRef) Kind() value.Kind { return value.KindShape }
func (r ValueRef) String() string   { return r.Shape.String() }

// From recovers the concrete *Shape behind a value.ShapeRef. It panics if
// ref is non-nil and not a *Shape, which can only happen if some other
// package starts implementing value.ShapeRef — nothing in this codebase
// does.
func From(ref value.ShapeRef) *Shape {
	if ref == nil {
		return nil
	}
	return ref.(*Shape)
}

// Primitive shape singletons (§3).
var (
	Num    = &Shape{Qualified: "num", Kind: KindPrimitiveNum}
	Text   = &Shape{Qualified: "text", Kind: KindPrimitiveText}
	Bool   = &Shape{Qualified: "bool", Kind: KindPrimitiveBool}
	TagAny = &Shape{Qualified: "tag", Kind: KindPrimitiveTag}
	Struct = &Shape{Qualified: "struct", Kind: KindPrimitiveStruct}
	Any    = &Shape{Qualified: "any", Kind: KindPrimitiveAny}
	Block  = &Shape{Qualified: "block", Kind: KindBlock}
)

// NewStruct builds a struct shape from an ordered field list.
func NewStruct(qualified string, fields ...*FieldDef) *Shape {
	return &Shape{Qualified: qualified, Kind: KindStruct, Fields: fields}
}

// NewUnion builds a union shape trying each variant in order (§4.4).
func NewUnion(qualified string, variants ...*Shape) *Shape {
	return &Shape{Qualified: qualified, Kind: KindUnion, Variants: variants}
}

// NewBlockShape builds a block shape requiring the given input shape.
func NewBlockShape(qualified string, input *Shape, argFields ...*FieldDef) *Shape {
	return &Shape{Qualified: qualified, Kind: KindBlock, BlockInput: input, Fields: argFields}
}

// FieldByName returns the declared field named name, if any.
func (s *Shape) FieldByName(name string) (*FieldDef, int) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i
		}
	}
	return nil, -1
}

func (s *Shape) String() string {
	switch s.Kind {
	case KindUnion:
		parts := make([]string, len(s.Variants))
		for i, v := range s.Variants {
			parts[i] = v.String()
		}
		return strings.Join(parts, " | ")
	case KindPrimitiveNum, KindPrimitiveText, KindPrimitiveBool,
		KindPrimitiveTag, KindPrimitiveStruct, KindPrimitiveAny:
		return s.Qualified
	case KindBlock:
		return "block(" + s.BlockInput.String() + ")"
	default:
		var b strings.Builder
		b.WriteByte('(')
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteByte(' ')
			}
			if f.Name != "" {
				b.WriteString(f.Name)
			} else {
				b.WriteByte('_')
			}
		}
		b.WriteByte(')')
		return b.String()
	}
}
