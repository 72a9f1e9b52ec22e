package cop

import "strings"

// Tag identifies the shape of a COP node. Tags are dot-separated paths in
// the compiler's own builtin namespace (distinct from the runtime Tag
// registry in internal/tagset, which holds user-defined language tags).
// A tag is a descendant of another when the other is a dot-separated
// prefix of it, mirroring the hierarchical tag model of §3.
type Tag string

// Is reports whether t is ancestor-equal-to-or-descendant-of other,
// e.g. Tag("value.math.binary").Is("value.math") is true.
func (t Tag) Is(other Tag) bool {
	if t == other {
		return true
	}
	return strings.HasPrefix(string(t), string(other)+".")
}

// Parent returns the immediate parent tag, or "" if t is a root tag.
func (t Tag) Parent() Tag {
	i := strings.LastIndexByte(string(t), '.')
	if i < 0 {
		return ""
	}
	return t[:i]
}

// Depth returns the number of path segments of a COP node tag. (The
// morph score's tag_depth comes from tagset.Tag.Depth, not from here.)
func (t Tag) Depth() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), ".") + 1
}

// Builtin COP node tags produced by the parser and consumed by the
// resolver, folder, and code generator. The set intentionally mirrors
// §4.1/§4.3's worked examples; additional tags used only internally to a
// single pass are declared next to that pass.
const (
	TagModDefine    Tag = "mod.define"
	TagModNamefield Tag = "mod.namefield"
	TagModImport    Tag = "mod.import"

	TagValueNumber     Tag = "value.number"
	TagValueText       Tag = "value.text"
	TagValueIdentifier Tag = "value.identifier"
	TagValueReference  Tag = "value.reference"
	TagValueConstant   Tag = "value.constant"
	TagValueTagLiteral Tag = "value.tagref"
	TagValueBlock      Tag = "value.block"
	TagValuePipeline   Tag = "value.pipeline"
	TagValueInvoke     Tag = "value.invoke"
	TagValueBinding    Tag = "value.binding"
	TagValueMorph      Tag = "value.morph"
	TagValueAccess     Tag = "value.access"
	TagValueIndex      Tag = "value.index"
	TagValueFallback   Tag = "value.fallback"

	TagValueMathUnary  Tag = "value.math.unary"
	TagValueMathBinary Tag = "value.math.binary"
	TagValueCompare    Tag = "value.compare"
	TagValueLogical    Tag = "value.logical"

	TagStructDefine    Tag = "struct.define"
	TagStructField     Tag = "struct.field"
	TagStructDecorator Tag = "struct.decorator"
	TagStructLet       Tag = "struct.let"
	TagStructSpread    Tag = "struct.spread"

	TagShapeDefine Tag = "shape.define"
	TagTagDefine   Tag = "tag.define"
)
