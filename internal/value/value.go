// Package value implements the Comp runtime value model (§3, C1): an
// immutable, cycle-free tagged sum of number, text, tag reference, struct,
// and block. Every constructor here returns a value that is safe to share
// by reference — nothing in this package ever mutates a Value in place.
package value

import "github.com/PeterShinners/comp-sub000/internal/tagset"

// Value is the universal runtime value. Kind() is a cheap discriminator
// used by the morph engine and codegen instead of repeated type switches;
// String() is for diagnostics only, never for program semantics.
type Value interface {
	Kind() Kind
	String() string
}

// Kind discriminates the five value shapes of §3, plus KindShape for a
// shape carried as a constant value (shape.ValueRef).
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindTag
	KindStruct
	KindBlock
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTag:
		return "tag"
	case KindStruct:
		return "struct"
	case KindBlock:
		return "block"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Text is a Unicode string value. The lexer normalizes identifiers to NFC
// before they ever reach a Text value (see internal/lexer), but Text
// itself places no normalization requirement on arbitrary string data.
type Text string

func (t Text) Kind() Kind     { return KindText }
func (t Text) String() string { return string(t) }

// TagRef is a reference into the tag registry (§3 Tag). Equality is by
// the referenced *tagset.Tag's identity, never by name.
type TagRef struct {
	Tag *tagset.Tag
}

func (r TagRef) Kind() Kind     { return KindTag }
func (r TagRef) String() string { return r.Tag.String() }

// Equal reports whether two TagRefs name the identical tag definition.
func (r TagRef) Equal(o TagRef) bool { return r.Tag == o.Tag }

// Bool returns the canonical boolean TagRef for b, per §3 invariant v:
// booleans are the tags #bool.true / #bool.false, never host bools.
func Bool(b bool) TagRef {
	if b {
		return TagRef{Tag: tagset.BoolTrue}
	}
	return TagRef{Tag: tagset.BoolFalse}
}

// IsTrue reports whether v is the #bool.true tag.
func IsTrue(v Value) bool {
	r, ok := v.(TagRef)
	return ok && r.Tag == tagset.BoolTrue
}

// IsBool reports whether v is either boolean tag.
func IsBool(v Value) bool {
	r, ok := v.(TagRef)
	return ok && (r.Tag == tagset.BoolTrue || r.Tag == tagset.BoolFalse)
}

// IsFailure reports whether v is a struct whose first positional entry is
// a TagRef descending from #fail (§7).
func IsFailure(v Value) bool {
	s, ok := v.(*Struct)
	if !ok {
		return false
	}
	for _, e := range s.Entries {
		if !e.Key.IsUnnamed() {
			continue
		}
		if r, ok := e.Value.(TagRef); ok && r.Tag.Is(tagset.Fail) {
			return true
		}
		return false // first positional entry isn't a fail tag
	}
	return false
}

// NewFailure builds a failure value: {#fail-descendant, message: msg}.
// `typ`, when non-nil, is attached as the optional "type" field (§7).
func NewFailure(tag *tagset.Tag, msg string, typ *tagset.Tag) *Struct {
	s := Empty().Append(NewUnnamedKey(), TagRef{Tag: tag}).Append(NamedKey("message"), Text(msg))
	if typ != nil {
		s = s.Append(NamedKey("type"), TagRef{Tag: typ})
	}
	return s
}
