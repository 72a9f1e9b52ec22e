// Package tagset implements the hierarchical tag registry (§3 Tag, C2):
// hyphen-free, dot-separated tag names with singleton identity per
// definition, and descendant/extends queries used by the morph engine's
// tag phase (§4.4 step 4b) and by failure-tag matching (§7).
package tagset

import (
	"fmt"
	"strings"
)

// Tag is a single tag definition. Identity is by pointer: two tags are
// the same tag iff they are the same *Tag, never by comparing Qualified
// strings (§3: "Tag identity is by the tag-definition object").
type Tag struct {
	Qualified string // dotted path, e.g. "fail.div_zero"
	Module    string // owning module token
	Parent    *Tag   // nil for a root tag
	Extends   *Tag   // optional cross-module supertag (§4.4 tag phase)
	depth     int
}

// String renders the tag with its conventional '#' sigil.
func (t *Tag) String() string {
	if t == nil {
		return "#<nil>"
	}
	return "#" + t.Qualified
}

// Depth returns the number of path segments, e.g. #fail.div_zero has
// depth 2. Used as the morph score's tag_depth component (§4.4).
func (t *Tag) Depth() int { return t.depth }

// Is reports whether t is the same tag as other, or a descendant of it
// either through the parent chain or through an Extends link crossing
// module boundaries (§3 Tag.extends, §4.4 step 4b).
func (t *Tag) Is(other *Tag) bool {
	for cur := t; cur != nil; cur = cur.ancestor() {
		if cur == other {
			return true
		}
	}
	return false
}

// ancestor walks one step up the parent chain, following Extends when
// Parent is exhausted, so a tag defined in module B that `extends` a tag
// in module A is still a descendant of A's tag for Is() purposes.
func (t *Tag) ancestor() *Tag {
	if t.Parent != nil {
		return t.Parent
	}
	return t.Extends
}

// Registry owns Tag allocation for one module, guaranteeing singleton
// identity: defining the same qualified name twice returns an error
// rather than a second Tag object.
type Registry struct {
	module string
	byName map[string]*Tag
}

// NewRegistry creates an empty registry owned by the given module token.
func NewRegistry(module string) *Registry {
	return &Registry{module: module, byName: make(map[string]*Tag)}
}

// Define creates a new tag under parent (nil for a root tag such as
// "fail") and registers it by its full dotted path. Redefinition is a
// build-time error.
func (r *Registry) Define(name string, parent *Tag) (*Tag, error) {
	qualified := name
	depth := 1
	if parent != nil {
		qualified = parent.Qualified + "." + name
		depth = parent.depth + 1
	}
	if _, exists := r.byName[qualified]; exists {
		return nil, fmt.Errorf("tag already defined: #%s", qualified)
	}
	t := &Tag{Qualified: qualified, Module: r.module, Parent: parent, depth: depth}
	r.byName[qualified] = t
	return t, nil
}

// DefinePath defines every missing segment of a dotted path and returns
// the leaf tag, e.g. DefinePath("fail.div_zero") defines "fail" first if
// absent. Used by the builtin failure hierarchy (§7) and by shape parsing
// of inline tag literals.
func (r *Registry) DefinePath(path string) (*Tag, error) {
	parts := strings.Split(path, ".")
	var parent *Tag
	acc := ""
	for _, part := range parts {
		if acc == "" {
			acc = part
		} else {
			acc += "." + part
		}
		if t, ok := r.byName[acc]; ok {
			parent = t
			continue
		}
		t, err := r.Define(part, parent)
		if err != nil {
			return nil, err
		}
		parent = t
	}
	return parent, nil
}

// Lookup finds a previously defined tag by its full dotted path.
func (r *Registry) Lookup(path string) (*Tag, bool) {
	t, ok := r.byName[path]
	return t, ok
}

// Builtin tag roots shared by every module (priority -1 in the namespace,
// §4.7 step 5): the boolean singletons (§3 invariant v) and the failure
// hierarchy (§7).
var Builtin = NewRegistry("builtin")

// Well-known builtin tags, defined once at package init.
var (
	BoolTag      *Tag
	BoolTrue     *Tag
	BoolFalse    *Tag
	Fail         *Tag
	FailType     *Tag
	FailDivZero  *Tag
	FailRuntime  *Tag
	FailMissing  *Tag
	FailNotFound *Tag
)

func init() {
	BoolTag, _ = Builtin.Define("bool", nil)
	BoolTrue, _ = Builtin.Define("true", BoolTag)
	BoolFalse, _ = Builtin.Define("false", BoolTag)

	Fail, _ = Builtin.Define("fail", nil)
	FailType, _ = Builtin.Define("type", Fail)
	FailDivZero, _ = Builtin.Define("div_zero", Fail)
	FailRuntime, _ = Builtin.Define("runtime", Fail)
	FailMissing, _ = Builtin.Define("missing", Fail)
	FailNotFound, _ = Builtin.Define("not_found", Fail)
}
