package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/namespace"
)

func ident(name string) *cop.Node {
	n := cop.New(cop.TagValueIdentifier, cop.Span{})
	n.SetAttr("name", name)
	return n
}

func TestResolveReplacesKnownIdentifier(t *testing.T) {
	ns := namespace.New()
	ns.Add(namespace.Candidate{Qualified: "helper", Kind: namespace.KindValue, Value: "v"}, namespace.PriorityLocal)

	r := New(ns, "mod1")
	out := r.Resolve(ident("helper"))
	assert.Equal(t, cop.TagValueReference, out.Tag)
	q, _ := out.Attr("qualified")
	assert.Equal(t, "helper", q)
	assert.Empty(t, r.Errors())
}

func TestResolveLeavesBlockParamAlone(t *testing.T) {
	ns := namespace.New()
	sig := cop.New(cop.TagStructDefine, cop.Span{})
	xField := cop.New(cop.TagStructField, cop.Span{})
	xField.SetAttr("name", "x")
	sig.AddPositional(xField)

	body := cop.New(cop.TagStructDefine, cop.Span{})
	bodyField := cop.New(cop.TagStructField, cop.Span{})
	bodyField.AddPositional(ident("x"))
	body.AddPositional(bodyField)

	block := cop.New(cop.TagValueBlock, cop.Span{})
	block.AddNamed("sig", sig)
	block.AddNamed("body", body)

	r := New(ns, "mod1")
	out := r.Resolve(block)
	outBody, _ := out.NamedChild("body")
	inner := outBody.Positional[0].Positional[0]
	assert.Equal(t, cop.TagValueIdentifier, inner.Tag) // untouched: "x" is a param
	assert.Empty(t, r.Errors())
}

func TestResolveUndefinedProducesError(t *testing.T) {
	ns := namespace.New()
	r := New(ns, "mod1")
	out := r.Resolve(ident("nope"))
	assert.Equal(t, cop.TagValueIdentifier, out.Tag)
	require.Len(t, r.Errors(), 1)
}

func TestResolveAmbiguousProducesError(t *testing.T) {
	ns := namespace.New()
	ns.Add(namespace.Candidate{Qualified: "a.x", Kind: namespace.KindValue, Value: 1}, namespace.PriorityLocal)
	ns.Add(namespace.Candidate{Qualified: "b.x", Kind: namespace.KindValue, Value: 2}, namespace.PriorityLocal)

	r := New(ns, "mod1")
	r.Resolve(ident("x"))
	require.Len(t, r.Errors(), 1)
}

func TestResolveOverloadLeftAsIdentifier(t *testing.T) {
	ns := namespace.New()
	ns.Add(namespace.Candidate{Qualified: "add.i000", Kind: namespace.KindBlock, Value: "a"}, namespace.PriorityLocal)
	ns.Add(namespace.Candidate{Qualified: "add.i001", Kind: namespace.KindBlock, Value: "b"}, namespace.PriorityLocal)

	r := New(ns, "mod1")
	out := r.Resolve(ident("add"))
	assert.Equal(t, cop.TagValueIdentifier, out.Tag)
}
