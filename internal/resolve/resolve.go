// Package resolve implements the bottom-up identifier resolution pass of
// §4.2 (C7): replacing bare value.identifier nodes with value.reference
// nodes wherever the name resolves unambiguously in the module's
// namespace, while respecting block parameter-name boundaries.
package resolve

import (
	"github.com/PeterShinners/comp-sub000/internal/comperr"
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/namespace"
)

// Resolver rewrites one definition's original COP into its resolved
// form, collecting any build-time errors encountered along the way
// (undefined or ambiguous references, §7 pathway 1).
type Resolver struct {
	ns       *namespace.Namespace
	moduleID string
	errors   []*comperr.Error
}

// New builds a Resolver against a module's built namespace.
func New(ns *namespace.Namespace, moduleID string) *Resolver {
	return &Resolver{ns: ns, moduleID: moduleID}
}

// Errors returns every RSV-coded error accumulated across all Resolve
// calls made so far.
func (r *Resolver) Errors() []*comperr.Error { return r.errors }

// Resolve walks node bottom-up, returning the resolved tree. The input
// node is never mutated; rewritten subtrees are fresh clones (§4.3's
// "rebuild with new kids" discipline, reused here for the same reason:
// original_cop must remain available for re-resolution and diagnostics).
func (r *Resolver) Resolve(node *cop.Node) *cop.Node {
	return r.resolve(node, map[string]bool{})
}

func (r *Resolver) resolve(n *cop.Node, params map[string]bool) *cop.Node {
	if n == nil {
		return nil
	}

	switch n.Tag {
	case cop.TagValueIdentifier:
		return r.resolveIdentifier(n, params)
	case cop.TagModNamefield:
		return r.resolveNamefield(n, params)
	case cop.TagValueBlock:
		return r.resolveBlock(n, params)
	case cop.TagValueMorph:
		return r.resolveMorph(n, params)
	default:
		return r.resolveGeneric(n, params)
	}
}

func (r *Resolver) resolveIdentifier(n *cop.Node, params map[string]bool) *cop.Node {
	nameAttr, _ := n.Attr("name")
	name, _ := nameAttr.(string)

	if params[name] {
		return n // bound to an enclosing block parameter; leave as identifier
	}

	entry, ok := r.ns.Lookup(name)
	if !ok {
		r.errors = append(r.errors, comperr.Newf(comperr.RSV001UndefinedReference, n.Span.String(),
			"undefined reference %q", name))
		return n
	}
	if entry.Overload != nil {
		return n // left for build-time dispatch (§4.2)
	}
	if entry.Ambiguous != nil {
		r.errors = append(r.errors, comperr.Newf(comperr.RSV002AmbiguousReference, n.Span.String(),
			"ambiguous reference %q: %v", name, entry.Ambiguous.Qualified))
		return n
	}

	ref := cop.New(cop.TagValueReference, n.Span)
	ref.SetAttr("qualified", entry.SingleQualified())
	ref.SetAttr("module_id", r.moduleID)
	return ref
}

// resolveNamefield resolves only the value child, never the name attr
// (§4.2).
func (r *Resolver) resolveNamefield(n *cop.Node, params map[string]bool) *cop.Node {
	if len(n.Positional) == 0 {
		return n
	}
	resolved := r.resolve(n.Positional[0], params)
	if resolved == n.Positional[0] {
		return n
	}
	clone := n.Clone()
	clone.Positional[0] = resolved
	return clone
}

// resolveBlock introduces a new lexical boundary: every parameter name
// the signature declares and the implicit "input"/"args" join the
// parameter-name set before the body is resolved (§4.2). The signature
// itself resolves against the outer parameter set plus its own
// bare-identifier parameter names, so a default value resolves as outer
// code while a declared "(n)" parameter is never looked up as a
// reference.
func (r *Resolver) resolveBlock(n *cop.Node, params map[string]bool) *cop.Node {
	sig, hasSig := n.NamedChild("sig")
	body, hasBody := n.NamedChild("body")

	inner := copyParams(params)
	inner["input"] = true
	inner["args"] = true
	sigParams := copyParams(params)
	if hasSig {
		for _, f := range sig.Positional {
			if nameAttr, ok := f.Attr("name"); ok {
				if name, ok := nameAttr.(string); ok && name != "" {
					inner[name] = true
				}
				continue
			}
			// A bare-identifier positional field ("(n)", no "name="/"~Shape"
			// form) declares a parameter named by that identifier, the same
			// convention internal/codegen reads back when building the
			// block's runtime parameter list.
			if len(f.Positional) == 1 && f.Positional[0].Tag == cop.TagValueIdentifier {
				if nameAttr, ok := f.Positional[0].Attr("name"); ok {
					if name, ok := nameAttr.(string); ok && name != "" {
						inner[name] = true
						sigParams[name] = true
					}
				}
			}
		}
	}

	newSig, newBody := sig, body
	changed := false
	if hasSig {
		newSig = r.resolve(sig, sigParams)
		changed = changed || newSig != sig
	}
	if hasBody {
		newBody = r.resolve(body, inner)
		changed = changed || newBody != body
	}
	if !changed {
		return n
	}

	clone := n.Clone()
	clone.Named = nil
	if hasSig {
		clone.AddNamed("sig", newSig)
	}
	if hasBody {
		clone.AddNamed("body", newBody)
	}
	return clone
}

// resolveMorph resolves only the value operand of "value ~shape": the
// shape operand is a shape expression, not a value expression (a bare
// "num"/"text"/... names a primitive shape, not a variable), so running
// it through resolveIdentifier would misreport it as an undefined
// reference. internal/fold's static shape resolution reads the shape
// operand directly off the unresolved node, the same way a struct
// field's "~Shape" constraint already bypasses this pass entirely.
func (r *Resolver) resolveMorph(n *cop.Node, params map[string]bool) *cop.Node {
	if len(n.Positional) != 2 {
		return r.resolveGeneric(n, params)
	}
	left := r.resolve(n.Positional[0], params)
	if left == n.Positional[0] {
		return n
	}
	clone := n.Clone()
	clone.Positional[0] = left
	return clone
}

func (r *Resolver) resolveGeneric(n *cop.Node, params map[string]bool) *cop.Node {
	changed := false

	newPositional := make([]*cop.Node, len(n.Positional))
	for i, c := range n.Positional {
		rc := r.resolve(c, params)
		newPositional[i] = rc
		if rc != c {
			changed = true
		}
	}

	newNamed := make([]cop.NamedChild, len(n.Named))
	for i, nc := range n.Named {
		rc := r.resolve(nc.Node, params)
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

func copyParams(params map[string]bool) map[string]bool {
	out := make(map[string]bool, len(params)+4)
	for k, v := range params {
		out[k] = v
	}
	return out
}
