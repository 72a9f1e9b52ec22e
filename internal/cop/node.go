package cop

// NamedChild is one entry of a node's named-child list. Order is
// preserved because struct fields and namefields are order-sensitive
// throughout the pipeline (§3 invariant iii).
type NamedChild struct {
	Name string
	Node *Node
}

// Node is the uniform COP node: a tag plus positional children, named
// children, and a small attribute bag, exactly as specified in §3's COP
// node definition. All parser/resolver/folder passes operate on this one
// type; there is no separate untyped parse tree.
type Node struct {
	Tag        Tag
	Positional []*Node
	Named      []NamedChild
	Attrs      map[string]any
	Span       Span
}

// New builds a bare node of the given tag at span, with no children.
func New(tag Tag, span Span) *Node {
	return &Node{Tag: tag, Span: span}
}

// Attr reads an attribute, returning (nil, false) if absent.
func (n *Node) Attr(key string) (any, bool) {
	if n.Attrs == nil {
		return nil, false
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// SetAttr sets an attribute, allocating the attribute map on first use.
func (n *Node) SetAttr(key string, value any) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any, 1)
	}
	n.Attrs[key] = value
	return n
}

// AddPositional appends a positional child and returns n for chaining.
func (n *Node) AddPositional(child *Node) *Node {
	n.Positional = append(n.Positional, child)
	return n
}

// AddNamed appends a named child and returns n for chaining.
func (n *Node) AddNamed(name string, child *Node) *Node {
	n.Named = append(n.Named, NamedChild{Name: name, Node: child})
	return n
}

// NamedChild looks up the first named child with the given name.
func (n *Node) NamedChild(name string) (*Node, bool) {
	for _, nc := range n.Named {
		if nc.Name == name {
			return nc.Node, true
		}
	}
	return nil, false
}

// Clone makes a shallow copy of n with a fresh Positional/Named/Attrs
// backing store, used by passes that rebuild a node with rewritten
// children (§4.3: "if any child rewrote, rebuild with new kids").
func (n *Node) Clone() *Node {
	c := &Node{Tag: n.Tag, Span: n.Span}
	if len(n.Positional) > 0 {
		c.Positional = append([]*Node(nil), n.Positional...)
	}
	if len(n.Named) > 0 {
		c.Named = append([]NamedChild(nil), n.Named...)
	}
	if len(n.Attrs) > 0 {
		c.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

// Walk visits n and every descendant, positional children before named,
// depth-first pre-order. Passes that only need read access use this;
// rewriting passes (resolver, folder) recurse manually so they can
// substitute nodes bottom-up.
func (n *Node) Walk(visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Positional {
		c.Walk(visit)
	}
	for _, nc := range n.Named {
		nc.Node.Walk(visit)
	}
}
