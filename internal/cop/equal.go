package cop

// Equal reports whether a and b are structurally identical COP trees,
// ignoring source span (used by the round-trip property test of §8.1,
// which only needs tag/children/attribute equality after a reparse).
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	if len(a.Positional) != len(b.Positional) || len(a.Named) != len(b.Named) {
		return false
	}
	for i := range a.Positional {
		if !Equal(a.Positional[i], b.Positional[i]) {
			return false
		}
	}
	for i := range a.Named {
		if a.Named[i].Name != b.Named[i].Name {
			return false
		}
		if !Equal(a.Named[i].Node, b.Named[i].Node) {
			return false
		}
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		if bv, ok := b.Attrs[k]; !ok || !attrEqual(v, bv) {
			return false
		}
	}
	return true
}

func attrEqual(a, b any) bool {
	// Attribute values are scalars decoded by the lexer/parser (strings,
	// bools, *apd.Decimal, or plain comparables); compare via String()
	// when available so *apd.Decimal compares by value, not pointer.
	if ac, ok := a.(interface{ String() string }); ok {
		if bc, ok := b.(interface{ String() string }); ok {
			return ac.String() == bc.String()
		}
	}
	return a == b
}
