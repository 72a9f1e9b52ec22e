package morph

// Score is the four-tuple morph ranks the algorithm's result by (§4.4):
// named field matches, matched-tag path depth, a fill-quality weight, and
// positional matches. Comparison is lexicographic in this field order.
type Score struct {
	NamedMatches      int
	TagDepth          int
	AssignmentWeight  int
	PositionalMatches int
}

// Better reports whether s outranks o (strictly greater in lexicographic
// order), used by union-shape variant selection (§4.4) to keep the best
// MorphResult deterministically: ties keep the earlier-tried variant.
func (s Score) Better(o Score) bool {
	if s.NamedMatches != o.NamedMatches {
		return s.NamedMatches > o.NamedMatches
	}
	if s.TagDepth != o.TagDepth {
		return s.TagDepth > o.TagDepth
	}
	if s.AssignmentWeight != o.AssignmentWeight {
		return s.AssignmentWeight > o.AssignmentWeight
	}
	return s.PositionalMatches > o.PositionalMatches
}

// Equal reports whether two scores compare identically, used by the
// idempotence property test (§8 property 3).
func (s Score) Equal(o Score) bool { return s == o }
