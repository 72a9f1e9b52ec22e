// Package morph implements the shape-directed morph algorithm (§4.4, C9):
// scalar promotion, block specialization, primitive matching, the four
// struct field-matching phases, and the three public entry points morph,
// strong_morph, and weak_morph.
package morph

import (
	"github.com/PeterShinners/comp-sub000/internal/shape"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Result is a MorphResult (§4.4): the rewritten value plus its score.
// ExtraCount is bookkeeping used by StrongMorph to detect fields the
// normal algorithm appended without being declared in the shape; it is
// not part of the spec's four-tuple score.
type Result struct {
	Value      value.Value
	Score      Score
	WasWrapped bool
	ExtraCount int
}

// Morph implements the normal-mode algorithm of §4.4: defaults are
// filled, and fields not declared by the shape are kept as extras rather
// than dropped.
func Morph(v value.Value, s *shape.Shape) (Result, bool) {
	return morphAny(v, s)
}

// StrongMorph succeeds iff Morph succeeds and the result carries no extra
// fields beyond what s declares (§4.4, property 5 of §8).
func StrongMorph(v value.Value, s *shape.Shape) (Result, bool) {
	res, ok := Morph(v, s)
	if !ok || res.ExtraCount > 0 {
		return Result{}, false
	}
	return res, true
}

// WeakMorph returns only the intersection of v's named fields with s's
// declared named fields: no defaults, no recursion into nested shapes, no
// failure (§4.4, property 4 of §8).
func WeakMorph(v value.Value, s *shape.Shape) (Result, bool) {
	if s.Kind == shape.KindUnion {
		var best Result
		found := false
		for _, variant := range s.Variants {
			r, ok := WeakMorph(v, variant)
			if ok && (!found || r.Score.Better(best.Score)) {
				best, found = r, true
			}
		}
		return best, found
	}
	st, _ := asStruct(v)
	result := value.Empty()
	named := 0
	for _, f := range s.Fields {
		if f.Name == "" {
			continue
		}
		if val, ok := st.Get(f.Name); ok {
			result = result.Append(value.NamedKey(f.Name), val)
			named++
		}
	}
	return Result{Value: result, Score: Score{NamedMatches: named}}, true
}

// asStruct applies scalar promotion (§4.4 step 1): a non-struct value is
// wrapped as {Unnamed: v}.
func asStruct(v value.Value) (*value.Struct, bool) {
	if s, ok := v.(*value.Struct); ok {
		return s, false
	}
	return value.Wrap(v), true
}

func morphAny(orig value.Value, s *shape.Shape) (Result, bool) {
	st, wasWrapped := asStruct(orig)

	switch s.Kind {
	case shape.KindBlock:
		return morphBlock(orig, st, wasWrapped, s)
	case shape.KindUnion:
		return morphUnion(orig, s)
	case shape.KindPrimitiveNum, shape.KindPrimitiveText, shape.KindPrimitiveBool,
		shape.KindPrimitiveTag, shape.KindPrimitiveStruct, shape.KindPrimitiveAny:
		return morphPrimitive(orig, st, wasWrapped, s)
	default:
		res, ok := morphFields(st, s)
		if !ok {
			return Result{}, false
		}
		if wasWrapped {
			res.WasWrapped = true
		}
		return res, true
	}
}

func morphUnion(orig value.Value, s *shape.Shape) (Result, bool) {
	var best Result
	found := false
	for _, variant := range s.Variants {
		r, ok := morphAny(orig, variant)
		if ok && (!found || r.Score.Better(best.Score)) {
			best, found = r, true
		}
	}
	return best, found
}

func morphPrimitive(orig value.Value, wrapped *value.Struct, wasWrapped bool, s *shape.Shape) (Result, bool) {
	peel := func() value.Value {
		if sv, ok := orig.(*value.Struct); ok {
			if single, ok := sv.SingleField(); ok {
				return single.Value
			}
			return orig
		}
		if wasWrapped {
			single, _ := wrapped.SingleField()
			return single.Value
		}
		return orig
	}

	switch s.Kind {
	case shape.KindPrimitiveNum:
		if n, ok := peel().(value.Number); ok {
			return Result{Value: n}, true
		}
	case shape.KindPrimitiveText:
		if t, ok := peel().(value.Text); ok {
			return Result{Value: t}, true
		}
	case shape.KindPrimitiveBool:
		if t, ok := peel().(value.TagRef); ok && value.IsBool(t) {
			return Result{Value: t}, true
		}
	case shape.KindPrimitiveTag:
		if t, ok := peel().(value.TagRef); ok {
			return Result{Value: t}, true
		}
	case shape.KindPrimitiveStruct:
		if wasWrapped {
			return Result{}, false // a scalar promoted to a struct never satisfies ~struct
		}
		return Result{Value: orig}, true
	case shape.KindPrimitiveAny:
		return Result{Value: orig}, true
	}
	return Result{}, false
}

func morphBlock(orig value.Value, wrapped *value.Struct, wasWrapped bool, s *shape.Shape) (Result, bool) {
	var blk *value.Block
	switch v := orig.(type) {
	case *value.Block:
		blk = v
	default:
		var peeled value.Value
		if sv, ok := orig.(*value.Struct); ok {
			if single, ok := sv.SingleField(); ok {
				peeled = single.Value
			}
		} else if wasWrapped {
			single, _ := wrapped.SingleField()
			peeled = single.Value
		}
		if b, ok := peeled.(*value.Block); ok {
			blk = b
		}
	}
	if blk == nil {
		return Result{}, false
	}
	if blk.IsTyped() {
		return Result{Value: blk}, true
	}
	return Result{Value: blk.WithInputShape(s.BlockInput)}, true
}

// morphFields runs the four field-matching phases of §4.4 step 4 against
// a struct-kind shape, then appends unmatched value fields as extras
// (step 5). st is already the scalar-promoted struct form of the input.
func morphFields(st *value.Struct, s *shape.Shape) (Result, bool) {
	entries := st.Entries
	consumed := make([]bool, len(entries))
	filled := make([]bool, len(s.Fields))

	result := value.Empty()
	var namedMatches, tagMatches, positionalMatches, defaultedCount int
	var tagDepth int

	// Phase (a): named phase.
	for i, e := range entries {
		if e.Key.IsUnnamed() {
			continue
		}
		fd, idx := s.FieldByName(e.Key.Name())
		if fd == nil || filled[idx] {
			continue
		}
		rec, ok := morphChildField(e.Value, fd)
		if !ok {
			return Result{}, false
		}
		result = result.Append(value.NamedKey(fd.Name), rec)
		consumed[i], filled[idx] = true, true
		namedMatches++
	}

	// Phase (b): tag phase — unassigned positional tag values promoted
	// into still-unfilled named tag-typed fields.
	for i, e := range entries {
		if consumed[i] || !e.Key.IsUnnamed() {
			continue
		}
		tr, ok := e.Value.(value.TagRef)
		if !ok {
			continue
		}
		for idx, fd := range s.Fields {
			if filled[idx] || fd.Name == "" || fd.TagConstraint == nil {
				continue
			}
			if tr.Tag.Is(fd.TagConstraint) {
				result = result.Append(value.NamedKey(fd.Name), e.Value)
				consumed[i], filled[idx] = true, true
				tagMatches++
				tagDepth += fd.TagConstraint.Depth()
				break
			}
		}
	}

	// Phase (c): positional phase — remaining positional fields fill
	// remaining positional shape fields first, then remaining named
	// shape fields (adopting the field's name).
	for i, e := range entries {
		if consumed[i] || !e.Key.IsUnnamed() {
			continue
		}
		matchedPositional := false
		for idx, fd := range s.Fields {
			if filled[idx] || fd.Name != "" {
				continue
			}
			rec, ok := morphChildField(e.Value, fd)
			if !ok {
				return Result{}, false
			}
			result = result.Append(value.NewUnnamedKey(), rec)
			consumed[i], filled[idx] = true, true
			positionalMatches++
			matchedPositional = true
			break
		}
		if matchedPositional {
			continue
		}
		for idx, fd := range s.Fields {
			if filled[idx] || fd.Name == "" {
				continue
			}
			rec, ok := morphChildField(e.Value, fd)
			if !ok {
				return Result{}, false
			}
			result = result.Append(value.NamedKey(fd.Name), rec)
			consumed[i], filled[idx] = true, true
			positionalMatches++
			break
		}
	}

	// Phase (d): defaults — unfilled fields with a default are filled;
	// unfilled required fields fail the morph.
	for idx, fd := range s.Fields {
		if filled[idx] {
			continue
		}
		if !fd.HasDefault() {
			return Result{}, false
		}
		if fd.Name != "" {
			result = result.Append(value.NamedKey(fd.Name), fd.Default)
		} else {
			result = result.Append(value.NewUnnamedKey(), fd.Default)
		}
		defaultedCount++
	}

	// Extras: remaining unmatched value fields are appended, not dropped
	// (§4.4 step 5).
	extraCount := 0
	for i, e := range entries {
		if consumed[i] {
			continue
		}
		result = result.Append(e.Key, e.Value)
		extraCount++
	}

	assignWeight := namedMatches + tagMatches + positionalMatches - defaultedCount

	return Result{
		Value: result,
		Score: Score{
			NamedMatches:      namedMatches,
			TagDepth:          tagDepth,
			AssignmentWeight:  assignWeight,
			PositionalMatches: positionalMatches,
		},
		ExtraCount: extraCount,
	}, true
}

// morphChildField recurses into a field's declared constraint, if any.
func morphChildField(v value.Value, fd *shape.FieldDef) (value.Value, bool) {
	if fd.Constraint != nil {
		rec, ok := morphAny(v, fd.Constraint)
		if !ok {
			return nil, false
		}
		return rec.Value, true
	}
	if fd.TagConstraint != nil {
		tr, ok := v.(value.TagRef)
		if !ok || !tr.Tag.Is(fd.TagConstraint) {
			return nil, false
		}
		return v, true
	}
	return v, true
}
