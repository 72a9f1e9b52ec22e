package morph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/shape"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// numberComparer lets cmp.Diff walk a value.Number (wrapping an
// *apd.Decimal, whose internal fields cmp cannot reflect into) by its
// decimal text instead, matching Number's own equality (§3 numeric
// literals compare by value, not representation).
var numberComparer = cmp.Comparer(func(a, b value.Number) bool {
	return a.String() == b.String()
})

// keyComparer compares value.Key (whose fields are unexported, so cmp
// cannot walk it either) by Key.Equal.
var keyComparer = cmp.Comparer(func(a, b value.Key) bool {
	return a.Equal(b)
})

func xyShape() *shape.Shape {
	return shape.NewStruct("xy",
		&shape.FieldDef{Name: "x", Constraint: shape.Num},
		&shape.FieldDef{Name: "y", Constraint: shape.Num},
	)
}

// E4: morph {x=1 y=2 z=3} against (x ~num, y ~num).
func TestMorphE4Normal(t *testing.T) {
	v := value.Empty().
		Append(value.NamedKey("x"), value.NewNumberFromInt64(1)).
		Append(value.NamedKey("y"), value.NewNumberFromInt64(2)).
		Append(value.NamedKey("z"), value.NewNumberFromInt64(3))

	res, ok := Morph(v, xyShape())
	require.True(t, ok)
	assert.Equal(t, 2, res.Score.NamedMatches)

	out := res.Value.(*value.Struct)
	x, _ := out.Get("x")
	y, _ := out.Get("y")
	z, _ := out.Get("z")
	assert.Equal(t, "1", x.String())
	assert.Equal(t, "2", y.String())
	assert.Equal(t, "3", z.String())
}

func TestMorphE4Strong(t *testing.T) {
	v := value.Empty().
		Append(value.NamedKey("x"), value.NewNumberFromInt64(1)).
		Append(value.NamedKey("y"), value.NewNumberFromInt64(2)).
		Append(value.NamedKey("z"), value.NewNumberFromInt64(3))

	_, ok := StrongMorph(v, xyShape())
	assert.False(t, ok, "strong morph must reject the extra z field")
}

func TestMorphE4Weak(t *testing.T) {
	v := value.Empty().
		Append(value.NamedKey("x"), value.NewNumberFromInt64(1)).
		Append(value.NamedKey("y"), value.NewNumberFromInt64(2)).
		Append(value.NamedKey("z"), value.NewNumberFromInt64(3))

	res, ok := WeakMorph(v, xyShape())
	require.True(t, ok)
	out := res.Value.(*value.Struct)
	assert.Equal(t, 2, out.Len())
	_, hasZ := out.Get("z")
	assert.False(t, hasZ)
}

// E5: morph {5 7} against (x ~num, y ~num) — positional -> named promotion.
func TestMorphE5PositionalToNamed(t *testing.T) {
	v := value.Empty().
		Append(value.NewUnnamedKey(), value.NewNumberFromInt64(5)).
		Append(value.NewUnnamedKey(), value.NewNumberFromInt64(7))

	res, ok := Morph(v, xyShape())
	require.True(t, ok)
	out := res.Value.(*value.Struct)
	x, ok := out.Get("x")
	require.True(t, ok)
	y, ok := out.Get("y")
	require.True(t, ok)
	assert.Equal(t, "5", x.String())
	assert.Equal(t, "7", y.String())
}

// Property 3: idempotence of the normal morph.
func TestMorphIdempotent(t *testing.T) {
	v := value.Empty().
		Append(value.NewUnnamedKey(), value.NewNumberFromInt64(5)).
		Append(value.NewUnnamedKey(), value.NewNumberFromInt64(7))

	s := xyShape()
	first, ok := Morph(v, s)
	require.True(t, ok)
	second, ok := Morph(first.Value, s)
	require.True(t, ok)

	assert.True(t, first.Score.Equal(second.Score))
	assert.Equal(t, first.Value.String(), second.Value.String())
}

func TestMorphMissingRequiredFails(t *testing.T) {
	v := value.Empty().Append(value.NamedKey("x"), value.NewNumberFromInt64(1))
	_, ok := Morph(v, xyShape())
	assert.False(t, ok)
}

func TestMorphDefaultsFillMissingField(t *testing.T) {
	s := shape.NewStruct("withDefault",
		&shape.FieldDef{Name: "x", Constraint: shape.Num},
		&shape.FieldDef{Name: "y", Constraint: shape.Num, Default: value.NewNumberFromInt64(9)},
	)
	v := value.Empty().Append(value.NamedKey("x"), value.NewNumberFromInt64(1))
	res, ok := Morph(v, s)
	require.True(t, ok)
	out := res.Value.(*value.Struct)
	y, ok := out.Get("y")
	require.True(t, ok)
	assert.Equal(t, "9", y.String())
}

func TestMorphScalarPromotion(t *testing.T) {
	single := shape.NewStruct("single", &shape.FieldDef{Name: "", Constraint: shape.Num})
	res, ok := Morph(value.NewNumberFromInt64(42), single)
	require.True(t, ok)
	out := res.Value.(*value.Struct)
	pos := out.Positional()
	require.Len(t, pos, 1)
	assert.Equal(t, "42", pos[0].String())
}

func TestMorphPrimitiveNum(t *testing.T) {
	res, ok := Morph(value.NewNumberFromInt64(7), shape.Num)
	require.True(t, ok)
	assert.Equal(t, "7", res.Value.String())
}

func TestMorphPrimitiveStructRejectsWrappedScalar(t *testing.T) {
	_, ok := Morph(value.NewNumberFromInt64(1), shape.Struct)
	assert.False(t, ok)
}

// Property #3 (SPEC_FULL.md §8): morphing an already-morphed value
// against the same shape again succeeds with the same score and an
// equal result.
func TestMorphIsIdempotent(t *testing.T) {
	s := xyShape()
	v := value.Empty().
		Append(value.NamedKey("x"), value.NewNumberFromInt64(1)).
		Append(value.NamedKey("y"), value.NewNumberFromInt64(2)).
		Append(value.NamedKey("z"), value.NewNumberFromInt64(3))
	// z has no matching field on xyShape and survives as an extra both passes.

	first, ok := Morph(v, s)
	require.True(t, ok)

	second, ok := Morph(first.Value, s)
	require.True(t, ok)

	assert.Equal(t, first.Score, second.Score)
	if diff := cmp.Diff(first.Value, second.Value, numberComparer, keyComparer); diff != "" {
		t.Errorf("morph(morph(v,S),S) diverged from morph(v,S) (-first +second):\n%s", diff)
	}
}
