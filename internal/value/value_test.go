package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructGetLastWins(t *testing.T) {
	s := Empty().
		Append(NamedKey("x"), NewNumberFromInt64(1)).
		Append(NamedKey("x"), NewNumberFromInt64(2))

	v, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "2", v.String())
}

func TestUnnamedKeysNeverEqual(t *testing.T) {
	a := NewUnnamedKey()
	b := NewUnnamedKey()
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a))
}

func TestStructPositionalOrder(t *testing.T) {
	s := Empty().
		Append(NewUnnamedKey(), NewNumberFromInt64(5)).
		Append(NamedKey("y"), NewNumberFromInt64(7)).
		Append(NewUnnamedKey(), NewNumberFromInt64(9))

	pos := s.Positional()
	require.Len(t, pos, 2)
	assert.Equal(t, "5", pos[0].String())
	assert.Equal(t, "9", pos[1].String())
}

func TestNumberArithmeticPreservesPrecision(t *testing.T) {
	a, err := ParseNumber("1.50")
	require.NoError(t, err)
	assert.Equal(t, "1.50", a.String())

	b, err := ParseNumber("2")
	require.NoError(t, err)

	sum := a.Add(b)
	assert.Equal(t, "3.50", sum.String())
}

func TestNumberDivisionByZero(t *testing.T) {
	a := NewNumberFromInt64(1)
	z := NewNumberFromInt64(0)
	_, ok := a.Quo(z)
	assert.False(t, ok)
}

func TestWrapAndUnwrap(t *testing.T) {
	wrapped := Wrap(NewNumberFromInt64(42))
	entry, ok := wrapped.SingleField()
	require.True(t, ok)
	assert.True(t, entry.Key.IsUnnamed())
	assert.Equal(t, "42", entry.Value.String())
}

func TestBoolIsNeverAHostBool(t *testing.T) {
	v := Bool(true)
	assert.True(t, IsTrue(v))
	assert.True(t, IsBool(v))
	assert.False(t, IsTrue(Bool(false)))
}
