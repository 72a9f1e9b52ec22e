package value

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Number is an arbitrary-precision decimal value (§3, §6 "Numeric
// literals"). It wraps apd.Decimal, the precision-preserving decimal type
// used by CUE's value evaluator for the same reason Comp needs it here:
// no binary float arithmetic is permitted in the core.
type Number struct {
	D *apd.Decimal
}

// workingContext bounds the precision of *derived* results (sums,
// products, quotients). Literal decoding never goes through this
// context, so input precision is always preserved verbatim (invariant iv).
var workingContext = apd.BaseContext.WithPrecision(50)

func (n Number) Kind() Kind     { return KindNumber }
func (n Number) String() string { return n.D.Text('f') }

// NewNumberFromInt64 builds a Number from a host integer, exponent 0.
func NewNumberFromInt64(i int64) Number {
	return Number{D: apd.New(i, 0)}
}

// ParseNumber decodes a decimal literal exactly as written, preserving
// trailing zeros and the input's exponent (§3 invariant iv, §6). Hex,
// octal, and binary integer literals are pre-converted to a decimal
// string by the caller (lexer) before reaching here; ParseNumber itself
// only ever sees base-10 text.
func ParseNumber(text string) (Number, error) {
	d, _, err := apd.BaseContext.NewFromString(text)
	if err != nil {
		return Number{}, fmt.Errorf("invalid numeric literal %q: %w", text, err)
	}
	return Number{D: d}, nil
}

// Cmp returns -1, 0, or 1 per apd.Decimal.Cmp semantics.
func (n Number) Cmp(o Number) int {
	c, err := n.D.Cmp(o.D)
	if err != nil {
		// apd.Cmp only errors on NaN, which never arises from decimal
		// literals or the four arithmetic ops below.
		return 0
	}
	return c
}

// Add, Sub, Mul, Quo implement §4.3's binary math folding rules and the
// engine's runtime BinOp opcode (§4.5). Quo reports ok=false on division
// by zero so callers can raise #fail.div_zero instead of panicking
// (§4.3: "division by zero is left as a reference failure").
func (n Number) Add(o Number) Number {
	z := new(apd.Decimal)
	_, _ = workingContext.Add(z, n.D, o.D)
	return Number{D: z}
}

func (n Number) Sub(o Number) Number {
	z := new(apd.Decimal)
	_, _ = workingContext.Sub(z, n.D, o.D)
	return Number{D: z}
}

func (n Number) Mul(o Number) Number {
	z := new(apd.Decimal)
	_, _ = workingContext.Mul(z, n.D, o.D)
	return Number{D: z}
}

func (n Number) Quo(o Number) (Number, bool) {
	if o.D.IsZero() {
		return Number{}, false
	}
	z := new(apd.Decimal)
	_, _ = workingContext.Quo(z, n.D, o.D)
	return Number{D: z}, true
}

// Neg returns -n. Unary '+' (§4.3) is a no-op and has no method here.
func (n Number) Neg() Number {
	z := new(apd.Decimal)
	z.Neg(n.D)
	return Number{D: z}
}
