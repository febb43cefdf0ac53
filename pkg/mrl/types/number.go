package types

import (
	"fmt"
	"math/big"
)

// Number is an exact decimal value backed by a big.Rat. The backing
// rational is never mutated after construction.
type Number struct {
	rat *big.Rat
}

func (n Number) Kind() Kind   { return KindNumber }
func (n Number) Truthy() bool { return n.rat != nil && n.rat.Sign() != 0 }
func (Number) value()         {}

// ParseNumber parses a decimal literal ("42", "-3.14", "6.02e23") into an
// exact Number. The text never passes through a binary float.
func ParseNumber(text string) (Number, error) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return Number{}, fmt.Errorf("invalid number literal %q", text)
	}
	return Number{rat: r}, nil
}

// NewNumberFromInt64 creates a Number from an integer.
func NewNumberFromInt64(v int64) Number {
	return Number{rat: new(big.Rat).SetInt64(v)}
}

// NewNumberFromUint64 creates a Number from an unsigned integer.
func NewNumberFromUint64(v uint64) Number {
	return Number{rat: new(big.Rat).SetInt(new(big.Int).SetUint64(v))}
}

// NewNumberFromFloat64 creates a Number holding the exact value of v.
// NaN and infinities are rejected.
func NewNumberFromFloat64(v float64) (Number, error) {
	r := new(big.Rat).SetFloat64(v)
	if r == nil {
		return Number{}, fmt.Errorf("cannot represent %v as a number", v)
	}
	return Number{rat: r}, nil
}

// NewNumberFromRat creates a Number from a rational, copying it so later
// mutation of r cannot affect the value.
func NewNumberFromRat(r *big.Rat) Number {
	return Number{rat: new(big.Rat).Set(r)}
}

// Rat returns a copy of the backing rational.
func (n Number) Rat() *big.Rat {
	return new(big.Rat).Set(n.rat)
}

// Cmp compares n against other: -1 if n < other, 0 if equal, +1 if greater.
func (n Number) Cmp(other Number) int {
	return n.rat.Cmp(other.rat)
}

// IsInt reports whether the number is an integer.
func (n Number) IsInt() bool {
	return n.rat.IsInt()
}

// Int64 returns the value as an int64. It fails when the number is not an
// integer or does not fit.
func (n Number) Int64() (int64, error) {
	if !n.rat.IsInt() {
		return 0, fmt.Errorf("number %s is not an integer", n)
	}
	num := n.rat.Num()
	if !num.IsInt64() {
		return 0, fmt.Errorf("number %s does not fit in int64", n)
	}
	return num.Int64(), nil
}

// Float64 returns the nearest binary float to the exact value. Intended
// for display and host interop only; engine arithmetic never uses it.
func (n Number) Float64() float64 {
	f, _ := n.rat.Float64()
	return f
}

// String formats the number as a decimal. Values with a terminating
// decimal expansion are rendered exactly; others (such as the result of
// 1 / 3) are rounded to 16 fractional digits.
func (n Number) String() string {
	if n.rat == nil {
		return "0"
	}
	if n.rat.IsInt() {
		return n.rat.Num().String()
	}
	if digits, ok := terminatingDigits(n.rat); ok {
		return trimZeros(n.rat.FloatString(digits))
	}
	return n.rat.FloatString(16)
}

// terminatingDigits returns how many fractional digits an exact decimal
// rendering needs, when the denominator contains only factors of 2 and 5.
func terminatingDigits(r *big.Rat) (int, bool) {
	den := new(big.Int).Set(r.Denom())
	var twos, fives int
	two := big.NewInt(2)
	five := big.NewInt(5)
	mod := new(big.Int)
	for mod.Mod(den, two).Sign() == 0 {
		den.Div(den, two)
		twos++
	}
	for mod.Mod(den, five).Sign() == 0 {
		den.Div(den, five)
		fives++
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	digits := twos
	if fives > digits {
		digits = fives
	}
	return digits, true
}

// trimZeros strips trailing fractional zeros from a FloatString rendering.
func trimZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
