// Package mathx implements the exact-integer fixed-point arithmetic the
// settlement engine relies on: prices, share quantities and payouts are all
// u256 values, never floats, and every division floors unless noted
// otherwise.
package mathx

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Scale constants, fixed by the protocol and never configurable.
var (
	// ShareScale is the fixed-point scale applied to share quantities (10^18).
	ShareScale = uint256.NewInt(1_000_000_000_000_000_000)
	// UnitPrice is the sum P_yes+P_no must always equal, in wei (0.01 coin).
	UnitPrice = uint256.NewInt(10_000_000_000_000_000)
	// BpsDenominator is the denominator basis-point fees and splits are expressed over.
	BpsDenominator = uint256.NewInt(10_000)
)

// Int is an alias for uint256.Int so packages depending on mathx never need
// to import holiman/uint256 directly.
type Int = uint256.Int

// Zero returns a fresh zero-valued Int. uint256.Int is a value type but
// callers that build results incrementally want an explicit starting point.
func Zero() *uint256.Int { return new(uint256.Int) }

// Mul returns a*b as a new Int. Safe only when the product is known not to
// exceed 2^256 (e.g. small protocol constants) — use MulDivFloor/MulDivCeil
// for anything where the product could realistically overflow.
func Mul(a, b *uint256.Int) *uint256.Int { return new(uint256.Int).Mul(a, b) }

// FromUint64 wraps a uint64 as a *uint256.Int.
func FromUint64(v uint64) *uint256.Int { return uint256.NewInt(v) }

// MulDivFloor computes floor(a*b/d) without overflowing 256 bits in the
// intermediate product, by round-tripping through math/big for the
// multiply-divide step. a*b can exceed 2^256 even when a, b and the result
// all fit in 256 bits, so this cannot be done with uint256's own Mul/Div
// (which wrap mod 2^256 on overflow).
func MulDivFloor(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivByZero
	}
	prod := new(big.Int).Mul(a.ToBig(), b.ToBig())
	prod.Div(prod, d.ToBig()) // big.Int.Div on non-negative operands floors
	return bigToUint256(prod)
}

// MulDivCeil computes ceil(a*b/d), for rounding that favors the pool rather
// than the caller. Nothing in this module calls it; fees use BpsOf, which
// floors.
func MulDivCeil(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivByZero
	}
	num := new(big.Int).Mul(a.ToBig(), b.ToBig())
	dd := d.ToBig()
	q, r := new(big.Int).QuoRem(num, dd, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return bigToUint256(q)
}

func bigToUint256(v *big.Int) (*uint256.Int, error) {
	z := new(uint256.Int)
	if overflow := z.SetFromBig(v); overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Add, Sub, etc. are thin wrappers kept so call sites read as arithmetic
// rather than a chain of in-place mutations on shared pointers.

// Add returns a+b as a new Int.
func Add(a, b *uint256.Int) *uint256.Int { return new(uint256.Int).Add(a, b) }

// Sub returns a-b as a new Int. Panics semantics are avoided: callers must
// check SubBounded when the result could legitimately go negative.
func Sub(a, b *uint256.Int) *uint256.Int { return new(uint256.Int).Sub(a, b) }

// SubBounded returns max(a-b, 0), used wherever the spec says a supply or
// pool must be "bounded at 0" rather than underflow.
func SubBounded(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return Zero()
	}
	return Sub(a, b)
}

// LessThan reports whether a < b.
func LessThan(a, b *uint256.Int) bool { return a.Cmp(b) < 0 }

// GreaterThan reports whether a > b.
func GreaterThan(a, b *uint256.Int) bool { return a.Cmp(b) > 0 }

// Min returns the smaller of a, b.
func Min(a, b *uint256.Int) *uint256.Int {
	if LessThan(a, b) {
		return a.Clone()
	}
	return b.Clone()
}

// BpsOf returns floor(amount * bps / BpsDenominator).
func BpsOf(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDivFloor(amount, FromUint64(bps), BpsDenominator)
}
