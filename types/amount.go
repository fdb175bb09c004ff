// Package types provides common types used across Subledger.
package types

import (
	"fmt"
	"math/big"
	"time"
)

// Unit is the number of base units in one native unit. All amounts are
// held in base units (9 decimals), so one native unit is 1_000_000_000.
const Unit int64 = 1_000_000_000

// BasisPointDivisor is the denominator for basis-point math: 10000 = 100%.
const BasisPointDivisor int64 = 10_000

// Amount is a monetary value in base units of the single native currency.
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Native(1)        = 1.000000000 (one native unit)
//   - Milli(10)        = 0.010000000
//   - Amount(500_000)  = 0.000500000
type Amount int64

// Native creates an Amount from whole native units.
func Native(units int64) Amount { return Amount(units * Unit) }

// Milli creates an Amount from thousandths of a native unit.
func Milli(m int64) Amount { return Amount(m * (Unit / 1000)) }

// Arithmetic operations

// Add adds two amounts.
func (a Amount) Add(other Amount) Amount { return a + other }

// Sub subtracts another amount.
func (a Amount) Sub(other Amount) Amount { return a - other }

// Mul multiplies the amount by a quantity.
func (a Amount) Mul(qty int64) Amount { return a * Amount(qty) }

// Div divides the amount by a divisor. Uses integer division.
func (a Amount) Div(divisor int64) Amount {
	if divisor == 0 {
		panic("amount: division by zero")
	}
	return a / Amount(divisor)
}

// BasisPoints returns floor(a * bps / 10000).
func (a Amount) BasisPoints(bps int64) Amount {
	return a.MulDiv(bps, BasisPointDivisor)
}

// MulDiv returns floor(a * num / den) computed without intermediate
// overflow. The a*num product can exceed int64 for realistic amounts and
// durations, so the multiplication goes through math/big.
func (a Amount) MulDiv(num, den int64) Amount {
	if den == 0 {
		panic("amount: division by zero")
	}
	r := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(num))
	r.Quo(r, big.NewInt(den))
	return Amount(r.Int64())
}

// ProRata returns the share of the amount proportional to elapsed out of
// total, floored: floor(a * elapsed / total).
func (a Amount) ProRata(elapsed, total time.Duration) Amount {
	return a.MulDiv(int64(elapsed), int64(total))
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Min returns the smaller of two amounts.
func (a Amount) Min(other Amount) Amount {
	if a < other {
		return a
	}
	return other
}

// Max returns the larger of two amounts.
func (a Amount) Max(other Amount) Amount {
	if a > other {
		return a
	}
	return other
}

// ClampZero returns the amount, or zero if it is negative.
func (a Amount) ClampZero() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// Int64 returns the amount in base units.
func (a Amount) Int64() int64 { return int64(a) }

// Formatting methods

// String returns the amount in native units with 9 decimal places,
// e.g. "0.010000000" for Milli(10).
func (a Amount) String() string {
	v := int64(a)
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d.%09d", v/Unit, v%Unit)
	if neg {
		return "-" + s
	}
	return s
}

// SumAmounts calculates the sum of multiple amounts.
func SumAmounts(values ...Amount) Amount {
	var total Amount
	for _, v := range values {
		total += v
	}
	return total
}
