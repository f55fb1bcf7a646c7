package store

import "fmt"

// Money is a fixed-point decimal amount with scale 2 (spec.md §3), stored
// as minor units (e.g. cents) to avoid floating-point drift in booking
// and refund arithmetic.
type Money int64

// NewMoney constructs a Money value from a major-unit float, e.g.
// NewMoney(12.50) == 1250 minor units.
func NewMoney(major float64) Money {
	return Money(major*100 + 0.5)
}

// Mul scales a Money amount by an integer quantity.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// Percent returns the Money amount scaled by pct/100, rounded to the
// nearest minor unit.
func (m Money) Percent(pct int) Money {
	return Money((int64(m)*int64(pct) + 50) / 100)
}

// Major returns the amount as a major-unit float (for display only).
func (m Money) Major() float64 { return float64(m) / 100 }

func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Major())
}
