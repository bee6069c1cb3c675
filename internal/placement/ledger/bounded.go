package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrAboveMax means current+delta overflowed the upper bound.
	ErrAboveMax = errors.New("above upper bound")
	// ErrBelowZero means current+delta went negative and clamping is off.
	ErrBelowZero = errors.New("below zero")
)

// Bounds is the valid range [0, Max] of a guarded quantity.
type Bounds struct {
	// Max is the inclusive upper bound; an invalid Max means unbounded.
	Max decimal.NullDecimal
	// ClampAtZero turns a negative result into zero instead of ErrBelowZero.
	ClampAtZero bool
}

// Result is the outcome of Apply.
type Result struct {
	Value   decimal.Decimal
	Clamped bool
}

// Apply computes current+delta within b. It is pure; the caller persists
// Value with a conditional write.
func Apply(current, delta decimal.Decimal, b Bounds) (Result, error) {
	next := current.Add(delta)

	if b.Max.Valid && next.GreaterThan(b.Max.Decimal) {
		return Result{Value: current}, ErrAboveMax
	}

	if next.IsNegative() {
		if !b.ClampAtZero {
			return Result{Value: current}, ErrBelowZero
		}
		return Result{Value: decimal.Zero, Clamped: true}, nil
	}

	return Result{Value: next}, nil
}
