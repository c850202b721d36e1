// Package safemath provides overflow-checked integer arithmetic for the
// on-ledger contracts. Every amount and share computation in the protocol
// must go through these helpers so that arithmetic faults surface as errors
// instead of silently wrapping.
package safemath

import (
	"errors"
	"math"
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// Add returns a+b or ErrOverflow.
func Add(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrUnderflow
	}
	return a + b, nil
}

// Sub returns a-b or ErrUnderflow.
func Sub(a, b int64) (int64, error) {
	if b > 0 && a < math.MinInt64+b {
		return 0, ErrUnderflow
	}
	if b < 0 && a > math.MaxInt64+b {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	res := a * b
	if res/b != a {
		return 0, ErrOverflow
	}
	return res, nil
}

// Div returns a/b truncated toward zero, or ErrDivisionByZero.
func Div(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	// The single int64 overflow case for division.
	if a == math.MinInt64 && b == -1 {
		return 0, ErrOverflow
	}
	return a / b, nil
}

// MulDiv computes a*b/c, truncating toward zero. The intermediate product is
// overflow-checked, so callers see an error rather than a wrapped result.
func MulDiv(a, b, c int64) (int64, error) {
	p, err := Mul(a, b)
	if err != nil {
		return 0, err
	}
	return Div(p, c)
}

// AddU32 returns a+b or ErrOverflow when the sum exceeds the uint32 width.
func AddU32(a, b uint32) (uint32, error) {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return 0, ErrOverflow
	}
	return uint32(sum), nil
}
