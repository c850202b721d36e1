package safemath

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr error
	}{
		{"simple", 2, 3, 5, nil},
		{"negative", -2, -3, -5, nil},
		{"overflow", math.MaxInt64, 1, 0, ErrOverflow},
		{"underflow", math.MinInt64, -1, 0, ErrUnderflow},
		{"at max", math.MaxInt64 - 1, 1, math.MaxInt64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.a, tt.b)
			if err != tt.wantErr {
				t.Fatalf("Add(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Add(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	if _, err := Sub(math.MinInt64, 1); err != ErrUnderflow {
		t.Fatalf("expected underflow, got %v", err)
	}
	got, err := Sub(10, 4)
	if err != nil || got != 6 {
		t.Fatalf("Sub(10,4) = %d, %v", got, err)
	}
}

func TestMul(t *testing.T) {
	if _, err := Mul(math.MaxInt64, 2); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	got, err := Mul(1000, 10000)
	if err != nil || got != 10_000_000 {
		t.Fatalf("Mul = %d, %v", got, err)
	}
	got, err = Mul(0, math.MaxInt64)
	if err != nil || got != 0 {
		t.Fatalf("Mul by zero = %d, %v", got, err)
	}
}

func TestDiv(t *testing.T) {
	if _, err := Div(1, 0); err != ErrDivisionByZero {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if _, err := Div(math.MinInt64, -1); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	// Truncation toward zero.
	got, _ := Div(7, 2)
	if got != 3 {
		t.Fatalf("Div(7,2) = %d, want 3", got)
	}
}

func TestMulDiv(t *testing.T) {
	// shares = amount * total_shares / total_liquidity
	got, err := MulDiv(500, 1000, 1000)
	if err != nil || got != 500 {
		t.Fatalf("MulDiv = %d, %v", got, err)
	}
	if _, err := MulDiv(math.MaxInt64, 2, 1); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestAddU32(t *testing.T) {
	if _, err := AddU32(math.MaxUint32, 1); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	got, err := AddU32(50, 20)
	if err != nil || got != 70 {
		t.Fatalf("AddU32 = %d, %v", got, err)
	}
}
