package lineseries

import (
	"math"
	"testing"
)

func TestRelativeIndexing(t *testing.T) {
	b := NewBuffer()
	vals := []float64{1, 2, 3, 4, 5}
	for _, v := range vals {
		b.Append(v)
	}
	if got := b.At(0); got != 5 {
		t.Fatalf("At(0) = %v, want 5", got)
	}
	for k := 0; k < len(vals); k++ {
		want := vals[len(vals)-1-k]
		if got := b.At(-k); got != want {
			t.Fatalf("At(-%d) = %v, want %v", k, got, want)
		}
	}
}

func TestOutOfRangeIsNaN(t *testing.T) {
	b := NewBuffer()
	b.Append(1)
	b.Append(2)
	if !math.IsNaN(b.At(-5)) {
		t.Fatalf("expected NaN for out-of-range lookback")
	}
	if !math.IsNaN(b.At(1)) {
		t.Fatalf("expected NaN for future index")
	}
}

func TestSetWritesCurrentSlot(t *testing.T) {
	b := NewBuffer()
	b.Append(math.NaN())
	b.Set(0, 42)
	if got := b.At(0); got != 42 {
		t.Fatalf("Set(0, 42) then At(0) = %v, want 42", got)
	}
}

func TestResetClearsAndRewindsCursor(t *testing.T) {
	b := NewBuffer()
	b.Append(1)
	b.Append(2)
	b.Reset()
	if b.DataSize() != 0 || b.Idx() != -1 {
		t.Fatalf("Reset did not clear: size=%d idx=%d", b.DataSize(), b.Idx())
	}
}

func TestForwardAdvancesWithoutAppend(t *testing.T) {
	b := NewBuffer()
	b.Grow(3)
	b.Forward(2)
	if b.Idx() != 1 {
		t.Fatalf("Forward(2) from -1, got idx=%d", b.Idx())
	}
}

func TestSafeDiv(t *testing.T) {
	if got := SafeDiv(1, 0, 50); got != 50 {
		t.Fatalf("SafeDiv by zero = %v, want fallback 50", got)
	}
	if got := SafeDiv(10, 2, 50); got != 5 {
		t.Fatalf("SafeDiv(10,2) = %v, want 5", got)
	}
}
