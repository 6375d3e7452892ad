package order

import (
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// S4: trade accumulation across +10@10, -5@12.5, +7@14.5, -12@12.5.
func TestTradeAccumulation_S4(t *testing.T) {
	now := time.Now()
	tr := NewTrade("SYM")

	tr.Update(now, 10, 10, 0, 0)
	if !approx(tr.Size, 10) || !approx(tr.Price, 10) || tr.Status != TradeOpen {
		t.Fatalf("after fill 1: size=%v price=%v status=%v", tr.Size, tr.Price, tr.Status)
	}

	tr.Update(now, -5, 12.5, 0, 1)
	if !approx(tr.Size, 5) || !approx(tr.Price, 10) {
		t.Fatalf("after fill 2: size=%v price=%v", tr.Size, tr.Price)
	}

	tr.Update(now, 7, 14.5, 0, 2)
	if !approx(tr.Size, 12) || !approx(tr.Price, 12.625) {
		t.Fatalf("after fill 3: size=%v price=%v, want 12, 12.625", tr.Size, tr.Price)
	}

	realized, remainder, flipped := tr.Update(now, -12, 12.5, 0, 3)
	if flipped {
		t.Fatalf("fill 4 should not flip (exact flatten)")
	}
	if remainder != 0 {
		t.Fatalf("remainder = %v, want 0", remainder)
	}
	if tr.Status != TradeClosed || tr.Size != 0 {
		t.Fatalf("trade should be closed with size 0, got status=%v size=%v", tr.Status, tr.Size)
	}
	_ = realized
	if !approx(tr.PNL, 11.0) {
		t.Fatalf("final PNL = %v, want 11.0", tr.PNL)
	}
	if !approx(tr.PNLComm(), tr.PNL-tr.Commission) {
		t.Fatalf("PNLComm invariant violated")
	}
}

func TestTradeFastFlip(t *testing.T) {
	now := time.Now()
	tr := NewTrade("SYM")
	tr.Update(now, 10, 10, 0, 0)

	realized, remainder, flipped := tr.Update(now, -15, 12, 0, 1)
	if !flipped {
		t.Fatalf("expected a flip when selling through zero")
	}
	if !approx(realized, 10*(12-10)) {
		t.Fatalf("flip realized pnl = %v, want %v", realized, 10*(12-10))
	}
	if !approx(remainder, -5) {
		t.Fatalf("flip remainder = %v, want -5", remainder)
	}
	if tr.Status != TradeClosed {
		t.Fatalf("old trade must close on flip")
	}

	// caller opens a fresh trade with the remainder at the same price.
	tr2 := NewTrade("SYM")
	tr2.Update(now, remainder, 12, 0, 1)
	if !approx(tr2.Size, -5) || !approx(tr2.Price, 12) || tr2.Status != TradeOpen {
		t.Fatalf("new trade after flip: size=%v price=%v status=%v", tr2.Size, tr2.Price, tr2.Status)
	}
}

func TestOrderFIFOTieBreak(t *testing.T) {
	a := New("SYM", 1, 0, 0, Market, time.Now())
	b := New("SYM", 1, 0, 0, Market, time.Now())
	if !(a.Ref < b.Ref) {
		t.Fatalf("expected ascending refs: a=%d b=%d", a.Ref, b.Ref)
	}
}

func TestOrderAliveStates(t *testing.T) {
	o := New("SYM", 10, 0, 0, Market, time.Now())
	if !o.Alive() {
		t.Fatalf("Created order should be alive")
	}
	o.Status = Completed
	if o.Alive() {
		t.Fatalf("Completed order should not be alive")
	}
}
