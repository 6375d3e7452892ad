package strategy

import (
	"testing"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/order"
	"github.com/jaxquant/backtest/internal/risk"
)

func TestMACrossoverIDAndIndicators(t *testing.T) {
	data := lineseries.NewDataSeries()
	br := broker.New(broker.DefaultConfig())
	s := NewMACrossover(data, br, "SYM")

	if s.ID() != "ma_crossover_v1" {
		t.Fatalf("unexpected id %q", s.ID())
	}
	if len(s.Indicators()) != 4 {
		t.Fatalf("expected 4 dependent indicators, got %d", len(s.Indicators()))
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	factory := func(b BrokerBinder) Strategy { return nil }
	if err := r.Register(Metadata{ID: "x"}, factory); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(Metadata{ID: "x"}, factory); err == nil {
		t.Fatalf("expected error on duplicate ID")
	}
}

func TestRegistryNewUnknownID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("nope", nil); err == nil {
		t.Fatalf("expected error for unknown strategy ID")
	}
}

func TestRiskGateBlocksOversizedOrder(t *testing.T) {
	br := broker.New(broker.DefaultConfig()) // $100,000 cash
	base := NewBase("test", br, "SYM")

	policy := risk.DefaultPolicy()
	policy.Portfolio.MaxPositionSize = 1_000
	base.UseRiskGate(risk.NewEnforcer(policy))

	_, err := base.Buy(time.Now(), 100, 50, 0, order.Market) // 100*50 = 5000 > 1000 limit
	if err == nil {
		t.Fatal("expected risk gate to reject oversized order")
	}
}

func TestRegisterBuiltinsWiresAllThree(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins failed: %v", err)
	}
	data := lineseries.NewDataSeries()
	br := broker.New(broker.DefaultConfig())
	binder := NewBinder("SYM", br, data)

	for _, id := range []string{"ma_crossover_v1", "macd_crossover_v1", "rsi_momentum_v1"} {
		s, err := r.New(id, binder)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", id, err)
		}
		if s.ID() != id {
			t.Errorf("expected strategy ID %s, got %s", id, s.ID())
		}
	}
}

func TestRiskGateAllowsOrderWithinLimits(t *testing.T) {
	br := broker.New(broker.DefaultConfig())
	base := NewBase("test", br, "SYM")
	base.UseRiskGate(risk.NewEnforcer(risk.DefaultPolicy()))

	_, err := base.Buy(time.Now(), 10, 50, 0, order.Market)
	if err != nil {
		t.Fatalf("expected order to pass default risk gate, got: %v", err)
	}
}
