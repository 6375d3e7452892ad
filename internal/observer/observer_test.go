package observer

import (
	"math"
	"testing"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/order"
)

func TestBrokerObserverTracksCashAndValue(t *testing.T) {
	br := broker.New(broker.DefaultConfig())
	prices := map[string]float64{"SYM": 100}
	obs := NewBrokerObserver(br, prices)
	obs.Start()
	obs.Next()

	if obs.cash.At(0) != br.GetCash() {
		t.Fatalf("cash line mismatch")
	}
	if obs.value.At(0) != br.GetValue(prices) {
		t.Fatalf("value line mismatch")
	}
}

func TestTradesObserverRecordsWinAndLoss(t *testing.T) {
	obs := NewTradesObserver(true)
	obs.Start()
	obs.Next()

	winTrade := order.NewTrade("SYM")
	winTrade.Update(time.Now(), 10, 10, 0, 0)
	winTrade.Update(time.Now(), -10, 12, 0, 1)
	obs.NotifyTrade(winTrade)

	if math.IsNaN(obs.pnlPlus.At(0)) {
		t.Fatalf("expected pnlPlus to record the win")
	}
	stats := obs.Stats()
	if stats.TotalTrades != 1 || stats.TradesPlus != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDrawDownObserverTracksPeakAndDrawdown(t *testing.T) {
	br := broker.New(broker.Config{Cash: 1000, Filler: broker.FixedSize{}, Commission: broker.PerShareCommission{}})
	prices := map[string]float64{"SYM": 0}
	obs := NewDrawDownObserver(br, prices)
	obs.Start()

	prices["SYM"] = 0
	obs.Next()
	if obs.PeakValue() != 1000 {
		t.Fatalf("expected initial peak 1000, got %v", obs.PeakValue())
	}
	if obs.CurrentDrawdownPct() != 0 {
		t.Fatalf("expected zero drawdown at the peak, got %v", obs.CurrentDrawdownPct())
	}
}

func TestTransactionsAnalyzerAggregates(t *testing.T) {
	a := NewTransactionsAnalyzer()
	o := order.Buy("SYM", 10, 100, 0, order.Market, time.Now())
	o.Status = order.Completed
	o.Executed.AddBit(order.NewExecutionBit(time.Now(), 10, 100, 0, 0, 0, 10, 1000, 1, 0, 10, 100))
	a.NotifyOrder(o)

	tr := order.NewTrade("SYM")
	tr.Update(time.Now(), 10, 100, 1, 0)
	tr.Update(time.Now(), -10, 110, 1, 1)
	a.NotifyTrade(tr)

	analysis := a.GetAnalysis()
	if analysis["total_orders"] != 1 {
		t.Fatalf("expected 1 order, got %v", analysis["total_orders"])
	}
	if analysis["total_trades"] != 1 {
		t.Fatalf("expected 1 trade, got %v", analysis["total_trades"])
	}
}
