package engine

import (
	"math"
	"testing"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/observer"
	"github.com/jaxquant/backtest/internal/resample"
	"github.com/jaxquant/backtest/internal/strategy"
)

func makeBars(closes []float64) []resample.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]resample.Bar, len(closes))
	for i, c := range closes {
		bars[i] = resample.Bar{
			DateTime: t0.Add(time.Duration(i) * time.Minute),
			Open:     c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return bars
}

func TestCerebroRunsGoldenCrossEndToEnd(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	bars := makeBars(closes)

	br := broker.New(broker.DefaultConfig())
	c := New(br)

	feed := NewFeed("SYM", bars, nil)
	c.AddFeed(feed)

	s := strategy.NewMACrossover(feed.Data, br, "SYM")
	c.AddStrategy(s)

	prices := c.lastPrices
	c.AddObserver(observer.NewBrokerObserver(br, prices))
	txn := observer.NewTransactionsAnalyzer()
	c.AddAnalyzer(txn)

	results, err := c.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one analyzer result, got %d", len(results))
	}

	analysis := results["analyzer-0"]
	if analysis == nil {
		t.Fatalf("missing analyzer-0 results")
	}
	if totalOrders, _ := analysis["total_orders"].(int); totalOrders == 0 {
		t.Fatalf("expected at least one order on a steadily rising series")
	}
}

func TestCerebroHandlesEmptyFeed(t *testing.T) {
	br := broker.New(broker.DefaultConfig())
	c := New(br)
	feed := NewFeed("SYM", nil, nil)
	c.AddFeed(feed)

	results, err := c.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no analyzer results, got %d", len(results))
	}
}

func TestFeedWithResamplerAggregates(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12, 13, 14})
	params := resample.DefaultParams(resample.Minutes, 5)
	feed := NewFeed("SYM", bars, &params)

	for {
		ok, err := feed.advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if !ok {
			break
		}
	}
	if feed.Data.Close().DataSize() != 1 {
		t.Fatalf("expected exactly one aggregated 5-minute bar, got %d", feed.Data.Close().DataSize())
	}
	if math.Abs(feed.Data.Open().At(0)-10) > 1e-9 {
		t.Fatalf("expected aggregated open 10, got %v", feed.Data.Open().At(0))
	}
}
