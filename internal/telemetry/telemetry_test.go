package telemetry

import (
	"context"
	"testing"
)

func TestRunInfoRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunInfo(ctx, RunInfo{RunID: "run_1", StrategyID: "ma_crossover_v1", DataID: "SYM"})

	info := RunInfoFromContext(ctx)
	if info.RunID != "run_1" || info.StrategyID != "ma_crossover_v1" || info.DataID != "SYM" {
		t.Fatalf("unexpected round-trip: %+v", info)
	}
}

func TestFlowIDPropagation(t *testing.T) {
	ctx := WithFlowID(context.Background(), "flow_abc")
	if FlowIDFromContext(ctx) != "flow_abc" {
		t.Fatalf("expected flow_abc, got %q", FlowIDFromContext(ctx))
	}
	if FlowIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty flow id on bare context")
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Fatalf("two run ids collided: %s", a)
	}
}

func TestMetricsRegisterWithoutPanic(t *testing.T) {
	m := NewMetrics()
	m.BarsProcessed.WithLabelValues("SYM").Inc()
	m.Equity.WithLabelValues("run_1").Set(100000)
}
