// Package telemetry carries structured logging and metrics across the
// engine using a context-propagated RunInfo/flow-ID shape: one RunID
// per Cerebro.Run, one FlowID per strategy instance.
package telemetry

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	strategyIDKey contextKey = "strategy_id"
	dataIDKey     contextKey = "data_id"
	flowIDKey     contextKey = "flow_id"
)

// RunInfo carries trace identifiers through a request context: FlowID
// spans one strategy's full lifecycle (bootstrap -> bar loop -> stop),
// RunID is per Cerebro.Run invocation.
type RunInfo struct {
	RunID      string
	StrategyID string
	DataID     string
	FlowID     string
}

func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	if info.RunID != "" {
		ctx = context.WithValue(ctx, runIDKey, info.RunID)
	}
	if info.StrategyID != "" {
		ctx = context.WithValue(ctx, strategyIDKey, info.StrategyID)
	}
	if info.DataID != "" {
		ctx = context.WithValue(ctx, dataIDKey, info.DataID)
	}
	if info.FlowID != "" {
		ctx = context.WithValue(ctx, flowIDKey, info.FlowID)
	}
	return ctx
}

func RunInfoFromContext(ctx context.Context) RunInfo {
	info := RunInfo{}
	if v := ctx.Value(runIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.RunID = s
		}
	}
	if v := ctx.Value(strategyIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.StrategyID = s
		}
	}
	if v := ctx.Value(dataIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.DataID = s
		}
	}
	if v := ctx.Value(flowIDKey); v != nil {
		if s, ok := v.(string); ok {
			info.FlowID = s
		}
	}
	return info
}

func WithFlowID(ctx context.Context, flowID string) context.Context {
	if flowID == "" {
		return ctx
	}
	return context.WithValue(ctx, flowIDKey, flowID)
}

func FlowIDFromContext(ctx context.Context) string {
	if v := ctx.Value(flowIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
