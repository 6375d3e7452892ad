package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// LogEvent emits one structured JSON line, tagging it with whatever
// RunInfo is carried on ctx.
func LogEvent(ctx context.Context, level, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.FlowID != "" {
		payload["flow_id"] = info.FlowID
	}
	if info.RunID != "" {
		payload["run_id"] = info.RunID
	}
	if info.StrategyID != "" {
		payload["strategy_id"] = info.StrategyID
	}
	if info.DataID != "" {
		payload["data_id"] = info.DataID
	}

	for k, v := range fields {
		if err, ok := v.(error); ok {
			payload[k] = err.Error()
			continue
		}
		payload[k] = v
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogBarProcessed emits one debug-level bar_processed event for a single
// bar. Nothing in this module calls it; the engine's per-bar loop does
// not log.
func LogBarProcessed(ctx context.Context, dataID string, barIndex int, dt time.Time) {
	LogEvent(ctx, "debug", "bar_processed", map[string]any{
		"data_id":  dataID,
		"bar":      barIndex,
		"bar_time": dt.UTC().Format(time.RFC3339),
	})
}

// LogOrderSubmitted/LogOrderFilled/LogTradeClosed emit info-level
// order/trade lifecycle events. Nothing in this module calls them; the
// broker and the engine's notification path record orders and trades
// through metrics only.
func LogOrderSubmitted(ctx context.Context, ref int64, dataID string, size, price float64) {
	LogEvent(ctx, "info", "order_submitted", map[string]any{
		"ref": ref, "data_id": dataID, "size": size, "price": price,
	})
}

func LogOrderFilled(ctx context.Context, ref int64, dataID string, size, price float64) {
	LogEvent(ctx, "info", "order_filled", map[string]any{
		"ref": ref, "data_id": dataID, "size": size, "price": price,
	})
}

func LogTradeClosed(ctx context.Context, dataID string, pnl, pnlComm float64) {
	LogEvent(ctx, "info", "trade_closed", map[string]any{
		"data_id": dataID, "pnl": pnl, "pnl_comm": pnlComm,
	})
}

func LogRunStart(ctx context.Context, strategyID string) {
	LogEvent(ctx, "info", "run_start", map[string]any{"strategy_id": strategyID})
}

func LogRunEnd(ctx context.Context, strategyID string, duration time.Duration, err error) {
	fields := map[string]any{
		"strategy_id": strategyID,
		"latency_ms":  duration.Milliseconds(),
		"success":     err == nil,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogEvent(ctx, "info", "run_end", fields)
}
