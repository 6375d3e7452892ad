package telemetry

import "github.com/google/uuid"

// NewRunID generates a unique identifier for one Cerebro.Run invocation.
func NewRunID() string { return "run_" + uuid.NewString() }

// NewFlowID generates a unique identifier for one strategy's full
// bootstrap-to-stop lifecycle.
func NewFlowID() string { return "flow_" + uuid.NewString() }
