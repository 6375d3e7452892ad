package telemetry

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics is a pre-wired set of collectors for one engine process,
// backed by the client_golang registry rather than a hand-rolled text
// exporter — a long-running live-mode engine benefits from the
// ecosystem collector (HTTP handler, pushgateway support, histogram
// quantiles) that a hand-rolled registry would have to reimplement.
type Metrics struct {
	Registry *prometheus.Registry

	BarsProcessed   *prometheus.CounterVec
	OrdersSubmitted *prometheus.CounterVec
	OrdersFilled    *prometheus.CounterVec
	TradesClosed    *prometheus.CounterVec
	FillLatency     *prometheus.HistogramVec
	Equity          *prometheus.GaugeVec
	ActivePositions *prometheus.GaugeVec
	Drawdown        *prometheus.GaugeVec
}

// NewMetrics registers every collector into a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		BarsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_bars_processed_total",
			Help: "Total bars processed, by data ID.",
		}, []string{"data_id"}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_orders_submitted_total",
			Help: "Total orders submitted, by data ID and order type.",
		}, []string{"data_id", "order_type"}),
		OrdersFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_orders_filled_total",
			Help: "Total orders filled (fully or partially), by data ID.",
		}, []string{"data_id"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_closed_total",
			Help: "Total trades closed, by data ID and win/loss.",
		}, []string{"data_id", "outcome"}),
		FillLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backtest_fill_latency_bars",
			Help:    "Bars elapsed between order submission and fill.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}, []string{"data_id"}),
		Equity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_equity",
			Help: "Current account equity mark-to-market.",
		}, []string{"run_id"}),
		ActivePositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_active_positions",
			Help: "Number of currently open positions, by data ID.",
		}, []string{"data_id"}),
		Drawdown: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_drawdown_pct",
			Help: "Current drawdown percentage from peak equity.",
		}, []string{"run_id"}),
	}

	reg.MustRegister(
		m.BarsProcessed, m.OrdersSubmitted, m.OrdersFilled, m.TradesClosed,
		m.FillLatency, m.Equity, m.ActivePositions, m.Drawdown,
	)
	return m
}

// WriteText gathers every collector and writes it in the Prometheus text
// exposition format, for a one-shot batch run that has no long-lived
// /metrics HTTP endpoint to scrape.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
