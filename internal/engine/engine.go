// Package engine implements the Cerebro-style top-level driver: it
// bootstraps data feeds, indicators, strategies, observers and
// analyzers, then runs the single-threaded per-bar loop described by
// the engine's ordering guarantees (indicators before strategy next,
// before broker matching, before observer/analyzer notification,
// before notification delivery).
package engine

import (
	"fmt"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/indicator"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/observer"
	"github.com/jaxquant/backtest/internal/order"
	"github.com/jaxquant/backtest/internal/resample"
	"github.com/jaxquant/backtest/internal/strategy"
	"github.com/jaxquant/backtest/internal/telemetry"
)

// Feed owns one instrument's DataSeries and the raw bar stream that
// feeds it, optionally passing every raw bar through a Resampler first.
type Feed struct {
	DataID string
	Data   *lineseries.DataSeries

	raw       []resample.Bar
	pos       int
	resampler *resample.Resampler

	// queue is set for a live feed (NewLiveFeed): advance() blocks on it
	// instead of walking raw, the thread-safe producer/consumer hand-off
	// spec.md §5 describes for live data sources.
	queue *BarQueue

	// preloaded and walked track the batch-materialized walk: once
	// loadAll has pushed every bar into Data up front, advance() just
	// forwards the cursor instead of appending.
	preloaded bool
	walked    int
}

// Materialized reports whether every bar this feed will ever produce is
// already known up front, i.e. no streaming resample transform or live
// queue sits between the raw source and Data. Such a feed can have its
// indicators driven by the batch Once path instead of per-bar dispatch.
func (f *Feed) Materialized() bool { return f.resampler == nil && f.queue == nil }

// loadAll pushes every raw bar into Data immediately, then rewinds the
// cursor back to before the first bar so Run can walk it forward one bar
// at a time, matching the streaming cursor contract the rest of the
// engine expects.
func (f *Feed) loadAll() error {
	for _, b := range f.raw {
		if err := f.push(b); err != nil {
			return err
		}
	}
	f.pos = len(f.raw)
	f.preloaded = true
	f.Data.Rewind()
	return nil
}

// NewFeed wraps a raw bar slice. If params is non-nil the feed is
// resampled per bootstrap step 1; otherwise every raw bar is pushed
// through unchanged.
func NewFeed(dataID string, raw []resample.Bar, params *resample.Params) *Feed {
	f := &Feed{DataID: dataID, Data: lineseries.NewDataSeries(), raw: raw}
	if params != nil {
		r := resample.NewResampler(*params)
		f.resampler = r
	}
	return f
}

// advance pushes the next logical bar into Data, returning false once
// the underlying raw stream (and any buffered resampler state) is
// exhausted.
func (f *Feed) advance() (bool, error) {
	if f.queue != nil {
		b, ok := f.queue.Recv()
		if !ok {
			return false, nil
		}
		return true, f.push(b)
	}
	if f.preloaded {
		if f.walked >= len(f.raw) {
			return false, nil
		}
		f.Data.Forward(1)
		f.walked++
		return true, nil
	}
	if f.resampler == nil {
		if f.pos >= len(f.raw) {
			return false, nil
		}
		b := f.raw[f.pos]
		f.pos++
		return true, f.push(b)
	}

	for f.pos < len(f.raw) {
		b := f.raw[f.pos]
		f.pos++
		if out, ok := f.resampler.Feed(b); ok {
			return true, f.push(out)
		}
	}
	if out, ok := f.resampler.Close(); ok {
		return true, f.push(out)
	}
	return false, nil
}

func (f *Feed) push(b resample.Bar) error {
	return f.Data.AddBar(float64(b.DateTime.Unix()), b.Open, b.High, b.Low, b.Close, b.Volume, b.OI)
}

// IndicatorProvider is implemented by strategies that expose the
// indicators they were built against, so the engine can fold them into
// the bootstrap's topological ordering and min_period propagation.
type IndicatorProvider interface {
	Indicators() []indicator.Indicator
}

// Cerebro is the top-level engine: it owns feeds, the broker, the
// strategy set, and the observer/analyzer pipeline, built around a
// builder-style construction (WithCapital/WithRiskPerTrade) generalized
// to the full bar-driven indicator/strategy/broker loop.
type Cerebro struct {
	feeds      []*Feed
	strategies []strategy.Strategy
	indicators []indicator.Indicator
	minPeriods map[indicator.Indicator]int

	br        *broker.Broker
	observers []observer.Observer
	analyzers []Analyzer

	lastPrices map[string]float64

	orderQueue     []*order.Order
	tradeQueue     []*order.Trade
	cashValueQueue []cashValueEvent

	barIndex int
	started  bool

	// batchIndicators is set when the whole run's indicator set was
	// already filled via Once at bootstrap, so stepIndicators only needs
	// to walk their output cursors forward rather than dispatch them.
	batchIndicators bool

	metrics   *telemetry.Metrics
	runID     string
	peakValue float64
}

// UseMetrics attaches a telemetry.Metrics instance and the run ID its
// Equity/Drawdown gauges are labeled with. Unset by default.
func (c *Cerebro) UseMetrics(m *telemetry.Metrics, runID string) {
	c.metrics = m
	c.runID = runID
}

type cashValueEvent struct {
	cash, value float64
}

// Analyzer mirrors observer.Analyzer but is kept as its own interface
// here so the engine package does not require every analyzer to also
// be notification-capable; analyzers that care about orders/trades
// implement the optional NotifyOrder/NotifyTrade methods and are
// type-asserted at delivery time, the same way Observer is.
type Analyzer = observer.Analyzer

func New(br *broker.Broker) *Cerebro {
	return &Cerebro{
		br:         br,
		minPeriods: make(map[indicator.Indicator]int),
		lastPrices: make(map[string]float64),
	}
}

func (c *Cerebro) AddFeed(f *Feed) {
	c.feeds = append(c.feeds, f)
	c.lastPrices[f.DataID] = 0
}

func (c *Cerebro) AddStrategy(s strategy.Strategy) {
	c.strategies = append(c.strategies, s)
	if p, ok := s.(IndicatorProvider); ok {
		c.indicators = append(c.indicators, p.Indicators()...)
	}
}

func (c *Cerebro) AddObserver(o observer.Observer) { c.observers = append(c.observers, o) }
func (c *Cerebro) AddAnalyzer(a Analyzer)          { c.analyzers = append(c.analyzers, a) }

// Bootstrap performs steps 1-5 of the engine's bootstrap order: fixing
// feeds (already wrapped at AddFeed time), resolving the indicator
// dependency graph, computing min_period bottom-up, then propagating
// Start() to every component.
func (c *Cerebro) Bootstrap() error {
	ids := make([]string, len(c.indicators))
	inds := make(map[string]indicator.Indicator, len(c.indicators))
	deps := make(map[string][]string, len(c.indicators))
	for i, ind := range c.indicators {
		id := fmt.Sprintf("ind-%d", i)
		ids[i] = id
		inds[id] = ind
		deps[id] = nil // composite indicators read DataSeries directly, not each other
	}
	ordered, err := indicator.Sort(ids, deps, inds)
	if err != nil {
		return fmt.Errorf("engine: indicator dependency cycle: %w", err)
	}
	c.indicators = ordered

	for _, ind := range c.indicators {
		c.minPeriods[ind] = ind.MinPeriod()
	}

	// Hybrid policy: when the run's data is fully materialized up front
	// (a single non-resampled feed, the common CSV-backed case), prefer
	// filling every indicator's whole range via Once over per-bar
	// PreNext/NextStart/Next dispatch.
	if len(c.feeds) == 1 && c.feeds[0].Materialized() && len(c.feeds[0].raw) > 0 {
		f := c.feeds[0]
		if err := f.loadAll(); err != nil {
			return fmt.Errorf("engine: materialize feed %s: %w", f.DataID, err)
		}
		n := len(f.raw)
		for _, ind := range c.indicators {
			ind.Once(0, n)
			ind.Lines().Rewind()
		}
		c.batchIndicators = true
	}

	c.br.OnNotifyOrder(func(o *order.Order) { c.orderQueue = append(c.orderQueue, o) })
	c.br.OnNotifyTrade(func(t *order.Trade) { c.tradeQueue = append(c.tradeQueue, t) })

	for _, ind := range c.indicators {
		ind.Start()
	}
	for _, s := range c.strategies {
		s.Start()
	}
	for _, o := range c.observers {
		o.Start()
	}
	for _, a := range c.analyzers {
		a.Start()
	}
	c.started = true
	return nil
}

// Run advances every feed in lock-step until all are exhausted,
// executing the per-bar loop each step, then shuts everything down in
// reverse order and collects analyzer results.
func (c *Cerebro) Run() (map[string]map[string]any, error) {
	if !c.started {
		if err := c.Bootstrap(); err != nil {
			return nil, err
		}
	}

	for {
		anyAdvanced := false
		for _, f := range c.feeds {
			ok, err := f.advance()
			if err != nil {
				return nil, fmt.Errorf("engine: feed %s: %w", f.DataID, err)
			}
			if ok {
				anyAdvanced = true
				c.lastPrices[f.DataID] = f.Data.Close().At(0)
				if c.metrics != nil {
					c.metrics.BarsProcessed.WithLabelValues(f.DataID).Inc()
				}
			}
		}
		if !anyAdvanced {
			break
		}

		c.stepIndicators()
		c.stepStrategies()

		for _, f := range c.feeds {
			c.br.Next(f.DataID, broker.Bar{
				DateTime: time.Unix(int64(f.Data.DateTime().At(0)), 0),
				Open:     f.Data.Open().At(0),
				High:     f.Data.High().At(0),
				Low:      f.Data.Low().At(0),
				Close:    f.Data.Close().At(0),
				Volume:   f.Data.Volume().At(0),
			})
		}

		for _, o := range c.observers {
			o.Next()
		}
		for _, a := range c.analyzers {
			a.Next()
		}

		value := c.br.GetValue(c.lastPrices)
		c.cashValueQueue = append(c.cashValueQueue, cashValueEvent{
			cash:  c.br.GetCash(),
			value: value,
		})
		c.observeValue(value)
		c.deliverNotifications()

		c.barIndex++
	}

	return c.shutdown(), nil
}

// observeValue updates the Equity/Drawdown/ActivePositions gauges from
// the current mark-to-market value, tracking a running peak for the
// drawdown percentage.
func (c *Cerebro) observeValue(value float64) {
	if c.metrics == nil {
		return
	}
	if value > c.peakValue {
		c.peakValue = value
	}
	c.metrics.Equity.WithLabelValues(c.runID).Set(value)
	if c.peakValue > 0 {
		drawdown := (c.peakValue - value) / c.peakValue * 100
		c.metrics.Drawdown.WithLabelValues(c.runID).Set(drawdown)
	}
	for _, f := range c.feeds {
		pos := c.br.GetPosition(f.DataID)
		active := 0.0
		if pos.Size != 0 {
			active = 1
		}
		c.metrics.ActivePositions.WithLabelValues(f.DataID).Set(active)
	}
}

func (c *Cerebro) stepIndicators() {
	if c.batchIndicators {
		for _, ind := range c.indicators {
			ind.Lines().Forward(1)
		}
		return
	}
	for _, ind := range c.indicators {
		c.dispatch(ind.PreNext, ind.NextStart, ind.Next, c.minPeriods[ind])
	}
}

func (c *Cerebro) stepStrategies() {
	for _, s := range c.strategies {
		min := 1
		if p, ok := s.(IndicatorProvider); ok {
			for _, ind := range p.Indicators() {
				if mp := c.minPeriods[ind]; mp > min {
					min = mp
				}
			}
		}
		c.dispatch(s.PreNext, s.NextStart, s.Next, min)
	}
}

func (c *Cerebro) dispatch(preNext, nextStart, next func(), minPeriod int) {
	switch {
	case c.barIndex < minPeriod-1:
		preNext()
	case c.barIndex == minPeriod-1:
		nextStart()
	default:
		next()
	}
}

// deliverNotifications drains the order/trade/cash-value queues
// accumulated this bar, routing each to every strategy, observer, and
// analyzer that implements the corresponding optional method.
func (c *Cerebro) deliverNotifications() {
	for _, o := range c.orderQueue {
		for _, s := range c.strategies {
			s.NotifyOrder(o)
		}
		for _, obs := range c.observers {
			if n, ok := obs.(interface{ NotifyOrder(*order.Order) }); ok {
				n.NotifyOrder(o)
			}
		}
		for _, a := range c.analyzers {
			if n, ok := a.(interface{ NotifyOrder(*order.Order) }); ok {
				n.NotifyOrder(o)
			}
		}
	}
	for _, t := range c.tradeQueue {
		for _, s := range c.strategies {
			s.NotifyTrade(t)
		}
		for _, obs := range c.observers {
			if n, ok := obs.(interface{ NotifyTrade(*order.Trade) }); ok {
				n.NotifyTrade(t)
			}
		}
		for _, a := range c.analyzers {
			if n, ok := a.(interface{ NotifyTrade(*order.Trade) }); ok {
				n.NotifyTrade(t)
			}
		}
	}
	for _, ev := range c.cashValueQueue {
		for _, s := range c.strategies {
			s.NotifyCashValue(ev.cash, ev.value)
		}
	}
	c.orderQueue = nil
	c.tradeQueue = nil
	c.cashValueQueue = nil
}

// shutdown calls Stop() on every component in reverse construction
// order and collects analyzer results.
func (c *Cerebro) shutdown() map[string]map[string]any {
	for _, a := range c.analyzers {
		a.Stop()
	}
	for _, o := range c.observers {
		o.Stop()
	}
	for i := len(c.strategies) - 1; i >= 0; i-- {
		c.strategies[i].Stop()
	}
	for i := len(c.indicators) - 1; i >= 0; i-- {
		c.indicators[i].Stop()
	}

	results := make(map[string]map[string]any, len(c.analyzers))
	for i, a := range c.analyzers {
		results[fmt.Sprintf("analyzer-%d", i)] = a.GetAnalysis()
	}
	return results
}
