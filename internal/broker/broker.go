// Package broker simulates order matching against an incoming bar
// stream: the order state machine's fill rules, fillers, commissions,
// and trade lifecycle tracking.
package broker

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jaxquant/backtest/internal/order"
	"github.com/jaxquant/backtest/internal/telemetry"
)

// Bar is the OHLCV view the broker matches against for one data feed.
type Bar struct {
	DateTime                       time.Time
	Open, High, Low, Close, Volume float64
}

// Position is the broker's signed cumulative size and weighted-average
// entry price on one instrument.
type Position struct {
	Size  float64
	Price float64
}

// Fill records one execution for external (observer/analyzer) use.
type Fill struct {
	Order *order.Order
	Bit   order.ExecutionBit
}

var ErrMargin = errors.New("broker: insufficient cash at submission")

// Broker matches pending orders against each new bar, applies
// commissions and fillers, and tracks cash/positions/trades. Mutex
// protected the same way libs/replay/replay.go's SimBroker is, since a
// live data feed may submit/cancel orders from its own goroutine while
// the engine thread is draining bars.
type Broker struct {
	mu sync.Mutex

	cash       float64
	positions  map[string]*Position
	pending    map[string][]*order.Order
	trades     map[string]*order.Trade
	closed     []*order.Trade
	fills      []Fill
	filler     Filler
	commission CommissionInfo
	barIndex   int

	notifyOrder func(*order.Order)
	notifyTrade func(*order.Trade)

	metrics *telemetry.Metrics
}

// UseMetrics attaches a telemetry.Metrics instance. Unset by default, so
// a backtest run with no metrics wiring pays nothing for it.
func (b *Broker) UseMetrics(m *telemetry.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// Config bundles constructor parameters, following this codebase's
// Config + DefaultConfig() convention.
type Config struct {
	Cash       float64
	Filler     Filler
	Commission CommissionInfo
}

// DefaultConfig returns a FixedSize(unlimited)/PerShareCommission(0)
// broker with $100,000 starting cash.
func DefaultConfig() Config {
	return Config{
		Cash:       100000,
		Filler:     FixedSize{Size: 0},
		Commission: PerShareCommission{PerShare: 0},
	}
}

func New(cfg Config) *Broker {
	return &Broker{
		cash:       cfg.Cash,
		positions:  make(map[string]*Position),
		pending:    make(map[string][]*order.Order),
		trades:     make(map[string]*order.Trade),
		filler:     cfg.Filler,
		commission: cfg.Commission,
	}
}

// OnNotifyOrder/OnNotifyTrade register the callbacks the engine uses to
// route notify_order/notify_trade to the strategy and observers.
func (b *Broker) OnNotifyOrder(fn func(*order.Order)) { b.notifyOrder = fn }
func (b *Broker) OnNotifyTrade(fn func(*order.Trade)) { b.notifyTrade = fn }

func (b *Broker) notifyO(o *order.Order) {
	if b.notifyOrder != nil {
		b.notifyOrder(o)
	}
}
func (b *Broker) notifyT(t *order.Trade) {
	if b.notifyTrade != nil {
		b.notifyTrade(t)
	}
}

func (b *Broker) GetCash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// GetValue returns cash plus the mark-to-market value of every open
// position, given the latest known price per data ID.
func (b *Broker) GetValue(lastPrices map[string]float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.cash
	for id, pos := range b.positions {
		if pos.Size == 0 {
			continue
		}
		if px, ok := lastPrices[id]; ok {
			v += pos.Size * px
		}
	}
	return v
}

func (b *Broker) GetPosition(dataID string) Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[dataID]; ok {
		return *p
	}
	return Position{}
}

// Submit assigns Submitted/Accepted status, reserving notional cash
// against estPrice (an estimate; actual cash moves only at execution).
// Insufficient cash on a buy transitions the order to Margin instead of
// Accepted.
func (b *Broker) Submit(o *order.Order, estPrice float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o.Status = order.Submitted
	if o.IsBuy() {
		cost := math.Abs(o.Size)*estPrice + b.commission.GetCommission(o.Size, estPrice)
		if cost > b.cash {
			o.Status = order.Margin
			b.notifyO(o)
			return ErrMargin
		}
	}
	o.Status = order.Accepted
	b.pending[o.DataID] = append(b.pending[o.DataID], o)
	if b.metrics != nil {
		b.metrics.OrdersSubmitted.WithLabelValues(o.DataID, o.Type.String()).Inc()
		if o.Info == nil {
			o.Info = make(map[string]any)
		}
		o.Info["submit_bar"] = b.barIndex
	}
	b.notifyO(o)
	return nil
}

// Cancel marks the order for cancellation. The cancellation is applied
// at the next broker step, not immediately, so an already-matchable
// order may still fill this bar.
func (b *Broker) Cancel(o *order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.Alive() {
		o.PendingCancel = true
	}
}

// Next matches every pending order on dataID against bar, applying
// execution effects and emitting notifications. It returns the fills
// produced on this bar.
func (b *Broker) Next(dataID string, bar Bar) []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.barIndex++

	orders := append([]*order.Order(nil), b.pending[dataID]...)
	sort.Slice(orders, func(i, j int) bool { return orders[i].Ref < orders[j].Ref })

	var produced []Fill
	var remaining []*order.Order
	for _, o := range orders {
		if !o.Alive() {
			continue
		}
		b.updateTrailingStop(o, bar)
		price, ok := b.matchPrice(o, bar)
		if ok {
			fills := b.execute(o, price, bar)
			produced = append(produced, fills...)
		}
		if o.PendingCancel && o.Alive() {
			o.Status = order.Canceled
			b.notifyO(o)
			continue
		}
		if o.Alive() {
			remaining = append(remaining, o)
		}
	}
	b.pending[dataID] = remaining
	b.fills = append(b.fills, produced...)
	return produced
}

// matchPrice implements the fill-matching rules for one order against
// the current bar, returning the execution price and whether the order
// is currently matchable at all.
func (b *Broker) matchPrice(o *order.Order, bar Bar) (float64, bool) {
	switch o.Type {
	case order.Market:
		return bar.Open, true
	case order.Close:
		return bar.Close, true
	case order.Limit:
		return matchLimit(o.IsBuy(), o.Price, bar)
	case order.Stop:
		return matchStop(o.IsBuy(), o.Price, bar)
	case order.StopLimit:
		if !o.Triggered {
			triggered := (o.IsBuy() && bar.High >= o.Price) || (o.IsSell() && bar.Low <= o.Price)
			if !triggered {
				return 0, false
			}
			o.Triggered = true
		}
		return matchLimit(o.IsBuy(), o.PriceLimit, bar)
	default:
		return 0, false
	}
}

func matchLimit(isBuy bool, limit float64, bar Bar) (float64, bool) {
	if isBuy {
		if bar.Low > limit {
			return 0, false
		}
		if bar.Open <= limit {
			return bar.Open, true
		}
		return limit, true
	}
	if bar.High < limit {
		return 0, false
	}
	if bar.Open >= limit {
		return bar.Open, true
	}
	return limit, true
}

func matchStop(isBuy bool, stop float64, bar Bar) (float64, bool) {
	if isBuy {
		if bar.High < stop {
			return 0, false
		}
		if bar.Open >= stop {
			return bar.Open, true
		}
		return stop, true
	}
	if bar.Low > stop {
		return 0, false
	}
	if bar.Open <= stop {
		return bar.Open, true
	}
	return stop, true
}

// updateTrailingStop recomputes a Stop order's trigger level from the
// favorable extreme seen so far, using the post-fill extreme (not the
// pre-fill one), per the partial-fill-carryover design note.
func (b *Broker) updateTrailingStop(o *order.Order, bar Bar) {
	if o.Type != order.Stop && o.Type != order.StopLimit {
		return
	}
	if o.TrailAmount == 0 && o.TrailPercent == 0 {
		return
	}
	if o.IsSell() {
		var trail float64
		if o.TrailPercent != 0 {
			trail = bar.High * (1 - o.TrailPercent)
		} else {
			trail = bar.High - o.TrailAmount
		}
		if o.TrailStop == 0 || trail > o.TrailStop {
			o.TrailStop = trail
		}
		o.Price = o.TrailStop
	} else {
		var trail float64
		if o.TrailPercent != 0 {
			trail = bar.Low * (1 + o.TrailPercent)
		} else {
			trail = bar.Low + o.TrailAmount
		}
		if o.TrailStop == 0 || trail < o.TrailStop {
			o.TrailStop = trail
		}
		o.Price = o.TrailStop
	}
}

// execute applies one matching pass's fill: it asks the filler for the
// executable size, then updates the order, position, cash, and trade
// state, returning the resulting Fill(s) (a flip produces two: the
// closing bit and the opening bit share one execution price but are
// recorded against old and new trades respectively).
func (b *Broker) execute(o *order.Order, price float64, bar Bar) []Fill {
	size := b.filler.Fill(o, price, bar)
	if size <= 0 {
		return nil
	}
	signedFill := size
	if o.IsSell() {
		signedFill = -size
	}

	commission := b.commission.GetCommission(signedFill, price)

	pos, ok := b.positions[o.DataID]
	if !ok {
		pos = &Position{}
		b.positions[o.DataID] = pos
	}
	oldPosSize := pos.Size

	trade, ok := b.trades[o.DataID]
	if !ok {
		trade = order.NewTrade(o.DataID)
		b.trades[o.DataID] = trade
	}

	realized, remainder, flipped := trade.Update(bar.DateTime, signedFill, price, commission, b.barIndex)

	var closedQty, openedQty float64
	sameSignOrOpening := oldPosSize == 0 || (oldPosSize > 0) == (signedFill > 0)
	switch {
	case sameSignOrOpening:
		openedQty = signedFill
	case flipped:
		closedQty = -oldPosSize
		openedQty = remainder
	default:
		closedQty = signedFill
	}
	closedValue := math.Abs(closedQty) * price
	openedValue := math.Abs(openedQty) * price
	var closedComm, openedComm float64
	if closedQty != 0 && openedQty != 0 {
		total := math.Abs(closedQty) + math.Abs(openedQty)
		closedComm = commission * math.Abs(closedQty) / total
		openedComm = commission * math.Abs(openedQty) / total
	} else if closedQty != 0 {
		closedComm = commission
	} else {
		openedComm = commission
	}

	pos.Size += signedFill
	if flipped {
		pos.Price = price
	} else if sameSignOrOpening {
		if pos.Size != 0 {
			pos.Price = trade.Price
		}
	}

	b.cash -= signedFill*price + commission

	bit := order.NewExecutionBit(bar.DateTime, signedFill, price, closedQty, closedValue, closedComm, openedQty, openedValue, openedComm, realized, pos.Size, pos.Price)
	o.Executed.AddBit(bit)

	if math.Abs(o.Remaining()) < 1e-9 {
		o.Status = order.Completed
	} else {
		o.Status = order.Partial
	}
	b.notifyO(o)

	if b.metrics != nil {
		b.metrics.OrdersFilled.WithLabelValues(o.DataID).Inc()
		if submitBar, ok := o.Info["submit_bar"].(int); ok {
			b.metrics.FillLatency.WithLabelValues(o.DataID).Observe(float64(b.barIndex - submitBar))
		}
	}

	fills := []Fill{{Order: o, Bit: bit}}

	if flipped {
		b.closed = append(b.closed, trade)
		b.notifyT(trade)
		b.observeTradeClosed(trade)
		newTrade := order.NewTrade(o.DataID)
		newTrade.Update(bar.DateTime, remainder, price, 0, b.barIndex)
		b.trades[o.DataID] = newTrade
	} else if trade.Status == order.TradeClosed {
		b.closed = append(b.closed, trade)
		b.notifyT(trade)
		b.observeTradeClosed(trade)
		delete(b.trades, o.DataID)
	}

	return fills
}

// observeTradeClosed records a win/loss outcome for one closed trade.
func (b *Broker) observeTradeClosed(t *order.Trade) {
	if b.metrics == nil {
		return
	}
	outcome := "loss"
	if t.PNL >= 0 {
		outcome = "win"
	}
	b.metrics.TradesClosed.WithLabelValues(t.DataID, outcome).Inc()
}

// ClosedTrades returns every trade that has reached TradeClosed so far.
func (b *Broker) ClosedTrades() []*order.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*order.Trade(nil), b.closed...)
}

// OpenTrade returns the currently open trade on dataID, if any.
func (b *Broker) OpenTrade(dataID string) (*order.Trade, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trades[dataID]
	return t, ok
}
