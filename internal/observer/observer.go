// Package observer implements indicator-shaped bar-by-bar readers over
// broker state and the trade/order stream, plus analyzers that
// aggregate across the whole run and report once at stop().
package observer

import (
	"math"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/order"
)

// Observer is indicator-shaped: it appends to its own lines once per
// bar, typically reading the broker or the trade/order notification
// stream the engine routes to it.
type Observer interface {
	Lines() *lineseries.Series
	Next()
	Start()
	Stop()
}

// BrokerObserver tracks cash and portfolio value, grounded on
// observers/broker.h's combined Cash+Value "Broker" observer (fields
// kept, plotting-only concerns dropped).
type BrokerObserver struct {
	series *lineseries.Series
	cash   *lineseries.Buffer
	value  *lineseries.Buffer

	br         *broker.Broker
	lastPrices map[string]float64
}

func NewBrokerObserver(br *broker.Broker, lastPrices map[string]float64) *BrokerObserver {
	s := lineseries.NewSeries()
	return &BrokerObserver{
		series:     s,
		cash:       s.AddLine("cash"),
		value:      s.AddLine("value"),
		br:         br,
		lastPrices: lastPrices,
	}
}

func (o *BrokerObserver) Lines() *lineseries.Series { return o.series }
func (o *BrokerObserver) Start()                    {}
func (o *BrokerObserver) Stop()                     {}

func (o *BrokerObserver) Next() {
	o.cash.Append(o.br.GetCash())
	o.value.Append(o.br.GetValue(o.lastPrices))
}

// TradeStats mirrors observers/trades.h's TradeStats: running counts and
// extremes over every closed trade seen so far.
type TradeStats struct {
	TotalTrades int
	TradesLong  int
	TradesShort int
	TradesPlus  int
	TradesMinus int

	Win     float64
	WinMax  float64
	WinMin  float64
	Loss    float64
	LossMax float64
	LossMin float64

	LengthTotal int
	LengthMax   int
	LengthMin   int
}

// TradesObserver plots per-trade PnL (split into a positive and a
// negative line so a plotter can color wins/losses separately, per
// observers/trades.h) and accumulates TradeStats.
type TradesObserver struct {
	series   *lineseries.Series
	pnlPlus  *lineseries.Buffer
	pnlMinus *lineseries.Buffer

	pnlComm bool
	stats   TradeStats
}

func NewTradesObserver(pnlComm bool) *TradesObserver {
	s := lineseries.NewSeries()
	return &TradesObserver{
		series:   s,
		pnlPlus:  s.AddLine("pnlplus"),
		pnlMinus: s.AddLine("pnlminus"),
		pnlComm:  pnlComm,
	}
}

func (o *TradesObserver) Lines() *lineseries.Series { return o.series }
func (o *TradesObserver) Start()                    {}
func (o *TradesObserver) Stop()                     {}

// Next appends NaN to both lines by default; NotifyTrade overwrites the
// current bar's slot when a trade closes this bar.
func (o *TradesObserver) Next() {
	o.pnlPlus.Append(math.NaN())
	o.pnlMinus.Append(math.NaN())
}

func (o *TradesObserver) NotifyTrade(t *order.Trade) {
	if t.Status != order.TradeClosed {
		return
	}
	pnl := t.PNL
	if o.pnlComm {
		pnl = t.PNLComm()
	}
	o.updateStats(t, pnl)
	if pnl >= 0 {
		o.pnlPlus.Set(0, pnl)
	} else {
		o.pnlMinus.Set(0, pnl)
	}
}

func (o *TradesObserver) updateStats(t *order.Trade, pnl float64) {
	s := &o.stats
	s.TotalTrades++
	if t.IsLong {
		s.TradesLong++
	} else {
		s.TradesShort++
	}
	length := t.BarLen
	s.LengthTotal += length
	if s.TotalTrades == 1 || length > s.LengthMax {
		s.LengthMax = length
	}
	if s.TotalTrades == 1 || length < s.LengthMin {
		s.LengthMin = length
	}
	if pnl >= 0 {
		s.TradesPlus++
		s.Win += pnl
		if pnl > s.WinMax {
			s.WinMax = pnl
		}
		if s.TradesPlus == 1 || pnl < s.WinMin {
			s.WinMin = pnl
		}
	} else {
		s.TradesMinus++
		s.Loss += pnl
		if s.TradesMinus == 1 || pnl > s.LossMax {
			s.LossMax = pnl
		}
		if s.TradesMinus == 1 || pnl < s.LossMin {
			s.LossMin = pnl
		}
	}
}

func (o *TradesObserver) Stats() TradeStats { return o.stats }
