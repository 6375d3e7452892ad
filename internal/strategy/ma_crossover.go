package strategy

import (
	"math"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/indicator"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/order"
)

// atrStopMultiple sets the protective-stop distance as a multiple of
// ATR(14) below (long) or above (short) the entry price.
const atrStopMultiple = 2.0

// MACrossover trades golden/death crosses between three SMAs of
// increasing period, driven against the real indicator graph instead of
// a precomputed analysis struct: fast/mid/slow are driven by the engine
// every bar, and the strategy reads their current value directly off
// the line buffer.
type MACrossover struct {
	*Base

	close           *lineseries.Buffer
	dt              *lineseries.Buffer
	fast, mid, slow *indicator.SMA
	atr             *indicator.ATR

	inPosition bool
	stopOrder  *order.Order
}

// NewMACrossover wires SMA(fast)/SMA(mid)/SMA(slow) over close and an
// ATR(14) for stop sizing, with fast/mid/slow periods of 20/50/200.
func NewMACrossover(data *lineseries.DataSeries, br *broker.Broker, dataID string) *MACrossover {
	return &MACrossover{
		Base:  NewBase("ma_crossover_v1", br, dataID),
		close: data.Close(),
		dt:    data.DateTime(),
		fast:  indicator.NewSMA(data.Close(), 20, 0),
		mid:   indicator.NewSMA(data.Close(), 50, 0),
		slow:  indicator.NewSMA(data.Close(), 200, 0),
		atr:   indicator.NewATR(data, 14, 0),
	}
}

// Indicators returns the indicators this strategy depends on, for the
// engine's topological ordering / min_period propagation.
func (s *MACrossover) Indicators() []indicator.Indicator {
	return []indicator.Indicator{s.fast, s.mid, s.slow, s.atr}
}

func (s *MACrossover) barTime() time.Time {
	return time.Unix(int64(s.dt.At(0)), 0)
}

func (s *MACrossover) Next() {
	price := s.close.At(0)
	fast := s.fast.Lines().Line("sma").At(0)
	mid := s.mid.Lines().Line("sma").At(0)
	slow := s.slow.Lines().Line("sma").At(0)
	atr := s.atr.Lines().Line("atr").At(0)

	now := s.barTime()

	goldenCross := fast > mid && mid > slow && price > fast
	deathCross := fast < mid && mid < slow && price < fast

	if !s.inPosition && goldenCross {
		s.Buy(now, 10, price, 0, order.Market)
		s.inPosition = true
		if !math.IsNaN(atr) && atr > 0 {
			stopPrice := price - atrStopMultiple*atr
			s.stopOrder, _ = s.Sell(now, 10, stopPrice, 0, order.Stop)
		}
		return
	}
	if s.inPosition && deathCross {
		s.cancelStop()
		s.Close(now)
		s.inPosition = false
		return
	}
}

func (s *MACrossover) cancelStop() {
	if s.stopOrder != nil {
		s.Cancel(s.stopOrder)
		s.stopOrder = nil
	}
}

// NotifyOrder clears position/stop bookkeeping when the protective stop
// itself fills, so a death cross on a later bar does not try to close an
// already-flat position.
func (s *MACrossover) NotifyOrder(o *order.Order) {
	if s.stopOrder != nil && o.Ref == s.stopOrder.Ref && o.IsCompleted() {
		s.inPosition = false
		s.stopOrder = nil
	}
}
