package strategy

import (
	"math"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/indicator"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/order"
)

// MACDCrossover trades bullish/bearish MACD-vs-signal crossovers against
// the real MACD indicator instead of a precomputed analysis value.
type MACDCrossover struct {
	*Base

	close *lineseries.Buffer
	dt    *lineseries.Buffer
	macd  *indicator.MACD
	atr   *indicator.ATR

	prevHist   float64
	haveLast   bool
	inPosition bool
	stopOrder  *order.Order
}

func NewMACDCrossover(data *lineseries.DataSeries, br *broker.Broker, dataID string) *MACDCrossover {
	return &MACDCrossover{
		Base:  NewBase("macd_crossover_v1", br, dataID),
		close: data.Close(),
		dt:    data.DateTime(),
		macd:  indicator.NewMACD(data.Close(), 12, 26, 9, 0),
		atr:   indicator.NewATR(data, 14, 0),
	}
}

func (s *MACDCrossover) Indicators() []indicator.Indicator {
	return []indicator.Indicator{s.macd, s.atr}
}

func (s *MACDCrossover) barTime() time.Time {
	return time.Unix(int64(s.dt.At(0)), 0)
}

func (s *MACDCrossover) Next() {
	price := s.close.At(0)
	hist := s.macd.Lines().Line("histogram").At(0)
	macdVal := s.macd.Lines().Line("macd").At(0)
	signalVal := s.macd.Lines().Line("signal").At(0)
	atr := s.atr.Lines().Line("atr").At(0)

	now := s.barTime()
	bullish := s.haveLast && s.prevHist <= 0 && hist > 0 && macdVal > signalVal
	bearish := s.haveLast && s.prevHist >= 0 && hist < 0 && macdVal < signalVal

	if !s.inPosition && bullish {
		s.Buy(now, 10, price, 0, order.Market)
		s.inPosition = true
		if !math.IsNaN(atr) && atr > 0 {
			stopPrice := price - atrStopMultiple*atr
			s.stopOrder, _ = s.Sell(now, 10, stopPrice, 0, order.Stop)
		}
	} else if s.inPosition && bearish {
		s.cancelStop()
		s.Close(now)
		s.inPosition = false
	}

	s.prevHist = hist
	s.haveLast = true
}

func (s *MACDCrossover) cancelStop() {
	if s.stopOrder != nil {
		s.Cancel(s.stopOrder)
		s.stopOrder = nil
	}
}

// NotifyOrder clears position/stop bookkeeping when the protective stop
// itself fills, so a later bearish signal does not try to close an
// already-flat position.
func (s *MACDCrossover) NotifyOrder(o *order.Order) {
	if s.stopOrder != nil && o.Ref == s.stopOrder.Ref && o.IsCompleted() {
		s.inPosition = false
		s.stopOrder = nil
	}
}
