package strategy

import (
	"math"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/indicator"
	"github.com/jaxquant/backtest/internal/lineseries"
	"github.com/jaxquant/backtest/internal/order"
)

// RSIMomentum trades oversold/overbought RSI reversals against the real
// RSI indicator.
type RSIMomentum struct {
	*Base

	close *lineseries.Buffer
	dt    *lineseries.Buffer
	rsi   *indicator.RSI
	atr   *indicator.ATR

	oversold, overbought float64
	inPosition           bool
	long                 bool
	stopOrder            *order.Order
}

func NewRSIMomentum(data *lineseries.DataSeries, br *broker.Broker, dataID string) *RSIMomentum {
	return &RSIMomentum{
		Base:       NewBase("rsi_momentum_v1", br, dataID),
		close:      data.Close(),
		dt:         data.DateTime(),
		rsi:        indicator.NewRSI(data.Close(), 14, 0),
		atr:        indicator.NewATR(data, 14, 0),
		oversold:   30.0,
		overbought: 70.0,
	}
}

func (s *RSIMomentum) Indicators() []indicator.Indicator {
	return []indicator.Indicator{s.rsi, s.atr}
}

func (s *RSIMomentum) barTime() time.Time {
	return time.Unix(int64(s.dt.At(0)), 0)
}

func (s *RSIMomentum) Next() {
	price := s.close.At(0)
	rsiVal := s.rsi.Lines().Line("rsi").At(0)
	atr := s.atr.Lines().Line("atr").At(0)
	now := s.barTime()

	switch {
	case !s.inPosition && rsiVal < s.oversold:
		s.Buy(now, 10, price, 0, order.Market)
		s.inPosition, s.long = true, true
		s.placeStop(now, price, atr)
	case !s.inPosition && rsiVal > s.overbought:
		s.Sell(now, 10, price, 0, order.Market)
		s.inPosition, s.long = true, false
		s.placeStop(now, price, atr)
	case s.inPosition && s.long && rsiVal > s.overbought:
		s.cancelStop()
		s.Close(now)
		s.inPosition = false
	case s.inPosition && !s.long && rsiVal < s.oversold:
		s.cancelStop()
		s.Close(now)
		s.inPosition = false
	}
}

// placeStop submits the protective stop on the side opposite the entry:
// below entry for a long, above entry for a short, both sized atrStopMultiple
// ATRs away from the fill price.
func (s *RSIMomentum) placeStop(now time.Time, price, atr float64) {
	if math.IsNaN(atr) || atr <= 0 {
		return
	}
	if s.long {
		s.stopOrder, _ = s.Sell(now, 10, price-atrStopMultiple*atr, 0, order.Stop)
	} else {
		s.stopOrder, _ = s.Buy(now, 10, price+atrStopMultiple*atr, 0, order.Stop)
	}
}

func (s *RSIMomentum) cancelStop() {
	if s.stopOrder != nil {
		s.Cancel(s.stopOrder)
		s.stopOrder = nil
	}
}

// NotifyOrder clears position/stop bookkeeping when the protective stop
// itself fills, so a later reversal signal does not try to close an
// already-flat position.
func (s *RSIMomentum) NotifyOrder(o *order.Order) {
	if s.stopOrder != nil && o.Ref == s.stopOrder.Ref && o.IsCompleted() {
		s.inPosition = false
		s.stopOrder = nil
	}
}
