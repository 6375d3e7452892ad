package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// ATR is the Wilder-smoothed average true range. Supplemental kernel,
// referenced by AnalysisInput.ATR and used for trailing-stop examples.
// min_period = p+1 (true range itself needs the prior close).
type ATR struct {
	*Base
	high, low, close *lineseries.Buffer
	period           int
	out              *lineseries.Buffer
	alpha            float64
}

func NewATR(data *lineseries.DataSeries, period, inMinPeriod int) *ATR {
	b := NewBase("atr", []string{"atr"}, []int{inMinPeriod}, period+1)
	return &ATR{
		Base: b, high: data.High(), low: data.Low(), close: data.Close(),
		period: period, out: b.Lines().Line("atr"), alpha: 1.0 / float64(period),
	}
}

func (a *ATR) tr(ago int) float64 {
	return trueRange(a.high.At(ago), a.low.At(ago), a.close.At(ago-1))
}

func (a *ATR) seed() float64 {
	var sum float64
	for i := 0; i < a.period; i++ {
		sum += a.tr(-i)
	}
	return sum / float64(a.period)
}

func (a *ATR) NextStart() {
	a.out.Append(a.seed())
}

func (a *ATR) Next() {
	prev := a.out.At(0)
	a.out.Append(prev*(1-a.alpha) + a.tr(0)*a.alpha)
}

func (a *ATR) Once(start, end int) {
	if a.out.DataSize() < end {
		a.out.Grow(end - a.out.DataSize())
	}
	for i := start; i < end; i++ {
		a.high.SetIdx(i)
		a.low.SetIdx(i)
		a.close.SetIdx(i)
		a.out.SetIdx(i)
		switch {
		case i < a.MinPeriod()-1:
			a.out.Set(0, math.NaN())
		case i == a.MinPeriod()-1:
			a.out.Set(0, a.seed())
		default:
			prev := a.out.At(-1)
			a.out.Set(0, prev*(1-a.alpha)+a.tr(0)*a.alpha)
		}
	}
}
