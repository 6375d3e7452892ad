package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// EMA is the exponential moving average, seeded the same way as SMMA (a
// simple average of the first p inputs) but with smoothing factor
// 2/(p+1) instead of Wilder's 1/p. Supplemental to the representative
// kernels, needed for MACD.
type EMA struct {
	*Base
	in     *lineseries.Buffer
	period int
	out    *lineseries.Buffer
	alpha  float64
}

func NewEMA(in *lineseries.Buffer, period, inMinPeriod int) *EMA {
	b := NewBase("ema", []string{"ema"}, []int{inMinPeriod}, period)
	return &EMA{
		Base:   b,
		in:     in,
		period: period,
		out:    b.Lines().Line("ema"),
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) seed() float64 {
	var sum float64
	for i := 0; i < e.period; i++ {
		sum += e.in.At(-i)
	}
	return sum / float64(e.period)
}

func (e *EMA) NextStart() {
	e.out.Append(e.seed())
}

func (e *EMA) Next() {
	prev := e.out.At(0)
	e.out.Append(prev*(1-e.alpha) + e.in.At(0)*e.alpha)
}

func (e *EMA) Once(start, end int) {
	if e.out.DataSize() < end {
		e.out.Grow(end - e.out.DataSize())
	}
	for i := start; i < end; i++ {
		e.in.SetIdx(i)
		e.out.SetIdx(i)
		switch {
		case i < e.MinPeriod()-1:
			e.out.Set(0, math.NaN())
		case i == e.MinPeriod()-1:
			e.out.Set(0, e.seed())
		default:
			prev := e.out.At(-1)
			e.out.Set(0, prev*(1-e.alpha)+e.in.At(0)*e.alpha)
		}
	}
}
