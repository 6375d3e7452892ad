package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// RSI is the Wilder-smoothed relative strength index: average gain and
// average loss are each Wilder-smoothed, then RSI = 100 - 100/(1 +
// avgGain/avgLoss). Supplemental kernel referenced by the strategy
// catalogue's RSI-momentum strategy. min_period = p+1 (p price deltas
// need p+1 closes).
type RSI struct {
	*Base
	in      *lineseries.Buffer
	period  int
	alpha   float64
	out     *lineseries.Buffer
	avgGain *lineseries.Buffer
	avgLoss *lineseries.Buffer
}

func NewRSI(in *lineseries.Buffer, period, inMinPeriod int) *RSI {
	b := NewBase("rsi", []string{"rsi"}, []int{inMinPeriod}, period+1)
	return &RSI{
		Base: b, in: in, period: period, alpha: 1.0 / float64(period),
		out:     b.Lines().Line("rsi"),
		avgGain: lineseries.NewBuffer(),
		avgLoss: lineseries.NewBuffer(),
	}
}

func (r *RSI) delta(ago int) float64 {
	return r.in.At(ago) - r.in.At(ago-1)
}

func (r *RSI) seed() (gain, loss float64) {
	for i := 0; i < r.period; i++ {
		d := r.delta(-i)
		gain += math.Max(0, d)
		loss += math.Max(0, -d)
	}
	return gain / float64(r.period), loss / float64(r.period)
}

func (r *RSI) ratio(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

func (r *RSI) NextStart() {
	gain, loss := r.seed()
	r.avgGain.Append(gain)
	r.avgLoss.Append(loss)
	r.out.Append(r.ratio(gain, loss))
}

func (r *RSI) Next() {
	d := r.delta(0)
	gain := math.Max(0, d)
	loss := math.Max(0, -d)
	avgGain := r.avgGain.At(0)*(1-r.alpha) + gain*r.alpha
	avgLoss := r.avgLoss.At(0)*(1-r.alpha) + loss*r.alpha
	r.avgGain.Append(avgGain)
	r.avgLoss.Append(avgLoss)
	r.out.Append(r.ratio(avgGain, avgLoss))
}

func (r *RSI) Once(start, end int) {
	if r.out.DataSize() < end {
		r.out.Grow(end - r.out.DataSize())
		r.avgGain.Grow(end - r.avgGain.DataSize())
		r.avgLoss.Grow(end - r.avgLoss.DataSize())
	}
	for i := start; i < end; i++ {
		r.in.SetIdx(i)
		r.out.SetIdx(i)
		r.avgGain.SetIdx(i)
		r.avgLoss.SetIdx(i)
		switch {
		case i < r.MinPeriod()-1:
			r.out.Set(0, math.NaN())
			r.avgGain.Set(0, math.NaN())
			r.avgLoss.Set(0, math.NaN())
		case i == r.MinPeriod()-1:
			gain, loss := r.seed()
			r.avgGain.Set(0, gain)
			r.avgLoss.Set(0, loss)
			r.out.Set(0, r.ratio(gain, loss))
		default:
			d := r.delta(0)
			gain := math.Max(0, d)
			loss := math.Max(0, -d)
			avgGain := r.avgGain.At(-1)*(1-r.alpha) + gain*r.alpha
			avgLoss := r.avgLoss.At(-1)*(1-r.alpha) + loss*r.alpha
			r.avgGain.Set(0, avgGain)
			r.avgLoss.Set(0, avgLoss)
			r.out.Set(0, r.ratio(avgGain, avgLoss))
		}
	}
}
