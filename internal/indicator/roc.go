package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// ROC is the rate of change: (x[t]-x[t-p])/x[t-p]. min_period = p+1. On a
// zero denominator, returns +/-Inf signed by x[t], or NaN if x[t] is also
// zero.
type ROC struct {
	*Base
	in     *lineseries.Buffer
	period int
	out    *lineseries.Buffer
}

func NewROC(in *lineseries.Buffer, period, inMinPeriod int) *ROC {
	b := NewBase("roc", []string{"roc"}, []int{inMinPeriod}, period+1)
	return &ROC{Base: b, in: in, period: period, out: b.Lines().Line("roc")}
}

func (r *ROC) value(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return math.NaN()
		}
		if cur > 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return (cur - prev) / prev
}

func (r *ROC) NextStart() { r.Next() }

func (r *ROC) Next() {
	r.out.Append(r.value(r.in.At(0), r.in.At(-r.period)))
}

func (r *ROC) Once(start, end int) {
	if r.out.DataSize() < end {
		r.out.Grow(end - r.out.DataSize())
	}
	for i := start; i < end; i++ {
		r.in.SetIdx(i)
		r.out.SetIdx(i)
		if i < r.MinPeriod()-1 {
			r.out.Set(0, math.NaN())
			continue
		}
		r.out.Set(0, r.value(r.in.At(0), r.in.At(-r.period)))
	}
}
