package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// BollingerBands computes middle = SMA(p), upper/lower = middle +/-
// k*stddev(p). Referenced by AnalysisInput.BollingerBands.
type BollingerBands struct {
	*Base
	in           *lineseries.Buffer
	period       int
	k            float64
	mid, up, low *lineseries.Buffer
}

func NewBollingerBands(in *lineseries.Buffer, period int, k float64, inMinPeriod int) *BollingerBands {
	b := NewBase("bollinger", []string{"mid", "upper", "lower"}, []int{inMinPeriod}, period)
	return &BollingerBands{
		Base: b, in: in, period: period, k: k,
		mid: b.Lines().Line("mid"), up: b.Lines().Line("upper"), low: b.Lines().Line("lower"),
	}
}

func (bb *BollingerBands) compute() (mid, upper, lower float64) {
	var sum float64
	for i := 0; i < bb.period; i++ {
		sum += bb.in.At(-i)
	}
	mid = sum / float64(bb.period)
	var sqDiff float64
	for i := 0; i < bb.period; i++ {
		d := bb.in.At(-i) - mid
		sqDiff += d * d
	}
	stddev := math.Sqrt(sqDiff / float64(bb.period))
	return mid, mid + bb.k*stddev, mid - bb.k*stddev
}

func (bb *BollingerBands) NextStart() { bb.Next() }

func (bb *BollingerBands) Next() {
	mid, upper, lower := bb.compute()
	bb.mid.Append(mid)
	bb.up.Append(upper)
	bb.low.Append(lower)
}

func (bb *BollingerBands) Once(start, end int) {
	if bb.mid.DataSize() < end {
		bb.mid.Grow(end - bb.mid.DataSize())
		bb.up.Grow(end - bb.up.DataSize())
		bb.low.Grow(end - bb.low.DataSize())
	}
	for i := start; i < end; i++ {
		bb.in.SetIdx(i)
		bb.mid.SetIdx(i)
		bb.up.SetIdx(i)
		bb.low.SetIdx(i)
		if i < bb.MinPeriod()-1 {
			bb.mid.Set(0, math.NaN())
			bb.up.Set(0, math.NaN())
			bb.low.Set(0, math.NaN())
			continue
		}
		mid, upper, lower := bb.compute()
		bb.mid.Set(0, mid)
		bb.up.Set(0, upper)
		bb.low.Set(0, lower)
	}
}
