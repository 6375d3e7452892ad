package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// PercentRank computes, over the last p values inclusive of the current
// bar, the fraction strictly less than x[t]. Result in [0,1].
type PercentRank struct {
	*Base
	in     *lineseries.Buffer
	period int
	out    *lineseries.Buffer
}

func NewPercentRank(in *lineseries.Buffer, period, inMinPeriod int) *PercentRank {
	b := NewBase("percentrank", []string{"percentrank"}, []int{inMinPeriod}, period)
	return &PercentRank{Base: b, in: in, period: period, out: b.Lines().Line("percentrank")}
}

func (p *PercentRank) rank() float64 {
	cur := p.in.At(0)
	less := 0
	for i := 1; i < p.period; i++ {
		if p.in.At(-i) < cur {
			less++
		}
	}
	return float64(less) / float64(p.period)
}

func (p *PercentRank) NextStart() { p.Next() }

func (p *PercentRank) Next() {
	p.out.Append(p.rank())
}

func (p *PercentRank) Once(start, end int) {
	if p.out.DataSize() < end {
		p.out.Grow(end - p.out.DataSize())
	}
	for i := start; i < end; i++ {
		p.in.SetIdx(i)
		p.out.SetIdx(i)
		if i < p.MinPeriod()-1 {
			p.out.Set(0, math.NaN())
			continue
		}
		p.out.Set(0, p.rank())
	}
}
