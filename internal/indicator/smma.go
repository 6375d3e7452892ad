package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// SMMA is Wilder's smoothed moving average. The first defined value is
// the simple average of the first p inputs; subsequent values follow
// y[t] = y[t-1]*(1-1/p) + x[t]*(1/p). min_period = p.
type SMMA struct {
	*Base
	in     *lineseries.Buffer
	period int
	out    *lineseries.Buffer
	alpha  float64
}

func NewSMMA(in *lineseries.Buffer, period, inMinPeriod int) *SMMA {
	b := NewBase("smma", []string{"smma"}, []int{inMinPeriod}, period)
	return &SMMA{
		Base:   b,
		in:     in,
		period: period,
		out:    b.Lines().Line("smma"),
		alpha:  1.0 / float64(period),
	}
}

func (s *SMMA) seed() float64 {
	var sum float64
	for i := 0; i < s.period; i++ {
		sum += s.in.At(-i)
	}
	return sum / float64(s.period)
}

func (s *SMMA) NextStart() {
	s.out.Append(s.seed())
}

func (s *SMMA) Next() {
	prev := s.out.At(0)
	s.out.Append(prev*(1-s.alpha) + s.in.At(0)*s.alpha)
}

func (s *SMMA) Once(start, end int) {
	if s.out.DataSize() < end {
		s.out.Grow(end - s.out.DataSize())
	}
	for i := start; i < end; i++ {
		s.in.SetIdx(i)
		s.out.SetIdx(i)
		switch {
		case i < s.MinPeriod()-1:
			s.out.Set(0, math.NaN())
		case i == s.MinPeriod()-1:
			s.out.Set(0, s.seed())
		default:
			prev := s.out.At(-1)
			s.out.Set(0, prev*(1-s.alpha)+s.in.At(0)*s.alpha)
		}
	}
}
