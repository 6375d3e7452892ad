package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// SMA is the simple moving average: output = mean of the last p input
// values. min_period = p.
type SMA struct {
	*Base
	in     *lineseries.Buffer
	period int
	out    *lineseries.Buffer
}

// NewSMA builds an SMA of the given period over in, whose own min_period
// is inMinPeriod.
func NewSMA(in *lineseries.Buffer, period, inMinPeriod int) *SMA {
	b := NewBase("sma", []string{"sma"}, []int{inMinPeriod}, period)
	return &SMA{Base: b, in: in, period: period, out: b.Lines().Line("sma")}
}

func (s *SMA) mean() float64 {
	var sum float64
	for i := 0; i < s.period; i++ {
		sum += s.in.At(-i)
	}
	return sum / float64(s.period)
}

func (s *SMA) NextStart() { s.Next() }

func (s *SMA) Next() {
	s.out.Append(s.mean())
}

func (s *SMA) Once(start, end int) {
	if s.out.DataSize() < end {
		s.out.Grow(end - s.out.DataSize())
	}
	for i := start; i < end; i++ {
		s.in.SetIdx(i)
		s.out.SetIdx(i)
		if i < s.MinPeriod()-1 {
			s.out.Set(0, math.NaN())
			continue
		}
		s.out.Set(0, s.mean())
	}
}
