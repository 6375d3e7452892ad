package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// Stochastic computes raw %K = 100*(C-L_p)/(H_p-L_p), Slow-%K =
// SMA(raw, d_fast), %D = SMA(Slow-%K, d_slow). min_period =
// p + d_fast + d_slow - 2.
//
// Degenerate windows (H_p == L_p) return NaN rather than a safediv
// sentinel, keeping NaN the engine's single "undefined" value throughout.
// NewStochastic has no option for the other valid configuration (safediv
// to 50, the midpoint).
type Stochastic struct {
	*Base
	high, low, close     *lineseries.Buffer
	period, dFast, dSlow int
	k, d                 *lineseries.Buffer
	raw, slowK           *lineseries.Buffer
}

func NewStochastic(data *lineseries.DataSeries, period, dFast, dSlow, inMinPeriod int) *Stochastic {
	b := NewBase("stochastic", []string{"k", "d"}, []int{inMinPeriod}, period+dFast+dSlow-2)
	return &Stochastic{
		Base: b, high: data.High(), low: data.Low(), close: data.Close(),
		period: period, dFast: dFast, dSlow: dSlow,
		k: b.Lines().Line("k"), d: b.Lines().Line("d"),
		raw: lineseries.NewBuffer(), slowK: lineseries.NewBuffer(),
	}
}

func (s *Stochastic) rawK() float64 { return s.rawKAt(0) }

// rawKAt computes raw %K as of ago bars back, reading only the shared
// high/low/close buffers (never mutating their cursor) so it can be used
// both for the current bar and to backfill scratch history.
func (s *Stochastic) rawKAt(ago int) float64 {
	var hi, lo float64 = math.Inf(-1), math.Inf(1)
	for i := 0; i < s.period; i++ {
		if h := s.high.At(-ago - i); h > hi {
			hi = h
		}
		if l := s.low.At(-ago - i); l < lo {
			lo = l
		}
	}
	if hi == lo {
		return math.NaN()
	}
	return 100 * (s.close.At(-ago) - lo) / (hi - lo)
}

func sma(buf *lineseries.Buffer, window int) float64 {
	var sum float64
	for i := 0; i < window; i++ {
		v := buf.At(-i)
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(window)
}

// stepScratch appends one raw/slowK pair at the given look-back offset,
// touching only the private scratch buffers (never the k/d output lines).
func (s *Stochastic) stepScratch(ago int) float64 {
	s.raw.Append(s.rawKAt(ago))
	if s.raw.DataSize() < s.dFast {
		s.slowK.Append(math.NaN())
		return math.NaN()
	}
	slow := sma(s.raw, s.dFast)
	s.slowK.Append(slow)
	return slow
}

func (s *Stochastic) appendOne() {
	if s.raw.DataSize() == 0 {
		for ago := s.MinPeriod() - 1; ago > 0; ago-- {
			s.stepScratch(ago)
		}
	}
	slow := s.stepScratch(0)
	s.k.Append(slow)
	if s.slowK.DataSize() < s.dSlow {
		s.d.Append(math.NaN())
		return
	}
	s.d.Append(sma(s.slowK, s.dSlow))
}

func (s *Stochastic) NextStart() { s.appendOne() }
func (s *Stochastic) Next()      { s.appendOne() }

func (s *Stochastic) Once(start, end int) {
	if s.k.DataSize() < end {
		s.k.Grow(end - s.k.DataSize())
		s.d.Grow(end - s.d.DataSize())
		s.raw.Grow(end - s.raw.DataSize())
		s.slowK.Grow(end - s.slowK.DataSize())
	}
	for i := start; i < end; i++ {
		s.high.SetIdx(i)
		s.low.SetIdx(i)
		s.close.SetIdx(i)
		s.k.SetIdx(i)
		s.d.SetIdx(i)
		s.raw.SetIdx(i)
		s.slowK.SetIdx(i)
		s.raw.Set(0, s.rawK())
		n := i - start + 1
		if n < s.dFast {
			s.slowK.Set(0, math.NaN())
			s.k.Set(0, math.NaN())
			s.d.Set(0, math.NaN())
			continue
		}
		slow := sma(s.raw, s.dFast)
		s.slowK.Set(0, slow)
		s.k.Set(0, slow)
		if n < s.dFast+s.dSlow-1 {
			s.d.Set(0, math.NaN())
			continue
		}
		s.d.Set(0, sma(s.slowK, s.dSlow))
	}
}
