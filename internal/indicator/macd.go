package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// MACD is fast EMA minus slow EMA, with a signal line that is an EMA of
// the MACD line itself, and a histogram of MACD minus signal. Referenced
// directly by the strategy catalogue's MACD-crossover strategy.
type MACD struct {
	*Base
	in                                   *lineseries.Buffer
	fastPeriod, slowPeriod, signalPeriod int
	fastAlpha, slowAlpha, signalAlpha    float64
	macd, signal, hist                   *lineseries.Buffer
	fastEMA, slowEMA                     *lineseries.Buffer
}

func macdWarmup(fast, slow, signal int) int {
	// slow EMA warms up last among fast/slow; the signal EMA then needs
	// signal-1 more MACD values on top of that.
	base := slow
	if fast > base {
		base = fast
	}
	return base + signal - 1
}

func NewMACD(in *lineseries.Buffer, fast, slow, signal, inMinPeriod int) *MACD {
	b := NewBase("macd", []string{"macd", "signal", "histogram"}, []int{inMinPeriod}, macdWarmup(fast, slow, signal))
	return &MACD{
		Base: b, in: in,
		fastPeriod: fast, slowPeriod: slow, signalPeriod: signal,
		fastAlpha: 2.0 / float64(fast+1), slowAlpha: 2.0 / float64(slow+1), signalAlpha: 2.0 / float64(signal+1),
		macd: b.Lines().Line("macd"), signal: b.Lines().Line("signal"), hist: b.Lines().Line("histogram"),
		fastEMA: lineseries.NewBuffer(), slowEMA: lineseries.NewBuffer(),
	}
}

func emaSeed(in *lineseries.Buffer, period int) float64 { return emaSeedAt(in, period, 0) }

// emaSeedAt averages the period bars ending ago bars back, reading only
// the shared buffer (never mutating its cursor).
func emaSeedAt(in *lineseries.Buffer, period, ago int) float64 {
	var sum float64
	for i := 0; i < period; i++ {
		sum += in.At(-ago - i)
	}
	return sum / float64(period)
}

func (m *MACD) stepEMA(buf *lineseries.Buffer, period int, alpha float64) float64 {
	return m.stepEMAAt(buf, period, alpha, 0)
}

// stepEMAAt computes the EMA recurrence as of ago bars back, so it can
// both drive the current bar and backfill the scratch buffer's history.
func (m *MACD) stepEMAAt(buf *lineseries.Buffer, period int, alpha float64, ago int) float64 {
	if buf.DataSize() < period-1 {
		return math.NaN()
	}
	if buf.DataSize() == period-1 {
		return emaSeedAt(m.in, period, ago)
	}
	return buf.At(0)*(1-alpha) + m.in.At(-ago)*alpha
}

// stepScratch appends one fastEMA/slowEMA pair at the given look-back
// offset, touching only the private scratch buffers.
func (m *MACD) stepScratch(ago int) (fast, slow float64) {
	fast = m.stepEMAAt(m.fastEMA, m.fastPeriod, m.fastAlpha, ago)
	slow = m.stepEMAAt(m.slowEMA, m.slowPeriod, m.slowAlpha, ago)
	m.fastEMA.Append(fast)
	m.slowEMA.Append(slow)
	return fast, slow
}

func (m *MACD) appendOne() {
	if m.fastEMA.DataSize() == 0 {
		for ago := m.MinPeriod() - 1; ago > 0; ago-- {
			m.stepScratch(ago)
		}
	}
	fast, slow := m.stepScratch(0)
	if math.IsNaN(fast) || math.IsNaN(slow) {
		m.macd.Append(math.NaN())
		m.signal.Append(math.NaN())
		m.hist.Append(math.NaN())
		return
	}
	macdVal := fast - slow
	m.macd.Append(macdVal)
	if m.macd.DataSize() < m.signalPeriod {
		m.signal.Append(math.NaN())
		m.hist.Append(math.NaN())
		return
	}
	var sig float64
	if m.macd.DataSize() == m.signalPeriod {
		sig = emaSeed(m.macd, m.signalPeriod)
	} else {
		sig = m.signal.At(0)*(1-m.signalAlpha) + macdVal*m.signalAlpha
	}
	m.signal.Append(sig)
	m.hist.Append(macdVal - sig)
}

func (m *MACD) NextStart() { m.appendOne() }
func (m *MACD) Next()      { m.appendOne() }

// Once recomputes the whole range by replaying appendOne in streaming
// order against the absolute-positioned cursor, since the recurrence is
// inherently sequential.
func (m *MACD) Once(start, end int) {
	if m.macd.DataSize() < end {
		m.macd.Grow(end - m.macd.DataSize())
		m.signal.Grow(end - m.signal.DataSize())
		m.hist.Grow(end - m.hist.DataSize())
	}
	for i := start; i < end; i++ {
		m.in.SetIdx(i)
		m.macd.SetIdx(i)
		m.signal.SetIdx(i)
		m.hist.SetIdx(i)
		fast := m.stepEMA(m.fastEMA, m.fastPeriod, m.fastAlpha)
		slow := m.stepEMA(m.slowEMA, m.slowPeriod, m.slowAlpha)
		m.fastEMA.Append(fast)
		m.slowEMA.Append(slow)
		if math.IsNaN(fast) || math.IsNaN(slow) {
			m.macd.Set(0, math.NaN())
			m.signal.Set(0, math.NaN())
			m.hist.Set(0, math.NaN())
			continue
		}
		macdVal := fast - slow
		m.macd.Set(0, macdVal)
		n := m.macd.DataSize()
		_ = n
		if i-start+1 < m.signalPeriod {
			m.signal.Set(0, math.NaN())
			m.hist.Set(0, math.NaN())
			continue
		}
		var sig float64
		if i-start+1 == m.signalPeriod {
			sig = emaSeed(m.macd, m.signalPeriod)
		} else {
			sig = m.signal.At(-1)*(1-m.signalAlpha) + macdVal*m.signalAlpha
		}
		m.signal.Set(0, sig)
		m.hist.Set(0, macdVal-sig)
	}
}
