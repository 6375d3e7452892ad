package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// RMI is the relative momentum index: up[t] = max(0, C[t]-C[t-lookback]),
// down analogous, each Wilder-smoothed over period p, then RMI =
// 100 - 100/(1 + up_smma/down_smma). min_period = p + lookback.
type RMI struct {
	*Base
	in               *lineseries.Buffer
	period, lookback int
	alpha            float64
	out              *lineseries.Buffer
	up, down         *lineseries.Buffer
	upSmma, downSmma *lineseries.Buffer
}

func NewRMI(in *lineseries.Buffer, period, lookback, inMinPeriod int) *RMI {
	b := NewBase("rmi", []string{"rmi"}, []int{inMinPeriod}, period+lookback)
	return &RMI{
		Base: b, in: in, period: period, lookback: lookback, alpha: 1.0 / float64(period),
		out: b.Lines().Line("rmi"),
		up:  lineseries.NewBuffer(), down: lineseries.NewBuffer(),
		upSmma: lineseries.NewBuffer(), downSmma: lineseries.NewBuffer(),
	}
}

func (r *RMI) moves() (up, down float64) { return r.movesAt(0) }

// movesAt computes up/down momentum as of ago bars back, reading only the
// shared input buffer so it can both drive the current bar and backfill
// the scratch buffers' history.
func (r *RMI) movesAt(ago int) (up, down float64) {
	delta := r.in.At(-ago) - r.in.At(-ago-r.lookback)
	return math.Max(0, delta), math.Max(0, -delta)
}

func (r *RMI) ratio(up, down float64) float64 {
	if down == 0 {
		if up == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+up/down)
}

// stepScratch appends one up/down/upSmma/downSmma set at the given
// look-back offset, touching only the private scratch buffers.
func (r *RMI) stepScratch(ago int) (upSmma, downSmma float64, ready bool) {
	up, down := r.movesAt(ago)
	r.up.Append(up)
	r.down.Append(down)
	if r.up.DataSize() < r.MinPeriod() {
		r.upSmma.Append(math.NaN())
		r.downSmma.Append(math.NaN())
		return math.NaN(), math.NaN(), false
	}
	if r.up.DataSize() == r.MinPeriod() {
		var su, sd float64
		for i := 0; i < r.period; i++ {
			su += r.up.At(-i)
			sd += r.down.At(-i)
		}
		upSmma, downSmma = su/float64(r.period), sd/float64(r.period)
	} else {
		upSmma = r.upSmma.At(0)*(1-r.alpha) + up*r.alpha
		downSmma = r.downSmma.At(0)*(1-r.alpha) + down*r.alpha
	}
	r.upSmma.Append(upSmma)
	r.downSmma.Append(downSmma)
	return upSmma, downSmma, true
}

func (r *RMI) appendOne() {
	if r.up.DataSize() == 0 {
		for ago := r.MinPeriod() - 1; ago > 0; ago-- {
			r.stepScratch(ago)
		}
	}
	upSmma, downSmma, ready := r.stepScratch(0)
	if !ready {
		r.out.Append(math.NaN())
		return
	}
	r.out.Append(r.ratio(upSmma, downSmma))
}

func (r *RMI) NextStart() { r.appendOne() }
func (r *RMI) Next()      { r.appendOne() }

func (r *RMI) Once(start, end int) {
	if r.out.DataSize() < end {
		r.out.Grow(end - r.out.DataSize())
		r.up.Grow(end - r.up.DataSize())
		r.down.Grow(end - r.down.DataSize())
		r.upSmma.Grow(end - r.upSmma.DataSize())
		r.downSmma.Grow(end - r.downSmma.DataSize())
	}
	for i := start; i < end; i++ {
		r.in.SetIdx(i)
		r.out.SetIdx(i)
		r.up.SetIdx(i)
		r.down.SetIdx(i)
		r.upSmma.SetIdx(i)
		r.downSmma.SetIdx(i)
		up, down := r.moves()
		r.up.Set(0, up)
		r.down.Set(0, down)
		n := i - start + 1
		if n < r.MinPeriod() {
			r.upSmma.Set(0, math.NaN())
			r.downSmma.Set(0, math.NaN())
			r.out.Set(0, math.NaN())
			continue
		}
		var upSmma, downSmma float64
		if n == r.MinPeriod() {
			var su, sd float64
			for k := 0; k < r.period; k++ {
				su += r.up.At(-k)
				sd += r.down.At(-k)
			}
			upSmma, downSmma = su/float64(r.period), sd/float64(r.period)
		} else {
			upSmma = r.upSmma.At(-1)*(1-r.alpha) + up*r.alpha
			downSmma = r.downSmma.At(-1)*(1-r.alpha) + down*r.alpha
		}
		r.upSmma.Set(0, upSmma)
		r.downSmma.Set(0, downSmma)
		r.out.Set(0, r.ratio(upSmma, downSmma))
	}
}
