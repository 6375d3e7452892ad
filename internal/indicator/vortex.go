package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// Vortex computes VM+ = sum|H[t]-L[t-1]|, VM- = sum|L[t]-H[t-1]| and TR =
// sum(TrueRange) over a window of period p, then VI+ = VM+/TR, VI- =
// VM-/TR. A zero TR (degenerate flat window) yields NaN on both lines.
type Vortex struct {
	*Base
	high, low, close *lineseries.Buffer
	period           int
	vip, vim         *lineseries.Buffer
}

func NewVortex(data *lineseries.DataSeries, period, inMinPeriod int) *Vortex {
	b := NewBase("vortex", []string{"vi_plus", "vi_minus"}, []int{inMinPeriod}, period+1)
	return &Vortex{
		Base: b, high: data.High(), low: data.Low(), close: data.Close(),
		period: period,
		vip:    b.Lines().Line("vi_plus"),
		vim:    b.Lines().Line("vi_minus"),
	}
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

func (v *Vortex) compute() (vip, vim float64) {
	var vmPlus, vmMinus, tr float64
	for i := 0; i < v.period; i++ {
		h := v.high.At(-i)
		l := v.low.At(-i)
		prevH := v.high.At(-i - 1)
		prevL := v.low.At(-i - 1)
		prevC := v.close.At(-i - 1)
		vmPlus += math.Abs(h - prevL)
		vmMinus += math.Abs(l - prevH)
		tr += trueRange(h, l, prevC)
	}
	if tr == 0 {
		return math.NaN(), math.NaN()
	}
	return vmPlus / tr, vmMinus / tr
}

func (v *Vortex) NextStart() { v.Next() }

func (v *Vortex) Next() {
	vip, vim := v.compute()
	v.vip.Append(vip)
	v.vim.Append(vim)
}

func (v *Vortex) Once(start, end int) {
	if v.vip.DataSize() < end {
		v.vip.Grow(end - v.vip.DataSize())
		v.vim.Grow(end - v.vim.DataSize())
	}
	for i := start; i < end; i++ {
		v.high.SetIdx(i)
		v.low.SetIdx(i)
		v.close.SetIdx(i)
		v.vip.SetIdx(i)
		v.vim.SetIdx(i)
		if i < v.MinPeriod()-1 {
			v.vip.Set(0, math.NaN())
			v.vim.Set(0, math.NaN())
			continue
		}
		vip, vim := v.compute()
		v.vip.Set(0, vip)
		v.vim.Set(0, vim)
	}
}
