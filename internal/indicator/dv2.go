package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// DV2 computes CHL[t] = C[t]/((H[t]+L[t])/2), DVU = SMA(CHL, ma), output
// = 100*PercentRank(DVU, p). min_period = p + ma - 1.
type DV2 struct {
	*Base
	high, low, close *lineseries.Buffer
	period, ma       int
	out              *lineseries.Buffer
	chl, dvu         *lineseries.Buffer
}

func NewDV2(data *lineseries.DataSeries, period, ma, inMinPeriod int) *DV2 {
	b := NewBase("dv2", []string{"dv2"}, []int{inMinPeriod}, period+ma-1)
	return &DV2{
		Base: b, high: data.High(), low: data.Low(), close: data.Close(),
		period: period, ma: ma, out: b.Lines().Line("dv2"),
		chl: lineseries.NewBuffer(), dvu: lineseries.NewBuffer(),
	}
}

func (d *DV2) chlAt(ago int) float64 {
	mid := (d.high.At(ago) + d.low.At(ago)) / 2
	return lineseries.SafeDiv(d.close.At(ago), mid, math.NaN())
}

func (d *DV2) dvuFromCHL() float64 {
	var sum float64
	for i := 0; i < d.ma; i++ {
		sum += d.chl.At(-i)
	}
	return sum / float64(d.ma)
}

func (d *DV2) rankFromDVU() float64 {
	cur := d.dvu.At(0)
	less := 0
	for i := 1; i < d.period; i++ {
		if d.dvu.At(-i) < cur {
			less++
		}
	}
	return 100 * float64(less) / float64(d.period)
}

// stepScratch appends one chl/dvu pair at the given look-back offset
// (agoBack bars before the current one), touching only the private
// scratch buffers.
func (d *DV2) stepScratch(agoBack int) {
	d.chl.Append(d.chlAt(-agoBack))
	if d.chl.DataSize() < d.ma {
		d.dvu.Append(math.NaN())
		return
	}
	d.dvu.Append(d.dvuFromCHL())
}

// appendOne pushes one new value onto chl, dvu, and the output line,
// using the scratch buffers' own accumulated size to decide which phase
// of the warm-up each is in.
func (d *DV2) appendOne() {
	if d.chl.DataSize() == 0 {
		for agoBack := d.MinPeriod() - 1; agoBack > 0; agoBack-- {
			d.stepScratch(agoBack)
		}
	}
	d.stepScratch(0)
	if d.chl.DataSize() < d.ma {
		d.out.Append(math.NaN())
		return
	}
	if d.dvu.DataSize() < d.period {
		d.out.Append(math.NaN())
		return
	}
	d.out.Append(d.rankFromDVU())
}

func (d *DV2) NextStart() { d.appendOne() }
func (d *DV2) Next()      { d.appendOne() }

func (d *DV2) Once(start, end int) {
	if d.out.DataSize() < end {
		d.out.Grow(end - d.out.DataSize())
		d.chl.Grow(end - d.chl.DataSize())
		d.dvu.Grow(end - d.dvu.DataSize())
	}
	for i := start; i < end; i++ {
		d.high.SetIdx(i)
		d.low.SetIdx(i)
		d.close.SetIdx(i)
		d.out.SetIdx(i)
		d.chl.SetIdx(i)
		d.dvu.SetIdx(i)
		d.chl.Set(0, d.chlAt(0))
		if i-start+1 < d.ma {
			d.dvu.Set(0, math.NaN())
			d.out.Set(0, math.NaN())
			continue
		}
		d.dvu.Set(0, d.dvuFromCHL())
		if i-start+1 < d.ma+d.period-1 {
			d.out.Set(0, math.NaN())
			continue
		}
		d.out.Set(0, d.rankFromDVU())
	}
}
