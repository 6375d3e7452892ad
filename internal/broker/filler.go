package broker

import (
	"math"

	"github.com/jaxquant/backtest/internal/order"
)

// Filler decides the executable size for an order given the matched
// price and the bar it is filling against. Built-in policies transcribe
// the reference fillers.h/.cpp formulas.
type Filler interface {
	Fill(o *order.Order, price float64, bar Bar) float64
}

// FixedSize caps the fill at min(remaining, volume, size) where size<=0
// means unlimited.
type FixedSize struct {
	Size float64
}

func (f FixedSize) Fill(o *order.Order, price float64, bar Bar) float64 {
	limit := f.Size
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	rem := math.Abs(o.Remaining())
	return math.Min(math.Min(bar.Volume, rem), limit)
}

// FixedBarPerc fills min(remaining, floor(volume*perc/100)).
type FixedBarPerc struct {
	Perc float64 // 0..100
}

func (f FixedBarPerc) Fill(o *order.Order, price float64, bar Bar) float64 {
	perc := clamp(f.Perc, 0, 100)
	maxSize := math.Floor(bar.Volume * perc / 100.0)
	rem := math.Abs(o.Remaining())
	return math.Min(maxSize, rem)
}

// BarPointPerc distributes volume across price slots of width minmov
// spanning [low, high], then allocates perc% of one slot's share.
type BarPointPerc struct {
	MinMov float64
	Perc   float64
}

func (f BarPointPerc) parts(high, low float64) float64 {
	if f.MinMov <= 0 {
		return 1
	}
	return math.Floor((high - low + f.MinMov) / f.MinMov)
}

func (f BarPointPerc) Fill(o *order.Order, price float64, bar Bar) float64 {
	parts := f.parts(bar.High, bar.Low)
	perc := clamp(f.Perc, 0, 100)
	allocVol := math.Floor((bar.Volume / parts) * perc / 100.0)
	rem := math.Abs(o.Remaining())
	return math.Min(allocVol, rem)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
