package indicator

import (
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// UpDownMove computes upmove[t] = max(0, x[t]-x[t-1]) and the analogous
// downmove on the same pass, since both share the same one-bar lookback.
// min_period = 2.
type UpDownMove struct {
	*Base
	in   *lineseries.Buffer
	up   *lineseries.Buffer
	down *lineseries.Buffer
}

func NewUpDownMove(in *lineseries.Buffer, inMinPeriod int) *UpDownMove {
	b := NewBase("updownmove", []string{"up", "down"}, []int{inMinPeriod}, 2)
	return &UpDownMove{
		Base: b, in: in,
		up:   b.Lines().Line("up"),
		down: b.Lines().Line("down"),
	}
}

func (u *UpDownMove) compute() (up, down float64) {
	delta := u.in.At(0) - u.in.At(-1)
	up = math.Max(0, delta)
	down = math.Max(0, -delta)
	return
}

func (u *UpDownMove) NextStart() { u.Next() }

func (u *UpDownMove) Next() {
	up, down := u.compute()
	u.up.Append(up)
	u.down.Append(down)
}

func (u *UpDownMove) Once(start, end int) {
	if u.up.DataSize() < end {
		u.up.Grow(end - u.up.DataSize())
		u.down.Grow(end - u.down.DataSize())
	}
	for i := start; i < end; i++ {
		u.in.SetIdx(i)
		u.up.SetIdx(i)
		u.down.SetIdx(i)
		if i < u.MinPeriod()-1 {
			u.up.Set(0, math.NaN())
			u.down.Set(0, math.NaN())
			continue
		}
		up, down := u.compute()
		u.up.Set(0, up)
		u.down.Set(0, down)
	}
}
