package observer

import (
	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/lineseries"
)

// DrawDownObserver tracks portfolio drawdown from the running peak,
// grounded on observers/drawdown.h (drawdown/max-drawdown lines, plus
// running peak and duration tracking kept as plain fields; plotting-only
// fields dropped).
type DrawDownObserver struct {
	series      *lineseries.Series
	drawdown    *lineseries.Buffer
	maxDrawdown *lineseries.Buffer

	br         *broker.Broker
	lastPrices map[string]float64

	peak        float64
	maxDD       float64
	ddLength    int
	maxDDLength int
	inDrawdown  bool
}

func NewDrawDownObserver(br *broker.Broker, lastPrices map[string]float64) *DrawDownObserver {
	s := lineseries.NewSeries()
	return &DrawDownObserver{
		series:      s,
		drawdown:    s.AddLine("drawdown"),
		maxDrawdown: s.AddLine("maxdrawdown"),
		br:          br,
		lastPrices:  lastPrices,
	}
}

func (o *DrawDownObserver) Lines() *lineseries.Series { return o.series }
func (o *DrawDownObserver) Start() {
	o.peak = o.br.GetValue(o.lastPrices)
}
func (o *DrawDownObserver) Stop() {}

func (o *DrawDownObserver) Next() {
	value := o.br.GetValue(o.lastPrices)
	if value > o.peak {
		o.peak = value
		o.inDrawdown = false
		o.ddLength = 0
	}

	var ddPct float64
	if o.peak != 0 {
		ddPct = (o.peak - value) / o.peak * 100
	}
	if ddPct > 0 {
		o.inDrawdown = true
		o.ddLength++
	}
	if ddPct > o.maxDD {
		o.maxDD = ddPct
	}
	if o.ddLength > o.maxDDLength {
		o.maxDDLength = o.ddLength
	}

	o.drawdown.Append(ddPct)
	o.maxDrawdown.Append(o.maxDD)
}

func (o *DrawDownObserver) CurrentDrawdownPct() float64 {
	return o.drawdown.At(0)
}
func (o *DrawDownObserver) MaxDrawdownPct() float64 { return o.maxDD }
func (o *DrawDownObserver) IsInDrawdown() bool      { return o.inDrawdown }
func (o *DrawDownObserver) MaxDrawdownLength() int  { return o.maxDDLength }
func (o *DrawDownObserver) PeakValue() float64      { return o.peak }
