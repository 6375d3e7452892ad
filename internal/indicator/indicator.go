// Package indicator implements the deferred-evaluation composition
// framework over lineseries.Buffer/Series: minimum-period propagation and
// the streaming (Next) vs. batch (Once) dual execution modes.
package indicator

import (
	"fmt"
	"math"

	"github.com/jaxquant/backtest/internal/lineseries"
)

// Indicator is a LineSeries derived from one or more input LineSeries. It
// declares a min_period and implements Next (one bar) and/or Once (batch).
type Indicator interface {
	Lines() *lineseries.Series
	MinPeriod() int
	PreNext()
	NextStart()
	Next()
	Once(start, end int)
	Start()
	Stop()
	Name() string
}

// Base carries the bookkeeping common to every concrete indicator: its
// output lines and the computed minimum period. Concrete kernels embed
// Base and implement NextStart/Next/Once themselves, since Go has no
// virtual dispatch through embedding and the engine always calls through
// the Indicator interface of the concrete type.
type Base struct {
	name      string
	lines     *lineseries.Series
	minPeriod int
}

// NewBase allocates the output lines declared by names and computes
// min_period from the inputs' min_periods and this indicator's own
// look-back window w, per the propagation rule: min_period = max(input
// min_periods) + w - 1.
func NewBase(name string, lineNames []string, inputMinPeriods []int, w int) *Base {
	s := lineseries.NewSeries()
	for _, n := range lineNames {
		s.AddLine(n)
	}
	m := 0
	for _, p := range inputMinPeriods {
		if p > m {
			m = p
		}
	}
	return &Base{name: name, lines: s, minPeriod: m + w - 1}
}

func (b *Base) Lines() *lineseries.Series { return b.lines }
func (b *Base) MinPeriod() int            { return b.minPeriod }
func (b *Base) Name() string              { return b.name }

// PreNext appends NaN to every output line, keeping pace with the global
// bar count while the indicator is still below min_period.
func (b *Base) PreNext() {
	for i := 0; i < b.lines.NumLines(); i++ {
		b.lines.LineAt(i).Append(math.NaN())
	}
}

// Start and Stop default to no-ops; kernels with setup/teardown state
// override them.
func (b *Base) Start() {}
func (b *Base) Stop()  {}

// MinPeriodOf is a small helper for composite indicators (e.g. DV2, RMI,
// MACD) that derive their min_period from an intermediate indicator
// rather than directly from input data.
func MinPeriodOf(in Indicator) int { return in.MinPeriod() }

// ErrCycle is returned by Sort when the indicator dependency graph is not
// a DAG; per design notes this is a bootstrap-fatal precondition
// violation, never a runtime error.
type ErrCycle struct{ Path []string }

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("indicator: dependency cycle detected: %v", e.Path)
}

// node is the minimal shape Sort needs: an identity plus its direct
// dependencies, supplied by the engine when it wires the graph.
type node struct {
	id   string
	ind  Indicator
	deps []string
}

// Sort topologically orders indicators by their declared dependency
// edges (indicator -> its inputs), so that every indicator is advanced
// only after everything it reads from. It rejects cycles, per the
// bootstrap DAG-enforcement design note.
func Sort(ids []string, deps map[string][]string, inds map[string]Indicator) ([]Indicator, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(ids))
	var order []Indicator
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &ErrCycle{Path: append(append([]string{}, path...), id)}
		}
		color[id] = gray
		path = append(path, id)
		for _, dep := range deps[id] {
			if _, ok := inds[dep]; !ok {
				continue // dependency is raw data, not another indicator
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		order = append(order, inds[id])
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
