package lineseries

import "fmt"

// Slot indexes the fixed OHLCV columns every DataSeries pins by
// convention, matching the ordering the broker and fillers rely on when
// reading volume and high/low off a data feed.
type Slot int

const (
	DateTime Slot = iota
	Open
	High
	Low
	Close
	Volume
	OpenInterest
	numFixedSlots
)

// Series is a named bundle of Buffers: an indicator's or a data feed's
// output lines. An indicator's Series may hold a reference to the input
// Series it was derived from; the input is never outlived by its
// dependents at engine shutdown (the engine tears down in reverse
// construction order).
type Series struct {
	names []string
	lines []*Buffer
	index map[string]int
}

// NewSeries returns an empty named line bundle.
func NewSeries() *Series {
	return &Series{index: make(map[string]int)}
}

// AddLine appends a new named line and returns its buffer.
func (s *Series) AddLine(name string) *Buffer {
	buf := NewBuffer()
	s.index[name] = len(s.lines)
	s.names = append(s.names, name)
	s.lines = append(s.lines, buf)
	return buf
}

// Line returns the named line, or nil if it does not exist.
func (s *Series) Line(name string) *Buffer {
	if i, ok := s.index[name]; ok {
		return s.lines[i]
	}
	return nil
}

// LineAt returns the i'th line in declaration order.
func (s *Series) LineAt(i int) *Buffer {
	if i < 0 || i >= len(s.lines) {
		return nil
	}
	return s.lines[i]
}

// NumLines returns the number of declared lines.
func (s *Series) NumLines() int {
	return len(s.lines)
}

// Rewind resets every line's cursor to -1 without discarding appended
// data, used after a batch (Once) kernel has filled a whole range so the
// series can be walked bar-by-bar again via Forward.
func (s *Series) Rewind() {
	for _, l := range s.lines {
		l.SetIdx(-1)
	}
}

// Forward advances every line's cursor by n in lock-step, the per-bar
// counterpart to a batch Once fill.
func (s *Series) Forward(n int) {
	for _, l := range s.lines {
		l.Forward(n)
	}
}

// Names returns the declared line names in order.
func (s *Series) Names() []string {
	return s.names
}

// DataSeries is a Series with the seven fixed OHLCV slots pinned first,
// by convention, so broker/filler code can address them positionally.
type DataSeries struct {
	*Series
}

// NewDataSeries allocates a DataSeries with its seven fixed lines
// pre-declared in slot order.
func NewDataSeries() *DataSeries {
	s := NewSeries()
	s.AddLine("datetime")
	s.AddLine("open")
	s.AddLine("high")
	s.AddLine("low")
	s.AddLine("close")
	s.AddLine("volume")
	s.AddLine("openinterest")
	return &DataSeries{Series: s}
}

func (d *DataSeries) slot(s Slot) *Buffer {
	return d.LineAt(int(s))
}

func (d *DataSeries) DateTime() *Buffer { return d.slot(DateTime) }
func (d *DataSeries) Open() *Buffer     { return d.slot(Open) }
func (d *DataSeries) High() *Buffer     { return d.slot(High) }
func (d *DataSeries) Low() *Buffer      { return d.slot(Low) }
func (d *DataSeries) Close() *Buffer    { return d.slot(Close) }
func (d *DataSeries) Volume() *Buffer   { return d.slot(Volume) }
func (d *DataSeries) OpenInterest() *Buffer {
	return d.slot(OpenInterest)
}

// AddBar appends one OHLCV bar at the given epoch-second timestamp,
// advancing every fixed line's cursor together. It is the precondition
// check point for the data-integrity error kind: a bar that violates
// low <= min(open,close) <= max(open,close) <= high or volume >= 0 is
// rejected with an error and nothing is appended.
func (d *DataSeries) AddBar(dt, open, high, low, close, volume, oi float64) error {
	if !(low <= open && low <= close && high >= open && high >= close) {
		return fmt.Errorf("lineseries: invalid bar ohlc: o=%v h=%v l=%v c=%v", open, high, low, close)
	}
	if volume < 0 {
		return fmt.Errorf("lineseries: negative volume: %v", volume)
	}
	d.DateTime().Append(dt)
	d.Open().Append(open)
	d.High().Append(high)
	d.Low().Append(low)
	d.Close().Append(close)
	d.Volume().Append(volume)
	d.OpenInterest().Append(oi)
	return nil
}

// Forward advances every line's cursor by n in lock-step, used when the
// engine pre-allocates a batch range and then traverses it.
func (d *DataSeries) Forward(n int) {
	for _, l := range d.lines {
		l.Forward(n)
	}
}
