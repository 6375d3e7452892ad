// Package resample re-bins a bar stream to a coarser timeframe via either
// a Resampler (emits one bar per closed window) or a Replayer (emits the
// updating partial bar on every tick and flags the tick that starts a new
// window).
package resample

import (
	"math"
	"time"
)

// TimeFrame names the aggregation unit; compression multiplies it (e.g.
// TimeFrame=Minutes, Compression=5 is a 5-minute bar).
type TimeFrame int

const (
	Seconds TimeFrame = iota
	Minutes
	Days
	Weeks
	Months
)

// Bar is one OHLCV record stamped with a timestamp, the unit both the
// input stream and the resampled output stream exchange.
type Bar struct {
	DateTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	OI       float64
}

// Params configures window boundaries, mirroring the reference filter's
// bar2edge/adjbartime/rightedge/boundoff/takelate/sessionend knobs.
type Params struct {
	TimeFrame   TimeFrame
	Compression int

	// Bar2Edge declares a window closed as soon as the input time
	// reaches an exact edge, not only when the next tick crosses it.
	Bar2Edge bool
	// AdjustTime snaps the emitted timestamp to the canonical edge.
	AdjustTime bool
	// RightEdge stamps the output bar at the window's right edge
	// instead of its left edge.
	RightEdge bool
	// TakeLate controls the fate of a late input (timestamp <= last
	// emitted): if true it is merged into the current window, if false
	// it is dropped.
	TakeLate bool

	// SessionStart/SessionEnd clamp aggregation to a trading session;
	// zero values disable clamping. Supplemental, grounded on
	// filters/session.h.
	SessionStart, SessionEnd time.Duration
}

// DefaultParams returns the common minute-compression configuration.
func DefaultParams(tf TimeFrame, compression int) Params {
	return Params{
		TimeFrame:   tf,
		Compression: compression,
		Bar2Edge:    true,
		AdjustTime:  true,
		RightEdge:   true,
		TakeLate:    false,
	}
}

func boundary(tf TimeFrame, compression int, t time.Time) time.Time {
	switch tf {
	case Seconds:
		unit := time.Duration(compression) * time.Second
		return t.Truncate(unit)
	case Minutes:
		unit := time.Duration(compression) * time.Minute
		return t.Truncate(unit)
	case Days:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case Weeks:
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7 // Monday = start of week
		return day.AddDate(0, 0, -offset)
	case Months:
		y, m, _ := t.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

// windowEnd returns the exclusive right edge of the window containing t.
func windowEnd(tf TimeFrame, compression int, start time.Time) time.Time {
	switch tf {
	case Seconds:
		return start.Add(time.Duration(compression) * time.Second)
	case Minutes:
		return start.Add(time.Duration(compression) * time.Minute)
	case Days:
		return start.AddDate(0, 0, compression)
	case Weeks:
		return start.AddDate(0, 0, 7*compression)
	case Months:
		return start.AddDate(0, compression, 0)
	default:
		return start
	}
}

// inSession reports whether t falls within the configured session
// window; a zero-valued Start/End disables clamping (always true).
func (p Params) inSession(t time.Time) bool {
	if p.SessionStart == 0 && p.SessionEnd == 0 {
		return true
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	return offset >= p.SessionStart && offset < p.SessionEnd
}

// window accumulates one aggregation window's state.
type window struct {
	start, end                         time.Time
	open, high, low, close, volume, oi float64
	started                            bool
}

func (w *window) update(b Bar) {
	if !w.started {
		w.open = b.Open
		w.high = b.High
		w.low = b.Low
		w.started = true
	} else {
		w.high = math.Max(w.high, b.High)
		w.low = math.Min(w.low, b.Low)
	}
	w.close = b.Close
	w.volume += b.Volume
	w.oi = b.OI
}

func (w *window) bar(rightEdge bool) Bar {
	dt := w.start
	if rightEdge {
		dt = w.end
	}
	return Bar{
		DateTime: dt,
		Open:     w.open,
		High:     w.high,
		Low:      w.low,
		Close:    w.close,
		Volume:   w.volume,
		OI:       w.oi,
	}
}

// Resampler emits one output bar per aggregation window, on window
// close. Downstream only ever sees completed bars.
type Resampler struct {
	params   Params
	cur      *window
	lastEmit time.Time
	haveEmit bool
}

func NewResampler(p Params) *Resampler {
	return &Resampler{params: p}
}

// Feed ingests one input bar. It returns the completed output bar and
// true if this input closed a window; otherwise it returns a zero Bar
// and false.
func (r *Resampler) Feed(b Bar) (Bar, bool) {
	if !r.params.inSession(b.DateTime) {
		if !r.params.TakeLate {
			return Bar{}, false
		}
	}
	if r.haveEmit && !b.DateTime.After(r.lastEmit) {
		if !r.params.TakeLate {
			return Bar{}, false
		}
	}

	start := boundary(r.params.TimeFrame, r.params.Compression, b.DateTime)
	end := windowEnd(r.params.TimeFrame, r.params.Compression, start)

	if r.cur == nil {
		r.cur = &window{start: start, end: end}
	}

	closed := false
	var out Bar
	if b.DateTime.After(r.cur.end) || (r.params.Bar2Edge && !b.DateTime.Before(r.cur.end)) {
		out = r.cur.bar(r.params.RightEdge)
		closed = true
		r.cur = &window{start: start, end: end}
		r.lastEmit = out.DateTime
		r.haveEmit = true
	}
	r.cur.update(b)
	return out, closed
}

// Close flushes any partially-accumulated final window, used at feed
// exhaustion so the last window is not silently dropped.
func (r *Resampler) Close() (Bar, bool) {
	if r.cur == nil || !r.cur.started {
		return Bar{}, false
	}
	out := r.cur.bar(r.params.RightEdge)
	r.cur = nil
	return out, true
}

// Replayer emits an updated partial bar on every input tick within the
// window. Downstream may see many transient states of the same output
// bar. The tick that crosses into the next window is reported with
// closed=true and returns that new window's first partial bar; no
// separate final bar is emitted for the window that closed, whose last
// state is the partial returned by the preceding tick.
type Replayer struct {
	params Params
	cur    *window
}

func NewReplayer(p Params) *Replayer {
	return &Replayer{params: p}
}

// Feed ingests one input bar and always returns the current (possibly
// still-open) aggregated bar plus whether this tick closed the window.
func (r *Replayer) Feed(b Bar) (Bar, bool) {
	start := boundary(r.params.TimeFrame, r.params.Compression, b.DateTime)
	end := windowEnd(r.params.TimeFrame, r.params.Compression, start)

	closed := false
	if r.cur != nil && (b.DateTime.After(r.cur.end) || (r.params.Bar2Edge && !b.DateTime.Before(r.cur.end))) {
		closed = true
		r.cur = nil
	}
	if r.cur == nil {
		r.cur = &window{start: start, end: end}
	}
	r.cur.update(b)
	return r.cur.bar(r.params.RightEdge), closed
}
