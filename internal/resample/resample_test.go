package resample

import (
	"testing"
	"time"
)

// S6: minute -> 5-minute aggregation.
func TestResampler_S6(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 11, 12, 11, 13}
	highs := []float64{10.5, 11.2, 12.5, 11.3, 13.1}
	lows := []float64{9.9, 10.8, 11.5, 10.9, 12.8}
	volumes := []float64{100, 150, 200, 120, 180}

	r := NewResampler(DefaultParams(Minutes, 5))
	var finalOut Bar
	for i := 0; i < 5; i++ {
		b := Bar{
			DateTime: base.Add(time.Duration(i) * time.Minute),
			Open:     closes[i] - 0.1,
			High:     highs[i],
			Low:      lows[i],
			Close:    closes[i],
			Volume:   volumes[i],
		}
		if i == 0 {
			b.Open = 10
		}
		out, closed := r.Feed(b)
		if closed {
			t.Fatalf("unexpected premature close at bar %d", i)
		}
		_ = out
	}
	out, closed := r.Close()
	if !closed {
		t.Fatalf("expected Close() to flush the accumulating window")
	}
	finalOut = out

	if finalOut.Open != 10 {
		t.Fatalf("Open = %v, want 10", finalOut.Open)
	}
	if finalOut.High != 13.1 {
		t.Fatalf("High = %v, want 13.1", finalOut.High)
	}
	if finalOut.Low != 9.9 {
		t.Fatalf("Low = %v, want 9.9", finalOut.Low)
	}
	if finalOut.Close != 13 {
		t.Fatalf("Close = %v, want 13", finalOut.Close)
	}
	if finalOut.Volume != 750 {
		t.Fatalf("Volume = %v, want 750", finalOut.Volume)
	}
}

func TestReplayerEmitsPartialThenCloses(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReplayer(DefaultParams(Minutes, 5))

	out, closed := r.Feed(Bar{DateTime: base, Open: 1, High: 1, Low: 1, Close: 1, Volume: 10})
	if closed {
		t.Fatalf("first tick should not close the window")
	}
	if out.Close != 1 {
		t.Fatalf("partial close = %v, want 1", out.Close)
	}

	out, closed = r.Feed(Bar{DateTime: base.Add(time.Minute), Open: 2, High: 2, Low: 1, Close: 2, Volume: 5})
	if closed {
		t.Fatalf("second tick within window should not close")
	}
	if out.Volume != 15 {
		t.Fatalf("accumulated volume = %v, want 15", out.Volume)
	}

	_, closed = r.Feed(Bar{DateTime: base.Add(5 * time.Minute), Open: 3, High: 3, Low: 3, Close: 3, Volume: 1})
	if !closed {
		t.Fatalf("tick past window edge should report closed")
	}
}

func TestMonotonicTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewResampler(DefaultParams(Minutes, 1))
	var last time.Time
	for i := 0; i < 10; i++ {
		out, closed := r.Feed(Bar{DateTime: base.Add(time.Duration(i) * time.Minute), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1})
		if closed {
			if out.DateTime.Before(last) {
				t.Fatalf("timestamps not monotonic: %v before %v", out.DateTime, last)
			}
			last = out.DateTime
		}
	}
}
