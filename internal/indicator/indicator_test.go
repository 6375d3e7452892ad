package indicator

import (
	"math"
	"testing"

	"github.com/jaxquant/backtest/internal/lineseries"
)

func almostEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) < 1e-9
}

func feedBuffer(vals []float64) *lineseries.Buffer {
	b := lineseries.NewBuffer()
	for _, v := range vals {
		b.Append(v)
	}
	return b
}

// S1: SMA period 3 on closes 1..10.
func TestSMA_S1(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	want := []float64{math.NaN(), math.NaN(), 2, 3, 4, 5, 6, 7, 8, 9}

	in := lineseries.NewBuffer()
	sma := NewSMA(in, 3, 1)
	var got []float64
	for i, c := range closes {
		in.Append(c)
		if i < sma.MinPeriod()-1 {
			sma.PreNext()
		} else if i == sma.MinPeriod()-1 {
			sma.NextStart()
		} else {
			sma.Next()
		}
		got = append(got, sma.Lines().Line("sma").At(0))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// batch mode must agree
	in2 := feedBuffer(closes)
	sma2 := NewSMA(in2, 3, 1)
	sma2.Once(0, len(closes))
	for i := range want {
		got2 := sma2.Lines().Line("sma").AtAbs(i)
		if !almostEqual(got2, want[i]) {
			t.Fatalf("SMA.Once[%d] = %v, want %v", i, got2, want[i])
		}
	}
}

// S2: Wilder SMMA period 3 on closes [2,4,6,8,10].
func TestSMMA_S2(t *testing.T) {
	closes := []float64{2, 4, 6, 8, 10}
	want := []float64{math.NaN(), math.NaN(), 4, 4*2.0/3.0 + 8.0/3.0, 0}
	want[4] = want[3]*2.0/3.0 + 10.0/3.0

	in := lineseries.NewBuffer()
	s := NewSMMA(in, 3, 1)
	var got []float64
	for i, c := range closes {
		in.Append(c)
		if i < s.MinPeriod()-1 {
			s.PreNext()
		} else if i == s.MinPeriod()-1 {
			s.NextStart()
		} else {
			s.Next()
		}
		got = append(got, s.Lines().Line("smma").At(0))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("SMMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// S3: ROC period 2 on [0,0,5,10] -> [NaN,NaN,+Inf,+Inf] (both t=2 and
// t=3 divide by a zero x[t-p]: closes[0] and closes[1] are both 0).
func TestROC_S3(t *testing.T) {
	closes := []float64{0, 0, 5, 10}
	want := []float64{math.NaN(), math.NaN(), math.Inf(1), math.Inf(1)}

	in := lineseries.NewBuffer()
	r := NewROC(in, 2, 1)
	var got []float64
	for i, c := range closes {
		in.Append(c)
		if i < r.MinPeriod()-1 {
			r.PreNext()
		} else if i == r.MinPeriod()-1 {
			r.NextStart()
		} else {
			r.Next()
		}
		got = append(got, r.Lines().Line("roc").At(0))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("ROC[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// S7: Stochastic(p=3, d_fast=2, d_slow=2).
func TestStochastic_S7(t *testing.T) {
	highs := []float64{10, 12, 14, 15, 14, 13}
	lows := []float64{8, 9, 11, 12, 11, 10}
	closes := []float64{9, 11, 13, 14, 13, 12}

	wantK := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), 66.666666667, 45}
	wantD := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), 75, 55.833333333}

	data := lineseries.NewDataSeries()
	st := NewStochastic(data, 3, 2, 2, 1)

	for i := range highs {
		if err := data.AddBar(float64(i), closes[i], highs[i], lows[i], closes[i], 0, 0); err != nil {
			t.Fatalf("AddBar: %v", err)
		}
		if i < st.MinPeriod()-1 {
			st.PreNext()
		} else if i == st.MinPeriod()-1 {
			st.NextStart()
		} else {
			st.Next()
		}
		gotK := st.Lines().Line("k").At(0)
		gotD := st.Lines().Line("d").At(0)
		if !almostEqual(gotK, wantK[i]) {
			t.Fatalf("K[%d] = %v, want %v", i, gotK, wantK[i])
		}
		if !almostEqual(gotD, wantD[i]) {
			t.Fatalf("D[%d] = %v, want %v", i, gotD, wantD[i])
		}
	}
}

// Testable property 3: min-period respected across the board for SMA.
func TestMinPeriodRespected(t *testing.T) {
	in := lineseries.NewBuffer()
	sma := NewSMA(in, 5, 1)
	for i := 0; i < sma.MinPeriod()-1; i++ {
		in.Append(float64(i))
		sma.PreNext()
		if !math.IsNaN(sma.Lines().Line("sma").At(0)) {
			t.Fatalf("expected NaN before min_period at bar %d", i)
		}
	}
}
