package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCSVBarsParsesHeaderAndRows(t *testing.T) {
	csv := "date,open,high,low,close,volume\n" +
		"2024-01-02,100,101,99,100.5,1000\n" +
		"2024-01-03,100.5,102,100,101.5,1200\n"
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	bars, err := LoadCSVBars(path)
	if err != nil {
		t.Fatalf("LoadCSVBars failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Open != 100 || bars[0].Close != 100.5 || bars[0].Volume != 1000 {
		t.Errorf("unexpected first bar: %+v", bars[0])
	}
	if bars[1].High != 102 {
		t.Errorf("unexpected second bar high: %+v", bars[1])
	}
}

func TestLoadCSVBarsMissingColumn(t *testing.T) {
	csv := "date,open,high,low,close\n2024-01-02,100,101,99,100.5\n"
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSVBars(path); err == nil {
		t.Fatal("expected error for missing volume column")
	}
}
