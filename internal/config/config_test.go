package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Broker.Cash != 100_000 {
		t.Errorf("expected Cash=100000, got %.2f", cfg.Broker.Cash)
	}
	if cfg.Broker.FillerKind != "fixed_size" {
		t.Errorf("expected fixed_size filler, got %q", cfg.Broker.FillerKind)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: &Config{
				Feeds: []FeedConfig{{DataID: "SPY", DataFile: "spy.csv"}},
			},
			wantErr: false,
		},
		{
			name:    "no feeds",
			cfg:     &Config{},
			wantErr: true,
		},
		{
			name: "feed missing data file",
			cfg: &Config{
				Feeds: []FeedConfig{{DataID: "SPY"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFillsDefaultsAndDerivesDataID(t *testing.T) {
	doc := map[string]any{
		"feeds": []map[string]any{
			{"data_file": "spy.csv"},
		},
		"strategy_id": "ma_crossover_v1",
	}
	path := filepath.Join(t.TempDir(), "run.json")
	raw, _ := json.Marshal(doc)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feeds[0].DataID != "spy.csv" {
		t.Errorf("expected DataID to default to DataFile, got %q", cfg.Feeds[0].DataID)
	}
	if cfg.Broker.Cash != 100_000 {
		t.Errorf("expected default cash to survive partial JSON, got %.2f", cfg.Broker.Cash)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
