// Package config loads the JSON run configuration for one backtest
// invocation, following the Config/DefaultConfig/Validate convention
// used throughout this codebase's libs packages.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrNoDataFile = errors.New("config: data_file is required")

// FeedConfig describes one data feed to load and optionally resample.
type FeedConfig struct {
	DataID            string `json:"data_id"`
	DataFile          string `json:"data_file"`
	ResampleTimeframe string `json:"resample_timeframe,omitempty"` // "", "minutes", "days", "weeks"
	ResampleSize      int    `json:"resample_size,omitempty"`
}

// BrokerConfig mirrors broker.Config's shape for JSON loading.
type BrokerConfig struct {
	Cash           float64 `json:"cash"`
	FillerKind     string  `json:"filler"`      // "fixed_size", "fixed_bar_perc", "bar_point_perc"
	FillerSize     float64 `json:"filler_size"` // meaning depends on FillerKind
	FillerMinMov   float64 `json:"filler_min_move,omitempty"`
	CommissionKind string  `json:"commission"` // "per_share", "percentage"
	CommissionRate float64 `json:"commission_rate"`
}

// Config is the full JSON-loadable configuration for one backtest run.
type Config struct {
	Feeds      []FeedConfig `json:"feeds"`
	StrategyID string       `json:"strategy_id"`
	Broker     BrokerConfig `json:"broker"`
	RiskPolicy string       `json:"risk_policy_file,omitempty"`
	ReportFile string       `json:"report_file,omitempty"`
	LogLevel   string       `json:"log_level,omitempty"`
}

// DefaultConfig returns sensible defaults for a single-feed run; callers
// still need to fill in Feeds and StrategyID.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Cash:           100_000,
			FillerKind:     "fixed_size",
			FillerSize:     0, // unlimited
			CommissionKind: "per_share",
			CommissionRate: 0,
		},
		LogLevel: "info",
	}
}

// Load reads and validates a JSON config file, applying DefaultConfig
// values for any field the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and normalizes zero values to defaults.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return ErrNoDataFile
	}
	for i, f := range c.Feeds {
		if f.DataFile == "" {
			return fmt.Errorf("config: feeds[%d]: %w", i, ErrNoDataFile)
		}
		if f.DataID == "" {
			c.Feeds[i].DataID = f.DataFile
		}
	}
	if c.Broker.Cash <= 0 {
		c.Broker.Cash = 100_000
	}
	if c.Broker.FillerKind == "" {
		c.Broker.FillerKind = "fixed_size"
	}
	if c.Broker.CommissionKind == "" {
		c.Broker.CommissionKind = "per_share"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}
