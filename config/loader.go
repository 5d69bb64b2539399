// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	minSampleRate = 8000
	maxSampleRate = 384000
	maxBlockSize  = 65536
	maxChannels   = 32
)

// Load reads the YAML configuration file at path and returns a validated
// Config. Fields the file leaves out keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Unknown fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns
// a joined error listing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.SampleRate < minSampleRate || cfg.SampleRate > maxSampleRate {
		errs = append(errs, fmt.Errorf("sample_rate %d is out of range [%d, %d]", cfg.SampleRate, minSampleRate, maxSampleRate))
	}
	if cfg.MaxBlockSize < 1 || cfg.MaxBlockSize > maxBlockSize {
		errs = append(errs, fmt.Errorf("max_block_size %d is out of range [1, %d]", cfg.MaxBlockSize, maxBlockSize))
	}
	if cfg.BlockSize < 1 || cfg.BlockSize > cfg.MaxBlockSize {
		errs = append(errs, fmt.Errorf("block_size %d must be in [1, max_block_size %d]", cfg.BlockSize, cfg.MaxBlockSize))
	}
	if cfg.RingCapacity < 2 {
		errs = append(errs, fmt.Errorf("ring_capacity %d must be at least 2", cfg.RingCapacity))
	}
	if cfg.ReportCapacity < 2 {
		errs = append(errs, fmt.Errorf("report_capacity %d must be at least 2", cfg.ReportCapacity))
	}
	if !(cfg.PluginBudget >= 0 && cfg.PluginBudget <= 1) {
		errs = append(errs, fmt.Errorf("plugin_budget %v is out of range [0, 1]", cfg.PluginBudget))
	}
	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if r := cfg.Device.SampleRate; r != 0 && (r < minSampleRate || r > maxSampleRate) {
		errs = append(errs, fmt.Errorf("device.sample_rate %d is out of range [%d, %d]", r, minSampleRate, maxSampleRate))
	}
	if cfg.Device.Channels < 1 || cfg.Device.Channels > maxChannels {
		errs = append(errs, fmt.Errorf("device.channels %d is out of range [1, %d]", cfg.Device.Channels, maxChannels))
	}

	if err := cfg.TimelineMeter().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("meter: %w", err))
	}

	return errors.Join(errs...)
}
