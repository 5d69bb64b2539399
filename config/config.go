// SPDX-License-Identifier: EPL-2.0

// Package config loads the YAML configuration of a dawcore session.
package config

import (
	"log/slog"

	"github.com/ik5/dawcore/engine"
	"github.com/ik5/dawcore/timeline"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Empty means info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration.
type Config struct {
	// SampleRate is the rate the engine renders and decodes assets at.
	SampleRate int `yaml:"sample_rate"`

	// BlockSize is the block length buffers are first compiled for.
	BlockSize int `yaml:"block_size"`

	// MaxBlockSize is the largest block plugins are activated for. Device
	// blocks above it are split.
	MaxBlockSize int `yaml:"max_block_size"`

	// RingCapacity is the size of the command ring.
	RingCapacity int `yaml:"ring_capacity"`

	// ReportCapacity is the size of the report ring.
	ReportCapacity int `yaml:"report_capacity"`

	// PluginBudget is the share of a block one plugin call may take before
	// an overrun is reported. Zero turns monitoring off.
	PluginBudget float64 `yaml:"plugin_budget"`

	// PluginPaths are searched for native plugin modules.
	PluginPaths []string `yaml:"plugin_paths"`

	// AssetPaths are searched for the audio files a project refers to.
	AssetPaths []string `yaml:"asset_paths"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Device DeviceConfig `yaml:"device"`

	// Meter is the tempo of new projects.
	Meter MeterConfig `yaml:"meter"`
}

// DeviceConfig describes the output device.
type DeviceConfig struct {
	// SampleRate is the device rate. Zero uses the engine rate; any other
	// rate is converted.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the device output channel count.
	Channels int `yaml:"channels"`
}

// MeterConfig is a tempo and time signature.
type MeterConfig struct {
	BPM       uint32 `yaml:"bpm"`
	Numerator uint32 `yaml:"numerator"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() *Config {
	return &Config{
		SampleRate:     48000,
		BlockSize:      512,
		MaxBlockSize:   4096,
		RingCapacity:   256,
		ReportCapacity: 1024,
		PluginBudget:   0.5,
		Device:         DeviceConfig{Channels: 2},
		Meter:          MeterConfig{BPM: timeline.DefaultBPM, Numerator: timeline.DefaultNumerator},
	}
}

// DeviceRate is the rate to open the device at.
func (c *Config) DeviceRate() int {
	if c.Device.SampleRate > 0 {
		return c.Device.SampleRate
	}
	return c.SampleRate
}

// TimelineMeter returns the configured meter.
func (c *Config) TimelineMeter() timeline.Meter {
	return timeline.Meter{BPM: c.Meter.BPM, Numerator: c.Meter.Numerator}
}

// Engine returns the controller settings.
func (c *Config) Engine() engine.Config {
	e := engine.DefaultConfig()
	e.BlockSize = c.BlockSize
	e.RingCapacity = c.RingCapacity
	e.ReportCapacity = c.ReportCapacity
	e.PluginBudget = c.PluginBudget
	return e
}
