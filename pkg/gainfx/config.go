package gainfx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
)

// Config is the runtime configuration shared by the commands.
type Config struct {
	SampleRate float64
	BlockSize  int
	Channels   int
	RampMs     float64
	Bypass     BypassPolicy

	// ParamsFile is an optional parameter table override (see param.TableFile).
	ParamsFile string
	// StateFile is loaded at start and written on exit when set.
	StateFile string

	Listen   string
	LogLevel debug.LogLevel

	ToneHz       float64
	ToneDB       float64
	ToneWaveform string
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:   44100,
		BlockSize:    512,
		Channels:     2,
		RampMs:       param.DefaultRampMs,
		Bypass:       BypassPassThrough,
		Listen:       "127.0.0.1:8080",
		LogLevel:     debug.LogLevelInfo,
		ToneHz:       440,
		ToneDB:       -12,
		ToneWaveform: "sine",
	}
}

// File is the JSON schema for a configuration file. Absent fields keep their
// current value.
type File struct {
	SampleRate   *float64 `json:"sample_rate"`
	BlockSize    *int     `json:"block_size"`
	Channels     *int     `json:"channels"`
	RampMs       *float64 `json:"ramp_ms"`
	Bypass       *string  `json:"bypass"`
	ParamsFile   string   `json:"params_file"`
	StateFile    string   `json:"state_file"`
	Listen       string   `json:"listen"`
	LogLevel     *string  `json:"log_level"`
	ToneHz       *float64 `json:"tone_hz"`
	ToneDB       *float64 `json:"tone_db"`
	ToneWaveform string   `json:"tone_waveform"`
}

// LoadConfig loads a JSON configuration file and applies it on top of the
// defaults. Relative file paths inside it are resolved against its directory.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c := DefaultConfig()
	if err := ApplyFile(c, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&c.ParamsFile, &c.StateFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Clean(filepath.Join(base, *p))
		}
	}
	return c, nil
}

// ApplyFile applies a parsed configuration file onto dst.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		dst.SampleRate = *f.SampleRate
	}
	if f.BlockSize != nil {
		dst.BlockSize = *f.BlockSize
	}
	if f.Channels != nil {
		dst.Channels = *f.Channels
	}
	if f.RampMs != nil {
		dst.RampMs = *f.RampMs
	}
	if f.Bypass != nil {
		b, err := ParseBypassPolicy(*f.Bypass)
		if err != nil {
			return err
		}
		dst.Bypass = b
	}
	if f.ParamsFile != "" {
		dst.ParamsFile = strings.TrimSpace(f.ParamsFile)
	}
	if f.StateFile != "" {
		dst.StateFile = strings.TrimSpace(f.StateFile)
	}
	if f.Listen != "" {
		dst.Listen = strings.TrimSpace(f.Listen)
	}
	if f.LogLevel != nil {
		level, err := debug.ParseLevel(*f.LogLevel)
		if err != nil {
			return err
		}
		dst.LogLevel = level
	}
	if f.ToneHz != nil {
		dst.ToneHz = *f.ToneHz
	}
	if f.ToneDB != nil {
		dst.ToneDB = *f.ToneDB
	}
	if f.ToneWaveform != "" {
		dst.ToneWaveform = f.ToneWaveform
	}

	return dst.Validate()
}

// Validate checks the configuration for values Prepare or the tone would
// reject.
func (c *Config) Validate() error {
	switch {
	case !(c.SampleRate > 0):
		return fmt.Errorf("sample_rate must be > 0")
	case c.BlockSize <= 0:
		return fmt.Errorf("block_size must be > 0")
	case c.Channels != 1 && c.Channels != 2:
		return fmt.Errorf("channels must be 1 or 2")
	case !(c.RampMs >= 0):
		return fmt.Errorf("ramp_ms must be >= 0")
	case !(c.ToneHz > 0) || c.ToneHz >= c.SampleRate/2:
		return fmt.Errorf("tone_hz must be in (0, %g)", c.SampleRate/2)
	case c.ToneDB > 0:
		return fmt.Errorf("tone_db must be <= 0")
	}
	if err := NewTone(c.SampleRate, c.ToneHz, c.ToneDB).SetWaveform(c.ToneWaveform); err != nil {
		return fmt.Errorf("tone_waveform: %w", err)
	}
	return nil
}
