// Package gainfx is the gain plus on/off effect: its parameter table, the
// smoothing engine that turns the gain parameter into a click-free ramp, the
// render routine, a test-tone source and the configuration shared by the
// commands.
package gainfx

import (
	"fmt"

	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
)

// Parameter ids. They are the persistent keys of the state blob and the ids
// used by the web panel, so they never change.
const (
	ParamGain  = "gain"
	ParamOnOff = "onoff"
)

// Default gain range in decibels.
const (
	DefaultMinDB = -60.0
	DefaultMaxDB = 12.0
)

// DefaultInfo describes the effect.
var DefaultInfo = plugin.Info{
	ID:       "com.webgain.gain",
	Name:     "WebGain",
	Version:  "1.0.0",
	Vendor:   "webgain",
	Category: "Fx",
}

// NewTable returns the effect's parameter table with the given gain range.
// The range may not reach below param.LogFloorDB, the lowest level the gain
// ramp can settle on.
func NewTable(minDB, maxDB float64) (*param.Table, error) {
	t, err := param.NewTable(
		param.GainParameter(ParamGain, "Gain", minDB, maxDB).
			ShortName("Gain").
			Build(),
		param.OnOffParameter(ParamOnOff, "On/Off", true).
			ShortName("On").
			Build(),
	)
	if err != nil {
		return nil, err
	}
	return t, checkGainRange(t)
}

// DefaultTable returns the table with the default -60..+12 dB range.
func DefaultTable() *param.Table {
	t, err := NewTable(DefaultMinDB, DefaultMaxDB)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable applies a JSON table override file to the default table. An
// empty path returns the default table.
func LoadTable(path string) (*param.Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	t, err := param.LoadTableJSON(path, DefaultTable())
	if err != nil {
		return nil, err
	}
	if err := checkGainRange(t); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func checkGainRange(t *param.Table) error {
	d, ok := t.Lookup(ParamGain)
	if !ok {
		return nil
	}
	if d.Min < param.LogFloorDB {
		return fmt.Errorf("%w: gain minimum %g dB is below %g dB", ErrInvalidConfig, d.Min, param.LogFloorDB)
	}
	return nil
}
