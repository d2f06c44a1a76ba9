// Package param holds the parameter model: immutable descriptors, the
// descriptor table loaded once at startup, the store that owns the live values,
// and the smoother that turns value jumps into ramps.
package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Flags for parameters
const (
	CanAutomate uint32 = 1 << 0
	IsReadOnly  uint32 = 1 << 1
	IsHidden    uint32 = 1 << 4
	IsBypass    uint32 = 1 << 16
)

// ErrInvalidDescriptor is returned when a descriptor fails validation.
var ErrInvalidDescriptor = errors.New("invalid parameter descriptor")

// Descriptor is the static metadata of one parameter. Values are in the
// parameter's real unit (e.g. decibels). A descriptor is never mutated once it
// has been added to a Table.
type Descriptor struct {
	ID        string
	Name      string
	ShortName string
	Unit      string
	Min       float64
	Max       float64
	Default   float64

	// StepCount is 0 for continuous parameters, 1 for toggles and N for
	// N+1 discrete positions.
	StepCount int32

	// Skew curves the normalized mapping: real = min + (max-min) * n^(1/skew).
	// Zero and one both mean affine.
	Skew float64

	Flags uint32

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// IsDiscrete reports whether the parameter only takes stepped values.
func (d *Descriptor) IsDiscrete() bool {
	return d.StepCount > 0
}

// IsToggle reports whether the parameter is a two-state switch.
func (d *Descriptor) IsToggle() bool {
	return d.StepCount == 1
}

// Validate checks the descriptor for internal consistency.
func (d *Descriptor) Validate() error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	case math.IsNaN(d.Min) || math.IsNaN(d.Max) || math.IsInf(d.Min, 0) || math.IsInf(d.Max, 0):
		return fmt.Errorf("%w: %q has a non-finite range", ErrInvalidDescriptor, d.ID)
	case d.Max <= d.Min:
		return fmt.Errorf("%w: %q max %g <= min %g", ErrInvalidDescriptor, d.ID, d.Max, d.Min)
	case d.Default < d.Min || d.Default > d.Max || math.IsNaN(d.Default):
		return fmt.Errorf("%w: %q default %g outside [%g, %g]", ErrInvalidDescriptor, d.ID, d.Default, d.Min, d.Max)
	case d.StepCount < 0:
		return fmt.Errorf("%w: %q negative step count", ErrInvalidDescriptor, d.ID)
	case d.Skew < 0 || math.IsNaN(d.Skew) || math.IsInf(d.Skew, 0):
		return fmt.Errorf("%w: %q skew must be positive", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// Clamp limits a real value to the parameter range and snaps discrete
// parameters to their nearest step. NaN maps to the default.
func (d *Descriptor) Clamp(value float64) float64 {
	if math.IsNaN(value) {
		return d.Default
	}
	if value < d.Min {
		value = d.Min
	} else if value > d.Max {
		value = d.Max
	}
	if d.StepCount > 0 {
		step := (d.Max - d.Min) / float64(d.StepCount)
		value = d.Min + math.Round((value-d.Min)/step)*step
	}
	return value
}

func (d *Descriptor) skew() float64 {
	if d.Skew == 0 {
		return 1
	}
	return d.Skew
}

// Normalize converts a real value to the normalized range [0,1].
func (d *Descriptor) Normalize(real float64) float64 {
	if d.Max <= d.Min {
		return 0
	}
	n := (d.Clamp(real) - d.Min) / (d.Max - d.Min)
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	if k := d.skew(); k != 1 && n > 0 {
		n = math.Pow(n, k)
	}
	return n
}

// Denormalize converts a normalized value in [0,1] to the real range.
func (d *Descriptor) Denormalize(normalized float64) float64 {
	if math.IsNaN(normalized) {
		return d.Default
	}
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}
	if k := d.skew(); k != 1 && normalized > 0 {
		normalized = math.Pow(normalized, 1/k)
	}
	return d.Clamp(d.Min + normalized*(d.Max-d.Min))
}

// DefaultNormalized returns the default value in normalized form.
func (d *Descriptor) DefaultNormalized() float64 {
	return d.Normalize(d.Default)
}

// Format renders a real value for display.
func (d *Descriptor) Format(real float64) string {
	if d.formatFunc != nil {
		return d.formatFunc(real)
	}
	if d.StepCount > 0 {
		return fmt.Sprintf("%.0f", real)
	}
	if d.Unit != "" {
		return fmt.Sprintf("%.2f %s", real, d.Unit)
	}
	return fmt.Sprintf("%.2f", real)
}

// Parse converts display text to a clamped real value.
func (d *Descriptor) Parse(text string) (float64, error) {
	var (
		real float64
		err  error
	)
	if d.parseFunc != nil {
		real, err = d.parseFunc(text)
	} else {
		s := strings.TrimSpace(text)
		if d.Unit != "" {
			s = strings.TrimSpace(strings.TrimSuffix(s, d.Unit))
		}
		real, err = strconv.ParseFloat(s, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parse %q for %s: %w", text, d.ID, err)
	}
	return d.Clamp(real), nil
}
