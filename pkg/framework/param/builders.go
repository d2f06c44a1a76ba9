package param

import (
	"fmt"
	"strings"
)

// ChoiceOption represents a single choice in a list parameter
type ChoiceOption struct {
	Value   float64
	Name    string
	Aliases []string
}

// Choice creates a parameter builder for a multiple choice parameter.
// Options must be ordered by Value.
func Choice(id string, name string, options []ChoiceOption) *Builder {
	formatter := func(value float64) string {
		for _, opt := range options {
			if opt.Value == value {
				return opt.Name
			}
		}
		return "Unknown"
	}

	parser := func(str string) (float64, error) {
		s := strings.TrimSpace(str)
		for _, opt := range options {
			if strings.EqualFold(s, opt.Name) {
				return opt.Value, nil
			}
			for _, alias := range opt.Aliases {
				if strings.EqualFold(s, alias) {
					return opt.Value, nil
				}
			}
		}
		return 0, fmt.Errorf("unknown option: %s", str)
	}

	minVal, maxVal := 0.0, 1.0
	if len(options) > 1 {
		minVal = options[0].Value
		maxVal = options[len(options)-1].Value
	}
	steps := int32(len(options) - 1)
	if steps < 1 {
		steps = 1
	}

	def := minVal
	if len(options) > 0 {
		def = options[0].Value
	}

	return New(id, name).
		Range(minVal, maxVal).
		Steps(steps).
		Default(def).
		Formatter(formatter, parser)
}

// GainParameter creates a decibel gain parameter. The default is unity (0 dB)
// clamped into the range.
func GainParameter(id string, name string, minDB, maxDB float64) *Builder {
	def := 0.0
	if def < minDB {
		def = minDB
	} else if def > maxDB {
		def = maxDB
	}
	return New(id, name).
		Range(minDB, maxDB).
		Default(def).
		Unit("dB").
		Formatter(DecibelFormatter, DecibelParser)
}

// OnOffParameter creates an on/off switch. Real value 1 means on.
func OnOffParameter(id string, name string, on bool) *Builder {
	b := Choice(id, name, []ChoiceOption{
		{Value: 0, Name: "Off", Aliases: []string{"false", "0", "disabled"}},
		{Value: 1, Name: "On", Aliases: []string{"true", "1", "enabled"}},
	})
	if on {
		b.Default(1)
	}
	return b
}

// BypassParameter creates a bypass switch. Real value 1 means bypassed.
func BypassParameter(id string, name string) *Builder {
	return Choice(id, name, []ChoiceOption{
		{Value: 0, Name: "Active"},
		{Value: 1, Name: "Bypassed"},
	}).Bypass()
}
