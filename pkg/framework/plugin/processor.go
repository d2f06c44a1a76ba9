// Package plugin defines the narrow host boundary of an effect: the Effect a
// host drives and the AutomationHost an effect reports user gestures to.
package plugin

import (
	"errors"
	"fmt"

	"github.com/justyntemme/webgain/pkg/framework/bus"
)

// ErrInvalidConfig is returned by Prepare for a sample rate, block size or
// channel count that cannot be rendered.
var ErrInvalidConfig = errors.New("invalid processing configuration")

// Effect is what a host needs to run an insert effect.
type Effect interface {
	// Prepare configures the effect while rendering is stopped. It may
	// allocate and log.
	Prepare(sampleRate float64, maxBlockSize, channels int) error

	// Render processes one block. in and out may alias. Render never
	// allocates, locks, logs or panics.
	Render(in, out [][]float32)

	// GetState returns an opaque blob of the current parameter values.
	GetState() ([]byte, error)

	// SetState restores a blob produced by GetState.
	SetState(blob []byte) error
}

// BaseProcessor validates and records the processing configuration shared by
// every effect.
type BaseProcessor struct {
	buses        *bus.Configuration
	sampleRate   float64
	maxBlockSize int
	channels     int
	prepared     bool
}

// NewBaseProcessor creates a new base processor with the given bus configuration
func NewBaseProcessor(buses *bus.Configuration) *BaseProcessor {
	if buses == nil {
		buses = bus.NewStereoConfiguration() // Default to stereo
	}

	return &BaseProcessor{
		buses: buses,
	}
}

// Prepare validates the configuration and applies the channel layout to the
// bus configuration. On error the previous configuration is kept.
func (b *BaseProcessor) Prepare(sampleRate float64, maxBlockSize, channels int) error {
	switch {
	case !(sampleRate > 0) || sampleRate > 1e6:
		return fmt.Errorf("%w: sample rate %g", ErrInvalidConfig, sampleRate)
	case maxBlockSize <= 0:
		return fmt.Errorf("%w: max block size %d", ErrInvalidConfig, maxBlockSize)
	case channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidConfig, channels)
	}

	if err := b.buses.Apply(bus.Layout{Inputs: channels, Outputs: channels}); err != nil {
		return err
	}

	b.sampleRate = sampleRate
	b.maxBlockSize = maxBlockSize
	b.channels = channels
	b.prepared = true
	return nil
}

// GetBuses returns the bus configuration
func (b *BaseProcessor) GetBuses() *bus.Configuration {
	return b.buses
}

// SampleRate returns the current sample rate
func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

// MaxBlockSize returns the prepared block size
func (b *BaseProcessor) MaxBlockSize() int {
	return b.maxBlockSize
}

// Channels returns the prepared channel count
func (b *BaseProcessor) Channels() int {
	return b.channels
}

// IsPrepared reports whether Prepare has succeeded at least once.
func (b *BaseProcessor) IsPrepared() bool {
	return b.prepared
}

// GetLatencySamples returns the processing latency - default no latency
func (b *BaseProcessor) GetLatencySamples() int {
	return 0
}

// GetTailSamples returns the tail length - default no tail
func (b *BaseProcessor) GetTailSamples() int {
	return 0
}
