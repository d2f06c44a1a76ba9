// Package bus describes audio bus configurations and negotiates the channel
// layout an effect is prepared with.
package bus

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLayout is returned when a host asks for a channel layout the
// configuration does not accept.
var ErrUnsupportedLayout = errors.New("unsupported bus layout")

// Direction represents the bus direction
type Direction int32

const (
	// DirectionInput represents input bus
	DirectionInput Direction = 0
	// DirectionOutput represents output bus
	DirectionOutput Direction = 1
)

// Type represents the bus type
type Type int32

const (
	// TypeMain represents main bus
	TypeMain Type = 0
	// TypeAux represents auxiliary bus
	TypeAux Type = 1
)

// Info contains bus configuration
type Info struct {
	Direction    Direction
	ChannelCount int
	Name         string
	BusType      Type
	IsActive     bool
}

// Layout is a main input/output channel count pair.
type Layout struct {
	Inputs  int
	Outputs int
}

// Mono and Stereo are the symmetric layouts of a simple insert effect.
var (
	Mono   = Layout{Inputs: 1, Outputs: 1}
	Stereo = Layout{Inputs: 2, Outputs: 2}
)

func (l Layout) String() string {
	return fmt.Sprintf("%d in / %d out", l.Inputs, l.Outputs)
}

// Configuration manages audio buses and the layouts they may be switched to.
type Configuration struct {
	buses   []Info
	accepts []Layout
}

// NewStereoConfiguration creates a standard stereo I/O configuration
func NewStereoConfiguration() *Configuration {
	return NewBuilder().
		WithStereoInput("Stereo In").
		WithStereoOutput("Stereo Out").
		MustBuild()
}

// NewMonoConfiguration creates a mono I/O configuration
func NewMonoConfiguration() *Configuration {
	return NewBuilder().
		WithMonoInput("Mono In").
		WithMonoOutput("Mono Out").
		MustBuild()
}

// GetBusCount returns the number of buses for a direction
func (c *Configuration) GetBusCount(direction Direction) int {
	count := 0
	for _, bus := range c.buses {
		if bus.Direction == direction {
			count++
		}
	}
	return count
}

// GetBusInfo returns information about a specific bus
func (c *Configuration) GetBusInfo(direction Direction, index int) *Info {
	busIndex := 0
	for i := range c.buses {
		if c.buses[i].Direction == direction {
			if busIndex == index {
				return &c.buses[i]
			}
			busIndex++
		}
	}
	return nil
}

// MainChannels returns the channel count of the first main bus in a direction,
// or 0 if there is none.
func (c *Configuration) MainChannels(direction Direction) int {
	for _, bus := range c.buses {
		if bus.Direction == direction && bus.BusType == TypeMain {
			return bus.ChannelCount
		}
	}
	return 0
}

// Layout returns the current main layout.
func (c *Configuration) Layout() Layout {
	return Layout{
		Inputs:  c.MainChannels(DirectionInput),
		Outputs: c.MainChannels(DirectionOutput),
	}
}

// Supports reports whether l can be applied. A configuration with no accepted
// layouts only supports its current layout.
func (c *Configuration) Supports(l Layout) error {
	if len(c.accepts) == 0 {
		if l == c.Layout() {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedLayout, l)
	}
	for _, a := range c.accepts {
		if a == l {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedLayout, l)
}

// Apply switches the main buses to l if it is supported.
func (c *Configuration) Apply(l Layout) error {
	if err := c.Supports(l); err != nil {
		return err
	}
	c.setMain(DirectionInput, l.Inputs)
	c.setMain(DirectionOutput, l.Outputs)
	return nil
}

func (c *Configuration) setMain(direction Direction, channels int) {
	for i := range c.buses {
		if c.buses[i].Direction == direction && c.buses[i].BusType == TypeMain {
			c.buses[i].ChannelCount = channels
			c.buses[i].IsActive = channels > 0
			return
		}
	}
}

// SetBusActive sets a specific bus as active/inactive
func (c *Configuration) SetBusActive(direction Direction, index int, active bool) error {
	bus := c.GetBusInfo(direction, index)
	if bus == nil {
		return fmt.Errorf("bus not found: direction=%d, index=%d", direction, index)
	}
	bus.IsActive = active
	return nil
}
