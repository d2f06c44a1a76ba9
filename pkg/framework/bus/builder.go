package bus

import (
	"errors"
	"fmt"
)

// maxChannels bounds the width of a single bus.
const maxChannels = 32

// Builder assembles a Configuration. Errors are collected and reported by
// Build.
type Builder struct {
	config *Configuration
	errs   []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{config: &Configuration{}}
}

func (b *Builder) add(direction Direction, typ Type, name string, channels int) *Builder {
	b.config.buses = append(b.config.buses, Info{
		Direction:    direction,
		ChannelCount: channels,
		Name:         name,
		BusType:      typ,
		IsActive:     typ == TypeMain,
	})
	return b
}

// WithAudioInput adds a main input bus.
func (b *Builder) WithAudioInput(name string, channels int) *Builder {
	return b.add(DirectionInput, TypeMain, name, channels)
}

// WithAudioOutput adds a main output bus.
func (b *Builder) WithAudioOutput(name string, channels int) *Builder {
	return b.add(DirectionOutput, TypeMain, name, channels)
}

// WithAuxInput adds an inactive auxiliary input, such as a key input.
func (b *Builder) WithAuxInput(name string, channels int) *Builder {
	return b.add(DirectionInput, TypeAux, name, channels)
}

func (b *Builder) WithStereoInput(name string) *Builder  { return b.WithAudioInput(name, 2) }
func (b *Builder) WithStereoOutput(name string) *Builder { return b.WithAudioOutput(name, 2) }
func (b *Builder) WithMonoInput(name string) *Builder    { return b.WithAudioInput(name, 1) }
func (b *Builder) WithMonoOutput(name string) *Builder   { return b.WithAudioOutput(name, 1) }

// Accept adds layouts the configuration may be switched to with Apply.
func (b *Builder) Accept(layouts ...Layout) *Builder {
	for _, l := range layouts {
		if l.Inputs < 0 || l.Outputs <= 0 || l.Inputs > maxChannels || l.Outputs > maxChannels {
			b.errs = append(b.errs, fmt.Errorf("invalid layout %s", l))
			continue
		}
		b.config.accepts = append(b.config.accepts, l)
	}
	return b
}

// Validate checks the configuration built so far.
func (b *Builder) Validate() error {
	if len(b.errs) > 0 {
		return errors.Join(b.errs...)
	}

	if b.config.GetBusCount(DirectionOutput) == 0 || b.config.MainChannels(DirectionOutput) == 0 {
		return errors.New("configuration needs a main output bus")
	}
	for _, info := range b.config.buses {
		if info.ChannelCount <= 0 || info.ChannelCount > maxChannels {
			return fmt.Errorf("bus %q: channel count %d outside 1..%d", info.Name, info.ChannelCount, maxChannels)
		}
	}

	if len(b.config.accepts) > 0 {
		if err := b.config.Supports(b.config.Layout()); err != nil {
			return fmt.Errorf("initial layout is not accepted: %w", err)
		}
	}
	return nil
}

// Build returns the configuration, or the first validation error.
func (b *Builder) Build() (*Configuration, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// MustBuild is Build for static configurations; it panics on error.
func (b *Builder) MustBuild() *Configuration {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}

// NewInsertEffect creates a main in/out pair that starts stereo and may be
// switched to mono. Input and output widths always match.
func NewInsertEffect() *Configuration {
	return NewBuilder().
		WithStereoInput("Main In").
		WithStereoOutput("Main Out").
		Accept(Mono, Stereo).
		MustBuild()
}
