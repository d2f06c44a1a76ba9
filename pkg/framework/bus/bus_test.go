package bus

import (
	"errors"
	"testing"
)

func TestNewStereoConfiguration(t *testing.T) {
	config := NewStereoConfiguration()

	// Check bus counts
	if got := config.GetBusCount(DirectionInput); got != 1 {
		t.Errorf("Expected 1 audio input bus, got %d", got)
	}
	if got := config.GetBusCount(DirectionOutput); got != 1 {
		t.Errorf("Expected 1 audio output bus, got %d", got)
	}

	// Check input bus
	inBus := config.GetBusInfo(DirectionInput, 0)
	if inBus == nil {
		t.Fatal("Expected input bus to exist")
	}
	if inBus.ChannelCount != 2 {
		t.Errorf("Expected 2 input channels, got %d", inBus.ChannelCount)
	}
	if inBus.Name != "Stereo In" {
		t.Errorf("Expected input name 'Stereo In', got %s", inBus.Name)
	}

	if got := config.Layout(); got != Stereo {
		t.Errorf("Layout() = %s", got)
	}
}

func TestNewMonoConfiguration(t *testing.T) {
	config := NewMonoConfiguration()

	if got := config.MainChannels(DirectionInput); got != 1 {
		t.Errorf("Expected 1 input channel, got %d", got)
	}
	if got := config.MainChannels(DirectionOutput); got != 1 {
		t.Errorf("Expected 1 output channel, got %d", got)
	}
}

func TestSetBusActive(t *testing.T) {
	config := NewBuilder().
		WithStereoInput("Main").
		WithAuxInput("Key", 2).
		WithStereoOutput("Out").
		MustBuild()

	if config.GetBusInfo(DirectionInput, 1).IsActive {
		t.Error("Expected aux bus to start inactive")
	}
	if err := config.SetBusActive(DirectionInput, 1, true); err != nil {
		t.Errorf("SetBusActive failed: %v", err)
	}
	if !config.GetBusInfo(DirectionInput, 1).IsActive {
		t.Error("Expected aux bus to be active")
	}

	// Aux buses do not count as the main layout.
	if got := config.MainChannels(DirectionInput); got != 2 {
		t.Errorf("MainChannels(input) = %d", got)
	}

	// Try invalid bus
	if err := config.SetBusActive(DirectionInput, 99, false); err == nil {
		t.Error("Expected error for invalid bus index")
	}
}

func TestInsertEffectLayouts(t *testing.T) {
	config := NewInsertEffect()

	tests := []struct {
		layout Layout
		ok     bool
	}{
		{Mono, true},
		{Stereo, true},
		{Layout{Inputs: 1, Outputs: 2}, false},
		{Layout{Inputs: 2, Outputs: 1}, false},
		{Layout{Inputs: 6, Outputs: 6}, false},
		{Layout{Inputs: 0, Outputs: 0}, false},
	}

	for _, test := range tests {
		t.Run(test.layout.String(), func(t *testing.T) {
			err := config.Supports(test.layout)
			if test.ok && err != nil {
				t.Errorf("Supports: %v", err)
			}
			if !test.ok && !errors.Is(err, ErrUnsupportedLayout) {
				t.Errorf("err = %v, want ErrUnsupportedLayout", err)
			}
		})
	}

	if err := config.Apply(Mono); err != nil {
		t.Fatalf("Apply(Mono): %v", err)
	}
	if config.Layout() != Mono {
		t.Errorf("Layout() after Apply = %s", config.Layout())
	}
	if err := config.Apply(Layout{Inputs: 4, Outputs: 4}); err == nil {
		t.Error("Apply should reject an unsupported layout")
	}
	if config.Layout() != Mono {
		t.Error("a rejected Apply must not change the layout")
	}
}

func TestFixedConfigurationSupportsOnlyItself(t *testing.T) {
	config := NewStereoConfiguration()
	if err := config.Supports(Stereo); err != nil {
		t.Errorf("Supports(Stereo): %v", err)
	}
	if err := config.Supports(Mono); !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("Supports(Mono) = %v", err)
	}
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"NoOutput", NewBuilder().WithStereoInput("In")},
		{"ZeroChannels", NewBuilder().WithAudioOutput("Out", 0)},
		{"TooManyChannels", NewBuilder().WithAudioOutput("Out", 64)},
		{"BadLayout", NewBuilder().WithStereoOutput("Out").Accept(Layout{Inputs: 1, Outputs: 0})},
		{"InitialNotAccepted", NewBuilder().WithStereoInput("In").WithStereoOutput("Out").Accept(Mono)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := test.builder.Build(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	defer func() {
		if recover() == nil {
			t.Error("MustBuild should panic on an invalid configuration")
		}
	}()
	NewBuilder().MustBuild()
}
