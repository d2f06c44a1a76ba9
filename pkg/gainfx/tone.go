package gainfx

import (
	"fmt"
	"strings"

	"github.com/justyntemme/webgain/pkg/dsp/gain"
	"github.com/justyntemme/webgain/pkg/dsp/oscillator"
)

// Tone is a test-signal source that fills every channel with the same
// waveform. It belongs to the render goroutine.
type Tone struct {
	osc   *oscillator.Oscillator
	level float32
}

// NewTone creates a tone at frequency Hz and levelDB dBFS.
func NewTone(sampleRate, frequency, levelDB float64) *Tone {
	osc := oscillator.New(sampleRate)
	osc.SetFrequency(frequency)
	return &Tone{
		osc:   osc,
		level: float32(gain.DbToLinear(levelDB)),
	}
}

// SetWaveform selects "sine" or "square".
func (t *Tone) SetWaveform(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sine":
		t.osc.SetWaveform(oscillator.WaveSine)
	case "square":
		t.osc.SetWaveform(oscillator.WaveSquare)
	default:
		return fmt.Errorf("unknown waveform %q", name)
	}
	return nil
}

// Fill writes the next len(dst[0]) samples of the tone into every channel.
func (t *Tone) Fill(dst [][]float32) {
	if len(dst) == 0 {
		return
	}
	t.osc.Process(dst[0], t.level)
	for ch := 1; ch < len(dst); ch++ {
		copy(dst[ch], dst[0])
	}
}
