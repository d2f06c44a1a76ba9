// Package oscillator provides the test-tone oscillator used to audition the
// effect without an input signal.
package oscillator

import "math"

// Waveform selects the shape produced by Process.
type Waveform int

const (
	// WaveSine is a pure sine.
	WaveSine Waveform = iota
	// WaveSquare is a naive square; its edges make zipper noise easy to hear.
	WaveSquare
)

// Oscillator generates periodic waveforms
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
	waveform   Waveform
}

// New creates a new 440 Hz sine oscillator
func New(sampleRate float64) *Oscillator {
	o := &Oscillator{
		sampleRate: sampleRate,
		frequency:  440.0,
	}
	o.SetFrequency(440.0)
	return o
}

// SetFrequency sets the oscillator frequency
func (o *Oscillator) SetFrequency(freq float64) {
	o.frequency = freq
	if o.sampleRate > 0 {
		o.phaseInc = freq / o.sampleRate
	}
}

// Frequency returns the oscillator frequency
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// SetSampleRate changes the sample rate and keeps the frequency
func (o *Oscillator) SetSampleRate(sampleRate float64) {
	o.sampleRate = sampleRate
	o.SetFrequency(o.frequency)
}

// SetWaveform selects the waveform
func (o *Oscillator) SetWaveform(w Waveform) {
	o.waveform = w
}

// SetPhase sets the oscillator phase (0-1)
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase) // Wrap to 0-1
}

// Reset resets the oscillator phase to 0
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

// updatePhase advances the phase and wraps it
func (o *Oscillator) updatePhase() {
	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
}

// Sine generates a sine wave sample
func (o *Oscillator) Sine() float32 {
	sample := float32(math.Sin(2.0 * math.Pi * o.phase))
	o.updatePhase()
	return sample
}

// Square generates a square wave sample
func (o *Oscillator) Square() float32 {
	var sample float32
	if o.phase < 0.5 {
		sample = 1.0
	} else {
		sample = -1.0
	}
	o.updatePhase()
	return sample
}

// Process fills buffer with the selected waveform scaled by level - no allocations
func (o *Oscillator) Process(buffer []float32, level float32) {
	switch o.waveform {
	case WaveSquare:
		for i := range buffer {
			buffer[i] = o.Square() * level
		}
	default:
		for i := range buffer {
			buffer[i] = o.Sine() * level
		}
	}
}
