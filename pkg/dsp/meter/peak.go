// Package meter provides level meters with display ballistics.
package meter

import (
	"math"
	"sync/atomic"

	"github.com/justyntemme/webgain/pkg/dsp/gain"
)

// Defaults match common DAW peak meters.
const (
	DefaultHoldTime  = 3.0  // seconds
	DefaultDecayRate = 20.0 // dB per second
)

// PeakMeter tracks a decaying peak and a held maximum. Update belongs to the
// render goroutine; PeakDB and HoldDB may be read from any goroutine.
type PeakMeter struct {
	sampleRate float64
	holdTime   float64
	decayRate  float64

	peak      float64
	hold      float64
	holdCount int

	peakBits atomic.Uint64
	holdBits atomic.Uint64
}

// NewPeakMeter creates a meter at sampleRate.
func NewPeakMeter(sampleRate float64) *PeakMeter {
	m := &PeakMeter{
		sampleRate: sampleRate,
		holdTime:   DefaultHoldTime,
		decayRate:  DefaultDecayRate,
	}
	m.publish()
	return m
}

// SetSampleRate changes the rate used for decay and hold. Not safe while
// Update runs.
func (m *PeakMeter) SetSampleRate(sampleRate float64) {
	m.sampleRate = sampleRate
}

// SetHoldTime sets how long the maximum is held, in seconds.
func (m *PeakMeter) SetHoldTime(seconds float64) {
	m.holdTime = seconds
}

// SetDecayRate sets the fall rate in dB per second.
func (m *PeakMeter) SetDecayRate(dbPerSecond float64) {
	m.decayRate = dbPerSecond
}

// Process measures the peak of samples and updates the meter.
func (m *PeakMeter) Process(samples []float32) {
	m.Update(gain.Peak(samples), len(samples))
}

// Update feeds the absolute peak of a block of n samples.
func (m *PeakMeter) Update(blockPeak float32, n int) {
	if n <= 0 || m.sampleRate <= 0 {
		return
	}
	p := float64(blockPeak)

	decayPerSample := m.decayRate / m.sampleRate / 20.0 * math.Ln10
	m.peak *= math.Exp(-decayPerSample * float64(n))
	if p > m.peak {
		m.peak = p
	}

	if p > m.hold {
		m.hold = p
		m.holdCount = int(m.holdTime * m.sampleRate)
	} else {
		m.holdCount -= n
		if m.holdCount <= 0 {
			m.hold = m.peak
			m.holdCount = 0
		}
	}
	m.publish()
}

func (m *PeakMeter) publish() {
	m.peakBits.Store(math.Float64bits(gain.LinearToDb(m.peak)))
	m.holdBits.Store(math.Float64bits(gain.LinearToDb(m.hold)))
}

// PeakDB returns the decaying peak in decibels.
func (m *PeakMeter) PeakDB() float64 {
	return math.Float64frombits(m.peakBits.Load())
}

// HoldDB returns the held maximum in decibels.
func (m *PeakMeter) HoldDB() float64 {
	return math.Float64frombits(m.holdBits.Load())
}

// Reset clears the peak and hold. Render goroutine only.
func (m *PeakMeter) Reset() {
	m.peak = 0
	m.hold = 0
	m.holdCount = 0
	m.publish()
}
