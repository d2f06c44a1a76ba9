package param

import (
	"math"
)

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing adds a constant increment per sample.
	LinearSmoothing SmoothingType = iota
	// ExponentialSmoothing uses a one-pole filter and approaches the target
	// asymptotically.
	ExponentialSmoothing
	// LogarithmicSmoothing multiplies by a constant ratio per sample, which is
	// linear interpolation in log space. On a linear gain factor this is a
	// linear ramp in decibels.
	LogarithmicSmoothing
)

// DefaultRampMs is the ramp length used when none is configured.
const DefaultRampMs = 50.0

// LogFloorDB is the lowest level LogarithmicSmoothing reaches on a linear
// gain factor. Lower targets are raised to it.
const LogFloorDB = -120.0

// logFloor is LogFloorDB as a linear factor.
const logFloor = 1e-6

// Smoother turns target jumps into ramps to prevent zipper noise and clicks.
//
// Linear and logarithmic ramps land exactly on the target after RampSamples
// calls to Next. A new target set mid-ramp restarts the ramp from the current
// interpolated value, never from the previous target.
//
// A Smoother is owned by the render goroutine and is not safe for concurrent use.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	threshold     float64
	isSmoothing   bool

	// rampSamples is the ramp length for linear and logarithmic smoothing.
	rampSamples int
	remaining   int

	// step is the per-sample increment (linear) or ratio (logarithmic).
	step float64

	// coeff is the one-pole feedback coefficient for exponential smoothing.
	coeff float64
}

// NewSmoother creates a smoother whose ramps last rampSamples samples.
// Exponential smoothers derive their time constant from the same length.
func NewSmoother(smoothingType SmoothingType, rampSamples int) *Smoother {
	s := &Smoother{
		smoothingType: smoothingType,
		threshold:     0.0001,
	}
	s.setRampSamples(rampSamples)
	return s
}

// SetRampTime sets the ramp length from a duration at a sample rate.
func (s *Smoother) SetRampTime(sampleRate, ms float64) {
	s.setRampSamples(int(math.Round(sampleRate * ms / 1000.0)))
}

func (s *Smoother) setRampSamples(n int) {
	if n < 1 {
		n = 1
	}
	s.rampSamples = n
	// -60 dB after n samples
	s.coeff = math.Exp(-6.908 / float64(n))
}

// RampSamples returns the ramp length in samples.
func (s *Smoother) RampSamples() int {
	return s.rampSamples
}

// SetTarget sets the value to ramp towards, starting from the current value.
func (s *Smoother) SetTarget(target float64) {
	if s.smoothingType == LogarithmicSmoothing && target < logFloor {
		target = logFloor
	}
	if target == s.target && (s.isSmoothing || s.current == target) {
		return
	}

	s.target = target
	if s.current == target || s.rampSamples <= 1 {
		s.current = target
		s.isSmoothing = false
		return
	}

	s.isSmoothing = true
	s.remaining = s.rampSamples

	switch s.smoothingType {
	case LinearSmoothing:
		s.step = (target - s.current) / float64(s.rampSamples)

	case LogarithmicSmoothing:
		if s.current < logFloor {
			s.current = logFloor
		}
		s.step = math.Pow(target/s.current, 1.0/float64(s.rampSamples))
	}
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float64 {
	if !s.isSmoothing {
		return s.current
	}

	switch s.smoothingType {
	case ExponentialSmoothing:
		s.current += (s.target - s.current) * (1.0 - s.coeff)
		if math.Abs(s.current-s.target) < s.threshold {
			s.current = s.target
			s.isSmoothing = false
		}

	case LinearSmoothing, LogarithmicSmoothing:
		s.remaining--
		if s.remaining <= 0 {
			s.current = s.target
			s.isSmoothing = false
		} else if s.smoothingType == LinearSmoothing {
			s.current += s.step
		} else {
			s.current *= s.step
		}
	}

	return s.current
}

// Skip advances n samples without producing them. Used while the output is
// bypassed so that re-enabling picks up where the ramp would have been.
func (s *Smoother) Skip(n int) {
	if !s.isSmoothing || n <= 0 {
		return
	}

	switch s.smoothingType {
	case ExponentialSmoothing:
		s.current = s.target + (s.current-s.target)*math.Pow(s.coeff, float64(n))
		if math.Abs(s.current-s.target) < s.threshold {
			s.current = s.target
			s.isSmoothing = false
		}

	case LinearSmoothing, LogarithmicSmoothing:
		if n >= s.remaining {
			s.current = s.target
			s.remaining = 0
			s.isSmoothing = false
			return
		}
		s.remaining -= n
		if s.smoothingType == LinearSmoothing {
			s.current += s.step * float64(n)
		} else {
			s.current *= math.Pow(s.step, float64(n))
		}
	}
}

// Fill writes the next len(dst) smoothed values into dst and reports whether
// they are all equal (no ramp in progress), in which case callers may apply a
// constant instead.
func (s *Smoother) Fill(dst []float32) bool {
	if !s.isSmoothing {
		v := float32(s.current)
		for i := range dst {
			dst[i] = v
		}
		return true
	}
	for i := range dst {
		dst[i] = float32(s.Next())
	}
	return false
}

// Process processes a buffer with the smoothed parameter.
// The callback receives the current smoothed value for each sample.
func (s *Smoother) Process(buffer []float32, callback func(value float64, sample float32) float32) {
	for i := range buffer {
		buffer[i] = callback(s.Next(), buffer[i])
	}
}

// IsSmoothing returns true if a ramp is in progress.
func (s *Smoother) IsSmoothing() bool {
	return s.isSmoothing
}

// Current returns the current smoothed value without advancing.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value being ramped towards.
func (s *Smoother) Target() float64 {
	return s.target
}

// Reset jumps to value with no ramp in progress.
func (s *Smoother) Reset(value float64) {
	if s.smoothingType == LogarithmicSmoothing && value < logFloor {
		value = logFloor
	}
	s.current = value
	s.target = value
	s.remaining = 0
	s.isSmoothing = false
}

// SetThreshold sets the distance at which exponential smoothing snaps to its target.
func (s *Smoother) SetThreshold(threshold float64) {
	s.threshold = threshold
}
