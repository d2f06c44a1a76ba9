package gainfx

import (
	"github.com/justyntemme/webgain/pkg/dsp/gain"
	"github.com/justyntemme/webgain/pkg/framework/param"
)

// Engine owns the gain smoother. Once per block the render routine hands it
// the committed gain in decibels; the engine converts it to a linear factor
// only when it changed and retargets a logarithmic ramp, so the ramp is linear
// in decibels. Per sample it only multiplies.
//
// An Engine belongs to the render goroutine.
type Engine struct {
	smoother *param.Smoother
	targetDB float64
	ramp     []float32
}

// NewEngine creates an engine for blocks of up to maxBlockSize samples.
func NewEngine(sampleRate float64, maxBlockSize int, rampMs float64) *Engine {
	e := &Engine{
		smoother: param.NewSmoother(param.LogarithmicSmoothing, 1),
		ramp:     make([]float32, maxBlockSize),
	}
	e.smoother.SetRampTime(sampleRate, rampMs)
	e.Reset(0)
	return e
}

// Reset jumps to db with no ramp.
func (e *Engine) Reset(db float64) {
	e.targetDB = db
	e.smoother.Reset(gain.DbToLinear(db))
}

// SetTargetDB retargets the ramp if db differs from the current target.
func (e *Engine) SetTargetDB(db float64) {
	if db == e.targetDB {
		return
	}
	e.targetDB = db
	e.smoother.SetTarget(gain.DbToLinear(db))
}

// TargetDB returns the gain being ramped towards.
func (e *Engine) TargetDB() float64 {
	return e.targetDB
}

// Current returns the current linear gain.
func (e *Engine) Current() float64 {
	return e.smoother.Current()
}

// RampSamples returns the ramp length in samples.
func (e *Engine) RampSamples() int {
	return e.smoother.RampSamples()
}

// IsRamping reports whether a ramp is in progress.
func (e *Engine) IsRamping() bool {
	return e.smoother.IsSmoothing()
}

// Next returns the gain curve for the next n samples. When constant is true
// every value equals the first and callers may apply a scalar instead.
func (e *Engine) Next(n int) (curve []float32, constant bool) {
	curve = e.ramp[:n]
	constant = e.smoother.Fill(curve)
	return curve, constant
}

// Skip advances the ramp by n samples without producing a curve.
func (e *Engine) Skip(n int) {
	e.smoother.Skip(n)
}
