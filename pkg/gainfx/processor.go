package gainfx

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/justyntemme/webgain/pkg/dsp/gain"
	"github.com/justyntemme/webgain/pkg/dsp/meter"
	"github.com/justyntemme/webgain/pkg/framework/bus"
	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
	"github.com/justyntemme/webgain/pkg/framework/process"
	"github.com/justyntemme/webgain/pkg/framework/state"
)

// ErrInvalidConfig is returned by Prepare for an unusable configuration.
var ErrInvalidConfig = plugin.ErrInvalidConfig

// BypassPolicy selects what the effect outputs while switched off.
type BypassPolicy int

const (
	// BypassPassThrough copies the input unchanged.
	BypassPassThrough BypassPolicy = iota
	// BypassSilence outputs zeros.
	BypassSilence
)

func (b BypassPolicy) String() string {
	switch b {
	case BypassSilence:
		return "silence"
	default:
		return "passthrough"
	}
}

// ParseBypassPolicy maps "passthrough" or "silence" to a policy.
func ParseBypassPolicy(s string) (BypassPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "passthrough", "pass-through", "thru":
		return BypassPassThrough, nil
	case "silence", "mute":
		return BypassSilence, nil
	}
	return BypassPassThrough, fmt.Errorf("unknown bypass policy %q", s)
}

// Option configures a Processor.
type Option func(*Processor)

// WithBypassPolicy sets the output while the effect is off.
func WithBypassPolicy(b BypassPolicy) Option {
	return func(p *Processor) {
		p.bypass = b
	}
}

// WithRampMs sets the gain ramp length.
func WithRampMs(ms float64) Option {
	return func(p *Processor) {
		p.rampMs = ms
	}
}

// WithInfo overrides the effect metadata.
func WithInfo(info plugin.Info) Option {
	return func(p *Processor) {
		p.info = info
	}
}

// WithLogger sets the logger for Prepare and state restores.
func WithLogger(logger *debug.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithBuses replaces the bus configuration. The default accepts mono and
// stereo with matching input and output.
func WithBuses(buses *bus.Configuration) Option {
	return func(p *Processor) {
		p.buses = buses
	}
}

// Processor is the gain effect. It implements plugin.Effect.
type Processor struct {
	*plugin.Base
	*plugin.BaseProcessor

	info   plugin.Info
	logger *debug.Logger
	buses  *bus.Configuration
	bypass BypassPolicy
	rampMs float64

	gainIndex  int
	onOffIndex int

	// Render state, replaced only by Prepare.
	engine *Engine
	ctx    *process.Context

	peakBits atomic.Uint64
	meter    *meter.PeakMeter
}

var _ plugin.Effect = (*Processor)(nil)

// NewProcessor creates the effect over store. The store's table must contain
// ParamGain and ParamOnOff.
func NewProcessor(store *param.Store, opts ...Option) (*Processor, error) {
	p := &Processor{
		info:   DefaultInfo,
		logger: debug.Named("gainfx"),
		rampMs: param.DefaultRampMs,
	}
	for _, opt := range opts {
		opt(p)
	}

	var ok bool
	if p.gainIndex, ok = store.Index(ParamGain); !ok {
		return nil, fmt.Errorf("%w: table has no %q parameter", ErrInvalidConfig, ParamGain)
	}
	if p.onOffIndex, ok = store.Index(ParamOnOff); !ok {
		return nil, fmt.Errorf("%w: table has no %q parameter", ErrInvalidConfig, ParamOnOff)
	}
	if !(p.rampMs >= 0) {
		return nil, fmt.Errorf("%w: ramp %g ms", ErrInvalidConfig, p.rampMs)
	}
	if err := p.info.ValidateUID(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if p.buses == nil {
		p.buses = bus.NewInsertEffect()
	}

	p.Base = plugin.NewBase(p.info, store, state.WithLogger(p.logger.Named("state")))
	p.BaseProcessor = plugin.NewBaseProcessor(p.buses)
	p.peakBits.Store(math.Float64bits(gain.MinDB))
	p.meter = meter.NewPeakMeter(0)
	return p, nil
}

// BypassPolicy returns the configured bypass policy.
func (p *Processor) BypassPolicy() BypassPolicy {
	return p.bypass
}

// Prepare validates the configuration, allocates the render buffers and
// seeds the smoother with the committed gain so the first block does not
// ramp. Call only while rendering is stopped.
func (p *Processor) Prepare(sampleRate float64, maxBlockSize, channels int) error {
	if err := p.BaseProcessor.Prepare(sampleRate, maxBlockSize, channels); err != nil {
		p.logger.Error("prepare %g Hz / %d / %d ch: %v", sampleRate, maxBlockSize, channels, err)
		return err
	}

	store := p.Store()
	engine := NewEngine(sampleRate, maxBlockSize, p.rampMs)
	engine.Reset(store.Snapshot().Value(p.gainIndex))

	p.engine = engine
	p.ctx = process.NewContext(sampleRate, maxBlockSize, channels, store)
	p.meter.SetSampleRate(sampleRate)
	p.meter.Reset()

	p.logger.Info("prepared %g Hz, %d samples, %d ch, ramp %d samples, bypass %s",
		sampleRate, maxBlockSize, channels, engine.RampSamples(), p.bypass)
	return nil
}

// Render processes in into out. in and out may be the same buffers. Host
// blocks longer than the prepared block size are processed in chunks. Before
// a successful Prepare the output is silence.
func (p *Processor) Render(in, out [][]float32) {
	if p.ctx == nil {
		for ch := range out {
			clear(out[ch])
		}
		return
	}

	ctx := p.ctx
	snap := ctx.Load()
	on := snap.Value(p.onOffIndex) >= 0.5
	p.engine.SetTargetDB(snap.Value(p.gainIndex))

	total := process.BlockLength(in, out, ctx.Channels())
	maxBlock := ctx.MaxBlockSize()
	var peak float32

	for offset := 0; offset < total; offset += maxBlock {
		n := total - offset
		if n > maxBlock {
			n = maxBlock
		}
		ctx.SetChunk(in, out, offset, n)

		if on {
			p.applyGain(ctx, n)
		} else {
			p.engine.Skip(n)
			if p.bypass == BypassSilence {
				ctx.Clear()
			} else {
				ctx.PassThrough()
			}
		}

		for ch := 0; ch < ctx.NumChannels(); ch++ {
			if v := gain.Peak(ctx.Output[ch]); v > peak {
				peak = v
			}
		}
	}

	p.peakBits.Store(math.Float64bits(gain.LinearToDb(float64(peak))))
	p.meter.Update(peak, total)
}

func (p *Processor) applyGain(ctx *process.Context, n int) {
	curve, constant := p.engine.Next(n)
	if constant {
		g := curve[0]
		for ch := 0; ch < ctx.NumChannels(); ch++ {
			gain.ApplyBufferTo(ctx.Input[ch], g, ctx.Output[ch])
		}
		return
	}
	for ch := 0; ch < ctx.NumChannels(); ch++ {
		gain.ApplyRampTo(ctx.Input[ch], curve, ctx.Output[ch])
	}
}

// PeakDB returns the output peak of the last rendered block in decibels. Safe
// to call from any goroutine.
func (p *Processor) PeakDB() float64 {
	return math.Float64frombits(p.peakBits.Load())
}

// Meter returns the output meter with display ballistics.
func (p *Processor) Meter() *meter.PeakMeter {
	return p.meter
}

// CurrentGain returns the smoothed linear gain. Render goroutine only.
func (p *Processor) CurrentGain() float64 {
	if p.engine == nil {
		return 0
	}
	return p.engine.Current()
}
