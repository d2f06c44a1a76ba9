package debug

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// LoadMeter measures how much of the real-time budget a render callback
// uses. Observe is lock-free and allocation-free so it can run on the audio
// goroutine; the readers may run anywhere.
type LoadMeter struct {
	sampleRate float64

	blocks  atomic.Uint64
	frames  atomic.Uint64
	totalNs atomic.Uint64
	lastNs  atomic.Uint64
	// peakLoad is a float64 in bits, the worst single block in percent.
	peakLoad atomic.Uint64
}

// NewLoadMeter creates a meter for audio at sampleRate.
func NewLoadMeter(sampleRate float64) *LoadMeter {
	return &LoadMeter{sampleRate: sampleRate}
}

// Start returns the start time of a block, to be passed to Stop.
func (m *LoadMeter) Start() time.Time {
	return time.Now()
}

// Stop records a block of frames that began at start.
func (m *LoadMeter) Stop(start time.Time, frames int) {
	m.Observe(time.Since(start), frames)
}

// Observe records that rendering frames took elapsed.
func (m *LoadMeter) Observe(elapsed time.Duration, frames int) {
	if frames <= 0 || m.sampleRate <= 0 {
		return
	}
	ns := uint64(elapsed.Nanoseconds())
	m.blocks.Add(1)
	m.frames.Add(uint64(frames))
	m.totalNs.Add(ns)
	m.lastNs.Store(ns)

	load := percent(float64(ns), float64(frames), m.sampleRate)
	for {
		old := m.peakLoad.Load()
		if load <= math.Float64frombits(old) || m.peakLoad.CompareAndSwap(old, math.Float64bits(load)) {
			return
		}
	}
}

func percent(ns, frames, sampleRate float64) float64 {
	budget := frames / sampleRate * float64(time.Second)
	return ns / budget * 100
}

// Blocks returns the number of observed blocks.
func (m *LoadMeter) Blocks() uint64 {
	return m.blocks.Load()
}

// Load returns the average render time as a percentage of the audio time
// rendered.
func (m *LoadMeter) Load() float64 {
	frames := m.frames.Load()
	if frames == 0 || m.sampleRate <= 0 {
		return 0
	}
	return percent(float64(m.totalNs.Load()), float64(frames), m.sampleRate)
}

// PeakLoad returns the worst single-block load in percent.
func (m *LoadMeter) PeakLoad() float64 {
	return math.Float64frombits(m.peakLoad.Load())
}

// Last returns the duration of the most recent block.
func (m *LoadMeter) Last() time.Duration {
	return time.Duration(m.lastNs.Load())
}

// Reset clears the statistics.
func (m *LoadMeter) Reset() {
	m.blocks.Store(0)
	m.frames.Store(0)
	m.totalNs.Store(0)
	m.lastNs.Store(0)
	m.peakLoad.Store(0)
}

// Report formats the statistics on one line.
func (m *LoadMeter) Report() string {
	frames := m.frames.Load()
	return fmt.Sprintf("%d blocks, %.2fs audio, load %.2f%% avg / %.2f%% peak",
		m.Blocks(), float64(frames)/m.sampleRate, m.Load(), m.PeakLoad())
}
