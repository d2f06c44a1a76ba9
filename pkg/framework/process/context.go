// Package process provides the render context: channel views over host
// buffers, pre-allocated scratch buffers and the parameter snapshot of the
// current block. Nothing in this package allocates after NewContext.
package process

import (
	"github.com/justyntemme/webgain/pkg/framework/param"
)

// Context provides a clean API for audio processing with zero allocations
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64

	maxBlockSize int
	channels     int

	// Pre-allocated work buffers
	workBuffer []float32
	tempBuffer []float32

	// Channel slice headers backing Input and Output while a chunk is active.
	inViews  [][]float32
	outViews [][]float32

	store    *param.Store
	snapshot *param.Snapshot
}

// NewContext creates a new process context with pre-allocated buffers
func NewContext(sampleRate float64, maxBlockSize, channels int, store *param.Store) *Context {
	c := &Context{
		SampleRate:   sampleRate,
		maxBlockSize: maxBlockSize,
		channels:     channels,
		workBuffer:   make([]float32, maxBlockSize),
		tempBuffer:   make([]float32, maxBlockSize),
		inViews:      make([][]float32, channels),
		outViews:     make([][]float32, channels),
		store:        store,
	}
	if store != nil {
		c.snapshot = store.Snapshot()
	}
	return c
}

// MaxBlockSize returns the largest chunk the context was prepared for.
func (c *Context) MaxBlockSize() int {
	return c.maxBlockSize
}

// Channels returns the prepared channel count.
func (c *Context) Channels() int {
	return c.channels
}

// Load fetches the latest parameter snapshot. Call once per host block; every
// chunk of the block then reads the same committed values.
func (c *Context) Load() *param.Snapshot {
	if c.store != nil {
		c.snapshot = c.store.Snapshot()
	}
	return c.snapshot
}

// Snapshot returns the snapshot fetched by the last Load.
func (c *Context) Snapshot() *param.Snapshot {
	return c.snapshot
}

// Value returns the real value in parameter slot i from the current snapshot.
func (c *Context) Value(i int) float64 {
	return c.snapshot.Value(i)
}

// BlockLength returns the number of frames the host buffers can hold across
// all channels that will be processed.
func BlockLength(in, out [][]float32, channels int) int {
	n := -1
	for ch := 0; ch < channels && ch < len(in) && ch < len(out); ch++ {
		if n < 0 || len(in[ch]) < n {
			n = len(in[ch])
		}
		if len(out[ch]) < n {
			n = len(out[ch])
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// SetChunk points Input and Output at frames [offset, offset+n) of the host
// buffers. Channels beyond the prepared count are not included. n must not
// exceed MaxBlockSize.
func (c *Context) SetChunk(in, out [][]float32, offset, n int) {
	numChannels := c.channels
	if len(in) < numChannels {
		numChannels = len(in)
	}
	if len(out) < numChannels {
		numChannels = len(out)
	}

	for ch := 0; ch < numChannels; ch++ {
		c.inViews[ch] = in[ch][offset : offset+n]
		c.outViews[ch] = out[ch][offset : offset+n]
	}
	c.Input = c.inViews[:numChannels]
	c.Output = c.outViews[:numChannels]
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if len(c.Input) > 0 && len(c.Input[0]) > 0 {
		return len(c.Input[0])
	}
	if len(c.Output) > 0 && len(c.Output[0]) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumChannels returns the minimum of input and output channels
func (c *Context) NumChannels() int {
	numChannels := len(c.Input)
	if len(c.Output) < numChannels {
		numChannels = len(c.Output)
	}
	return numChannels
}

// WorkBuffer returns a slice of the pre-allocated work buffer
// sized to the current block size - no allocation!
func (c *Context) WorkBuffer() []float32 {
	return c.workBuffer[:c.NumSamples()]
}

// TempBuffer returns a slice of the pre-allocated temp buffer
// sized to the current block size - no allocation!
func (c *Context) TempBuffer() []float32 {
	return c.tempBuffer[:c.NumSamples()]
}

// PassThrough copies input to output (for bypass). Aliased channels are left
// as they are.
func (c *Context) PassThrough() {
	for ch := 0; ch < c.NumChannels(); ch++ {
		in, out := c.Input[ch], c.Output[ch]
		if len(in) > 0 && len(out) > 0 && &in[0] == &out[0] {
			continue
		}
		copy(out, in)
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for ch := range c.Output {
		clear(c.Output[ch])
	}
}

// ProcessChannels processes all available channels with the given function
func (c *Context) ProcessChannels(fn func(ch int, input, output []float32)) {
	for ch := 0; ch < c.NumChannels(); ch++ {
		fn(ch, c.Input[ch], c.Output[ch])
	}
}
