// Package playback drives an effect from the system audio device. The device
// pulls float32 frames from a Stream, which renders a Source through the
// effect one chunk at a time.
package playback

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
)

// bytesPerSample is the size of one float32 little-endian sample.
const bytesPerSample = 4

// DefaultMaxFrames bounds the frames rendered per Read.
const DefaultMaxFrames = 4096

// ErrInvalidStream is returned by NewStream for a non-positive channel count
// or sample rate.
var ErrInvalidStream = errors.New("invalid stream configuration")

// Source produces the signal fed into the effect.
type Source interface {
	Fill(dst [][]float32)
}

// Stream is an io.Reader of interleaved float32 little-endian frames. Each
// Read renders the source through the effect. A Stream is read by a single
// goroutine, the device callback.
type Stream struct {
	effect   plugin.Effect
	source   Source
	channels int

	in, out         [][]float32
	inView, outView [][]float32

	frames atomic.Uint64
	load   *debug.LoadMeter
}

// NewStream prepares buffers for up to maxFrames frames per Read. effect must
// already be prepared for the same channel count and sampleRate.
func NewStream(effect plugin.Effect, source Source, sampleRate float64, channels, maxFrames int) (*Stream, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidStream, channels)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate %g", ErrInvalidStream, sampleRate)
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	s := &Stream{
		effect:   effect,
		source:   source,
		channels: channels,
		in:       make([][]float32, channels),
		out:      make([][]float32, channels),
		inView:   make([][]float32, channels),
		outView:  make([][]float32, channels),
		load:     debug.NewLoadMeter(sampleRate),
	}
	for ch := 0; ch < channels; ch++ {
		s.in[ch] = make([]float32, maxFrames)
		s.out[ch] = make([]float32, maxFrames)
	}
	return s, nil
}

// FrameSize returns the size of one interleaved frame in bytes.
func (s *Stream) FrameSize() int {
	return s.channels * bytesPerSample
}

// Frames returns the number of frames rendered so far.
func (s *Stream) Frames() uint64 {
	return s.frames.Load()
}

// Load returns the render timing statistics.
func (s *Stream) Load() *debug.LoadMeter {
	return s.load
}

// Read renders as many whole frames as fit in p, up to the buffer capacity.
// A p shorter than one frame is zero-filled.
func (s *Stream) Read(p []byte) (int, error) {
	frameSize := s.FrameSize()
	n := len(p) / frameSize
	if n > len(s.in[0]) {
		n = len(s.in[0])
	}
	if n == 0 {
		clear(p)
		return len(p), nil
	}

	for ch := 0; ch < s.channels; ch++ {
		s.inView[ch] = s.in[ch][:n]
		s.outView[ch] = s.out[ch][:n]
	}
	if s.source != nil {
		s.source.Fill(s.inView)
	} else {
		for ch := range s.inView {
			clear(s.inView[ch])
		}
	}
	start := s.load.Start()
	s.effect.Render(s.inView, s.outView)
	s.load.Stop(start, n)

	off := 0
	for i := 0; i < n; i++ {
		for ch := 0; ch < s.channels; ch++ {
			binary.LittleEndian.PutUint32(p[off:], math.Float32bits(s.outView[ch][i]))
			off += bytesPerSample
		}
	}
	s.frames.Add(uint64(n))
	return off, nil
}
