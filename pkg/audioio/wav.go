// Package audioio reads and writes planar float32 audio as WAV files.
package audioio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// DefaultBitDepth is the PCM depth used by WriteFile.
const DefaultBitDepth = 16

var (
	// ErrInvalidFile is returned for input that is not a readable WAV file.
	ErrInvalidFile = errors.New("invalid wav file")
	// ErrChannelMismatch is returned when planar channels differ in length.
	ErrChannelMismatch = errors.New("channel length mismatch")
)

// Clip is a block of planar audio.
type Clip struct {
	SampleRate int
	Channels   [][]float32
}

// NewClip allocates a silent clip.
func NewClip(sampleRate, channels, frames int) *Clip {
	c := &Clip{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for ch := range c.Channels {
		c.Channels[ch] = make([]float32, frames)
	}
	return c
}

// Frames returns the number of samples per channel.
func (c *Clip) Frames() int {
	if len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

func (c *Clip) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFile, c.SampleRate)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidFile)
	}
	for ch := 1; ch < len(c.Channels); ch++ {
		if len(c.Channels[ch]) != len(c.Channels[0]) {
			return fmt.Errorf("%w: channel %d has %d frames, want %d",
				ErrChannelMismatch, ch, len(c.Channels[ch]), len(c.Channels[0]))
		}
	}
	return nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Decode reads a complete WAV stream.
func Decode(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: no audio format", ErrInvalidFile)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidFile, buf.Format.SampleRate)
	}

	clip := &Clip{
		SampleRate: buf.Format.SampleRate,
		Channels:   Deinterleave(buf.Data, buf.Format.NumChannels),
	}
	return clip, nil
}

// WriteFile encodes clip as 16-bit PCM at path, creating parent directories.
func WriteFile(path string, clip *Clip) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, clip, DefaultBitDepth); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Encode writes clip as PCM of the given bit depth.
func Encode(w io.WriteSeeker, clip *Clip, bitDepth int) error {
	if err := clip.validate(); err != nil {
		return err
	}

	numChannels := len(clip.Channels)
	enc := wav.NewEncoder(w, clip.SampleRate, bitDepth, numChannels, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  clip.SampleRate,
			NumChannels: numChannels,
		},
		Data:           Interleave(clip.Channels),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Interleave packs planar channels into frame order. The shortest channel
// sets the length.
func Interleave(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	for _, c := range channels[1:] {
		if len(c) < frames {
			frames = len(c)
		}
	}

	n := len(channels)
	out := make([]float32, frames*n)
	for i := 0; i < frames; i++ {
		for ch, c := range channels {
			out[i*n+ch] = c[i]
		}
	}
	return out
}

// Deinterleave splits frame-ordered samples into numChannels planar slices.
// A trailing partial frame is dropped.
func Deinterleave(data []float32, numChannels int) [][]float32 {
	if numChannels < 1 {
		return nil
	}
	frames := len(data) / numChannels
	out := make([][]float32, numChannels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := range out {
			out[ch][i] = data[i*numChannels+ch]
		}
	}
	return out
}
