package audioio

import (
	"fmt"

	"github.com/justyntemme/webgain/pkg/framework/plugin"
)

// BlockFunc is called before each block with the frame offset of the block.
// Offline hosts use it to automate parameters.
type BlockFunc func(offset int)

// Render runs clip through effect in blocks of blockSize frames and returns
// the output clip. effect must be prepared for the clip's channel count and
// at least blockSize frames.
func Render(effect plugin.Effect, clip *Clip, blockSize int, before BlockFunc) (*Clip, error) {
	if err := clip.validate(); err != nil {
		return nil, err
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size %d", blockSize)
	}

	numChannels := len(clip.Channels)
	frames := clip.Frames()
	out := NewClip(clip.SampleRate, numChannels, frames)

	in := make([][]float32, numChannels)
	dst := make([][]float32, numChannels)
	for offset := 0; offset < frames; offset += blockSize {
		n := blockSize
		if offset+n > frames {
			n = frames - offset
		}
		if before != nil {
			before(offset)
		}
		for ch := 0; ch < numChannels; ch++ {
			in[ch] = clip.Channels[ch][offset : offset+n]
			dst[ch] = out.Channels[ch][offset : offset+n]
		}
		effect.Render(in, dst)
	}
	return out, nil
}
