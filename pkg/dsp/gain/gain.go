// Package gain provides decibel conversion, buffer gain and level measurement.
package gain

import (
	"math"
)

// MinDB is the level reported for silence and the floor below which
// DbToLinear returns 0.
const MinDB = -200.0

// LinearToDb converts a linear amplitude value to decibels.
// Returns MinDB for values <= 0.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return 20.0 * math.Log10(linear)
}

// DbToLinear converts a decibel value to linear amplitude.
// Values <= MinDB return 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// DbToLinear32 is the float32 version of DbToLinear.
func DbToLinear32(db float32) float32 {
	if db <= MinDB {
		return 0
	}
	return float32(math.Pow(10.0, float64(db)/20.0))
}

// ApplyBuffer applies gain to an entire buffer in-place.
func ApplyBuffer(buffer []float32, gain float32) {
	for i := range buffer {
		buffer[i] *= gain
	}
}

// ApplyBufferTo applies gain to src and stores the result in dst. src and dst
// may be the same slice.
func ApplyBufferTo(src []float32, gain float32, dst []float32) {
	length := len(src)
	if len(dst) < length {
		length = len(dst)
	}

	for i := 0; i < length; i++ {
		dst[i] = src[i] * gain
	}
}

// ApplyRampTo multiplies src by a per-sample gain curve and stores the result
// in dst. src and dst may be the same slice.
func ApplyRampTo(src, ramp, dst []float32) {
	length := len(src)
	if len(dst) < length {
		length = len(dst)
	}
	if len(ramp) < length {
		length = len(ramp)
	}

	for i := 0; i < length; i++ {
		dst[i] = src[i] * ramp[i]
	}
}

// RMS returns the root mean square of a buffer.
func RMS(buffer []float32) float64 {
	if len(buffer) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buffer {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(buffer)))
}

// Peak returns the largest absolute sample value.
func Peak(buffer []float32) float32 {
	var peak float32
	for _, s := range buffer {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
