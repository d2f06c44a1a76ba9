package debug

import (
	"fmt"
	"math"
)

// Thresholds used by CheckBuffer.
const (
	ClipThreshold    = 0.99
	DCThreshold      = 0.01
	SilenceThreshold = 0.0001
)

// AnalysisResult summarizes one audio buffer.
type AnalysisResult struct {
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	Silent         bool
	// NonFinite counts NaN and infinite samples, which are excluded from the
	// other figures.
	NonFinite     int
	ZeroCrossings int
}

// Clipping reports whether any sample reached ClipThreshold.
func (r AnalysisResult) Clipping() bool {
	return r.ClippedSamples > 0
}

// Analyze measures peak, RMS, DC offset, clipping and zero crossings.
func Analyze(buffer []float32) AnalysisResult {
	var r AnalysisResult
	if len(buffer) == 0 {
		r.Silent = true
		return r
	}

	var sum, sumSquares float64
	var last float32
	finite := 0
	for _, sample := range buffer {
		v := float64(sample)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			r.NonFinite++
			continue
		}

		abs := float32(math.Abs(v))
		if abs > r.Peak {
			r.Peak = abs
		}
		if abs >= ClipThreshold {
			r.ClippedSamples++
		}
		if finite > 0 && (last < 0) != (sample < 0) {
			r.ZeroCrossings++
		}

		sum += v
		sumSquares += v * v
		last = sample
		finite++
	}

	if finite > 0 {
		r.RMS = float32(math.Sqrt(sumSquares / float64(finite)))
		r.DC = float32(sum / float64(finite))
	}
	r.Silent = r.RMS < SilenceThreshold
	return r
}

// CheckBuffer returns a description of every problem found in buffer.
func CheckBuffer(buffer []float32, name string) []string {
	var issues []string
	r := Analyze(buffer)

	if r.NonFinite > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d NaN or infinite samples", name, r.NonFinite))
	}
	if r.Clipping() {
		issues = append(issues, fmt.Sprintf("%s: clipping (%d samples)", name, r.ClippedSamples))
	}
	if math.Abs(float64(r.DC)) > DCThreshold {
		issues = append(issues, fmt.Sprintf("%s: DC offset %.3f", name, r.DC))
	}
	if r.Peak > 1.0 {
		issues = append(issues, fmt.Sprintf("%s: peak exceeds 1.0 (%.3f)", name, r.Peak))
	}
	return issues
}

// LogBufferIssues checks buffer and logs every problem as a warning.
func (l *Logger) LogBufferIssues(buffer []float32, name string) int {
	issues := CheckBuffer(buffer, name)
	for _, issue := range issues {
		l.Warn("%s", issue)
	}
	return len(issues)
}
