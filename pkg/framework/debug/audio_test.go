package debug

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	t.Run("Sine", func(t *testing.T) {
		buf := make([]float32, 1000)
		for i := range buf {
			buf[i] = float32(0.5 * math.Sin(2*math.Pi*10*float64(i)/1000))
		}
		r := Analyze(buf)

		if math.Abs(float64(r.Peak)-0.5) > 1e-3 {
			t.Errorf("Peak = %f", r.Peak)
		}
		if math.Abs(float64(r.RMS)-0.5/math.Sqrt2) > 1e-3 {
			t.Errorf("RMS = %f", r.RMS)
		}
		if math.Abs(float64(r.DC)) > 1e-3 || r.Clipping() || r.Silent {
			t.Errorf("result = %+v", r)
		}
		// 10 cycles, two crossings each, the first one at sample 0 not counted.
		if r.ZeroCrossings < 18 || r.ZeroCrossings > 20 {
			t.Errorf("ZeroCrossings = %d", r.ZeroCrossings)
		}
	})

	t.Run("NonFinite", func(t *testing.T) {
		buf := []float32{0.1, float32(math.NaN()), float32(math.Inf(1)), -0.1}
		r := Analyze(buf)
		if r.NonFinite != 2 || r.Peak != 0.1 {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if r := Analyze(nil); !r.Silent {
			t.Error("empty buffer should be silent")
		}
	})
}

func TestCheckBuffer(t *testing.T) {
	if issues := CheckBuffer([]float32{0.1, -0.1, 0.1, -0.1}, "clean"); len(issues) != 0 {
		t.Errorf("clean buffer issues: %v", issues)
	}

	issues := CheckBuffer([]float32{1.5, 1, 1, float32(math.NaN())}, "hot")
	joined := strings.Join(issues, "\n")
	for _, want := range []string{"NaN", "clipping (3 samples)", "DC offset", "peak exceeds"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, issues)
		}
	}

	var out bytes.Buffer
	logger := New(&out, "render", FlagLevel|FlagPrefix)
	if n := logger.LogBufferIssues([]float32{2, 2}, "left"); n == 0 {
		t.Error("expected issues")
	}
	if !strings.Contains(out.String(), "[WARN] [render] left: clipping") {
		t.Errorf("log output %q", out.String())
	}
}
