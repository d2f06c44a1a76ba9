package param

import (
	"math"
	"testing"
)

func TestSmoother(t *testing.T) {
	t.Run("LinearSmoothing", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 10) // 10 samples
		smoother.Reset(0.0)
		smoother.SetTarget(1.0)

		// Should take 10 samples to reach target
		for i := 0; i < 10; i++ {
			value := smoother.Next()
			expected := float64(i+1) * 0.1
			if math.Abs(value-expected) > 0.001 {
				t.Errorf("Sample %d: expected %f, got %f", i, expected, value)
			}
		}

		if smoother.Next() != 1.0 {
			t.Error("Should stay at target after reaching it")
		}
		if smoother.IsSmoothing() {
			t.Error("Should not be smoothing after reaching target")
		}
	})

	t.Run("ExponentialSmoothing", func(t *testing.T) {
		smoother := NewSmoother(ExponentialSmoothing, 100)
		smoother.Reset(0.0)
		smoother.SetTarget(1.0)

		prev := 0.0
		for i := 0; i < 50; i++ {
			value := smoother.Next()
			if value <= prev {
				t.Error("Value should be increasing")
			}
			if value >= 1.0 {
				t.Error("Should not exceed target")
			}
			prev = value
		}

		for i := 0; i < 200; i++ {
			smoother.Next()
		}
		if smoother.IsSmoothing() {
			t.Error("Should have reached target by now")
		}
	})

	t.Run("LogarithmicSmoothing", func(t *testing.T) {
		smoother := NewSmoother(LogarithmicSmoothing, 10)
		smoother.Reset(100.0)
		smoother.SetTarget(1000.0)

		values := []float64{}
		for i := 0; i < 10; i++ {
			values = append(values, smoother.Next())
		}

		// The ratio between consecutive values should be constant
		ratio := values[1] / values[0]
		for i := 2; i < len(values); i++ {
			currentRatio := values[i] / values[i-1]
			if math.Abs(currentRatio-ratio) > 0.01 {
				t.Error("Logarithmic interpolation not maintaining constant ratio")
			}
		}
		if values[9] != 1000.0 {
			t.Errorf("Last sample = %f, want exactly 1000", values[9])
		}
	})

	t.Run("RampTime", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 1)
		smoother.SetRampTime(44100, 50)
		if got := smoother.RampSamples(); got != 2205 {
			t.Errorf("RampSamples() = %d, want 2205", got)
		}
	})

	t.Run("Threshold", func(t *testing.T) {
		smoother := NewSmoother(ExponentialSmoothing, 10)
		smoother.SetThreshold(0.1)
		smoother.Reset(0.0)
		smoother.SetTarget(0.05)

		// Within threshold after the first step
		smoother.Next()
		if smoother.IsSmoothing() {
			t.Error("Should snap when within threshold")
		}
		if smoother.Current() != 0.05 {
			t.Errorf("Current() = %f, want 0.05", smoother.Current())
		}
	})

	t.Run("Process", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 5)
		smoother.Reset(0.0)
		smoother.SetTarget(1.0)

		buffer := []float32{1.0, 1.0, 1.0, 1.0, 1.0}
		smoother.Process(buffer, func(value float64, sample float32) float32 {
			return sample * float32(value)
		})

		expected := []float32{0.2, 0.4, 0.6, 0.8, 1.0}
		for i, v := range buffer {
			if math.Abs(float64(v-expected[i])) > 0.001 {
				t.Errorf("Sample %d: expected %f, got %f", i, expected[i], v)
			}
		}
	})
}

func TestSmootherRetarget(t *testing.T) {
	t.Run("FromCurrentValue", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 100)
		smoother.Reset(0)
		smoother.SetTarget(1)
		for i := 0; i < 50; i++ {
			smoother.Next()
		}
		mid := smoother.Current()

		smoother.SetTarget(0)
		next := smoother.Next()

		// Continues from ~0.5 downwards rather than jumping to 1 or 0.
		if math.Abs(next-mid) > 0.5/100+1e-9 {
			t.Errorf("retarget jumped from %f to %f", mid, next)
		}
		if next >= mid {
			t.Errorf("retarget should head down: %f -> %f", mid, next)
		}
	})

	t.Run("BoundedStepLogarithmic", func(t *testing.T) {
		const n = 441
		lo, hi := math.Pow(10, -60.0/20), math.Pow(10, 12.0/20)
		worst := hi * (1 - math.Pow(lo/hi, 1.0/n))

		smoother := NewSmoother(LogarithmicSmoothing, n)
		smoother.Reset(lo)
		smoother.SetTarget(hi)

		prev := smoother.Current()
		maxStep := 0.0
		for i := 0; i < 3*n; i++ {
			switch i {
			case n / 3:
				smoother.SetTarget(lo)
			case n / 2:
				smoother.SetTarget(hi)
			case n:
				smoother.SetTarget(0.5)
			}
			v := smoother.Next()
			if d := math.Abs(v - prev); d > maxStep {
				maxStep = d
			}
			prev = v
		}

		if maxStep > worst*(1+1e-9) {
			t.Errorf("max step %g exceeds worst-case single step %g", maxStep, worst)
		}
		if smoother.Current() != 0.5 {
			t.Errorf("final value = %f, want 0.5", smoother.Current())
		}
	})

	t.Run("SameTargetDoesNotRestart", func(t *testing.T) {
		smoother := NewSmoother(LinearSmoothing, 10)
		smoother.Reset(0)
		smoother.SetTarget(1)
		for i := 0; i < 5; i++ {
			smoother.Next()
		}
		smoother.SetTarget(1)
		for i := 0; i < 5; i++ {
			smoother.Next()
		}
		if smoother.IsSmoothing() || smoother.Current() != 1 {
			t.Error("repeating the target should not restart the ramp")
		}
	})
}

func TestSmootherSkip(t *testing.T) {
	for _, typ := range []SmoothingType{LinearSmoothing, LogarithmicSmoothing, ExponentialSmoothing} {
		a := NewSmoother(typ, 64)
		b := NewSmoother(typ, 64)
		a.Reset(0.25)
		b.Reset(0.25)
		a.SetTarget(2)
		b.SetTarget(2)

		for i := 0; i < 20; i++ {
			a.Next()
		}
		b.Skip(20)

		if math.Abs(a.Current()-b.Current()) > 1e-9 {
			t.Errorf("type %d: Skip(20) = %f, 20×Next = %f", typ, b.Current(), a.Current())
		}

		b.Skip(1000)
		if typ != ExponentialSmoothing && (b.IsSmoothing() || b.Current() != 2) {
			t.Errorf("type %d: Skip past the end should land on target", typ)
		}
	}
}

func TestSmootherFill(t *testing.T) {
	smoother := NewSmoother(LinearSmoothing, 4)
	smoother.Reset(0)

	buf := make([]float32, 4)
	if !smoother.Fill(buf) {
		t.Error("idle smoother should report a constant block")
	}

	smoother.SetTarget(1)
	if smoother.Fill(buf) {
		t.Error("ramping smoother should report a varying block")
	}
	if buf[3] != 1 {
		t.Errorf("ramp should end on target, got %f", buf[3])
	}
}
