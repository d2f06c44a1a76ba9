package gainfx

import (
	"math"
	"testing"

	"github.com/justyntemme/webgain/pkg/dsp/gain"
)

func TestEngineRampIsLinearInDecibels(t *testing.T) {
	e := NewEngine(1000, 64, 10) // 10 samples
	e.Reset(0)
	e.SetTargetDB(-20)

	curve, constant := e.Next(10)
	if constant {
		t.Fatal("a retarget should produce a ramp")
	}

	for i, v := range curve {
		want := -20 * float64(i+1) / 10
		if got := gain.LinearToDb(float64(v)); math.Abs(got-want) > 1e-3 {
			t.Errorf("sample %d = %.4f dB, want %.4f", i, got, want)
		}
	}
	if curve[9] != float32(gain.DbToLinear(-20)) {
		t.Errorf("ramp end = %g, want exactly the target", curve[9])
	}

	curve, constant = e.Next(4)
	if !constant || curve[0] != float32(gain.DbToLinear(-20)) {
		t.Error("after the ramp the curve should be constant at the target")
	}
}

func TestEngineSameTargetDoesNotRamp(t *testing.T) {
	e := NewEngine(44100, 512, 50)
	e.Reset(-6)
	e.SetTargetDB(-6)
	if e.IsRamping() {
		t.Error("unchanged target must not start a ramp")
	}
	if e.TargetDB() != -6 {
		t.Errorf("TargetDB() = %f", e.TargetDB())
	}
}

func TestEngineSkip(t *testing.T) {
	a := NewEngine(44100, 512, 50)
	b := NewEngine(44100, 512, 50)
	a.SetTargetDB(-30)
	b.SetTargetDB(-30)

	for i := 0; i < 4; i++ {
		a.Next(512)
	}
	b.Skip(4 * 512)

	if math.Abs(a.Current()-b.Current()) > 1e-12 {
		t.Errorf("Skip = %g, Next = %g", b.Current(), a.Current())
	}
}

func TestEngineZeroRampJumps(t *testing.T) {
	e := NewEngine(44100, 16, 0)
	e.SetTargetDB(-12)
	if _, constant := e.Next(16); !constant {
		t.Error("a zero-length ramp should jump to the target")
	}
}
