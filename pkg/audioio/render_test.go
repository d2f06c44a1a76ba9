package audioio

import "testing"

// scale multiplies by a factor that tests may change between blocks.
type scale struct {
	factor float32
	blocks int
}

func (s *scale) Prepare(float64, int, int) error { return nil }
func (s *scale) GetState() ([]byte, error)       { return nil, nil }
func (s *scale) SetState([]byte) error           { return nil }
func (s *scale) Render(in, out [][]float32) {
	s.blocks++
	for ch := range in {
		for i, v := range in[ch] {
			out[ch][i] = v * s.factor
		}
	}
}

func TestRender(t *testing.T) {
	clip := NewClip(8000, 2, 10)
	for ch := range clip.Channels {
		for i := range clip.Channels[ch] {
			clip.Channels[ch][i] = 1
		}
	}

	fx := &scale{factor: 1}
	var offsets []int
	out, err := Render(fx, clip, 4, func(offset int) {
		offsets = append(offsets, offset)
		if offset >= 4 {
			fx.factor = 0.5
		}
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if fx.blocks != 3 || len(offsets) != 3 || offsets[2] != 8 {
		t.Errorf("blocks %d, offsets %v", fx.blocks, offsets)
	}
	if out.SampleRate != 8000 || out.Frames() != 10 {
		t.Fatalf("output %d Hz, %d frames", out.SampleRate, out.Frames())
	}
	for ch := range out.Channels {
		if out.Channels[ch][3] != 1 || out.Channels[ch][4] != 0.5 || out.Channels[ch][9] != 0.5 {
			t.Errorf("channel %d = %v", ch, out.Channels[ch])
		}
	}
	if clip.Channels[0][9] != 1 {
		t.Error("input clip must not be modified")
	}
}

func TestRenderRejects(t *testing.T) {
	if _, err := Render(&scale{}, NewClip(8000, 1, 4), 0, nil); err == nil {
		t.Error("zero block size should fail")
	}
	if _, err := Render(&scale{}, &Clip{SampleRate: 8000}, 4, nil); err == nil {
		t.Error("empty clip should fail")
	}
}
