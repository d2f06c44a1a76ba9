package termui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
)

// syncBuffer is a bytes.Buffer safe for the panel and the test to share.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func newTestPanel(t *testing.T, opts ...Option) (*Panel, *param.Store, *syncBuffer) {
	t.Helper()
	table := param.MustTable(
		param.GainParameter("gain", "Gain", -60, 12).Build(),
		param.OnOffParameter("onoff", "On/Off", true).Build(),
	)
	store := param.NewStore(table, param.WithLogger(debug.Discard()))
	out := &syncBuffer{}

	opts = append([]Option{WithLogger(debug.Discard())}, opts...)
	p, err := New(store, "gain", "onoff", out, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, store, out
}

func TestPanelKeys(t *testing.T) {
	p, store, out := newTestPanel(t)

	err := p.Run(context.Background(), strings.NewReader("\x1b[A\x1b[A\x1b[D \x1b[Bq"))
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("Run = %v, want ErrQuit", err)
	}

	if got := store.Get("gain"); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("gain = %f, want 0.9", got)
	}
	if store.Get("onoff") != 0 {
		t.Error("space should switch the effect off")
	}
	if line := p.Line(); !strings.Contains(line, "0.9 dB") || !strings.Contains(line, "[OFF]") {
		t.Errorf("Line() = %q", line)
	}
	if !strings.Contains(out.String(), "\r\x1b[K") {
		t.Error("panel should redraw in place")
	}
}

func TestPanelClampsAtRange(t *testing.T) {
	p, store, _ := newTestPanel(t)
	store.Set("gain", 11.5, param.OriginHost)

	for i := 0; i < 3; i++ {
		p.Handle(KeyUp)
	}
	if got := store.Get("gain"); got != 12 {
		t.Errorf("gain = %f, want the 12 dB maximum", got)
	}

	p.Handle(KeyReset)
	if got := store.Get("gain"); math.Abs(got) > 1e-9 {
		t.Errorf("reset gain = %f", got)
	}
}

func TestPanelShowsHostChanges(t *testing.T) {
	p, store, out := newTestPanel(t)

	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, in) }()

	store.Set("gain", -12, param.OriginHost)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "-12.0 dB") {
		if time.Now().After(deadline) {
			t.Fatalf("host change not drawn, output %q", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v", err)
	}
}

func TestPanelUndo(t *testing.T) {
	table := param.MustTable(
		param.GainParameter("gain", "Gain", -60, 12).Build(),
		param.OnOffParameter("onoff", "On/Off", true).Build(),
	)
	store := param.NewStore(table, param.WithLogger(debug.Discard()))
	history := plugin.NewEditHistory(store, 0)

	p, err := New(store, "gain", "onoff", io.Discard,
		WithHost(history), WithHistory(history), WithLogger(debug.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Handle(KeyUp)
	p.Handle(KeyUp)
	if got := store.Get("gain"); math.Abs(got-2) > 1e-9 {
		t.Fatalf("gain = %f", got)
	}

	// Each key press is its own step.
	p.Handle(KeyUndo)
	if got := store.Get("gain"); math.Abs(got-1) > 1e-9 {
		t.Errorf("after undo gain = %f, want 1", got)
	}
	p.Handle(KeyRedo)
	if got := store.Get("gain"); math.Abs(got-2) > 1e-9 {
		t.Errorf("after redo gain = %f, want 2", got)
	}
	if !strings.Contains(p.Line(), "u/r undo/redo") {
		t.Error("line should advertise undo")
	}
}

func TestPanelWidthAndMeter(t *testing.T) {
	p, _, _ := newTestPanel(t, WithWidth(20), WithMeter(func() float64 { return -3 }, time.Millisecond))
	if n := len([]rune(p.Line())); n != 20 {
		t.Errorf("line has %d runes, want 20", n)
	}
}

func TestNewRejectsUnknownIDs(t *testing.T) {
	store := param.NewStore(param.MustTable(param.GainParameter("gain", "Gain", -60, 12).Build()))
	if _, err := New(store, "gain", "onoff", io.Discard); !errors.Is(err, param.ErrUnknownParameter) {
		t.Errorf("New = %v", err)
	}
}

func TestPanelShowsOwnEdits(t *testing.T) {
	p, store, _ := newTestPanel(t)

	// Both relays still hold the values queued when the panel was created.
	for _, k := range []Key{KeyUp, KeyToggle} {
		if err := p.Handle(k); err != nil {
			t.Fatalf("Handle(%v): %v", k, err)
		}
	}
	p.gain.Flush()
	p.toggle.Flush()

	if line := p.Line(); !strings.Contains(line, "1.0 dB") || !strings.Contains(line, "[OFF]") {
		t.Errorf("Line() = %q, store gain %f onoff %f", line, store.Get("gain"), store.Get("onoff"))
	}

	p.Handle(KeyReset)
	p.Handle(KeyToggle)
	p.gain.Flush()
	p.toggle.Flush()
	if line := p.Line(); !strings.Contains(line, "0.0 dB") || !strings.Contains(line, "[ON ]") {
		t.Errorf("Line() after reset = %q", line)
	}
}
