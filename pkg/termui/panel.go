// Package termui is a one-line terminal control panel. Arrow keys move the
// gain, space toggles the effect, u and r undo and redo. The panel is a relay
// surface like the web page, so both stay in sync.
package termui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
	"github.com/justyntemme/webgain/pkg/framework/relay"
)

// ErrQuit is returned by Run when the user presses q or Ctrl-C.
var ErrQuit = errors.New("quit")

// Step sizes in the gain parameter's real unit.
const (
	CoarseStep = 1.0
	FineStep   = 0.1
)

// Option configures a Panel.
type Option func(*Panel)

// WithHost sets the automation host for the panel's relays.
func WithHost(host plugin.AutomationHost) Option {
	return func(p *Panel) {
		p.host = host
	}
}

// WithHistory enables undo and redo keys.
func WithHistory(h *plugin.EditHistory) Option {
	return func(p *Panel) {
		p.history = h
	}
}

// WithMeter shows the output peak, refreshed every interval.
func WithMeter(peakDB func() float64, interval time.Duration) Option {
	return func(p *Panel) {
		p.meter = peakDB
		p.meterInterval = interval
	}
}

// WithWidth truncates the status line to width columns.
func WithWidth(width int) Option {
	return func(p *Panel) {
		p.width = width
	}
}

// WithLogger sets the panel logger.
func WithLogger(logger *debug.Logger) Option {
	return func(p *Panel) {
		p.logger = logger
	}
}

// Panel drives one continuous and one toggle parameter from the keyboard.
type Panel struct {
	store         *param.Store
	host          plugin.AutomationHost
	history       *plugin.EditHistory
	meter         func() float64
	meterInterval time.Duration
	logger        *debug.Logger
	width         int

	gainDesc, toggleDesc *param.Descriptor
	gain, toggle         *relay.Relay

	mu     sync.Mutex
	out    io.Writer
	values map[string]float64
	peak   float64
	last   string
}

// New creates a panel for gainID and toggleID writing to out.
func New(store *param.Store, gainID, toggleID string, out io.Writer, opts ...Option) (*Panel, error) {
	p := &Panel{
		store:         store,
		host:          plugin.NopAutomationHost{},
		meterInterval: 200 * time.Millisecond,
		logger:        debug.Named("termui"),
		out:           out,
		values:        make(map[string]float64),
	}
	for _, opt := range opts {
		opt(p)
	}

	var ok bool
	if p.gainDesc, ok = store.Table().Lookup(gainID); !ok {
		return nil, fmt.Errorf("termui: %q: %w", gainID, param.ErrUnknownParameter)
	}
	if p.toggleDesc, ok = store.Table().Lookup(toggleID); !ok {
		return nil, fmt.Errorf("termui: %q: %w", toggleID, param.ErrUnknownParameter)
	}
	p.values[gainID] = store.GetNormalized(gainID)
	p.values[toggleID] = store.GetNormalized(toggleID)

	var err error
	p.gain, err = relay.New("term/"+gainID, store, gainID,
		relay.WithHost(p.host), relay.WithLogger(p.logger), relay.WithSurface(p))
	if err != nil {
		return nil, err
	}
	p.toggle, err = relay.New("term/"+toggleID, store, toggleID,
		relay.WithHost(p.host), relay.WithLogger(p.logger), relay.WithSurface(p))
	if err != nil {
		p.gain.Close()
		return nil, err
	}
	return p, nil
}

// ValueChanged implements relay.Surface.
func (p *Panel) ValueChanged(e relay.Event) error {
	p.mu.Lock()
	p.values[e.ParameterID] = e.NormalizedValue
	p.mu.Unlock()
	return p.draw()
}

// Line returns the status line for the current values.
func (p *Panel) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lineLocked()
}

func (p *Panel) lineLocked() string {
	g := p.gainDesc.Denormalize(p.values[p.gainDesc.ID])
	state := "ON "
	if p.values[p.toggleDesc.ID] < 0.5 {
		state = "OFF"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-9s [%s]", p.gainDesc.Name, p.gainDesc.Format(g), state)
	if p.meter != nil {
		fmt.Fprintf(&b, "  peak %s", param.DecibelFormatter(p.peak))
	}
	b.WriteString("  ↑↓ ±1 dB  ←→ ±0.1 dB  space on/off")
	if p.history != nil {
		b.WriteString("  u/r undo/redo")
	}
	b.WriteString("  q quit")

	line := b.String()
	if p.width > 0 {
		if r := []rune(line); len(r) > p.width {
			line = string(r[:p.width])
		}
	}
	return line
}

func (p *Panel) draw() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.lineLocked()
	if line == p.last {
		return nil
	}
	p.last = line
	_, err := fmt.Fprintf(p.out, "\r\x1b[K%s", line)
	return err
}

// Handle applies one key. It returns ErrQuit for KeyQuit.
func (p *Panel) Handle(k Key) error {
	switch k {
	case KeyQuit:
		return ErrQuit
	case KeyUp:
		return p.nudge(CoarseStep)
	case KeyDown:
		return p.nudge(-CoarseStep)
	case KeyRight:
		return p.nudge(FineStep)
	case KeyLeft:
		return p.nudge(-FineStep)
	case KeyReset:
		return p.edit(p.gain, p.gainDesc.DefaultNormalized())
	case KeyToggle:
		n := 1.0
		if p.store.GetNormalized(p.toggleDesc.ID) >= 0.5 {
			n = 0
		}
		return p.edit(p.toggle, n)
	case KeyUndo:
		if p.history != nil {
			p.history.Undo()
		}
	case KeyRedo:
		if p.history != nil {
			p.history.Redo()
		}
	}
	return nil
}

// nudge moves the gain by delta in its real unit.
func (p *Panel) nudge(delta float64) error {
	v := p.store.Get(p.gainDesc.ID) + delta
	return p.edit(p.gain, p.gainDesc.Normalize(v))
}

// edit commits n through r. Own edits are not echoed back, so the panel
// shows the committed value directly.
func (p *Panel) edit(r *relay.Relay, n float64) error {
	if err := r.UserEdit(n); err != nil {
		return err
	}
	id := r.ParameterID()
	p.mu.Lock()
	p.values[id] = p.store.GetNormalized(id)
	p.mu.Unlock()
	return p.draw()
}

// Run reads keys from in until ctx is done, in ends or the user quits. Key
// reads block, so a reader that never returns outlives Run.
func (p *Panel) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for _, r := range []*relay.Relay{p.gain, p.toggle} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	keys := make(chan Key)
	errc := make(chan error, 1)
	go func() {
		kr := NewKeyReader(in)
		for {
			k, err := kr.ReadKey()
			if err != nil {
				errc <- err
				return
			}
			select {
			case keys <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	var tick <-chan time.Time
	if p.meter != nil && p.meterInterval > 0 {
		t := time.NewTicker(p.meterInterval)
		defer t.Stop()
		tick = t.C
	}

	p.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case k := <-keys:
			if err := p.Handle(k); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				p.logger.Warn("key %s: %v", k, err)
			}
			if k == KeyUndo || k == KeyRedo || k == KeyToggle {
				p.sync()
			}
		case <-tick:
			p.mu.Lock()
			p.peak = p.meter()
			p.mu.Unlock()
			p.draw()
		}
	}
}

// sync reloads both values from the store.
func (p *Panel) sync() {
	p.mu.Lock()
	p.values[p.gainDesc.ID] = p.store.GetNormalized(p.gainDesc.ID)
	p.values[p.toggleDesc.ID] = p.store.GetNormalized(p.toggleDesc.ID)
	p.mu.Unlock()
	p.draw()
}

// Close releases the relays and ends the status line.
func (p *Panel) Close() error {
	p.gain.Close()
	p.toggle.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, "\r\n")
	return err
}

// RawTerminal puts fd into raw mode. The returned function restores it.
func RawTerminal(f *os.File) (restore func(), width int, err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, 0, fmt.Errorf("%s is not a terminal", f.Name())
	}
	if w, _, err := term.GetSize(fd); err == nil {
		width = w
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, 0, err
	}
	return func() { term.Restore(fd, old) }, width, nil
}
