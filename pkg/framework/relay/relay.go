// Package relay binds a UI surface to one parameter of a param.Store.
//
// Edits made on the surface are committed with the relay's own origin, so the
// store never echoes them back to the same relay. Changes from anywhere else
// are coalesced in a one-slot, latest-wins mailbox and delivered to the
// surface by Run on the relay's own goroutine.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/plugin"
)

// ErrClosed is returned by operations on a closed relay.
var ErrClosed = errors.New("relay closed")

// Event is a value pushed to a surface.
type Event struct {
	ParameterID     string  `json:"parameterId"`
	NormalizedValue float64 `json:"normalizedValue"`
}

// Surface is the UI side of a relay: a native widget, a web panel session or
// a terminal. ValueChanged is called from the goroutine running Relay.Run.
type Surface interface {
	ValueChanged(Event) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Event) error

// ValueChanged calls f(e).
func (f SurfaceFunc) ValueChanged(e Event) error {
	return f(e)
}

// Option configures a Relay.
type Option func(*Relay)

// WithHost sets the automation host that receives gesture brackets.
func WithHost(host plugin.AutomationHost) Option {
	return func(r *Relay) {
		r.host = host
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *debug.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithSurface attaches a surface at construction.
func WithSurface(s Surface) Option {
	return func(r *Relay) {
		r.surface = s
	}
}

// Relay forwards one parameter between a store and at most one surface.
type Relay struct {
	name   string
	id     string
	store  *param.Store
	origin param.Origin
	host   plugin.AutomationHost
	logger *debug.Logger
	sub    *param.Subscription

	// gestureMu orders begin/perform/end towards the host.
	gestureMu sync.Mutex
	gesture   bool

	mu      sync.Mutex
	surface Surface
	closed  bool

	// deliverMu spans taking a value from the mailbox and handing it to the
	// surface, and the surface's own commits, so a delivery never lands
	// after a newer own edit.
	deliverMu sync.Mutex

	// mailbox holds the latest undelivered value; wake has capacity one.
	mailMu     sync.Mutex
	pending    Event
	pendingSeq uint64
	hasValue   bool
	lastSeq    uint64
	wake       chan struct{}
	done       chan struct{}
}

// New creates a relay for paramID. The relay subscribes to the store at once
// and stays subscribed until Close.
func New(name string, store *param.Store, paramID string, opts ...Option) (*Relay, error) {
	if _, ok := store.Index(paramID); !ok {
		return nil, fmt.Errorf("relay %s: %q: %w", name, paramID, param.ErrUnknownParameter)
	}

	r := &Relay{
		name:   name,
		id:     paramID,
		store:  store,
		origin: param.NewOrigin(),
		host:   plugin.NopAutomationHost{},
		logger: debug.Named("relay"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	sub, err := store.Subscribe(paramID, r.origin, r.onChange)
	if err != nil {
		return nil, err
	}
	r.sub = sub

	if r.surface != nil {
		r.pushCurrent()
	}
	return r, nil
}

// Name returns the relay name.
func (r *Relay) Name() string {
	return r.name
}

// ParameterID returns the bound parameter id.
func (r *Relay) ParameterID() string {
	return r.id
}

// Origin returns the origin tag the relay commits with.
func (r *Relay) Origin() param.Origin {
	return r.origin
}

// Attach connects s, replacing any previous surface, and queues the current
// value for it.
func (r *Relay) Attach(s Surface) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.surface = s
	r.mu.Unlock()

	r.pushCurrent()
	return nil
}

// Detach disconnects the surface. The relay keeps forwarding edits.
func (r *Relay) Detach() {
	r.mu.Lock()
	r.surface = nil
	r.mu.Unlock()
}

// UserEdit commits a normalized value from the surface. An edit outside a
// gesture is reported to the host as a complete begin, perform, end bracket.
// Mailbox values older than the commit are discarded. UserEdit must not be
// called from the surface's ValueChanged.
func (r *Relay) UserEdit(normalized float64) error {
	if r.isClosed() {
		return ErrClosed
	}

	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	if !r.gesture {
		r.host.BeginEdit(r.id)
		defer r.host.EndEdit(r.id)
	}
	r.deliverMu.Lock()
	seq, err := r.store.CommitNormalized(r.id, normalized, r.origin)
	if err == nil {
		r.settle(seq)
	}
	r.deliverMu.Unlock()
	if err != nil {
		return err
	}
	r.host.PerformEdit(r.id, r.store.GetNormalized(r.id))
	return nil
}

// BeginGesture opens a gesture such as a slider drag. Repeated calls are
// ignored until EndGesture.
func (r *Relay) BeginGesture() error {
	if r.isClosed() {
		return ErrClosed
	}

	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	if r.gesture {
		return nil
	}
	r.gesture = true
	r.host.BeginEdit(r.id)
	return nil
}

// EndGesture closes the open gesture, if any.
func (r *Relay) EndGesture() {
	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()

	if !r.gesture {
		return
	}
	r.gesture = false
	r.host.EndEdit(r.id)
}

// InGesture reports whether a gesture is open.
func (r *Relay) InGesture() bool {
	r.gestureMu.Lock()
	defer r.gestureMu.Unlock()
	return r.gesture
}

// Run delivers mailbox values to the attached surface until ctx is done or the
// relay is closed. It returns ctx.Err() or nil after Close.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case <-r.wake:
			r.Flush()
		}
	}
}

// Flush delivers the pending value, if any, on the calling goroutine.
func (r *Relay) Flush() {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mailMu.Lock()
	if !r.hasValue {
		r.mailMu.Unlock()
		return
	}
	e := r.pending
	r.hasValue = false
	r.mailMu.Unlock()

	r.mu.Lock()
	s := r.surface
	r.mu.Unlock()
	if s == nil {
		return
	}

	if err := s.ValueChanged(e); err != nil {
		r.logger.Warn("%s: deliver %s=%.4f: %v", r.name, e.ParameterID, e.NormalizedValue, err)
	}
}

// Close cancels the store subscription, ends any open gesture and stops Run.
// It is safe to call more than once.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.surface = nil
	r.mu.Unlock()

	r.sub.Cancel()
	r.EndGesture()
	close(r.done)
	return nil
}

func (r *Relay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// onChange runs on the goroutine that committed the change.
func (r *Relay) onChange(c param.Change) {
	r.post(c.Seq, c.Normalized, false)
}

func (r *Relay) pushCurrent() {
	snap := r.store.Snapshot()
	i, _ := r.store.Index(r.id)
	r.post(snap.Seq(), r.store.Table().At(i).Normalize(snap.Value(i)), true)
}

// post stores a value in the mailbox. Values older than the newest one seen
// are dropped; force re-sends a value at the newest sequence.
func (r *Relay) post(seq uint64, normalized float64, force bool) {
	r.mailMu.Lock()
	if seq < r.lastSeq || (seq == r.lastSeq && !force) {
		r.mailMu.Unlock()
		return
	}
	r.lastSeq = seq
	r.pending = Event{ParameterID: r.id, NormalizedValue: normalized}
	r.pendingSeq = seq
	r.hasValue = true
	r.mailMu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// settle records an own commit at seq: older pending values are dropped and
// older late posts are ignored.
func (r *Relay) settle(seq uint64) {
	r.mailMu.Lock()
	defer r.mailMu.Unlock()

	if seq > r.lastSeq {
		r.lastSeq = seq
	}
	if r.hasValue && r.pendingSeq < seq {
		r.hasValue = false
	}
}
