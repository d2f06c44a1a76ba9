package param

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/webgain/pkg/framework/debug"
)

// ErrUnknownParameter is returned for an id that is not in the table.
var ErrUnknownParameter = errors.New("unknown parameter")

// Snapshot is an immutable view of every parameter's real value at one commit.
// The render goroutine loads one snapshot per block, so all values it reads in
// a block belong to the same commit.
type Snapshot struct {
	seq    uint64
	values []float64
}

// Seq is the commit sequence number. It increases with every commit.
func (s *Snapshot) Seq() uint64 {
	return s.seq
}

// Value returns the real value in slot i (see Store.Index).
func (s *Snapshot) Value(i int) float64 {
	return s.values[i]
}

// Len returns the number of slots.
func (s *Snapshot) Len() int {
	return len(s.values)
}

// Change describes one committed parameter update.
type Change struct {
	ID         string
	Index      int
	Value      float64
	Normalized float64
	Origin     Origin
	Seq        uint64
}

// Listener receives committed changes on the goroutine that made the commit.
type Listener func(Change)

// Subscription is a registered listener. Cancel it to stop notifications.
type Subscription struct {
	store     *Store
	index     int
	origin    Origin
	fn        Listener
	cancelled atomic.Bool
}

// Cancel removes the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.cancelled.Swap(true) {
		return
	}
	s.store.unsubscribe(s)
}

// Origin returns the origin the subscription was registered with.
func (s *Subscription) Origin() Origin {
	return s.origin
}

// Store owns the canonical value of every parameter in a Table.
//
// Reads (Get, GetNormalized, Snapshot) are a single atomic pointer load and
// never block or allocate, so they are safe on the render goroutine. Writes
// copy the current snapshot, modify the copy and publish it with one atomic
// store under a writer mutex; they must not be called from the render goroutine.
type Store struct {
	table   *Table
	current atomic.Pointer[Snapshot]
	logger  *debug.Logger

	// writeMu serializes commits. The render goroutine never takes it.
	writeMu sync.Mutex

	subMu sync.Mutex
	subs  [][]*Subscription
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for warnings.
func WithLogger(logger *debug.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store with every parameter at its default value.
func NewStore(table *Table, opts ...StoreOption) *Store {
	s := &Store{
		table:  table,
		logger: debug.Named("param"),
		subs:   make([][]*Subscription, table.Len()),
	}
	for _, opt := range opts {
		opt(s)
	}

	values := make([]float64, table.Len())
	for i, d := range table.descs {
		values[i] = d.Default
	}
	s.current.Store(&Snapshot{values: values})

	return s
}

// Table returns the descriptor table backing the store.
func (s *Store) Table() *Table {
	return s.table
}

// Index resolves an id to its slot. Resolve once at setup and read through
// Snapshot.Value on the render goroutine.
func (s *Store) Index(id string) (int, bool) {
	return s.table.Index(id)
}

// Snapshot returns the latest committed snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Get returns the last committed real value. An unknown id returns 0.
func (s *Store) Get(id string) float64 {
	i, ok := s.table.index[id]
	if !ok {
		failUnknown("Get", id)
		return 0
	}
	return s.current.Load().values[i]
}

// GetNormalized returns the last committed value in [0,1].
func (s *Store) GetNormalized(id string) float64 {
	i, ok := s.table.index[id]
	if !ok {
		failUnknown("GetNormalized", id)
		return 0
	}
	return s.table.descs[i].Normalize(s.current.Load().values[i])
}

// Values returns a copy of every real value keyed by id.
func (s *Store) Values() map[string]float64 {
	snap := s.current.Load()
	out := make(map[string]float64, len(snap.values))
	for i, d := range s.table.descs {
		out[d.ID] = snap.values[i]
	}
	return out
}

// Set clamps value to the parameter range and commits it. Subscribers are
// notified synchronously, except those registered with origin.
func (s *Store) Set(id string, value float64, origin Origin) error {
	i, ok := s.table.index[id]
	if !ok {
		return s.unknown("Set", id)
	}

	if change, changed := s.commit(i, value, origin); changed {
		s.publish(change)
	}
	return nil
}

// SetNormalized maps n through the descriptor and then behaves as Set.
func (s *Store) SetNormalized(id string, n float64, origin Origin) error {
	_, err := s.CommitNormalized(id, n, origin)
	return err
}

// CommitNormalized is SetNormalized returning the sequence number of the
// snapshot that holds the value: the new snapshot, or the current one when
// the value was already set.
func (s *Store) CommitNormalized(id string, n float64, origin Origin) (uint64, error) {
	i, ok := s.table.index[id]
	if !ok {
		return 0, s.unknown("SetNormalized", id)
	}

	change, changed := s.commit(i, s.table.descs[i].Denormalize(n), origin)
	if changed {
		s.publish(change)
	}
	return change.Seq, nil
}

// Restore commits several values as a single snapshot: the render goroutine
// sees either none or all of them. Every id must be known; on error nothing
// is applied.
func (s *Store) Restore(values map[string]float64, origin Origin) error {
	for id := range values {
		if _, ok := s.table.index[id]; !ok {
			return s.unknown("Restore", id)
		}
	}

	s.writeMu.Lock()
	old := s.current.Load()
	next := &Snapshot{
		seq:    old.seq + 1,
		values: make([]float64, len(old.values)),
	}
	copy(next.values, old.values)

	// Changes are collected and published in table order.
	var changes []Change
	for i, d := range s.table.descs {
		v, ok := values[d.ID]
		if !ok {
			continue
		}
		v = d.Clamp(v)
		if v == old.values[i] {
			continue
		}
		next.values[i] = v
		changes = append(changes, Change{
			ID:         d.ID,
			Index:      i,
			Value:      v,
			Normalized: d.Normalize(v),
			Origin:     origin,
			Seq:        next.seq,
		})
	}
	if len(changes) > 0 {
		s.current.Store(next)
	}
	s.writeMu.Unlock()

	for _, c := range changes {
		s.publish(c)
	}
	return nil
}

// Reset restores every parameter to its default.
func (s *Store) Reset(origin Origin) {
	defaults := make(map[string]float64, s.table.Len())
	for _, d := range s.table.descs {
		defaults[d.ID] = d.Default
	}
	// Ids come from the table, so Restore cannot fail.
	_ = s.Restore(defaults, origin)
}

// Subscribe registers fn for changes to id. Changes committed with the same
// origin are not delivered. Pass OriginNone to receive everything.
func (s *Store) Subscribe(id string, origin Origin, fn Listener) (*Subscription, error) {
	i, ok := s.table.index[id]
	if !ok {
		return nil, s.unknown("Subscribe", id)
	}

	sub := &Subscription{store: s, index: i, origin: origin, fn: fn}

	s.subMu.Lock()
	s.subs[i] = append(s.subs[i], sub)
	s.subMu.Unlock()

	return sub, nil
}

// SubscriberCount returns the number of live subscriptions for id.
func (s *Store) SubscriberCount(id string) int {
	i, ok := s.table.index[id]
	if !ok {
		return 0
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs[i])
}

func (s *Store) commit(i int, value float64, origin Origin) (Change, bool) {
	d := s.table.descs[i]
	value = d.Clamp(value)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.current.Load()
	if old.values[i] == value {
		return Change{Seq: old.seq}, false
	}

	next := &Snapshot{
		seq:    old.seq + 1,
		values: make([]float64, len(old.values)),
	}
	copy(next.values, old.values)
	next.values[i] = value
	s.current.Store(next)

	return Change{
		ID:         d.ID,
		Index:      i,
		Value:      value,
		Normalized: d.Normalize(value),
		Origin:     origin,
		Seq:        next.seq,
	}, true
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	subs := make([]*Subscription, len(s.subs[c.Index]))
	copy(subs, s.subs[c.Index])
	s.subMu.Unlock()

	for _, sub := range subs {
		if sub.cancelled.Load() || sub.origin.suppresses(c.Origin) {
			continue
		}
		sub.fn(c)
	}
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	list := s.subs[sub.index]
	for i, candidate := range list {
		if candidate == sub {
			s.subs[sub.index] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (s *Store) unknown(op, id string) error {
	failUnknown(op, id)
	s.logger.Warn("%s: unknown parameter %q ignored", op, id)
	return fmt.Errorf("%s %q: %w", op, id, ErrUnknownParameter)
}
