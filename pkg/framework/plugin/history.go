package plugin

import (
	"sync"

	"github.com/justyntemme/webgain/pkg/framework/param"
)

// DefaultHistoryLimit is the number of undo steps kept by NewEditHistory when
// limit is not positive.
const DefaultHistoryLimit = 100

// Edit is one completed gesture on a single parameter.
type Edit struct {
	ID     string
	Before float64
	After  float64
}

type openEdit struct {
	before float64
	depth  int
}

// EditHistory is an AutomationHost that groups each gesture into one undo
// step. The value is captured at the first BeginEdit for an id and compared
// with the value at the matching EndEdit; gestures that end where they began
// are not recorded. Overlapping gestures on the same id (two surfaces dragging
// at once) merge into one step.
type EditHistory struct {
	store *param.Store
	limit int

	mu   sync.Mutex
	open map[string]*openEdit
	undo []Edit
	redo []Edit
}

// NewEditHistory creates a history over store that keeps at most limit steps.
func NewEditHistory(store *param.Store, limit int) *EditHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &EditHistory{
		store: store,
		limit: limit,
		open:  make(map[string]*openEdit),
	}
}

// BeginEdit records the value before the gesture.
func (h *EditHistory) BeginEdit(id string) {
	if _, ok := h.store.Index(id); !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if o, ok := h.open[id]; ok {
		o.depth++
		return
	}
	h.open[id] = &openEdit{before: h.store.Get(id), depth: 1}
}

// PerformEdit is a no-op: the store already holds the edited value.
func (h *EditHistory) PerformEdit(string, float64) {}

// EndEdit closes the gesture and records an undo step if the value moved.
func (h *EditHistory) EndEdit(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.open[id]
	if !ok {
		return
	}
	if o.depth--; o.depth > 0 {
		return
	}
	delete(h.open, id)

	after := h.store.Get(id)
	if after == o.before {
		return
	}

	h.undo = append(h.undo, Edit{ID: id, Before: o.before, After: after})
	if len(h.undo) > h.limit {
		h.undo = append(h.undo[:0], h.undo[len(h.undo)-h.limit:]...)
	}
	h.redo = h.redo[:0]
}

// Undo reverts the most recent step. It reports false when there is nothing
// to undo.
func (h *EditHistory) Undo() (Edit, bool) {
	h.mu.Lock()
	if len(h.undo) == 0 {
		h.mu.Unlock()
		return Edit{}, false
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	h.mu.Unlock()

	// Notifications run synchronously; never hold mu across them.
	_ = h.store.Restore(map[string]float64{e.ID: e.Before}, param.OriginHost)
	return e, true
}

// Redo reapplies the most recently undone step.
func (h *EditHistory) Redo() (Edit, bool) {
	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return Edit{}, false
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
	h.mu.Unlock()

	_ = h.store.Restore(map[string]float64{e.ID: e.After}, param.OriginHost)
	return e, true
}

// CanUndo reports whether Undo has a step to revert.
func (h *EditHistory) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo has a step to reapply.
func (h *EditHistory) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Clear drops every recorded step.
func (h *EditHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}
