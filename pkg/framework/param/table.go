package param

import (
	"fmt"
)

// Table is the read-only set of parameter descriptors, built once at startup.
// Positions are stable for the lifetime of the table and are used as slot
// indices by the Store.
type Table struct {
	descs []*Descriptor
	index map[string]int
}

// NewTable validates the descriptors and builds a table. Ids must be unique.
func NewTable(descs ...*Descriptor) (*Table, error) {
	t := &Table{
		descs: make([]*Descriptor, 0, len(descs)),
		index: make(map[string]int, len(descs)),
	}

	for _, d := range descs {
		if d == nil {
			return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, exists := t.index[d.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidDescriptor, d.ID)
		}
		t.index[d.ID] = len(t.descs)
		t.descs = append(t.descs, d)
	}

	return t, nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(descs ...*Descriptor) *Table {
	t, err := NewTable(descs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of parameters.
func (t *Table) Len() int {
	return len(t.descs)
}

// Index returns the stable slot of a parameter id.
func (t *Table) Index(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// Lookup returns the descriptor for an id.
func (t *Table) Lookup(id string) (*Descriptor, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.descs[i], true
}

// At returns the descriptor in slot i.
func (t *Table) At(i int) *Descriptor {
	return t.descs[i]
}

// All returns the descriptors in table order.
func (t *Table) All() []*Descriptor {
	out := make([]*Descriptor, len(t.descs))
	copy(out, t.descs)
	return out
}

// IDs returns the parameter ids in table order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.descs))
	for i, d := range t.descs {
		ids[i] = d.ID
	}
	return ids
}
