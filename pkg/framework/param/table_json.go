package param

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TableFile is the JSON schema for a parameter table override file.
//
//	{"parameters": [{"id": "gain", "min": -100, "max": 100}]}
type TableFile struct {
	Parameters []ParameterEntry `json:"parameters"`
}

// ParameterEntry is a partial descriptor. Absent fields keep the base value.
type ParameterEntry struct {
	ID      string   `json:"id"`
	Name    *string  `json:"name"`
	Unit    *string  `json:"unit"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Default *float64 `json:"default"`
	Steps   *int32   `json:"steps"`
	Skew    *float64 `json:"skew"`
}

// LoadTableJSON reads a table override file and applies it on top of base.
func LoadTableJSON(path string, base *Table) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTableJSON(b, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTableJSON applies a JSON override document on top of base. Entries with
// an id not present in base add a new parameter. base may be nil.
func ParseTableJSON(data []byte, base *Table) (*Table, error) {
	var f TableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return ApplyFile(base, &f)
}

// ApplyFile overlays a parsed table file onto base and returns a new table.
// base is not modified.
func ApplyFile(base *Table, f *TableFile) (*Table, error) {
	var descs []*Descriptor
	index := make(map[string]int)
	if base != nil {
		for _, d := range base.descs {
			c := *d
			index[c.ID] = len(descs)
			descs = append(descs, &c)
		}
	}
	if f == nil {
		return NewTable(descs...)
	}

	for _, e := range f.Parameters {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry without id", ErrInvalidDescriptor)
		}

		var d *Descriptor
		if i, ok := index[id]; ok {
			d = descs[i]
		} else {
			name := id
			if e.Name != nil {
				name = *e.Name
			}
			d = New(id, name).Build()
			index[id] = len(descs)
			descs = append(descs, d)
		}

		if e.Name != nil {
			d.Name = *e.Name
			d.ShortName = *e.Name
		}
		if e.Unit != nil {
			d.Unit = *e.Unit
		}
		if e.Min != nil {
			d.Min = *e.Min
		}
		if e.Max != nil {
			d.Max = *e.Max
		}
		if e.Steps != nil {
			d.StepCount = *e.Steps
		}
		if e.Skew != nil {
			d.Skew = *e.Skew
		}
		if e.Default != nil {
			d.Default = *e.Default
		} else if d.Max > d.Min {
			// A narrowed range drags the old default along.
			d.Default = d.Clamp(d.Default)
		}
	}

	return NewTable(descs...)
}
