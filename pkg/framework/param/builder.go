package param

// Builder provides a fluent API for creating parameter descriptors
type Builder struct {
	desc *Descriptor
}

// New creates a new descriptor builder
func New(id string, name string) *Builder {
	return &Builder{
		desc: &Descriptor{
			ID:        id,
			Name:      name,
			ShortName: name,
			Min:       0,
			Max:       1,
			Default:   0,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the short name
func (b *Builder) ShortName(name string) *Builder {
	b.desc.ShortName = name
	return b
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.desc.Min = min
	b.desc.Max = max
	return b
}

// Default sets the default value in the real range
func (b *Builder) Default(value float64) *Builder {
	b.desc.Default = value
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.desc.Unit = unit
	return b
}

// Steps sets the number of discrete steps
func (b *Builder) Steps(count int32) *Builder {
	b.desc.StepCount = count
	return b
}

// Skew curves the normalized mapping
func (b *Builder) Skew(skew float64) *Builder {
	b.desc.Skew = skew
	return b
}

// Flags sets parameter flags
func (b *Builder) Flags(flags uint32) *Builder {
	b.desc.Flags = flags
	return b
}

// Toggle makes the parameter a two-state switch
func (b *Builder) Toggle() *Builder {
	b.desc.Min = 0
	b.desc.Max = 1
	b.desc.StepCount = 1
	return b
}

// ReadOnly marks the parameter as read-only
func (b *Builder) ReadOnly() *Builder {
	b.desc.Flags |= IsReadOnly
	b.desc.Flags &^= CanAutomate
	return b
}

// Hidden marks the parameter as hidden
func (b *Builder) Hidden() *Builder {
	b.desc.Flags |= IsHidden
	return b
}

// Bypass marks this as the bypass parameter
func (b *Builder) Bypass() *Builder {
	b.desc.Flags |= IsBypass
	return b
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.desc.formatFunc = format
	b.desc.parseFunc = parse
	return b
}

// Build returns the configured descriptor
func (b *Builder) Build() *Descriptor {
	d := *b.desc
	return &d
}
