package plugin

// AutomationHost receives parameter gestures so a host can record automation
// and group undo steps. Every BeginEdit is followed by zero or more
// PerformEdit calls and exactly one EndEdit for the same id.
type AutomationHost interface {
	BeginEdit(id string)
	PerformEdit(id string, normalized float64)
	EndEdit(id string)
}

// NopAutomationHost ignores all gestures.
type NopAutomationHost struct{}

func (NopAutomationHost) BeginEdit(string)            {}
func (NopAutomationHost) PerformEdit(string, float64) {}
func (NopAutomationHost) EndEdit(string)              {}

// HostChain forwards every gesture to each host in order.
type HostChain []AutomationHost

func (c HostChain) BeginEdit(id string) {
	for _, h := range c {
		h.BeginEdit(id)
	}
}

func (c HostChain) PerformEdit(id string, normalized float64) {
	for _, h := range c {
		h.PerformEdit(id, normalized)
	}
}

func (c HostChain) EndEdit(id string) {
	for _, h := range c {
		h.EndEdit(id)
	}
}
