package plugin

import (
	"crypto/sha1"
	"errors"
	"strings"
)

// Info contains plugin metadata
type Info struct {
	ID       string `json:"id"`       // Unique plugin identifier (e.g., "com.webgain.gain")
	Name     string `json:"name"`     // Display name
	Version  string `json:"version"`  // Semantic version (e.g., "1.0.0")
	Vendor   string `json:"vendor"`   // Company/developer name
	Category string `json:"category"` // Plugin category (e.g., "Fx", "Instrument")
}

// UID derives a stable 16-byte identifier from the string ID. The same ID
// always yields the same UID.
func (i Info) UID() [16]byte {
	sum := sha1.Sum([]byte(i.ID))
	var uid [16]byte
	copy(uid[:], sum[:16])
	// RFC 4122 name-based (version 5) layout
	uid[6] = (uid[6] & 0x0f) | 0x50
	uid[8] = (uid[8] & 0x3f) | 0x80
	return uid
}

// ValidateUID checks that the ID can produce a meaningful UID.
func (i Info) ValidateUID() error {
	id := strings.TrimSpace(i.ID)
	if id == "" {
		return errors.New("plugin ID is empty")
	}
	if id != i.ID {
		return errors.New("plugin ID has surrounding whitespace")
	}
	return nil
}
