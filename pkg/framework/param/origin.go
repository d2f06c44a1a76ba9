package param

import "sync/atomic"

// Origin tags the writer of a change. Subscribers registered with the same
// origin as a commit are not notified of it, which is how a UI relay avoids
// hearing its own edits back.
type Origin uint64

// Reserved origins. OriginNone is never suppressed.
const (
	OriginNone Origin = iota
	// OriginHost is host automation playback and host-driven undo.
	OriginHost
	// OriginState is a state restore through the snapshot codec.
	OriginState

	originReserved = 16
)

var originCounter atomic.Uint64

// NewOrigin returns a process-unique origin tag.
func NewOrigin() Origin {
	return Origin(originReserved + originCounter.Add(1))
}

func (o Origin) suppresses(other Origin) bool {
	return o != OriginNone && o == other
}
