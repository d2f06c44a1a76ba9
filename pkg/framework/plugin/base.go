package plugin

import (
	"github.com/justyntemme/webgain/pkg/framework/param"
	"github.com/justyntemme/webgain/pkg/framework/state"
)

// Base provides the parameter store and state persistence shared by effects.
// Embedding it supplies GetState and SetState.
type Base struct {
	Info  Info
	store *param.Store
	codec *state.Codec
}

// NewBase creates a new plugin base around store
func NewBase(info Info, store *param.Store, opts ...state.Option) *Base {
	return &Base{
		Info:  info,
		store: store,
		codec: state.NewCodec(store, opts...),
	}
}

// Store returns the parameter store
func (b *Base) Store() *param.Store {
	return b.store
}

// Codec returns the state codec
func (b *Base) Codec() *state.Codec {
	return b.codec
}

// GetState serializes the current parameter values.
func (b *Base) GetState() ([]byte, error) {
	return b.codec.Serialize()
}

// SetState restores parameter values from a blob. Unknown parameters in the
// blob are skipped; a malformed blob leaves every value unchanged.
func (b *Base) SetState(blob []byte) error {
	return b.codec.Deserialize(blob)
}
