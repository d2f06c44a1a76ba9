//go:build !debug

package param

import (
	"errors"
	"testing"

	"github.com/justyntemme/webgain/pkg/framework/debug"
)

func TestUnknownParameterIsNoOp(t *testing.T) {
	table := MustTable(GainParameter("gain", "Gain", -60, 12).Build())
	store := NewStore(table, WithLogger(debug.Discard()))
	before := store.Snapshot()

	if err := store.Set("GAIN", 3, OriginNone); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Set unknown: err = %v", err)
	}
	if err := store.SetNormalized("volume", 0.5, OriginNone); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("SetNormalized unknown: err = %v", err)
	}
	if _, err := store.Subscribe("volume", OriginNone, func(Change) {}); !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Subscribe unknown: err = %v", err)
	}
	if got := store.Get("volume"); got != 0 {
		t.Errorf("Get unknown = %f", got)
	}
	if got := store.GetNormalized("volume"); got != 0 {
		t.Errorf("GetNormalized unknown = %f", got)
	}
	if store.Snapshot() != before {
		t.Error("unknown ids must not touch the store")
	}
	if store.Get("gain") != 0 {
		t.Error("adjacent parameter changed")
	}
}

func TestRestoreWithUnknownIDAppliesNothing(t *testing.T) {
	table := MustTable(
		GainParameter("gain", "Gain", -60, 12).Build(),
		OnOffParameter("onoff", "On/Off", true).Build(),
	)
	store := NewStore(table, WithLogger(debug.Discard()))
	before := store.Snapshot()

	var notified int
	store.Subscribe("gain", OriginNone, func(Change) { notified++ })

	err := store.Restore(map[string]float64{"gain": -12, "missing": 1}, OriginState)
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("Restore with unknown id: err = %v", err)
	}
	if store.Snapshot() != before || notified != 0 {
		t.Error("failed Restore must not publish a snapshot or notify")
	}
	if store.Get("gain") != 0 {
		t.Errorf("gain = %f, want untouched 0", store.Get("gain"))
	}
}
