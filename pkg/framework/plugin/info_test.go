package plugin

import (
	"testing"
)

func TestInfoUID(t *testing.T) {
	ids := []string{
		"com.webgain.gain",
		"com.webgain.gain2",
		"com.other.gain",
		"com.webgain.Gain",
	}

	seen := make(map[[16]byte]string)
	for _, id := range ids {
		info := Info{ID: id}
		uid := info.UID()

		if uid != info.UID() {
			t.Errorf("%s: UID is not stable", id)
		}
		if uid[6]>>4 != 5 || uid[8]&0xc0 != 0x80 {
			t.Errorf("%s: UID %x is not a version 5 layout", id, uid)
		}
		if other, dup := seen[uid]; dup {
			t.Errorf("UID collision between %s and %s", id, other)
		}
		seen[uid] = id
	}
}

func TestInfoValidateUID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"com.webgain.gain", false},
		{"", true},
		{"   ", true},
		{" com.webgain.gain", true},
		{"com.webgain.gain\n", true},
	}

	for _, test := range tests {
		err := Info{ID: test.id}.ValidateUID()
		if (err != nil) != test.wantErr {
			t.Errorf("ValidateUID(%q) = %v, wantErr %v", test.id, err, test.wantErr)
		}
	}
}
