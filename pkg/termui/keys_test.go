package termui

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestKeyReader(t *testing.T) {
	input := "\x1b[A\x1b[B\x1b[C\x1b[D\x1bOA x0ur?q\x03"
	want := []Key{KeyUp, KeyDown, KeyRight, KeyLeft, KeyUp, KeyToggle, KeyReset, KeyUndo, KeyRedo, KeyQuit, KeyQuit}

	kr := NewKeyReader(strings.NewReader(input))
	for i, w := range want {
		k, err := kr.ReadKey()
		if err != nil {
			t.Fatalf("key %d: %v", i, err)
		}
		if k != w {
			t.Errorf("key %d = %s, want %s", i, k, w)
		}
	}
	if _, err := kr.ReadKey(); !errors.Is(err, io.EOF) {
		t.Errorf("end of input = %v, want EOF", err)
	}
}

func TestKeyReaderLoneEscape(t *testing.T) {
	kr := NewKeyReader(strings.NewReader("\x1bq"))
	if k, _ := kr.ReadKey(); k != KeyQuit {
		t.Errorf("ESC then q = %s, want quit", k)
	}
}
