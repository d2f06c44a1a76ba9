package termui

import (
	"bufio"
	"io"
)

// Key is a decoded key press.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyToggle
	KeyReset
	KeyUndo
	KeyRedo
	KeyQuit
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyToggle:
		return "toggle"
	case KeyReset:
		return "reset"
	case KeyUndo:
		return "undo"
	case KeyRedo:
		return "redo"
	case KeyQuit:
		return "quit"
	}
	return "none"
}

const (
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	keyEscape = 0x1b
)

// KeyReader decodes raw-mode terminal input into keys.
type KeyReader struct {
	r *bufio.Reader
}

// NewKeyReader wraps r.
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{r: bufio.NewReader(r)}
}

// ReadKey blocks until a known key arrives. Unmapped bytes are skipped.
func (kr *KeyReader) ReadKey() (Key, error) {
	for {
		b, err := kr.r.ReadByte()
		if err != nil {
			return KeyNone, err
		}
		if k := kr.decode(b); k != KeyNone {
			return k, nil
		}
	}
}

func (kr *KeyReader) decode(b byte) Key {
	switch b {
	case keyCtrlC, keyCtrlD, 'q', 'Q':
		return KeyQuit
	case ' ', 'm', 'M', '\r', '\n':
		return KeyToggle
	case '0':
		return KeyReset
	case 'u', 'U', 'z':
		return KeyUndo
	case 'r', 'R', 'y':
		return KeyRedo
	case 'k', '+', '=':
		return KeyUp
	case 'j', '-', '_':
		return KeyDown
	case 'h':
		return KeyLeft
	case 'l':
		return KeyRight
	case keyEscape:
		return kr.escape()
	}
	return KeyNone
}

// escape decodes CSI and SS3 cursor sequences (ESC [ A, ESC O A).
func (kr *KeyReader) escape() Key {
	b, err := kr.r.ReadByte()
	if err != nil || (b != '[' && b != 'O') {
		if err == nil {
			kr.r.UnreadByte()
		}
		return KeyNone
	}
	b, err = kr.r.ReadByte()
	if err != nil {
		return KeyNone
	}
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	}
	return KeyNone
}
