// Package term drives the controller from a raw terminal: it decodes key
// presses, answers prompts inline and redraws after every key.
package term

import (
	"io"
	"unicode/utf8"
)

// Named keys. Printable keys are delivered as the character itself.
const (
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeyEsc       = "esc"
	KeyTab       = "tab"
	KeyBacktab   = "btab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyHome      = "home"
	KeyCtrlC     = "ctrl+c"
)

var escapes = map[string]string{
	"\x1b[A":  KeyUp,
	"\x1b[B":  KeyDown,
	"\x1b[C":  KeyRight,
	"\x1b[D":  KeyLeft,
	"\x1bOA":  KeyUp,
	"\x1bOB":  KeyDown,
	"\x1bOC":  KeyRight,
	"\x1bOD":  KeyLeft,
	"\x1b[H":  KeyHome,
	"\x1bOH":  KeyHome,
	"\x1b[1~": KeyHome,
	"\x1b[7~": KeyHome,
	"\x1b[Z":  KeyBacktab,
}

// Decode splits the first key off buf and reports how many bytes it used.
// Unknown escape sequences decode as a lone escape. An empty buf returns
// n == 0.
func Decode(buf []byte) (key string, n int) {
	if len(buf) == 0 {
		return "", 0
	}
	switch b := buf[0]; b {
	case 0x1b:
		for seq, name := range escapes {
			if len(buf) >= len(seq) && string(buf[:len(seq)]) == seq {
				return name, len(seq)
			}
		}
		return KeyEsc, 1
	case '\r', '\n':
		return KeyEnter, 1
	case '\t':
		return KeyTab, 1
	case 0x7f, 0x08:
		return KeyBackspace, 1
	case 0x03:
		return KeyCtrlC, 1
	}
	if buf[0] < 0x20 {
		return "", 1
	}
	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError {
		return "", size
	}
	return string(r), size
}

// Printable reports whether key is a single character rather than a named
// key.
func Printable(key string) bool {
	return utf8.RuneCountInString(key) == 1 && key[0] >= 0x20
}

// readKeys decodes r into keys until it fails. keys is closed on return.
func readKeys(r io.Reader, keys chan<- string) {
	defer close(keys)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		data := buf[:n]
		for len(data) > 0 {
			key, used := Decode(data)
			data = data[used:]
			if key != "" {
				keys <- key
			}
		}
		if err != nil {
			return
		}
	}
}
