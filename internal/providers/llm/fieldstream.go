package llm

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type fieldState int

const (
	fsScan fieldState = iota
	fsKey
	fsKeyEscape
	fsAfterKey
	fsBeforeValue
	fsValue
	fsEscape
	fsUnicode
	fsDone
)

// FieldStream extracts the decoded value of one string field from a JSON
// document that arrives in fragments. Feed returns the newly decoded text of
// the field; once the closing quote (or a non-string value such as null) is
// seen, Done reports true and further input is ignored.
type FieldStream struct {
	key   string
	state fieldState

	keyBuf  strings.Builder
	hex     []byte
	high    rune // pending high surrogate
	started bool

	out     []byte
	pending []byte // trailing bytes of an incomplete UTF-8 sequence
}

func NewFieldStream(key string) *FieldStream {
	return &FieldStream{key: key}
}

func (f *FieldStream) Done() bool { return f.state == fsDone }

// Started reports whether the field value was found to be a string.
func (f *FieldStream) Started() bool { return f.started }

func (f *FieldStream) Feed(fragment string) string {
	if f.state == fsDone && len(f.pending) == 0 {
		return ""
	}
	f.out = append(f.out[:0], f.pending...)
	f.pending = f.pending[:0]

	for i := 0; i < len(fragment) && f.state != fsDone; i++ {
		f.step(fragment[i])
	}
	if f.state == fsDone {
		f.flushSurrogate()
	}

	// hold back a split multi-byte character until the rest arrives
	valid := len(f.out)
	for back := 1; back <= utf8.UTFMax && back <= len(f.out); back++ {
		b := f.out[len(f.out)-back]
		if b < utf8.RuneSelf {
			break
		}
		if utf8.RuneStart(b) {
			if !utf8.FullRune(f.out[len(f.out)-back:]) && f.state != fsDone {
				valid = len(f.out) - back
			}
			break
		}
	}
	f.pending = append(f.pending, f.out[valid:]...)
	return string(f.out[:valid])
}

func (f *FieldStream) step(ch byte) {
	switch f.state {
	case fsScan:
		if ch == '"' {
			f.keyBuf.Reset()
			f.state = fsKey
		}
	case fsKey:
		switch ch {
		case '\\':
			f.state = fsKeyEscape
		case '"':
			if f.keyBuf.String() == f.key {
				f.state = fsAfterKey
			} else {
				f.state = fsScan
			}
		default:
			f.keyBuf.WriteByte(ch)
		}
	case fsKeyEscape:
		f.keyBuf.WriteByte(ch)
		f.state = fsKey
	case fsAfterKey:
		switch {
		case isJSONSpace(ch):
		case ch == ':':
			f.state = fsBeforeValue
		case ch == '"':
			// the matched string was a value; this quote opens the next string
			f.keyBuf.Reset()
			f.state = fsKey
		default:
			f.state = fsScan
		}
	case fsBeforeValue:
		switch {
		case isJSONSpace(ch):
		case ch == '"':
			f.started = true
			f.state = fsValue
		default:
			f.state = fsDone
		}
	case fsValue:
		switch ch {
		case '\\':
			f.state = fsEscape
		case '"':
			f.state = fsDone
		default:
			f.flushSurrogate()
			f.out = append(f.out, ch)
		}
	case fsEscape:
		f.state = fsValue
		if ch == 'u' {
			f.hex = f.hex[:0]
			f.state = fsUnicode
			return
		}
		f.flushSurrogate()
		switch ch {
		case 'n':
			f.out = append(f.out, '\n')
		case 't':
			f.out = append(f.out, '\t')
		case 'r':
			f.out = append(f.out, '\r')
		case 'b':
			f.out = append(f.out, '\b')
		case 'f':
			f.out = append(f.out, '\f')
		default: // '"', '\\', '/'
			f.out = append(f.out, ch)
		}
	case fsUnicode:
		f.hex = append(f.hex, ch)
		if len(f.hex) < 4 {
			return
		}
		f.state = fsValue
		r, ok := parseHex4(f.hex)
		if !ok {
			f.flushSurrogate()
			f.out = utf8.AppendRune(f.out, utf8.RuneError)
			return
		}
		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			f.flushSurrogate()
			f.high = r
		case utf16.IsSurrogate(r) && f.high != 0:
			f.out = utf8.AppendRune(f.out, utf16.DecodeRune(f.high, r))
			f.high = 0
		default:
			f.flushSurrogate()
			f.out = utf8.AppendRune(f.out, r)
		}
	}
}

// flushSurrogate emits a replacement for an unpaired high surrogate.
func (f *FieldStream) flushSurrogate() {
	if f.high != 0 {
		f.out = utf8.AppendRune(f.out, utf8.RuneError)
		f.high = 0
	}
}

func parseHex4(h []byte) (rune, bool) {
	var r rune
	for _, c := range h {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		default:
			return 0, false
		}
	}
	return r, true
}

func isJSONSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
