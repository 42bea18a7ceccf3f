// Package jsonx encodes JSON the way the site's Python tooling always has:
// indented, no HTML escaping and, optionally, ASCII-only output.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MarshalIndent encodes v with the given indent. When ascii is set every
// non-ASCII rune is written as a \uXXXX escape (surrogate pairs above the
// BMP). The result ends with a newline.
func MarshalIndent(v any, indent string, ascii bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	if !ascii {
		return buf.Bytes(), nil
	}
	return EscapeNonASCII(buf.Bytes()), nil
}

// EscapeNonASCII rewrites non-ASCII runes in already-encoded JSON. Those
// runes can only occur inside strings, so escaping them is always safe.
func EscapeNonASCII(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		b := data[0]
		if b < utf8.RuneSelf {
			out = append(out, b)
			data = data[1:]
			continue
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r > 0xFFFF {
			r -= 0x10000
			out = fmt.Appendf(out, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

// UnescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into raw runes. Escaped backslashes are
// copied as a pair, so a literal `\\u2028` in a string is left alone.
func UnescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 == len(data) {
			out = append(out, data[i])
			continue
		}
		rest := data[i:]
		switch {
		case bytes.HasPrefix(rest, []byte(`\u2028`)):
			out = utf8.AppendRune(out, '\u2028')
			i += 5
		case bytes.HasPrefix(rest, []byte(`\u2029`)):
			out = utf8.AppendRune(out, '\u2029')
			i += 5
		default:
			out = append(out, data[i], data[i+1])
			i++
		}
	}
	return out
}
