package pyast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DecodeString evaluates a single Python string literal, prefix and quotes
// included. f-strings are not literals and are rejected.
func DecodeString(lit string) (value string, isBytes bool, err error) {
	quote := strings.IndexAny(lit, `'"`)
	if quote < 0 {
		return "", false, fmt.Errorf("%w: not a string literal", ErrNotLiteral)
	}
	prefix := strings.ToLower(lit[:quote])
	raw := strings.Contains(prefix, "r")
	isBytes = strings.Contains(prefix, "b")
	if strings.Contains(prefix, "f") || strings.Trim(prefix, "rbu") != "" {
		return "", false, fmt.Errorf("%w: unsupported string prefix %q", ErrNotLiteral, lit[:quote])
	}

	body := lit[quote:]
	delim := body[:1]
	if strings.HasPrefix(body, strings.Repeat(delim, 3)) && len(body) >= 6 {
		delim = strings.Repeat(delim, 3)
	}
	if len(body) < 2*len(delim) || !strings.HasSuffix(body, delim) {
		return "", false, fmt.Errorf("%w: unterminated string", ErrNotLiteral)
	}
	body = body[len(delim) : len(body)-len(delim)]

	if raw {
		return body, isBytes, nil
	}
	value, err = unescape(body, isBytes)
	return value, isBytes, err
}

func unescape(s string, isBytes bool) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))

	// emit writes a code point: a byte for bytes literals, UTF-8 otherwise.
	emit := func(cp rune) {
		if isBytes {
			b.WriteByte(byte(cp))
			return
		}
		b.WriteRune(cp)
	}

	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		next := s[i+1]
		switch next {
		case '\n':
			i += 2
		case '\r':
			i += 2
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(next)
			i += 2
		case 'a':
			b.WriteByte('\a')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			cp, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			emit(rune(cp))
			i = j
		case 'x':
			cp, err := hexEscape(s, i, 2)
			if err != nil {
				return "", err
			}
			emit(cp)
			i += 4
		case 'u', 'U':
			if isBytes {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			width := 4
			if next == 'U' {
				width = 8
			}
			cp, err := hexEscape(s, i, width)
			if err != nil {
				return "", err
			}
			if !utf8.ValidRune(cp) && (cp < 0xD800 || cp > 0xDFFF) {
				return "", fmt.Errorf("%w: illegal Unicode character", ErrNotLiteral)
			}
			b.WriteRune(cp)
			i += 2 + width
		case 'N':
			if isBytes {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			return "", fmt.Errorf("%w: named unicode escapes are not supported", ErrNotLiteral)
		default:
			b.WriteByte('\\')
			i++
		}
	}
	return b.String(), nil
}

func hexEscape(s string, i, width int) (rune, error) {
	start := i + 2
	if start+width > len(s) {
		return 0, fmt.Errorf("%w: truncated \\%c escape", ErrNotLiteral, s[i+1])
	}
	cp, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid \\%c escape", ErrNotLiteral, s[i+1])
	}
	return rune(cp), nil
}

// Repr renders a string the way Python's repr does for the common case,
// preferring single quotes.
func Repr(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
