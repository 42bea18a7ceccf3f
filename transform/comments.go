package transform

import (
	"context"
	"regexp"
	"strings"

	"github.com/don7panic/nbkit/notebook"
)

var demoCasesStart = regexp.MustCompile(`^\s*demo_cases\s*=`)

// CleanDemoComments removes comments from the demo_cases literal of every
// code cell that defines one.
func CleanDemoComments(_ context.Context, nb *notebook.Notebook) (bool, error) {
	changed := false
	for _, cell := range nb.CodeCells() {
		if !strings.Contains(cell.Source, "demo_cases") {
			continue
		}
		src := StripDemoComments(cell.Source)
		if src == cell.Source {
			continue
		}
		if err := nb.SetSource(cell.Index, src); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// StripDemoComments drops '#' comments inside the demo_cases assignment and
// the lines left empty by that. The assignment ends when its brackets close.
// Comment markers and brackets inside string literals are ignored.
func StripDemoComments(src string) string {
	var (
		out     []string
		inBlock bool
		depth   int
		lex     lexer
	)
	for _, line := range notebook.SplitLines(src) {
		if !inBlock && demoCasesStart.MatchString(line) {
			inBlock = true
			depth = 0
			lex = lexer{}
		}
		if !inBlock {
			out = append(out, line)
			continue
		}

		code, delta := lex.scan(line)
		depth += delta
		if lex.triple {
			// The line ends inside a multi-line string; keep it verbatim.
			out = append(out, line)
			continue
		}
		code = strings.TrimRight(code, " \t")
		if strings.TrimSpace(code) != "" {
			out = append(out, code)
		}
		if depth <= 0 {
			inBlock = false
		}
	}
	return joinLines(out, src)
}

// lexer tracks Python string literals across the lines of a statement.
type lexer struct {
	quote  byte
	triple bool
}

// scan returns line up to any comment outside a string, and the change in
// bracket depth on the line.
func (l *lexer) scan(line string) (string, int) {
	depth := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if l.quote != 0 {
			switch {
			case c == '\\':
				i++
			case c == l.quote && !l.triple:
				l.quote = 0
			case c == l.quote && strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)):
				l.quote, l.triple = 0, false
				i += 2
			}
			continue
		}
		switch c {
		case '#':
			return line[:i], depth
		case '\'', '"':
			l.quote = c
			if strings.HasPrefix(line[i:], strings.Repeat(string(c), 3)) {
				l.triple = true
				i += 2
			}
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		}
	}
	if !l.triple {
		l.quote = 0
	}
	return line, depth
}
