// Package pyast extracts function signatures, docstrings, literal
// assignments and imports from Python source using tree-sitter.
package pyast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var (
	ErrSyntax     = errors.New("python syntax error")
	ErrNoFunction = errors.New("no top-level function definition")
	ErrNotFound   = errors.New("assignment not found")
	ErrNotLiteral = errors.New("malformed node or string")
)

// Module is a parsed Python source. Close releases the tree-sitter tree.
type Module struct {
	tree *sitter.Tree
	root *sitter.Node
	src  []byte
}

// Parse parses src and rejects sources containing syntax errors, the same
// way the Python 3 compiler would. IPython magics such as %pip count as
// errors; see BlankMagics.
func Parse(ctx context.Context, src string) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	content := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		pos := "unknown position"
		if bad := firstError(root); bad != nil {
			p := bad.StartPoint()
			pos = fmt.Sprintf("line %d column %d", p.Row+1, p.Column+1)
		}
		tree.Close()
		return nil, fmt.Errorf("%w at %s", ErrSyntax, pos)
	}

	m := &Module{tree: tree, root: root, src: content}
	if bad := m.firstInvalid(root); bad != nil {
		p := bad.StartPoint()
		m.Close()
		return nil, fmt.Errorf("%w at line %d column %d: %s", ErrSyntax, p.Row+1, p.Column+1, bad.Type())
	}
	return m, nil
}

// firstInvalid finds constructs the grammar accepts that Python 3 does not:
// print and exec statements, leading-zero decimals and long suffixes.
func (m *Module) firstInvalid(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "print_statement", "exec_statement":
		return n
	case "integer":
		if !validInteger(m.text(n)) {
			return n
		}
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if bad := m.firstInvalid(n.NamedChild(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func validInteger(text string) bool {
	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		return true
	}
	if strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L") {
		return false
	}
	if len(text) < 2 || text[0] != '0' {
		return true
	}
	if c := text[1]; c != '_' && (c < '0' || c > '9') {
		return true
	}
	return strings.Trim(text, "0_") == ""
}

// BlankMagics replaces IPython magic and shell lines (%pip, %%time, !ls)
// with empty lines, so the rest of a notebook cell parses as Python and
// line numbers are unchanged. A blanked line ending in a backslash takes
// its continuation line with it.
func BlankMagics(src string) string {
	lines := strings.SplitAfter(src, "\n")
	changed, cont := false, false
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimLeft(body, " \t")
		magic := strings.HasPrefix(trimmed, "%") ||
			(strings.HasPrefix(trimmed, "!") && !strings.HasPrefix(trimmed, "!="))
		if !cont && !magic {
			continue
		}
		cont = strings.HasSuffix(body, "\\")
		lines[i] = line[len(body):]
		changed = true
	}
	if !changed {
		return src
	}
	return strings.Join(lines, "")
}

func (m *Module) Close() {
	if m.tree != nil {
		m.tree.Close()
	}
}

func (m *Module) text(n *sitter.Node) string {
	return string(m.src[n.StartByte():n.EndByte()])
}

// statements returns the top-level statements, comments excluded.
func (m *Module) statements() []*sitter.Node {
	return namedChildren(m.root)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
