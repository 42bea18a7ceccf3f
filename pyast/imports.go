package pyast

import (
	"context"
	"errors"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// Imports returns the sorted top-level module names imported by src. A
// source that does not parse imports nothing.
func Imports(ctx context.Context, src string) ([]string, error) {
	mod, err := Parse(ctx, src)
	if err != nil {
		if errors.Is(err, ErrSyntax) {
			return []string{}, nil
		}
		return nil, err
	}
	defer mod.Close()
	return mod.Imports(), nil
}

func (m *Module) Imports() []string {
	seen := map[string]bool{}
	for _, stmt := range m.statements() {
		switch stmt.Type() {
		case "import_statement":
			for _, child := range namedChildren(stmt) {
				name := child
				if child.Type() == "aliased_import" {
					name = child.ChildByFieldName("name")
				}
				if top := m.topLevel(name); top != "" {
					seen[top] = true
				}
			}
		case "import_from_statement":
			module := stmt.ChildByFieldName("module_name")
			if module == nil {
				continue
			}
			if module.Type() == "relative_import" {
				module = findChild(module, "dotted_name")
			}
			if top := m.topLevel(module); top != "" {
				seen[top] = true
			}
		case "future_import_statement":
			seen["__future__"] = true
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// topLevel returns the first component of a dotted_name node.
func (m *Module) topLevel(n *sitter.Node) string {
	if n == nil || n.Type() != "dotted_name" {
		return ""
	}
	first := n.NamedChild(0)
	if first == nil {
		return m.text(n)
	}
	return m.text(first)
}

func findChild(n *sitter.Node, typ string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child
		}
	}
	return nil
}
