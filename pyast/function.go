package pyast

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
)

// Function describes the first top-level function of a code cell.
type Function struct {
	Name       string
	Docstring  string
	Parameters []string
}

// ParseFunction returns the first top-level `def` in src. Decorated
// definitions count, `async def` does not.
func ParseFunction(ctx context.Context, src string) (Function, error) {
	mod, err := Parse(ctx, src)
	if err != nil {
		return Function{}, err
	}
	defer mod.Close()
	return mod.Function()
}

func (m *Module) Function() (Function, error) {
	for _, stmt := range m.statements() {
		def := stmt
		if stmt.Type() == "decorated_definition" {
			def = stmt.ChildByFieldName("definition")
			if def == nil {
				continue
			}
		}
		if def.Type() != "function_definition" || isAsync(def) {
			continue
		}

		fn := Function{
			Name:       m.text(def.ChildByFieldName("name")),
			Parameters: m.parameters(def.ChildByFieldName("parameters")),
		}
		doc, err := m.docstring(def.ChildByFieldName("body"))
		if err != nil {
			return Function{}, err
		}
		fn.Docstring = doc
		return fn, nil
	}
	return Function{}, ErrNoFunction
}

func isAsync(def *sitter.Node) bool {
	return def.ChildCount() > 0 && def.Child(0).Type() == "async"
}

// parameters collects positional-or-keyword parameter names: anything
// before a `/` is positional-only and dropped, and collection stops at
// `*`, `*args` or `**kwargs`.
func (m *Module) parameters(params *sitter.Node) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for _, p := range namedChildren(params) {
		switch p.Type() {
		case "identifier":
			names = append(names, m.text(p))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, m.text(name))
			}
		case "typed_parameter":
			inner := p.NamedChild(0)
			if inner == nil || inner.Type() != "identifier" {
				return names
			}
			names = append(names, m.text(inner))
		case "positional_separator":
			names = names[:0]
		case "keyword_separator", "list_splat_pattern", "dictionary_splat_pattern":
			return names
		}
	}
	return names
}

// docstring returns the cleaned docstring of a function body, or "" when the
// first statement is not a plain string literal.
func (m *Module) docstring(body *sitter.Node) (string, error) {
	if body == nil {
		return "", nil
	}
	stmts := namedChildren(body)
	if len(stmts) == 0 || stmts[0].Type() != "expression_statement" {
		return "", nil
	}
	exprs := namedChildren(stmts[0])
	if len(exprs) != 1 {
		return "", nil
	}
	switch exprs[0].Type() {
	case "string", "concatenated_string":
	default:
		return "", nil
	}
	v, err := m.eval(exprs[0])
	if err != nil {
		if errors.Is(err, ErrNotLiteral) {
			return "", nil
		}
		return "", err
	}
	if v.Kind != Str {
		return "", nil
	}
	return CleanDoc(v.Str), nil
}
