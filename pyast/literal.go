package pyast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

type Kind int

const (
	None Kind = iota
	Bool
	Int
	Float
	Str
	Bytes
	List
	Tuple
	Set
	Dict
)

func (k Kind) String() string {
	switch k {
	case None:
		return "NoneType"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Tuple:
		return "tuple"
	case Set:
		return "set"
	case Dict:
		return "dict"
	}
	return "unknown"
}

// Value is a Python literal. Dict keys and values keep source order.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   *big.Int
	Float float64
	// Str holds str values, and the raw bytes of bytes values.
	Str   string
	Items []Value
	Keys  []Value
}

var ErrNotSerializable = errors.New("value is not JSON serializable")

// IsSequence reports whether v is a list or a tuple.
func (v Value) IsSequence() bool {
	return v.Kind == List || v.Kind == Tuple
}

// Truthy follows Python truth testing.
func (v Value) Truthy() bool {
	switch v.Kind {
	case None:
		return false
	case Bool:
		return v.Bool
	case Int:
		return v.Int.Sign() != 0
	case Float:
		return v.Float != 0
	case Str, Bytes:
		return v.Str != ""
	default:
		return len(v.Items) > 0
	}
}

// Lookup returns the dict value stored under the string key.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != Dict {
		return Value{}, false
	}
	for i, k := range v.Keys {
		if k.Kind == Str && k.Str == key {
			return v.Items[i], true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes v the way Python's json module does: tuples become
// arrays, scalar dict keys are stringified, and non-finite floats become
// null. Bytes and sets are rejected like json.dumps rejects them.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case None:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case Int:
		buf.WriteString(v.Int.String())
	case Float:
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(FormatFloat(v.Float))
	case Str:
		enc, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case List, Tuple:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Dict:
		buf.WriteByte('{')
		for i, key := range v.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := key.keyString()
			if err != nil {
				return err
			}
			enc, err := json.Marshal(name)
			if err != nil {
				return err
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := v.Items[i].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %s", ErrNotSerializable, v.Kind)
	}
	return nil
}

func (v Value) keyString() (string, error) {
	switch v.Kind {
	case Str:
		return v.Str, nil
	case Int:
		return v.Int.String(), nil
	case Float:
		switch {
		case math.IsNaN(v.Float):
			return "NaN", nil
		case math.IsInf(v.Float, 1):
			return "Infinity", nil
		case math.IsInf(v.Float, -1):
			return "-Infinity", nil
		}
		return FormatFloat(v.Float), nil
	case Bool:
		return strconv.FormatBool(v.Bool), nil
	case None:
		return "null", nil
	}
	return "", fmt.Errorf("%w: keys must be str, int, float, bool or None, not %s", ErrNotSerializable, v.Kind)
}

// FormatFloat renders f like Python's float repr: positional notation for
// exponents in [-4, 16), scientific otherwise, always with a decimal point
// or exponent.
func FormatFloat(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	_, expPart, _ := strings.Cut(sci, "e")
	exp, err := strconv.Atoi(expPart)
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// FindAssignment evaluates the right-hand side of the first top-level plain
// assignment to name. Chained assignments match any of their targets;
// annotated assignments never match.
func FindAssignment(ctx context.Context, src, name string) (Value, error) {
	mod, err := Parse(ctx, src)
	if err != nil {
		return Value{}, err
	}
	defer mod.Close()
	return mod.Assignment(name)
}

func (m *Module) Assignment(name string) (Value, error) {
	for _, stmt := range m.statements() {
		if stmt.Type() != "expression_statement" {
			continue
		}
		exprs := namedChildren(stmt)
		if len(exprs) != 1 || exprs[0].Type() != "assignment" {
			continue
		}
		if rhs, ok := m.assignedTo(exprs[0], name); ok {
			return m.eval(rhs)
		}
	}
	return Value{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *Module) assignedTo(assign *sitter.Node, name string) (*sitter.Node, bool) {
	matched := false
	node := assign
	for node.Type() == "assignment" {
		if node.ChildByFieldName("type") != nil {
			return nil, false
		}
		left := node.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" && m.text(left) == name {
			matched = true
		}
		right := node.ChildByFieldName("right")
		if right == nil {
			return nil, false
		}
		node = right
	}
	return node, matched
}

// EvalLiteral evaluates a standalone Python literal expression.
func EvalLiteral(ctx context.Context, expr string) (Value, error) {
	mod, err := Parse(ctx, expr)
	if err != nil {
		return Value{}, err
	}
	defer mod.Close()
	stmts := mod.statements()
	if len(stmts) != 1 || stmts[0].Type() != "expression_statement" {
		return Value{}, ErrNotLiteral
	}
	exprs := namedChildren(stmts[0])
	if len(exprs) != 1 {
		return Value{}, ErrNotLiteral
	}
	return mod.eval(exprs[0])
}

func (m *Module) eval(n *sitter.Node) (Value, error) {
	switch n.Type() {
	case "string":
		s, isBytes, err := DecodeString(m.text(n))
		if err != nil {
			return Value{}, err
		}
		if isBytes {
			return Value{Kind: Bytes, Str: s}, nil
		}
		return Value{Kind: Str, Str: s}, nil

	case "concatenated_string":
		var b strings.Builder
		kind := Kind(-1)
		for _, part := range namedChildren(n) {
			v, err := m.eval(part)
			if err != nil {
				return Value{}, err
			}
			if kind >= 0 && v.Kind != kind {
				return Value{}, fmt.Errorf("%w: cannot mix bytes and nonbytes literals", ErrNotLiteral)
			}
			kind = v.Kind
			b.WriteString(v.Str)
		}
		return Value{Kind: kind, Str: b.String()}, nil

	case "integer":
		return parseInteger(m.text(n))

	case "float":
		return parseFloat(m.text(n))

	case "true":
		return Value{Kind: Bool, Bool: true}, nil
	case "false":
		return Value{Kind: Bool, Bool: false}, nil
	case "none":
		return Value{Kind: None}, nil

	case "list", "tuple", "set", "expression_list":
		kind := map[string]Kind{"list": List, "tuple": Tuple, "set": Set, "expression_list": Tuple}[n.Type()]
		items := []Value{}
		for _, child := range namedChildren(n) {
			v, err := m.eval(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: kind, Items: items}, nil

	case "dictionary":
		out := Value{Kind: Dict, Items: []Value{}, Keys: []Value{}}
		for _, child := range namedChildren(n) {
			if child.Type() != "pair" {
				return Value{}, fmt.Errorf("%w: %s in dict", ErrNotLiteral, child.Type())
			}
			key, err := m.eval(child.ChildByFieldName("key"))
			if err != nil {
				return Value{}, err
			}
			val, err := m.eval(child.ChildByFieldName("value"))
			if err != nil {
				return Value{}, err
			}
			out = out.withEntry(key, val)
		}
		return out, nil

	case "parenthesized_expression":
		inner := namedChildren(n)
		if len(inner) != 1 {
			return Value{}, ErrNotLiteral
		}
		return m.eval(inner[0])

	case "unary_operator":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return Value{}, ErrNotLiteral
		}
		v, err := m.eval(arg)
		if err != nil {
			return Value{}, err
		}
		return negate(m.text(op), v)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrNotLiteral, n.Type())
}

// withEntry sets key to val; a repeated key keeps its first position and
// takes the last value, as a Python dict display does.
func (v Value) withEntry(key, val Value) Value {
	for i, k := range v.Keys {
		if equalKeys(k, key) {
			v.Items[i] = val
			return v
		}
	}
	v.Keys = append(v.Keys, key)
	v.Items = append(v.Items, val)
	return v
}

// equalKeys compares dict keys by value the way Python hashes them, so 1,
// True and 1.0 are the same key.
func equalKeys(a, b Value) bool {
	an, aok := a.number()
	bn, bok := b.number()
	if aok || bok {
		return aok && bok && an.Cmp(bn) == 0
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Str, Bytes:
		return a.Str == b.Str
	case Float:
		return a.Float == b.Float
	case None:
		return true
	}
	return false
}

// number returns ints, bools and finite floats as exact numbers.
func (v Value) number() (*big.Float, bool) {
	switch v.Kind {
	case Int:
		return new(big.Float).SetInt(v.Int), true
	case Bool:
		if v.Bool {
			return big.NewFloat(1), true
		}
		return big.NewFloat(0), true
	case Float:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return nil, false
		}
		return big.NewFloat(v.Float), true
	}
	return nil, false
}

func negate(op string, v Value) (Value, error) {
	switch op {
	case "+":
		if v.Kind == Int || v.Kind == Float {
			return v, nil
		}
	case "-":
		switch v.Kind {
		case Int:
			return Value{Kind: Int, Int: new(big.Int).Neg(v.Int)}, nil
		case Float:
			return Value{Kind: Float, Float: -v.Float}, nil
		}
	}
	return Value{}, fmt.Errorf("%w: unary %s on %s", ErrNotLiteral, op, v.Kind)
}

func parseInteger(text string) (Value, error) {
	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		return Value{}, fmt.Errorf("%w: complex numbers are not supported", ErrNotLiteral)
	}
	n, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return Value{}, fmt.Errorf("%w: invalid integer %q", ErrNotLiteral, text)
	}
	return Value{Kind: Int, Int: n}, nil
}

func parseFloat(text string) (Value, error) {
	if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
		return Value{}, fmt.Errorf("%w: complex numbers are not supported", ErrNotLiteral)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("%w: invalid float %q", ErrNotLiteral, text)
	}
	return Value{Kind: Float, Float: f}, nil
}
