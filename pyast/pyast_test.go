package pyast

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunction(t *testing.T) {
	src := `import math

def hypot(a, b=2, *, scale=1):
    """Compute the hypotenuse.

    Args:
        a: first side
        b: second side
    """
    return math.sqrt(a * a + b * b) * scale
`
	fn, err := ParseFunction(context.Background(), src)
	require.NoError(t, err)

	want := Function{
		Name:       "hypot",
		Docstring:  "Compute the hypotenuse.\n\nArgs:\n    a: first side\n    b: second side",
		Parameters: []string{"a", "b"},
	}
	if diff := cmp.Diff(want, fn); diff != "" {
		t.Errorf("ParseFunction mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFunctionParameters(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"typed", "def f(x: int, y: str = 'a') -> int:\n    pass\n", []string{"x", "y"}},
		{"positional only dropped", "def f(a, b, /, c):\n    pass\n", []string{"c"}},
		{"varargs stops", "def f(a, *args, b):\n    pass\n", []string{"a"}},
		{"kwargs excluded", "def f(a, **kw):\n    pass\n", []string{"a"}},
		{"none", "def f():\n    pass\n", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := ParseFunction(context.Background(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn.Parameters)
		})
	}
}

func TestParseFunctionDecoratedAndAsync(t *testing.T) {
	src := "async def skipped(a):\n    pass\n\n@cache\ndef kept(q):\n    'Short doc.'\n    return q\n"
	fn, err := ParseFunction(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "kept", fn.Name)
	assert.Equal(t, "Short doc.", fn.Docstring)
	assert.Equal(t, []string{"q"}, fn.Parameters)
}

func TestParseFunctionNoDocstring(t *testing.T) {
	fn, err := ParseFunction(context.Background(), "def f(a):\n    x = 'not a doc'\n    return x\n")
	require.NoError(t, err)
	assert.Empty(t, fn.Docstring)

	fn, err = ParseFunction(context.Background(), "def f(a):\n    b'bytes'\n")
	require.NoError(t, err)
	assert.Empty(t, fn.Docstring)
}

func TestParseFunctionErrors(t *testing.T) {
	_, err := ParseFunction(context.Background(), "x = 1\n")
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = ParseFunction(context.Background(), "%pip install numpy\ndef f(a):\n    pass\n")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestFindAssignment(t *testing.T) {
	src := `import gradio as gr

examples = [
    [1, "two", 3.5],  # first
    [-4, 'five', None],
]
demo = gr.Interface(fn=f, inputs=["number"], outputs="text", examples=examples)
`
	v, err := FindAssignment(context.Background(), src, "examples")
	require.NoError(t, err)
	require.Equal(t, List, v.Kind)
	require.Len(t, v.Items, 2)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `[[1,"two",3.5],[-4,"five",null]]`, string(out))
}

func TestFindAssignmentChainedAndAnnotated(t *testing.T) {
	v, err := FindAssignment(context.Background(), "a = examples = (1, 2)\n", "examples")
	require.NoError(t, err)
	assert.Equal(t, Tuple, v.Kind)

	_, err = FindAssignment(context.Background(), "examples: list = [1]\n", "examples")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAssignmentNotLiteral(t *testing.T) {
	_, err := FindAssignment(context.Background(), "examples = [load()]\n", "examples")
	assert.ErrorIs(t, err, ErrNotLiteral)
}

func TestEvalLiteralMarshal(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{`{"b": 1, "a": [True, False]}`, `{"b":1,"a":[true,false]}`},
		{`{1: "x", None: 2.0}`, `{"1":"x","null":2.0}`},
		{`1_000_000`, `1000000`},
		{`0x1F`, `31`},
		{`123456789012345678901234567890`, `123456789012345678901234567890`},
		{`1e-05`, `1e-05`},
		{`0.1`, `0.1`},
		{`-2.0`, `-2.0`},
		{`1e16`, `1e+16`},
		{`"a" 'b'`, `"ab"`},
		{`"tab\there"`, `"tab\there"`},
		{`r"raw\n"`, `"raw\\n"`},
		{`'\x41é'`, `"Aé"`},
		{`"""multi
line"""`, `"multi\nline"`},
		{`((1, 2),)`, `[[1,2]]`},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := EvalLiteral(context.Background(), tt.expr)
			require.NoError(t, err)
			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestEvalLiteralRejects(t *testing.T) {
	for _, expr := range []string{`f"x{y}"`, `a + b`, `[x for x in y]`, `1j`} {
		_, err := EvalLiteral(context.Background(), expr)
		assert.ErrorIs(t, err, ErrNotLiteral, expr)
	}
}

func TestParseRejectsPython2Syntax(t *testing.T) {
	for _, src := range []string{"print 'x'\n", "exec 'x = 1'\n", "x = 0777\n", "x = 10L\n"} {
		_, err := Parse(context.Background(), src)
		assert.ErrorIs(t, err, ErrSyntax, src)
	}
	for _, src := range []string{"print('x')\n", "x = 00\n", "x = 0_0\n", "x = 0o777\n", "x = 0\n"} {
		m, err := Parse(context.Background(), src)
		if assert.NoError(t, err, src) {
			m.Close()
		}
	}
}

func TestDictKeysEqualByValue(t *testing.T) {
	v, err := EvalLiteral(context.Background(), `{1: "a", True: "b", 1.0: "c", 0: "d", False: "e", "1": "f"}`)
	require.NoError(t, err)
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"1":"c","0":"e","1":"f"}`, string(out))
}

func TestBlankMagics(t *testing.T) {
	src := "%pip install -q ipytest \\\n    numpy\n!ls\n%%time\nx = (1\n     != 2)\ndemo_cases = [[1]]\n"
	got := BlankMagics(src)
	assert.Equal(t, "\n\n\n\nx = (1\n     != 2)\ndemo_cases = [[1]]\n", got)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"))

	v, err := FindAssignment(context.Background(), got, "demo_cases")
	require.NoError(t, err)
	assert.Equal(t, List, v.Kind)

	assert.Equal(t, "x = 1\n", BlankMagics("x = 1\n"))
}

func TestMarshalRejectsBytesAndSets(t *testing.T) {
	for _, expr := range []string{`b"raw"`, `{1, 2}`} {
		v, err := EvalLiteral(context.Background(), expr)
		require.NoError(t, err)
		_, err = json.Marshal(v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotSerializable), expr)
	}
}

func TestCleanDoc(t *testing.T) {
	assert.Equal(t, "Title\n\nBody\n  indented", CleanDoc("  Title\n\n    Body\n      indented\n    "))
	assert.Equal(t, "one", CleanDoc("one"))
	assert.Equal(t, "a\nb", CleanDoc("\n\ta\n\tb\n"))
	assert.Equal(t, "Title", FirstLine("  Title  \nmore"))
}

func TestImports(t *testing.T) {
	src := `from __future__ import annotations
import os.path, numpy as np
from pandas.core import frame
from . import sibling
from .pkg import thing
import os
`
	got, err := Imports(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"__future__", "numpy", "os", "pandas", "pkg"}, got)
}

func TestImportsSyntaxErrorIsEmpty(t *testing.T) {
	got, err := Imports(context.Background(), "%pip install x\nimport os\n")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepr(t *testing.T) {
	assert.Equal(t, `'numpy'`, Repr("numpy"))
	assert.Equal(t, `"it's"`, Repr("it's"))
}
