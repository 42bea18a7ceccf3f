package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/don7panic/nbkit/notebook"
	"github.com/don7panic/nbkit/scanner"
)

type cell struct {
	kind    string
	source  string
	tags    []string
	outputs []any
}

func code(src string) cell     { return cell{kind: "code", source: src} }
func markdown(src string) cell { return cell{kind: "markdown", source: src} }

func notebookBytes(t *testing.T, cells ...cell) []byte {
	t.Helper()
	out := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		meta := map[string]any{}
		if len(c.tags) > 0 {
			meta["tags"] = c.tags
		}
		m := map[string]any{"cell_type": c.kind, "metadata": meta, "source": c.source}
		if c.kind == "code" {
			m["execution_count"] = nil
			m["outputs"] = []any{}
			if c.outputs != nil {
				m["execution_count"] = 3
				m["outputs"] = c.outputs
			}
		}
		out = append(out, m)
	}
	data, err := json.Marshal(map[string]any{"cells": out, "metadata": map[string]any{}, "nbformat": 4, "nbformat_minor": 5})
	require.NoError(t, err)
	return data
}

func parse(t *testing.T, cells ...cell) *notebook.Notebook {
	t.Helper()
	nb, err := notebook.Parse(notebookBytes(t, cells...))
	require.NoError(t, err)
	return nb
}

func sources(nb *notebook.Notebook) []string {
	var out []string
	for _, c := range nb.Cells() {
		out = append(out, c.Source)
	}
	return out
}

func TestFixIpytest(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		changed bool
	}{
		{
			name:    "inserts install line",
			source:  "import ipytest\nipytest.autoconfig()",
			want:    "%pip install -q ipytest\nimport ipytest\nipytest.autoconfig()",
			changed: true,
		},
		{
			name:    "drops preamble and duplicate install",
			source:  "# setup\n%pip install -q ipytest\nimport os\nimport ipytest\nipytest.autoconfig()\n",
			want:    "%pip install -q ipytest\nimport ipytest\nipytest.autoconfig()\n",
			changed: true,
		},
		{
			name:    "already fixed",
			source:  "%pip install -q ipytest\nimport ipytest",
			want:    "%pip install -q ipytest\nimport ipytest",
			changed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb := parse(t, markdown("# T"), code("def f():\n    pass"), code(tt.source))
			changed, err := FixIpytest(context.Background(), nb)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.want, nb.CodeCells()[1].Source)
		})
	}
}

func TestFixIpytestSkips(t *testing.T) {
	_, err := FixIpytest(context.Background(), parse(t, code("def f(): pass")))
	assert.ErrorIs(t, err, ErrSkip)

	_, err = FixIpytest(context.Background(), parse(t, code("def f(): pass"), code("import pytest\n")))
	assert.ErrorIs(t, err, ErrSkip)
}

func TestStripDemoComments(t *testing.T) {
	src := `import ipytest
# keep this comment
demo_cases = [
    # leading comment
    [1, 2],  # trailing comment
    ["a # not a comment", "[", 3],
    {"k": (1, 2)},  # tuple inside
]
x = 1  # outside the block
`
	want := `import ipytest
# keep this comment
demo_cases = [
    [1, 2],
    ["a # not a comment", "[", 3],
    {"k": (1, 2)},
]
x = 1  # outside the block
`
	assert.Equal(t, want, StripDemoComments(src))
	assert.Equal(t, want, StripDemoComments(want))
}

func TestStripDemoCommentsMultilineString(t *testing.T) {
	src := "demo_cases = [\n    [\"\"\"line one\n# inside string\"\"\", 1],  # note\n]"
	want := "demo_cases = [\n    [\"\"\"line one\n# inside string\"\"\", 1],\n]"
	assert.Equal(t, want, StripDemoComments(src))
}

func TestCleanDemoComments(t *testing.T) {
	nb := parse(t, code("def f(a):\n    return a"), code("demo_cases = [\n    [1],  # one\n]"), code("# demo_cases are elsewhere"))
	changed, err := CleanDemoComments(context.Background(), nb)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"def f(a):\n    return a", "demo_cases = [\n    [1],\n]", "# demo_cases are elsewhere"}, sources(nb))

	changed, err = CleanDemoComments(context.Background(), nb)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStrip(t *testing.T) {
	hidden := code("print('solution')")
	hidden.tags = []string{"solution"}
	executed := code("x = 1")
	executed.outputs = []any{map[string]any{"output_type": "stream", "name": "stdout", "text": "1"}}

	nb := parse(t,
		markdown("# Title"),
		code("%pip install numpy\nimport numpy\n"),
		code("!pip install -q pandas"),
		hidden,
		executed,
		code("extra()"),
	)
	changed, err := strip(nb, StripOptions{ClearOutputs: true, RemoveTags: []string{"solution"}, RemoveInstalls: true, KeepCodeCells: 3})
	require.NoError(t, err)
	assert.True(t, changed)

	// Code cells counted for KeepCodeCells: install(1), pandas(2), x = 1(3), extra(4, dropped).
	assert.Equal(t, []string{"# Title", "import numpy\n", "x = 1"}, sources(nb))

	data, err := nb.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "[]", gjson.GetBytes(data, "cells.2.outputs|@ugly").Raw)
	assert.Equal(t, "null", gjson.GetBytes(data, "cells.2.execution_count").Raw)

	changed, err = strip(nb, StripOptions{ClearOutputs: true, RemoveInstalls: true})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRemoveInstalls(t *testing.T) {
	src, removed := RemoveInstalls("  %pip install a\n!pip   install b\nimport a\n# pip install c\n")
	assert.True(t, removed)
	assert.Equal(t, "import a\n# pip install c\n", src)

	src, removed = RemoveInstalls("import a")
	assert.False(t, removed)
	assert.Equal(t, "import a", src)
}

func TestRunnerDir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string][]byte{
		"notebooks/a/fixme.ipynb":  notebookBytes(t, code("def f(): pass"), code("import ipytest")),
		"notebooks/a/done.ipynb":   notebookBytes(t, code("def f(): pass"), code("%pip install -q ipytest\nimport ipytest")),
		"notebooks/a/single.ipynb": notebookBytes(t, code("def f(): pass")),
		"notebooks/a/bad.ipynb":    []byte("nope"),
	}
	for p, data := range files {
		require.NoError(t, afero.WriteFile(fsys, p, data, 0644))
	}
	doneBefore := files["notebooks/a/done.ipynb"]

	r := &Runner{FS: fsys}
	report, err := r.Dir(context.Background(), "notebooks", scanner.Rules{}, FixIpytest)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Skipped)
	assert.Error(t, report.Err)
	assert.Equal(t, "3 processed, 1 changed, 1 skipped, 1 failed", report.String())

	doneAfter, err := afero.ReadFile(fsys, "notebooks/a/done.ipynb")
	require.NoError(t, err)
	assert.Equal(t, string(doneBefore), string(doneAfter), "unchanged notebooks are not rewritten")

	nb, err := notebook.Read(fsys, "notebooks/a/fixme.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "%pip install -q ipytest\nimport ipytest", nb.CodeCells()[1].Source)
}

func TestRunnerFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "x.ipynb", notebookBytes(t, code("%pip install a\nimport a")), 0644))

	r := &Runner{FS: fsys}
	report, err := r.Files(context.Background(), []string{"x.ipynb", "missing.ipynb"}, Strip(StripOptions{RemoveInstalls: true}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed)
	assert.Error(t, report.Err)

	nb, err := notebook.Read(fsys, "x.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "import a", nb.CodeCells()[0].Source)
}

func TestCopier(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string][]byte{
		"notebooks/text/upper.ipynb":      notebookBytes(t, code("%pip install x\ndef upper(s): pass")),
		"notebooks/text/test_upper.ipynb": notebookBytes(t, code("def test(): pass")),
		"notebooks/math/add.ipynb":        notebookBytes(t, code("def add(a, b): pass")),
		"notebooks/_wip/draft.ipynb":      notebookBytes(t, code("def draft(): pass")),
	}
	for p, data := range files {
		require.NoError(t, afero.WriteFile(fsys, p, data, 0644))
	}

	c := &Copier{
		Runner:  Runner{FS: fsys},
		Src:     "notebooks",
		Dst:     "public/notebooks",
		Include: []string{"text/**"},
		Strip:   StripOptions{RemoveInstalls: true, ClearOutputs: true},
	}
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Changed)

	nb, err := notebook.Read(fsys, "public/notebooks/text/upper.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "def upper(s): pass", nb.CodeCells()[0].Source)

	for _, p := range []string{"public/notebooks/math/add.ipynb", "public/notebooks/text/test_upper.ipynb", "public/notebooks/_wip/draft.ipynb"} {
		ok, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
}
