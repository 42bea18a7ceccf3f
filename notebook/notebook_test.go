package notebook

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
 "cells": [
  {"cell_type": "code", "execution_count": 3, "metadata": {"tags": ["keep"]}, "outputs": [{"output_type": "stream", "name": "stdout", "text": ["hi\n"]}], "source": ["def f(a):\n", "    return a"]},
  {"cell_type": "markdown", "metadata": {}, "source": "# Title"},
  {"cell_type": "code", "execution_count": null, "metadata": {"tags": ["remove-cell"]}, "outputs": [], "source": "examples = [[1]]"}
 ],
 "metadata": {"kernelspec": {"name": "python3"}, "version": 1.0},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func TestParseCells(t *testing.T) {
	nb, err := Parse([]byte(sample))
	require.NoError(t, err)

	cells := nb.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, "def f(a):\n    return a", cells[0].Source)
	assert.Equal(t, CellMarkdown, cells[1].Type)
	assert.True(t, cells[2].HasTag("remove-cell"))

	code := nb.CodeCells()
	require.Len(t, code, 2)
	assert.Equal(t, 2, code[1].Index)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte(`{"nbformat": 3, "cells": []}`))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Parse([]byte(`{"nbformat": 4}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSetSourceWritesLineList(t *testing.T) {
	nb, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, nb.SetSource(2, "examples = [[2]]\n# <done>"))

	assert.Equal(t, "examples = [[2]]\n# <done>", nb.Cells()[2].Source)

	out, err := nb.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"source\": [\n    \"examples = [[2]]\\n\",\n    \"# <done>\"\n   ]")
	assert.Contains(t, string(out), "\"version\": 1.0")
	assert.Equal(t, byte('\n'), out[len(out)-1])

	assert.ErrorIs(t, nb.SetSource(9, "x"), ErrCellIndex)
}

func TestBytesSortsKeysWithSingleSpaceIndent(t *testing.T) {
	nb, err := Parse([]byte(`{"nbformat_minor": 5, "nbformat": 4, "metadata": {}, "cells": []}`))
	require.NoError(t, err)
	out, err := nb.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "{\n \"cells\": [],\n \"metadata\": {},\n \"nbformat\": 4,\n \"nbformat_minor\": 5\n}\n", string(out))
}

func TestBytesWritesLineSeparatorsRaw(t *testing.T) {
	nb, err := Parse([]byte(`{"cells": [], "metadata": {"title": "a\u2028b"}, "nbformat": 4, "nbformat_minor": 5}`))
	require.NoError(t, err)
	out, err := nb.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"title\": \"a\u2028b\"")
	assert.NotContains(t, string(out), `\u2028`)
}

func TestDeleteCellsAndClearOutputs(t *testing.T) {
	nb, err := Parse([]byte(sample))
	require.NoError(t, err)

	changed, err := nb.ClearOutputs(0)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = nb.ClearOutputs(2)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = nb.ClearOutputs(1)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, nb.DeleteCells(2, 1, 2))
	cells := nb.Cells()
	require.Len(t, cells, 1)
	assert.Equal(t, "def f(a):\n    return a", cells[0].Source)

	out, err := nb.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"outputs\": []")
	assert.Contains(t, string(out), "\"execution_count\": null")
}

func TestReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/nb/a.ipynb", []byte(sample), 0o644))

	nb, err := Read(fs, "/nb/a.ipynb")
	require.NoError(t, err)
	require.NoError(t, nb.Write(fs, "/out/deep/a.ipynb"))

	again, err := Read(fs, "/out/deep/a.ipynb")
	require.NoError(t, err)
	assert.Equal(t, nb.Cells(), again.Cells())

	_, err = Read(fs, "/missing.ipynb")
	require.Error(t, err)
}

func TestSplitSourceAndLines(t *testing.T) {
	assert.Equal(t, []string{"a\n", "b"}, SplitSource("a\nb"))
	assert.Equal(t, []string{"a\n", "b\n"}, SplitSource("a\nb\n"))
	assert.Equal(t, []string{}, SplitSource(""))

	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
}
