// Package notebook reads and edits Jupyter nbformat v4 documents.
//
// Reads go through gjson so cells can be inspected without decoding the
// whole document. Edits are applied to the raw JSON with sjson and the
// result is re-encoded the way nbformat.write lays files out (one-space
// indent, sorted keys, unescaped unicode, trailing newline) so rewritten
// notebooks diff cleanly against ones saved by Jupyter.
package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/don7panic/nbkit/jsonx"
)

var (
	ErrInvalid           = errors.New("invalid notebook JSON")
	ErrUnsupportedFormat = errors.New("unsupported nbformat version")
	ErrCellIndex         = errors.New("cell index out of range")
)

const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

type Notebook struct {
	raw []byte
}

type Cell struct {
	// Index is the position in the notebook's cells array.
	Index  int
	Type   string
	Source string
	Tags   []string
}

func (c Cell) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Parse validates data as an nbformat 4 notebook.
func Parse(data []byte) (*Notebook, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalid
	}
	major := gjson.GetBytes(data, "nbformat")
	if !major.Exists() {
		return nil, fmt.Errorf("%w: missing nbformat", ErrInvalid)
	}
	if major.Int() < 4 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, major.Int())
	}
	if !gjson.GetBytes(data, "cells").IsArray() {
		return nil, fmt.Errorf("%w: cells is not an array", ErrInvalid)
	}
	return &Notebook{raw: data}, nil
}

func Read(fsys afero.Fs, path string) (*Notebook, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read notebook %s: %w", path, err)
	}
	nb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nb, nil
}

func (nb *Notebook) Cells() []Cell {
	var cells []Cell
	gjson.GetBytes(nb.raw, "cells").ForEach(func(_, cell gjson.Result) bool {
		c := Cell{
			Index:  len(cells),
			Type:   cell.Get("cell_type").String(),
			Source: joinSource(cell.Get("source")),
		}
		cell.Get("metadata.tags").ForEach(func(_, tag gjson.Result) bool {
			c.Tags = append(c.Tags, tag.String())
			return true
		})
		cells = append(cells, c)
		return true
	})
	return cells
}

func (nb *Notebook) CodeCells() []Cell {
	var out []Cell
	for _, c := range nb.Cells() {
		if c.Type == CellCode {
			out = append(out, c)
		}
	}
	return out
}

func joinSource(src gjson.Result) string {
	if !src.IsArray() {
		return src.String()
	}
	var b strings.Builder
	src.ForEach(func(_, line gjson.Result) bool {
		b.WriteString(line.String())
		return true
	})
	return b.String()
}

func (nb *Notebook) cellCount() int {
	return int(gjson.GetBytes(nb.raw, "cells.#").Int())
}

// SetSource replaces the source of the cell at index.
func (nb *Notebook) SetSource(index int, src string) error {
	if index < 0 || index >= nb.cellCount() {
		return fmt.Errorf("%w: %d", ErrCellIndex, index)
	}
	raw, err := sjson.SetBytes(nb.raw, fmt.Sprintf("cells.%d.source", index), SplitSource(src))
	if err != nil {
		return fmt.Errorf("set cell %d source: %w", index, err)
	}
	nb.raw = raw
	return nil
}

// DeleteCells removes the cells at the given indexes.
func (nb *Notebook) DeleteCells(indexes ...int) error {
	sorted := append([]int(nil), indexes...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	count := nb.cellCount()
	last := -1
	for _, idx := range sorted {
		if idx == last {
			continue
		}
		if idx < 0 || idx >= count {
			return fmt.Errorf("%w: %d", ErrCellIndex, idx)
		}
		raw, err := sjson.DeleteBytes(nb.raw, fmt.Sprintf("cells.%d", idx))
		if err != nil {
			return fmt.Errorf("delete cell %d: %w", idx, err)
		}
		nb.raw = raw
		last = idx
	}
	return nil
}

// ClearOutputs empties the outputs and execution count of a code cell.
// It reports whether anything changed.
func (nb *Notebook) ClearOutputs(index int) (bool, error) {
	cell := gjson.GetBytes(nb.raw, fmt.Sprintf("cells.%d", index))
	if !cell.Exists() {
		return false, fmt.Errorf("%w: %d", ErrCellIndex, index)
	}
	if cell.Get("cell_type").String() != CellCode {
		return false, nil
	}
	outputs := cell.Get("outputs")
	count := cell.Get("execution_count")
	if (!outputs.Exists() || len(outputs.Array()) == 0) && count.Type == gjson.Null {
		return false, nil
	}

	raw, err := sjson.SetRawBytes(nb.raw, fmt.Sprintf("cells.%d.outputs", index), []byte("[]"))
	if err != nil {
		return false, fmt.Errorf("clear outputs of cell %d: %w", index, err)
	}
	raw, err = sjson.SetRawBytes(raw, fmt.Sprintf("cells.%d.execution_count", index), []byte("null"))
	if err != nil {
		return false, fmt.Errorf("clear execution count of cell %d: %w", index, err)
	}
	nb.raw = raw
	return true, nil
}

// Bytes returns the notebook encoded like nbformat.write.
func (nb *Notebook) Bytes() ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(nb.raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	return jsonx.UnescapeLineSeparators(buf.Bytes()), nil
}

func (nb *Notebook) Write(fsys afero.Fs, path string) error {
	data, err := nb.Bytes()
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("write notebook %s: %w", path, err)
	}
	return nil
}

// SplitSource splits src into nbformat's list-of-lines form, each line
// keeping its newline.
func SplitSource(src string) []string {
	lines := []string{}
	for src != "" {
		i := strings.IndexByte(src, '\n')
		if i < 0 {
			lines = append(lines, src)
			break
		}
		lines = append(lines, src[:i+1])
		src = src[i+1:]
	}
	return lines
}

// SplitLines splits like Python's str.splitlines without keepends.
func SplitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i])
		if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
			i++
		}
		s = s[i+1:]
	}
	return lines
}
