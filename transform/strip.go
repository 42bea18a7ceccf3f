package transform

import (
	"context"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/don7panic/nbkit/notebook"
)

var installLine = regexp.MustCompile(`^\s*[%!]pip\s+install\b`)

type StripOptions struct {
	// ClearOutputs empties outputs and execution counts of code cells.
	ClearOutputs bool
	// RemoveTags deletes cells tagged with any of these tags.
	RemoveTags []string
	// RemoveInstalls drops %pip / !pip install lines from code cells. A cell
	// left empty by that is deleted.
	RemoveInstalls bool
	// KeepCodeCells keeps only the first N code cells. Zero keeps all.
	KeepCodeCells int
}

func (o StripOptions) IsZero() bool {
	return !o.ClearOutputs && len(o.RemoveTags) == 0 && !o.RemoveInstalls && o.KeepCodeCells <= 0
}

// Strip returns a Rewrite applying opts.
func Strip(opts StripOptions) Rewrite {
	return func(_ context.Context, nb *notebook.Notebook) (bool, error) {
		return strip(nb, opts)
	}
}

func strip(nb *notebook.Notebook, opts StripOptions) (bool, error) {
	changed := false
	var drop []int
	code := 0

	for _, cell := range nb.Cells() {
		if len(opts.RemoveTags) > 0 && lo.SomeBy(opts.RemoveTags, cell.HasTag) {
			drop = append(drop, cell.Index)
			continue
		}
		if cell.Type != notebook.CellCode {
			continue
		}
		code++
		if opts.KeepCodeCells > 0 && code > opts.KeepCodeCells {
			drop = append(drop, cell.Index)
			continue
		}

		if opts.RemoveInstalls {
			src, removed := RemoveInstalls(cell.Source)
			if removed && strings.TrimSpace(src) == "" {
				drop = append(drop, cell.Index)
				continue
			}
			if removed {
				if err := nb.SetSource(cell.Index, src); err != nil {
					return false, err
				}
				changed = true
			}
		}
		if opts.ClearOutputs {
			cleared, err := nb.ClearOutputs(cell.Index)
			if err != nil {
				return false, err
			}
			changed = changed || cleared
		}
	}

	if len(drop) > 0 {
		if err := nb.DeleteCells(drop...); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// RemoveInstalls drops pip install magics and shell lines from src and
// reports whether any were found.
func RemoveInstalls(src string) (string, bool) {
	lines := notebook.SplitLines(src)
	kept := lo.Reject(lines, func(line string, _ int) bool { return installLine.MatchString(line) })
	if len(kept) == len(lines) {
		return src, false
	}
	return joinLines(kept, src), true
}
