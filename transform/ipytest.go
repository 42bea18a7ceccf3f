package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/don7panic/nbkit/notebook"
)

const ipytestInstall = "%pip install -q ipytest"

// FixIpytest normalises the test cell, the second code cell: any existing
// ipytest install line is dropped, everything before "import ipytest" is
// removed and a single install line is put back on top.
func FixIpytest(_ context.Context, nb *notebook.Notebook) (bool, error) {
	cells := nb.CodeCells()
	if len(cells) < 2 {
		return false, fmt.Errorf("%w: fewer than 2 code cells", ErrSkip)
	}
	cell := cells[1]

	var lines []string
	for _, line := range notebook.SplitLines(cell.Source) {
		if strings.TrimSpace(line) != ipytestInstall {
			lines = append(lines, line)
		}
	}

	start := -1
	for i, line := range lines {
		if strings.Contains(line, "import ipytest") {
			start = i
			break
		}
	}
	if start < 0 {
		return false, fmt.Errorf("%w: 'import ipytest' not found in second code cell", ErrSkip)
	}

	lines = lines[start:]
	if !strings.HasPrefix(lines[0], "%pip install") {
		lines = append([]string{ipytestInstall}, lines...)
	}

	src := joinLines(lines, cell.Source)
	if src == cell.Source {
		return false, nil
	}
	return true, nb.SetSource(cell.Index, src)
}
