package transform

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/notebook"
	"github.com/don7panic/nbkit/scanner"
)

// Copier copies the function notebooks of one tree into another, keeping
// their relative layout and stripping them on the way.
type Copier struct {
	Runner
	Src string
	Dst string
	// Include narrows the copy to relative paths matching these patterns.
	Include []string
	Strip   StripOptions
}

func (c *Copier) Run(ctx context.Context) (Report, error) {
	log := logging.OrNop(c.Log)
	fsys := c.fs()

	rules := scanner.FunctionRules()
	rules.Include = c.Include
	entries, err := scanner.Walk(fsys, c.Src, scanner.NotebookPattern, rules, log)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		nb, err := notebook.Read(fsys, entry.Path)
		if err == nil && !c.Strip.IsZero() {
			_, err = strip(nb, c.Strip)
		}
		if err == nil {
			err = nb.Write(fsys, filepath.Join(c.Dst, filepath.FromSlash(entry.Rel)))
		}
		if err != nil {
			log.Error("failed to copy notebook", zap.String("path", entry.Rel), zap.Error(err))
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", entry.Rel, err))
			continue
		}
		report.Changed++
		log.Debug("copied notebook", zap.String("path", entry.Rel))
	}
	return report, nil
}
