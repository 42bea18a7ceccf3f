// Package transform applies in-place rewrites to notebooks: the ipytest
// install cell fix, demo case comment removal, stripping and copying.
//
// Every batch keeps going past a failing notebook; failures are collected
// in the returned Report.
package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/notebook"
	"github.com/don7panic/nbkit/scanner"
)

// ErrSkip is returned by a Rewrite that leaves a notebook alone on purpose.
var ErrSkip = errors.New("notebook skipped")

// Rewrite edits nb and reports whether anything changed.
type Rewrite func(ctx context.Context, nb *notebook.Notebook) (bool, error)

type Report struct {
	Processed int
	Changed   int
	Skipped   int
	Err       error
}

func (r Report) String() string {
	s := fmt.Sprintf("%d processed, %d changed, %d skipped", r.Processed, r.Changed, r.Skipped)
	if n := len(multierr.Errors(r.Err)); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	return s
}

func (r *Report) add(other Report) {
	r.Processed += other.Processed
	r.Changed += other.Changed
	r.Skipped += other.Skipped
	r.Err = multierr.Append(r.Err, other.Err)
}

type Runner struct {
	FS  afero.Fs
	Log *zap.Logger
}

func (r *Runner) fs() afero.Fs {
	if r.FS == nil {
		return afero.NewOsFs()
	}
	return r.FS
}

// Dir applies rw to every notebook under root selected by rules and writes
// back the ones that changed.
func (r *Runner) Dir(ctx context.Context, root string, rules scanner.Rules, rw Rewrite) (Report, error) {
	entries, err := scanner.Walk(r.fs(), root, scanner.NotebookPattern, rules, r.Log)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(r.apply(ctx, entry.Path, entry.Rel, rw))
	}
	return report, nil
}

// Files applies rw to the given notebook paths.
func (r *Runner) Files(ctx context.Context, paths []string, rw Rewrite) (Report, error) {
	var report Report
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(r.apply(ctx, p, p, rw))
	}
	return report, nil
}

func (r *Runner) apply(ctx context.Context, path, rel string, rw Rewrite) Report {
	log := logging.OrNop(r.Log).With(zap.String("path", rel))
	fsys := r.fs()

	nb, err := notebook.Read(fsys, path)
	if err != nil {
		log.Error("failed to read notebook", zap.Error(err))
		return Report{Err: err}
	}
	changed, err := rw(ctx, nb)
	switch {
	case errors.Is(err, ErrSkip):
		log.Info("skipping notebook", zap.Error(err))
		return Report{Processed: 1, Skipped: 1}
	case err != nil:
		log.Error("failed to rewrite notebook", zap.Error(err))
		return Report{Processed: 1, Err: fmt.Errorf("%s: %w", rel, err)}
	case !changed:
		log.Debug("notebook unchanged")
		return Report{Processed: 1}
	}

	if err := nb.Write(fsys, path); err != nil {
		log.Error("failed to write notebook", zap.Error(err))
		return Report{Processed: 1, Err: err}
	}
	log.Info("updated notebook")
	return Report{Processed: 1, Changed: 1}
}

// joinLines joins lines with newlines, keeping a trailing newline when the
// source being replaced had one.
func joinLines(lines []string, like string) string {
	out := strings.Join(lines, "\n")
	if strings.HasSuffix(like, "\n") && out != "" {
		out += "\n"
	}
	return out
}
