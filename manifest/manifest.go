// Package manifest builds example_functions.json from the function notebooks.
package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/don7panic/nbkit/analyzer"
	"github.com/don7panic/nbkit/jsonx"
	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/models"
	"github.com/don7panic/nbkit/scanner"
)

type Builder struct {
	FS           afero.Fs
	NotebooksDir string
	LinkBase     string
	// Workers bounds concurrent notebook analysis. Zero means one per CPU.
	Workers int
	Log     *zap.Logger
}

// Result is the outcome of a build. Failed notebooks are left out of
// Functions and their errors combined in Err.
type Result struct {
	Functions []models.Function
	Scanned   int
	Err       error
}

// Build analyzes every function notebook. File ids are assigned to the
// successful notebooks in walk order before sorting by name, so the same
// tree always produces the same ids.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	log := logging.OrNop(b.Log)
	fsys := b.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	entries, err := scanner.Walk(fsys, b.NotebooksDir, scanner.NotebookPattern, scanner.FunctionRules(), log)
	if err != nil {
		return Result{}, err
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	slots := make([]*models.Function, len(entries))
	errs := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Debug("processing notebook", zap.String("path", entry.Rel))
			a, err := analyzer.NewNotebookAnalyzer(fsys, entry, b.LinkBase, log)
			if err == nil {
				err = a.Analyze(gctx)
			}
			if err != nil {
				log.Error("failed to process notebook", zap.String("path", entry.Rel), zap.Error(err))
				errs[i] = fmt.Errorf("%s: %w", entry.Rel, err)
				return nil
			}
			slots[i] = &a.Function
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Functions: []models.Function{}, Scanned: len(entries), Err: multierr.Combine(errs...)}
	for _, fn := range slots {
		if fn == nil {
			continue
		}
		fn.FileID = strconv.Itoa(len(res.Functions) + 1)
		res.Functions = append(res.Functions, *fn)
	}
	sort.SliceStable(res.Functions, func(i, j int) bool {
		return res.Functions[i].Name < res.Functions[j].Name
	})
	return res, nil
}

// Encode renders the manifest the way the front end has always received it.
func Encode(fns []models.Function) ([]byte, error) {
	if fns == nil {
		fns = []models.Function{}
	}
	return jsonx.MarshalIndent(fns, "  ", true)
}

// Write encodes fns to path, creating the parent directory.
func Write(fsys afero.Fs, path string, fns []models.Function) error {
	data, err := Encode(fns)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
