// Package imports lists the modules imported by each function notebook and
// sorts them into standard library, installed third-party and unknown.
package imports

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/don7panic/nbkit/jsonx"
	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/models"
	"github.com/don7panic/nbkit/notebook"
	"github.com/don7panic/nbkit/pyast"
	"github.com/don7panic/nbkit/scanner"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	// RequirementsComment opens the block prepended by Annotate.
	RequirementsComment = "# List required external packages, must be pyodide built-ins or pure python"
)

var ErrUnknownFormat = errors.New("unknown summary format")

// Summary maps a notebook's slash-separated path, relative to the functions
// directory, to its categorised imports.
type Summary map[string]models.ImportSummary

type Lister struct {
	FS           afero.Fs
	FunctionsDir string
	Resolver     Resolver
	// Annotate prepends a requirements list to the first code cell of
	// notebooks that import third-party packages.
	Annotate bool
	Log      *zap.Logger
}

type Result struct {
	Summary   Summary
	Annotated int
	Err       error
}

type scanned struct {
	entry   scanner.Entry
	nb      *notebook.Notebook
	cell    notebook.Cell
	modules []string
}

func (l *Lister) Run(ctx context.Context) (Result, error) {
	log := logging.OrNop(l.Log)
	fsys := l.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	resolver := l.Resolver
	if resolver == nil {
		resolver = PythonResolver{}
	}

	entries, err := scanner.Walk(fsys, l.FunctionsDir, scanner.NotebookPattern, scanner.Rules{}, log)
	if err != nil {
		return Result{}, err
	}

	res := Result{Summary: Summary{}}
	var files []scanned
	for _, entry := range entries {
		nb, err := notebook.Read(fsys, entry.Path)
		if err != nil {
			log.Warn("skipping notebook", zap.String("path", entry.Rel), zap.Error(err))
			res.Err = multierr.Append(res.Err, err)
			continue
		}
		f := scanned{entry: entry, nb: nb, modules: []string{}}
		if cells := nb.CodeCells(); len(cells) > 0 {
			f.cell = cells[0]
			if f.modules, err = pyast.Imports(ctx, f.cell.Source); err != nil {
				return Result{}, err
			}
		}
		files = append(files, f)
	}

	thirdParty := lo.Uniq(lo.Filter(lo.FlatMap(files, func(f scanned, _ int) []string { return f.modules }),
		func(m string, _ int) bool { return !IsStdlib(m) }))
	importable, err := resolver.Importable(ctx, thirdParty)
	if err != nil {
		log.Warn("cannot resolve third-party modules, reporting them as unknown", zap.Error(err))
		importable = map[string]bool{}
	}

	for _, f := range files {
		summary := Categorize(f.modules, importable)
		res.Summary[f.entry.Rel] = summary

		if !l.Annotate || len(summary.External) == 0 || strings.HasPrefix(f.cell.Source, RequirementsComment) {
			continue
		}
		if err := f.nb.SetSource(f.cell.Index, Requirements(summary.External)+f.cell.Source); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("%s: %w", f.entry.Rel, err))
			continue
		}
		if err := f.nb.Write(fsys, f.entry.Path); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("%s: %w", f.entry.Rel, err))
			continue
		}
		log.Info("annotated requirements", zap.String("path", f.entry.Rel), zap.Strings("external", summary.External))
		res.Annotated++
	}
	return res, nil
}

// Categorize splits sorted module names using the resolver's answers.
func Categorize(modules []string, importable map[string]bool) models.ImportSummary {
	s := models.ImportSummary{BuiltIn: []string{}, External: []string{}, Unknown: []string{}}
	for _, m := range modules {
		switch {
		case IsStdlib(m):
			s.BuiltIn = append(s.BuiltIn, m)
		case importable[m]:
			s.External = append(s.External, m)
		default:
			s.Unknown = append(s.Unknown, m)
		}
	}
	return s
}

// Requirements renders the block prepended to an annotated cell.
func Requirements(external []string) string {
	quoted := lo.Map(external, func(m string, _ int) string { return pyast.Repr(m) })
	return RequirementsComment + "\nrequirements = [" + strings.Join(quoted, ", ") + "]\n\n"
}

// Encode renders the summary as JSON (two-space indent) or YAML.
func Encode(s Summary, format string) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		return jsonx.MarshalIndent(s, "  ", true)
	case FormatYAML:
		return yaml.Marshal(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func Write(fsys afero.Fs, path, format string, s Summary) error {
	data, err := Encode(s, format)
	if err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0644)
}
