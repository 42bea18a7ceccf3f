// Package analyzer extracts function metadata and demo test cases from a
// function notebook.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/models"
	"github.com/don7panic/nbkit/notebook"
	"github.com/don7panic/nbkit/pyast"
	"github.com/don7panic/nbkit/scanner"
)

const (
	// DemoCasesVar holds the demo cases written for the notebook tests.
	DemoCasesVar = "demo_cases"
	// ExamplesVar is the Gradio examples list in the demo cell.
	ExamplesVar = "examples"
	// ExpectedOutputKey marks the expected result in a dict demo case.
	ExpectedOutputKey = "expected_output"

	// gradioCell is the code cell index holding the Gradio interface.
	gradioCell = 2
	// anonymousFunction names the case ids of a notebook without a def.
	anonymousFunction = "function"
)

var (
	ErrNoCodeCells = errors.New("no code cells found")
	ErrCaseShape   = errors.New("demo case does not match the function signature")
)

type NotebookAnalyzer struct {
	Entry    scanner.Entry
	Notebook *notebook.Notebook
	LinkBase string
	Function models.Function
	log      *zap.Logger
}

func NewNotebookAnalyzer(fsys afero.Fs, entry scanner.Entry, linkBase string, log *zap.Logger) (*NotebookAnalyzer, error) {
	nb, err := notebook.Read(fsys, entry.Path)
	if err != nil {
		return nil, err
	}
	return &NotebookAnalyzer{
		Entry:    entry,
		Notebook: nb,
		LinkBase: linkBase,
		log:      logging.OrNop(log).With(zap.String("path", entry.Rel)),
	}, nil
}

// Analyze fills a.Function. The first code cell holds the function; demo
// cases come from a demo_cases assignment in a later cell, or else from the
// first Gradio example in the third code cell.
func (a *NotebookAnalyzer) Analyze(ctx context.Context) error {
	cells := a.Notebook.CodeCells()
	if len(cells) == 0 {
		return fmt.Errorf("%s: %w", a.Entry.Rel, ErrNoCodeCells)
	}

	main := cells[0].Source
	fn := a.visitFunctionCell(ctx, main)

	name, caseName := fn.Name, fn.Name
	if name == "" {
		name, caseName = a.Entry.Stem, anonymousFunction
	}
	link, folder := a.linkAndFolder(name)

	a.Function = models.Function{
		Name:        name,
		Description: pyast.FirstLine(fn.Docstring),
		Docstring:   fn.Docstring,
		Code:        main,
		TestCases:   a.visitDemoCells(ctx, cells, caseName, fn.Parameters),
		Link:        link,
		Folder:      folder,
		Parameters:  fn.Parameters,
		SourcePath:  a.Entry.Rel,
	}
	return nil
}

func (a *NotebookAnalyzer) visitFunctionCell(ctx context.Context, src string) pyast.Function {
	fn, err := pyast.ParseFunction(ctx, src)
	if err != nil {
		a.log.Warn("could not read function signature", zap.Error(err))
		return pyast.Function{Parameters: []string{}}
	}
	return fn
}

func (a *NotebookAnalyzer) visitDemoCells(ctx context.Context, cells []notebook.Cell, name string, params []string) []models.TestCase {
	for _, cell := range cells[1:] {
		if !strings.Contains(cell.Source, DemoCasesVar) {
			continue
		}
		value, err := pyast.FindAssignment(ctx, pyast.BlankMagics(cell.Source), DemoCasesVar)
		if err != nil {
			if !errors.Is(err, pyast.ErrNotFound) {
				a.log.Warn("could not read demo cases", zap.Int("cell", cell.Index), zap.Error(err))
			}
			continue
		}
		if !value.IsSequence() {
			a.log.Warn("demo_cases is not a list", zap.Int("cell", cell.Index), zap.Stringer("type", value.Kind))
			return []models.TestCase{}
		}
		return a.buildCases(name, params, value.Items)
	}

	if len(cells) <= gradioCell {
		return []models.TestCase{}
	}
	example, ok := a.visitGradioCell(ctx, cells[gradioCell])
	if !ok {
		return []models.TestCase{}
	}
	return a.buildCases(name, params, []pyast.Value{example})
}

// visitGradioCell returns the first entry of the examples list, or the
// examples value itself when it is non-empty and not a list.
func (a *NotebookAnalyzer) visitGradioCell(ctx context.Context, cell notebook.Cell) (pyast.Value, bool) {
	examples, err := pyast.FindAssignment(ctx, pyast.BlankMagics(cell.Source), ExamplesVar)
	if err != nil {
		if !errors.Is(err, pyast.ErrNotFound) {
			a.log.Warn("could not read gradio examples", zap.Int("cell", cell.Index), zap.Error(err))
		}
		return pyast.Value{}, false
	}
	if examples.IsSequence() {
		if len(examples.Items) == 0 {
			return pyast.Value{}, false
		}
		return examples.Items[0], true
	}
	return examples, examples.Truthy()
}

func (a *NotebookAnalyzer) buildCases(name string, params []string, examples []pyast.Value) []models.TestCase {
	cases := []models.TestCase{}
	for i, example := range examples {
		tc, err := buildCase(params, example)
		if err != nil {
			a.log.Warn("dropping demo case", zap.Int("case", i+1), zap.Error(err))
			continue
		}
		n := len(cases) + 1
		tc.ID = fmt.Sprintf("test_%s_%d", name, n)
		tc.Description = fmt.Sprintf("Demo example %d", n)
		tc.Demo = true
		cases = append(cases, tc)
	}
	return cases
}

// buildCase maps one example onto the parameters. Accepted shapes are a
// positional list or tuple of exactly len(params) values, optionally
// followed by the expected output; or a dict keyed by exactly the
// parameter names plus an optional expected_output.
func buildCase(params []string, example pyast.Value) (models.TestCase, error) {
	var (
		values   []pyast.Value
		expected *pyast.Value
	)

	switch {
	case example.IsSequence():
		switch len(example.Items) {
		case len(params):
			values = example.Items
		case len(params) + 1:
			values = example.Items[:len(params)]
			expected = &example.Items[len(params)]
		default:
			return models.TestCase{}, fmt.Errorf("%w: %d values for %d parameters", ErrCaseShape, len(example.Items), len(params))
		}

	case example.Kind == pyast.Dict:
		if exp, ok := example.Lookup(ExpectedOutputKey); ok {
			expected = &exp
		}
		want := len(params)
		if expected != nil {
			want++
		}
		if len(example.Keys) != want {
			return models.TestCase{}, fmt.Errorf("%w: keys do not match parameters %v", ErrCaseShape, params)
		}
		for _, p := range params {
			v, ok := example.Lookup(p)
			if !ok {
				return models.TestCase{}, fmt.Errorf("%w: missing argument %q", ErrCaseShape, p)
			}
			values = append(values, v)
		}

	default:
		return models.TestCase{}, fmt.Errorf("%w: unsupported example type %s", ErrCaseShape, example.Kind)
	}

	tc := models.TestCase{Arguments: models.Arguments{}}
	for i, p := range params {
		raw, err := json.Marshal(values[i])
		if err != nil {
			return models.TestCase{}, fmt.Errorf("argument %q: %w", p, err)
		}
		tc.Arguments = append(tc.Arguments, models.Argument{Name: p, Value: raw})
	}
	if expected != nil {
		raw, err := json.Marshal(*expected)
		if err != nil {
			return models.TestCase{}, fmt.Errorf("expected output: %w", err)
		}
		tc.ExpectedOutput = raw
	}
	return tc, nil
}

// linkAndFolder derives the documentation link and folder. A notebook that
// sits in a directory of its own name is addressed by the directory.
func (a *NotebookAnalyzer) linkAndFolder(name string) (string, string) {
	parts := a.Entry.DirParts()
	parent := ""
	if len(parts) > 0 {
		parent = parts[len(parts)-1]
	}

	var linkPath string
	switch {
	case len(parts) == 0:
		linkPath = name
	case parent == a.Entry.Stem:
		linkPath = a.Entry.Dir
	default:
		linkPath = a.Entry.Dir + "/" + name
	}

	folder := ""
	switch {
	case parent == a.Entry.Stem && len(parts) > 1:
		folder = parts[len(parts)-2]
	case len(parts) > 0:
		folder = parent
	}

	return strings.TrimRight(a.LinkBase, "/") + "/" + linkPath, folder
}
