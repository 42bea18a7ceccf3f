// Package demos renders the Gradio Lite demo page for the functions tree.
package demos

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/jsonx"
	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/models"
	"github.com/don7panic/nbkit/scanner"
)

const (
	DemoPattern            = "**/gradio_*.py"
	TestCasesFile          = "test_cases.json"
	DefaultComponentImport = "../../../components/GradioLiteDemo.jsx"
)

const page = `import GradioLiteDemo from "{{ .Import }}"

# Demos

{{ range .Sections }}## {{ .Name }}
{{ range .Bundles }}### {{ upper .Function }}

<GradioLiteDemo files={ {{ filesJSON .Files }} } />
{{ end }}{{ end }}`

var pageTemplate = template.Must(template.New("demos").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"filesJSON": filesJSON}).
	Parse(page))

type section struct {
	Name    string
	Bundles []models.DemoBundle
}

type Generator struct {
	FS           afero.Fs
	FunctionsDir string
	Log          *zap.Logger
}

// Collect finds every gradio_*.py demo and bundles it with the function
// implementation and test cases that sit next to it. A demo whose files
// cannot be read is logged and left out.
func (g *Generator) Collect() ([]models.DemoBundle, error) {
	log := logging.OrNop(g.Log)
	fsys := g.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	rules := scanner.Rules{SkipRootFiles: true, SkipHidden: true}
	entries, err := scanner.Walk(fsys, g.FunctionsDir, DemoPattern, rules, log)
	if err != nil {
		return nil, err
	}

	bundles := make([]models.DemoBundle, 0, len(entries))
	for _, entry := range entries {
		parts := entry.DirParts()
		function := parts[len(parts)-1]
		parent := filepath.Base(filepath.Clean(g.FunctionsDir))
		if len(parts) > 1 {
			parent = parts[len(parts)-2]
		}

		files, err := g.bundleFiles(fsys, entry, function)
		if err != nil {
			log.Warn("skipping demo", zap.String("path", entry.Rel), zap.Error(err))
			continue
		}
		bundles = append(bundles, models.DemoBundle{
			Section:  Capitalize(parent),
			Function: function,
			Files:    files,
		})
	}
	return bundles, nil
}

func (g *Generator) bundleFiles(fsys afero.Fs, entry scanner.Entry, function string) ([]models.DemoFile, error) {
	dir := filepath.Dir(entry.Path)
	content, err := afero.ReadFile(fsys, entry.Path)
	if err != nil {
		return nil, err
	}
	files := []models.DemoFile{{Name: entry.Name, Content: string(content), Entrypoint: true}}

	for _, name := range []string{function + ".py", TestCasesFile} {
		p := filepath.Join(dir, name)
		ok, err := afero.Exists(fsys, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		content, err := afero.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		files = append(files, models.DemoFile{Name: name, Content: string(content)})
	}
	return files, nil
}

// Render writes the MDX page. Sections are sorted by name and bundles by
// function name within a section.
func Render(w io.Writer, componentImport string, bundles []models.DemoBundle) error {
	if componentImport == "" {
		componentImport = DefaultComponentImport
	}

	grouped := lo.GroupBy(bundles, func(b models.DemoBundle) string { return b.Section })
	names := lo.Keys(grouped)
	sort.Strings(names)

	sections := make([]section, 0, len(names))
	for _, name := range names {
		list := grouped[name]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Function < list[j].Function })
		sections = append(sections, section{Name: name, Bundles: list})
	}

	return pageTemplate.Execute(w, struct {
		Import   string
		Sections []section
	}{componentImport, sections})
}

// Write renders bundles to path.
func Write(fsys afero.Fs, path, componentImport string, bundles []models.DemoBundle) error {
	var buf bytes.Buffer
	if err := Render(&buf, componentImport, bundles); err != nil {
		return fmt.Errorf("render demos: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, buf.Bytes(), 0644)
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(s[size:])
}

func filesJSON(files []models.DemoFile) (string, error) {
	data, err := jsonx.MarshalIndent(files, "  ", true)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
