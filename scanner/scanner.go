// Package scanner discovers files under a directory tree and applies the
// exclusion rules shared by the notebook tools.
package scanner

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const NotebookPattern = "**/*.ipynb"

var (
	ErrRootNotFound   = errors.New("scan root does not exist")
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Rules select which matched files are kept.
type Rules struct {
	// SkipUnderscoreDirs drops files below any directory starting with "_".
	SkipUnderscoreDirs bool
	// SkipRootFiles drops files directly inside the scan root.
	SkipRootFiles bool
	// SkipTestFiles drops files whose name starts with "test_".
	SkipTestFiles bool
	// SkipHidden drops files below dot-directories such as .ipynb_checkpoints.
	SkipHidden bool
	// Include, when set, keeps only relative paths matching one of the patterns.
	Include []string
}

// FunctionRules are the rules used when collecting function notebooks.
func FunctionRules() Rules {
	return Rules{
		SkipUnderscoreDirs: true,
		SkipRootFiles:      true,
		SkipTestFiles:      true,
		SkipHidden:         true,
	}
}

type Entry struct {
	// Path is the root-joined path usable with the scanned filesystem.
	Path string
	// Rel is the slash-separated path relative to the root.
	Rel string
	// Dir is the slash-separated parent directory relative to the root, "." at the root.
	Dir  string
	Name string
	Stem string
}

// DirParts returns the components of Dir, empty at the root.
func (e Entry) DirParts() []string {
	if e.Dir == "." || e.Dir == "" {
		return nil
	}
	return strings.Split(e.Dir, "/")
}

// Walk returns the files under root matching pattern, sorted by relative
// path, with rules applied. Skipped files are logged with the reason.
func Walk(fsys afero.Fs, root, pattern string, rules Rules, log *zap.Logger) ([]Entry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, p := range append([]string{pattern}, rules.Include...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	ok, err := afero.DirExists(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	rooted := afero.NewIOFS(afero.NewBasePathFs(fsys, root))
	matches, err := doublestar.Glob(rooted, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, root, err)
	}
	sort.Strings(matches)

	entries := make([]Entry, 0, len(matches))
	for _, rel := range matches {
		if reason := rules.skipReason(rel); reason != "" {
			log.Debug("skipping file", zap.String("path", rel), zap.String("reason", reason))
			continue
		}
		name := path.Base(rel)
		entries = append(entries, Entry{
			Path: filepath.Join(root, filepath.FromSlash(rel)),
			Rel:  rel,
			Dir:  path.Dir(rel),
			Name: name,
			Stem: strings.TrimSuffix(name, path.Ext(name)),
		})
	}
	return entries, nil
}

func (r Rules) skipReason(rel string) string {
	parts := strings.Split(rel, "/")
	dirs, name := parts[:len(parts)-1], parts[len(parts)-1]

	if r.SkipHidden {
		for _, p := range parts {
			if strings.HasPrefix(p, ".") {
				return "hidden path"
			}
		}
	}
	if r.SkipUnderscoreDirs {
		for _, d := range dirs {
			if strings.HasPrefix(d, "_") {
				return "underscore folder"
			}
		}
	}
	if r.SkipRootFiles && len(dirs) == 0 {
		return "root file"
	}
	if r.SkipTestFiles && strings.HasPrefix(name, "test_") {
		return "test notebook"
	}
	if len(r.Include) > 0 {
		for _, p := range r.Include {
			if ok, _ := doublestar.Match(p, rel); ok {
				return ""
			}
		}
		return "not included"
	}
	return ""
}
