package scanner

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("{}"), 0o644))
	}
}

func rels(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Rel)
	}
	return out
}

func TestWalkFunctionRules(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs,
		"/nb/root.ipynb",
		"/nb/text/ai_ask/ai_ask.ipynb",
		"/nb/text/ai_ask/test_ai_ask.ipynb",
		"/nb/_drafts/x/x.ipynb",
		"/nb/math/_old/y.ipynb",
		"/nb/math/.ipynb_checkpoints/z-checkpoint.ipynb",
		"/nb/math/add.ipynb",
		"/nb/math/notes.txt",
	)

	entries, err := Walk(fs, "/nb", NotebookPattern, FunctionRules(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"math/add.ipynb", "text/ai_ask/ai_ask.ipynb"}, rels(entries))

	e := entries[1]
	assert.Equal(t, "text/ai_ask", e.Dir)
	assert.Equal(t, "ai_ask", e.Stem)
	assert.Equal(t, "ai_ask.ipynb", e.Name)
	assert.Equal(t, []string{"text", "ai_ask"}, e.DirParts())
}

func TestWalkNoRulesKeepsEverything(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/nb/root.ipynb", "/nb/_a/test_b.ipynb")

	entries, err := Walk(fs, "/nb", NotebookPattern, Rules{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"_a/test_b.ipynb", "root.ipynb"}, rels(entries))
	assert.Nil(t, entries[1].DirParts())
}

func TestWalkInclude(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/nb/text/a.ipynb", "/nb/math/b.ipynb")

	rules := FunctionRules()
	rules.Include = []string{"text/**"}
	entries, err := Walk(fs, "/nb", NotebookPattern, rules, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"text/a.ipynb"}, rels(entries))
}

func TestWalkErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Walk(fs, "/missing", NotebookPattern, Rules{}, nil)
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = Walk(fs, "/missing", "[", Rules{}, nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
