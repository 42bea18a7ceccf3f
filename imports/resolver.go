package imports

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

//go:embed stdlib.txt
var stdlibList string

var stdlib = func() map[string]bool {
	names := map[string]bool{}
	for _, line := range strings.Split(stdlibList, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names[line] = true
		}
	}
	return names
}()

// IsStdlib reports whether module is part of the Python standard library
// or compiled into the interpreter.
func IsStdlib(module string) bool {
	return stdlib[module]
}

var ErrResolver = errors.New("module resolver failed")

// Resolver decides which third-party modules are importable.
type Resolver interface {
	Importable(ctx context.Context, modules []string) (map[string]bool, error)
}

const findSpecScript = `import importlib.util, json, sys
out = {}
for name in sys.argv[1:]:
    try:
        out[name] = importlib.util.find_spec(name) is not None
    except Exception:
        out[name] = False
print(json.dumps(out))
`

// PythonResolver asks a Python interpreter, once per batch, whether each
// module can be found on its import path.
type PythonResolver struct {
	Python string
}

func (r PythonResolver) Importable(ctx context.Context, modules []string) (map[string]bool, error) {
	if len(modules) == 0 {
		return map[string]bool{}, nil
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}

	args := append([]string{"-c", findSpecScript}, modules...)
	cmd := exec.CommandContext(ctx, python, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrResolver, python, err, strings.TrimSpace(stderr.String()))
	}

	found := map[string]bool{}
	if err := json.Unmarshal(stdout.Bytes(), &found); err != nil {
		return nil, fmt.Errorf("%w: decode output: %v", ErrResolver, err)
	}
	return found, nil
}

// StaticResolver treats exactly the listed modules as importable.
type StaticResolver map[string]bool

func (r StaticResolver) Importable(_ context.Context, modules []string) (map[string]bool, error) {
	found := make(map[string]bool, len(modules))
	for _, m := range modules {
		found[m] = r[m]
	}
	return found, nil
}
