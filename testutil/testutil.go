// Package testutil holds helpers for tests of notebook functions: loading
// .env files, exposing the cached id token and running demo cases as
// subtests.
package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/subosito/gotenv"

	"github.com/don7panic/nbkit/auth"
	"github.com/don7panic/nbkit/models"
)

// IDTokenEnv is the variable InjectIDToken exports by default.
const IDTokenEnv = "ID_TOKEN"

// LoadEnv loads the given .env files, ".env" when none are given. Files
// that do not exist are ignored and variables already set are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := gotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// InjectIDToken exports the first id token of the token cache as envKey
// and returns it. A missing cache or one without id tokens yields "".
func InjectIDToken(cachePath, envKey string) (string, error) {
	if cachePath == "" {
		cachePath = auth.DefaultCachePath
	}
	if envKey == "" {
		envKey = IDTokenEnv
	}
	token, err := auth.IDTokenFromCache(afero.NewOsFs(), cachePath)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, auth.ErrNoIDToken) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := os.Setenv(envKey, token); err != nil {
		return "", err
	}
	return token, nil
}

// LoadTestCases reads a test_cases.json file.
func LoadTestCases(path string) ([]models.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []models.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cases, nil
}

// CaseName is the subtest name for the i-th case.
func CaseName(tc models.TestCase, i int) string {
	if tc.ID != "" {
		return tc.ID
	}
	return fmt.Sprintf("test_case_%d", i)
}

// RunCases runs fn as one subtest per case.
func RunCases(t *testing.T, cases []models.TestCase, fn func(t *testing.T, tc models.TestCase)) {
	t.Helper()
	for i, tc := range cases {
		t.Run(CaseName(tc, i), func(t *testing.T) {
			fn(t, tc)
		})
	}
}
