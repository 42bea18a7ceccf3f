package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestRunSafelyRecoversPanic(t *testing.T) {
	color.NoColor = true
	var errOut bytes.Buffer
	code := runSafely(nil, func([]string) int { panic("boom") }, &errOut)
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "panic recovered: boom") {
		t.Errorf("Expected panic message, got %q", errOut.String())
	}
}

func TestRunSafelyPassesExitCode(t *testing.T) {
	code := runSafely(nil, func([]string) int { return 3 }, &bytes.Buffer{})
	if code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	if code := run([]string{"--help"}); code != 0 {
		t.Errorf("Expected --help to succeed, got %d", code)
	}
}
