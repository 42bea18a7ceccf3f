package main

import (
	"io"
	"os"
	"runtime/debug"

	"github.com/don7panic/nbkit/cmd"
	"github.com/don7panic/nbkit/ui"
)

var version = "dev"

func main() {
	exitCode := runSafely(os.Args[1:], run, os.Stderr)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func runSafely(args []string, runner func([]string) int, errWriter io.Writer) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			ui.Errorf(errWriter, "panic recovered: %v\n%s", r, debug.Stack())
			exitCode = 1
		}
	}()
	return runner(args)
}

func run(args []string) int {
	root := cmd.NewRootCmd(version)
	root.SetArgs(args)
	if err := cmd.Execute(root); err != nil {
		ui.Errorf(root.ErrOrStderr(), "%v", err)
		return 1
	}
	return 0
}

