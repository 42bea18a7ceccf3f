// Package site runs the whole build: notebooks are copied into the site's
// content tree, the manifest and demo page are regenerated and the
// external site builder is invoked.
package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/demos"
	"github.com/don7panic/nbkit/logging"
	"github.com/don7panic/nbkit/manifest"
	"github.com/don7panic/nbkit/transform"
)

// ErrBuildFailed means the external site builder could not run or exited
// non-zero. The pipeline stops there.
var ErrBuildFailed = errors.New("site build failed")

type Pipeline struct {
	FS afero.Fs

	NotebooksDir string
	ContentDir   string
	ManifestPath string
	LinkBase     string
	Workers      int

	FunctionsDir    string
	DemosPath       string
	ComponentImport string

	// Command is the site builder argv, run in Dir. Empty skips the step.
	Command []string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer

	Log *zap.Logger
}

type Summary struct {
	Copied    transform.Report
	Functions int
	Demos     int
	Built     bool
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	log := logging.OrNop(p.Log)
	fsys := p.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	var sum Summary

	copier := &transform.Copier{
		Runner: transform.Runner{FS: fsys, Log: log},
		Src:    p.NotebooksDir,
		Dst:    p.ContentDir,
		Strip:  transform.StripOptions{RemoveInstalls: true, ClearOutputs: true},
	}
	report, err := copier.Run(ctx)
	if err != nil {
		return sum, fmt.Errorf("copy notebooks: %w", err)
	}
	sum.Copied = report
	log.Info("copied notebooks", zap.String("to", p.ContentDir), zap.Stringer("report", report))

	builder := &manifest.Builder{FS: fsys, NotebooksDir: p.NotebooksDir, LinkBase: p.LinkBase, Workers: p.Workers, Log: log}
	res, err := builder.Build(ctx)
	if err != nil {
		return sum, fmt.Errorf("build manifest: %w", err)
	}
	if err := manifest.Write(fsys, p.ManifestPath, res.Functions); err != nil {
		return sum, err
	}
	sum.Functions = len(res.Functions)
	log.Info("wrote manifest", zap.String("path", p.ManifestPath), zap.Int("functions", sum.Functions))

	if ok, _ := afero.DirExists(fsys, p.FunctionsDir); ok {
		gen := &demos.Generator{FS: fsys, FunctionsDir: p.FunctionsDir, Log: log}
		bundles, err := gen.Collect()
		if err != nil {
			return sum, fmt.Errorf("collect demos: %w", err)
		}
		if err := demos.Write(fsys, p.DemosPath, p.ComponentImport, bundles); err != nil {
			return sum, err
		}
		sum.Demos = len(bundles)
	} else {
		log.Debug("no functions directory, skipping demos", zap.String("path", p.FunctionsDir))
	}

	if len(p.Command) == 0 {
		return sum, nil
	}
	if err := p.build(ctx, log); err != nil {
		return sum, err
	}
	sum.Built = true
	return sum, nil
}

func (p *Pipeline) build(ctx context.Context, log *zap.Logger) error {
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Dir = p.Dir
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	log.Info("running site build", zap.String("command", strings.Join(p.Command, " ")), zap.String("dir", p.Dir))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBuildFailed, strings.Join(p.Command, " "), err)
	}
	return nil
}
