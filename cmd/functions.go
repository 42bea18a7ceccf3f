package cmd

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/don7panic/nbkit/demos"
	"github.com/don7panic/nbkit/imports"
	"github.com/don7panic/nbkit/manifest"
	"github.com/don7panic/nbkit/ui"
)

func newManifestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Generate example_functions.json from the function notebooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := &manifest.Builder{
				FS:           a.fs,
				NotebooksDir: a.cfg.NotebooksPath(),
				LinkBase:     a.cfg.LinkBaseURL,
				Workers:      a.cfg.Workers,
				Log:          a.log,
			}
			res, err := b.Build(cmd.Context())
			if err != nil {
				return err
			}
			out := a.cfg.ManifestPath()
			if err := manifest.Write(a.fs, out, res.Functions); err != nil {
				return err
			}
			printFailures(cmd.ErrOrStderr(), res.Err)
			ui.Successf(cmd.OutOrStdout(), "Generated %s with %d functions", out, len(res.Functions))
			return nil
		},
	}
}

func newDemosCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demos",
		Short: "Generate the Gradio Lite demo page from functions/**/gradio_*.py",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := &demos.Generator{FS: a.fs, FunctionsDir: a.cfg.FunctionsPath(), Log: a.log}
			bundles, err := g.Collect()
			if err != nil {
				return err
			}
			out := a.cfg.DemosPath()
			if err := demos.Write(a.fs, out, a.cfg.DemoComponentImport, bundles); err != nil {
				return err
			}
			ui.Successf(cmd.OutOrStdout(), "Wrote Gradio Lite demos MDX to %s", out)
			return nil
		},
	}
}

func newImportsCmd(a *app) *cobra.Command {
	var (
		annotate bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List and categorise the imports of each function notebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := &imports.Lister{
				FS:           a.fs,
				FunctionsDir: a.cfg.FunctionsPath(),
				Resolver:     imports.PythonResolver{Python: a.cfg.Python},
				Annotate:     annotate,
				Log:          a.log,
			}
			res, err := l.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := a.cfg.SummaryPath()
			if format == imports.FormatYAML && filepath.Ext(out) == ".json" {
				out = strings.TrimSuffix(out, ".json") + ".yaml"
			}
			if err := imports.Write(a.fs, out, format, res.Summary); err != nil {
				return err
			}
			printFailures(cmd.ErrOrStderr(), res.Err)
			if annotate {
				ui.Infof(cmd.OutOrStdout(), "Annotated %d notebooks with requirements", res.Annotated)
			}
			ui.Successf(cmd.OutOrStdout(), "Import summary written to %s", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&annotate, "annotate", false, "prepend the external requirements list to the first code cell")
	cmd.Flags().StringVar(&format, "format", imports.FormatJSON, "summary format: json or yaml")
	return cmd
}

// printFailures lists per-file failures of a batch that still completed.
func printFailures(w io.Writer, err error) {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return
	}
	ui.Warningf(w, "%d files failed", len(errs))
	for _, e := range errs {
		ui.Errorf(w, "%v", e)
	}
}
