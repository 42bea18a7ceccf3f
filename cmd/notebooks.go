package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/don7panic/nbkit/scanner"
	"github.com/don7panic/nbkit/transform"
	"github.com/don7panic/nbkit/ui"
)

func (a *app) runner() *transform.Runner {
	return &transform.Runner{FS: a.fs, Log: a.log}
}

func (a *app) printReport(cmd *cobra.Command, what string, report transform.Report) {
	printFailures(cmd.ErrOrStderr(), report.Err)
	ui.Successf(cmd.OutOrStdout(), "%s: %s", what, report)
}

func newFixIpytestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-ipytest",
		Short: "Normalise the ipytest install line in each notebook's test cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runner().Dir(cmd.Context(), a.cfg.NotebooksPath(), scanner.Rules{SkipHidden: true}, transform.FixIpytest)
			if err != nil {
				return err
			}
			a.printReport(cmd, "fix-ipytest", report)
			return nil
		},
	}
}

func newCleanDemoCommentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean-demo-comments",
		Short: "Remove comments from demo_cases lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.runner().Dir(cmd.Context(), a.cfg.NotebooksPath(), scanner.Rules{SkipHidden: true}, transform.CleanDemoComments)
			if err != nil {
				return err
			}
			a.printReport(cmd, "clean-demo-comments", report)
			return nil
		},
	}
}

func addStripFlags(flags *pflag.FlagSet, opts *transform.StripOptions) {
	flags.BoolVar(&opts.ClearOutputs, "clear-outputs", false, "clear outputs and execution counts")
	flags.StringSliceVar(&opts.RemoveTags, "remove-tag", nil, "delete cells carrying this tag (repeatable)")
	flags.BoolVar(&opts.RemoveInstalls, "remove-installs", false, "drop %pip and !pip install lines")
	flags.IntVar(&opts.KeepCodeCells, "keep-code", 0, "keep only the first N code cells (0 keeps all)")
}

var errNothingToStrip = errors.New("no strip option given")

func newStripCmd(a *app) *cobra.Command {
	var opts transform.StripOptions
	cmd := &cobra.Command{
		Use:   "strip [PATH...]",
		Short: "Strip notebooks in place",
		Long:  "Strip the given notebooks in place, or every function notebook when no path is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.IsZero() {
				return errNothingToStrip
			}
			var (
				report transform.Report
				err    error
			)
			if len(args) > 0 {
				report, err = a.runner().Files(cmd.Context(), args, transform.Strip(opts))
			} else {
				report, err = a.runner().Dir(cmd.Context(), a.cfg.NotebooksPath(), scanner.FunctionRules(), transform.Strip(opts))
			}
			if err != nil {
				return err
			}
			a.printReport(cmd, "strip", report)
			return nil
		},
	}
	addStripFlags(cmd.Flags(), &opts)
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	var (
		include []string
		opts    transform.StripOptions
	)
	cmd := &cobra.Command{
		Use:   "copy SRC DST",
		Short: "Copy function notebooks to another tree, optionally stripping them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &transform.Copier{
				Runner:  *a.runner(),
				Src:     a.cfg.Path(args[0]),
				Dst:     a.cfg.Path(args[1]),
				Include: include,
				Strip:   opts,
			}
			report, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.printReport(cmd, "copy", report)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "only copy notebooks matching this glob, relative to SRC (repeatable)")
	addStripFlags(cmd.Flags(), &opts)
	return cmd
}
