package cmd

import (
	"github.com/spf13/cobra"

	"github.com/don7panic/nbkit/site"
	"github.com/don7panic/nbkit/ui"
)

func newBuildCmd(a *app) *cobra.Command {
	var skipSite bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Copy notebooks, regenerate the manifest and demos, then build the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := &site.Pipeline{
				FS:              a.fs,
				NotebooksDir:    a.cfg.NotebooksPath(),
				ContentDir:      a.cfg.ContentPath(),
				ManifestPath:    a.cfg.ManifestPath(),
				LinkBase:        a.cfg.LinkBaseURL,
				Workers:         a.cfg.Workers,
				FunctionsDir:    a.cfg.FunctionsPath(),
				DemosPath:       a.cfg.DemosPath(),
				ComponentImport: a.cfg.DemoComponentImport,
				Command:         a.cfg.Site.Command,
				Dir:             a.cfg.SiteDir(),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
				Log:             a.log,
			}
			if skipSite {
				p.Command = nil
			}

			ui.Activityf(cmd.OutOrStdout(), "Building site content")
			sum, err := p.Run(cmd.Context())
			printFailures(cmd.ErrOrStderr(), sum.Copied.Err)
			if err != nil {
				return err
			}
			ui.Successf(cmd.OutOrStdout(), "Copied %d notebooks, %d functions, %d demos", sum.Copied.Changed, sum.Functions, sum.Demos)
			if sum.Built {
				ui.Successf(cmd.OutOrStdout(), "Site build finished")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSite, "skip-site", false, "stop before running the site builder")
	return cmd
}
