// Package cmd wires the nbkit command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/don7panic/nbkit/config"
	"github.com/don7panic/nbkit/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v   *viper.Viper
	fs  afero.Fs
	cfg config.Config
	log *zap.Logger

	configFile string
	verbose    bool
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd(version string) *cobra.Command {
	a := &app{v: config.New(), fs: afero.NewOsFs(), log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:               "nbkit",
		Short:             "Build tooling for the Python function notebooks",
		Long:              "nbkit extracts function metadata from notebooks, generates the site manifest and demo page, and rewrites notebooks before the site build.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.log.Sync() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("root", ".", "project root; relative paths are resolved against it")
	flags.StringVar(&a.configFile, "config", "", "config file (default <root>/nbkit.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	_ = a.v.BindPFlag("root", flags.Lookup("root"))

	cmd.AddCommand(
		newManifestCmd(a),
		newDemosCmd(a),
		newImportsCmd(a),
		newFixIpytestCmd(a),
		newCleanDemoCommentsCmd(a),
		newStripCmd(a),
		newCopyCmd(a),
		newBuildCmd(a),
		newAuthCmd(a),
	)
	return cmd
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.log.Debug("configuration loaded", zap.String("root", cfg.Root), zap.String("config", a.v.ConfigFileUsed()))
	return nil
}

// Execute runs the provided root command.
func Execute(cmd *cobra.Command) error {
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}
