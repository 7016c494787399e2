package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nixtools/pypiup/pkg/buildinfo"
	"github.com/nixtools/pypiup/pkg/config"
)

// Execute runs the pypiup CLI and returns an error if any command fails.
//
// The root command loads the configuration once, builds the logger from the
// --verbose flag, and attaches both to the command context so every
// subcommand sees the same environment.
func Execute(ctx context.Context) error {
	var (
		verbose bool
		cfgPath string
	)

	root := &cobra.Command{
		Use:   "pypiup",
		Short: "pypiup reports available PyPI releases for Nix python packages",
		Long: `pypiup scans Nix build-description files that declare Python packages,
queries PyPI for known releases, and prints one line per package that has a
newer release within the requested semver bound:

  <identifier> <oldVersion> <newVersion> <projectUrl>

Report lines go to stdout; everything else goes to stderr.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(withConfig(cctx, cfg))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML configuration file")

	root.AddCommand(newCheckCmd())
	root.AddCommand(newInventoryCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
