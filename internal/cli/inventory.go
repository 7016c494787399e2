package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nixtools/pypiup/pkg/inventory"
)

// newInventoryCmd creates the inventory command, which regenerates the
// build-identifier listing without running a check.
func newInventoryCmd() *cobra.Command {
	var nixpkgs string

	cmd := &cobra.Command{
		Use:   "inventory [path]",
		Short: "Generate the build-identifier listing with nix-env -qa",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			logger := loggerFromContext(cmd.Context())

			path := cfg.InventoryPath
			if len(args) == 1 {
				path = args[0]
			}
			if nixpkgs == "" {
				nixpkgs = cfg.Nixpkgs
			}

			logger.Info("generating inventory listing", "path", path)
			prog := newProgress(logger)
			if err := inventory.Generate(cmd.Context(), nixpkgs, path); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("wrote inventory to %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&nixpkgs, "nixpkgs", "", "nixpkgs expression path passed to nix-env")
	return cmd
}
