package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nixtools/pypiup/pkg/config"
	"github.com/nixtools/pypiup/pkg/inventory"
	"github.com/nixtools/pypiup/pkg/registry"
	"github.com/nixtools/pypiup/pkg/resolve"
	"github.com/nixtools/pypiup/pkg/update"
)

// checkOpts holds the command-line flags for the check command. Unset flags
// defer to the loaded configuration.
type checkOpts struct {
	target         string // semver bound: major, minor, patch
	inventoryPath  string // listing file location
	nixpkgs        string // nix-env expression path
	pre            bool   // allow pre-release candidates
	workers        int    // concurrent checks
	cacheBackend   string // none, file, redis
	output         string // report file (stdout if empty)
	reuseInventory bool   // skip regeneration when the listing exists
}

// newCheckCmd creates the check command: the concurrent update check over a
// list of package paths.
func newCheckCmd() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check [package-path...]",
		Short: "Report newer PyPI releases for the given package declarations",
		Long: `Check each package path for a newer PyPI release.

Paths name a declaration file or a directory containing default.nix. When
stdin is not a terminal, additional paths are read from it, one per
whitespace-separated token, so the command composes with grep:

  grep -rl ./nixpkgs -e buildPython | grep default | pypiup check

Before checking, the build-identifier inventory is regenerated with
nix-env -qa unless --reuse-inventory finds an existing listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "semver bound: major, minor, or patch (default from config)")
	cmd.Flags().StringVar(&opts.inventoryPath, "inventory", "", "inventory listing path (default from config)")
	cmd.Flags().StringVar(&opts.nixpkgs, "nixpkgs", "", "nixpkgs expression path passed to nix-env")
	cmd.Flags().BoolVar(&opts.pre, "pre", false, "allow pre-release versions as candidates")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent package checks (default from config)")
	cmd.Flags().StringVar(&opts.cacheBackend, "cache", "", "registry response cache: none, file, or redis")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "report file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.reuseInventory, "reuse-inventory", false, "reuse an existing inventory listing instead of regenerating it")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOpts, args []string) error {
	ctx := cmd.Context()
	cfg := configFromContext(ctx)
	applyCheckFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Tag every line of this run so interleaved batches stay separable.
	logger := loggerFromContext(ctx).With("run", uuid.NewString()[:8])

	target, err := resolve.ParseTarget(cfg.Target)
	if err != nil {
		return err
	}

	paths, err := collectPackages(args, os.Stdin)
	if err != nil {
		return err
	}

	listing, err := loadInventory(cmd, cfg, opts.reuseInventory)
	if err != nil {
		return err
	}

	backend, err := newCacheBackend(cmd, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	client := registry.NewClient(cfg.IndexURL, cfg.ProjectURL, backend)
	checker := update.NewChecker(client, listing, target, cfg.Prereleases, cfg.Workers, logger)

	// Open the report destination first; a bad --output path must not cost
	// a full batch of registry calls.
	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	logger.Info("checking packages", "count", len(paths), "target", target, "workers", cfg.Workers)
	prog := newProgress(logger)
	outcomes, result := checker.Run(ctx, paths)

	for _, o := range outcomes {
		if o.Status == update.StatusUpdated {
			fmt.Fprintln(out, o.Update.Line())
		}
	}

	prog.done(fmt.Sprintf("checked %d packages, %d updated", result.Checked, result.Updated))
	if failed := len(paths) - result.Checked; failed > 0 {
		printWarning("%d packages failed, see the log above", failed)
	}
	printSuccess("checked %d packages, %d updated", result.Checked, result.Updated)
	return nil
}

// applyCheckFlags overlays explicitly set flags onto the loaded config.
func applyCheckFlags(cmd *cobra.Command, opts *checkOpts, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.Target = opts.target
	}
	if flags.Changed("inventory") {
		cfg.InventoryPath = opts.inventoryPath
	}
	if flags.Changed("nixpkgs") {
		cfg.Nixpkgs = opts.nixpkgs
	}
	if flags.Changed("pre") {
		cfg.Prereleases = opts.pre
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("cache") {
		cfg.CacheBackend = opts.cacheBackend
	}
}

// collectPackages assembles the package list from positional arguments plus
// stdin when it is not a terminal, and makes every path absolute.
func collectPackages(args []string, stdin *os.File) ([]string, error) {
	paths := append([]string(nil), args...)

	if !isatty.IsTerminal(stdin.Fd()) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read package paths from stdin: %w", err)
		}
		paths = append(paths, strings.Fields(string(data))...)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no package paths given; list them as arguments or pipe them to stdin")
	}

	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		paths[i] = abs
	}
	return paths, nil
}

// loadInventory regenerates the listing via nix-env unless reuse is
// requested and a listing already exists, then loads it.
func loadInventory(cmd *cobra.Command, cfg *config.Config, reuse bool) (*inventory.Listing, error) {
	logger := loggerFromContext(cmd.Context())

	if reuse {
		if _, err := os.Stat(cfg.InventoryPath); err == nil {
			logger.Info("reusing inventory listing", "path", cfg.InventoryPath)
			return inventory.Load(cfg.InventoryPath)
		}
		logger.Info("no existing inventory listing, generating", "path", cfg.InventoryPath)
	}

	logger.Info("generating inventory listing", "path", cfg.InventoryPath)
	if err := inventory.Generate(cmd.Context(), cfg.Nixpkgs, cfg.InventoryPath); err != nil {
		return nil, err
	}
	return inventory.Load(cfg.InventoryPath)
}

// nopCloser makes os.Stdout usable as an io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns the report destination: the file at path, or stdout
// when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
