package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nixtools/pypiup/pkg/cache"
	"github.com/nixtools/pypiup/pkg/config"
)

// newCacheBackend builds the configured registry cache. The null backend
// keeps the single-call-per-package contract; file and redis are opt-in.
func newCacheBackend(cmd *cobra.Command, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheFile:
		return cache.NewFile(filepath.Join(cfg.CacheDir, "registry"))
	case config.CacheRedis:
		return cache.NewRedis(cmd.Context(), cfg.RedisAddr)
	default:
		return cache.NewNull(), nil
	}
}

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry response cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCachePathCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached registry responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(configFromContext(cmd.Context()).CacheDir, "registry")

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir || info.IsDir() {
					return nil
				}
				if err := os.Remove(path); err == nil {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Sweep now-empty subdirectories.
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if info.IsDir() {
					os.Remove(path)
				}
				return nil
			})

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(filepath.Join(configFromContext(cmd.Context()).CacheDir, "registry"))
			return nil
		},
	}
}
