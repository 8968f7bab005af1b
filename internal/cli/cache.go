package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/cache"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download cache",
		Long:  "Clean, inspect and locate the download cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached downloads",
		Long:  "Delete every cached file to free up disk space",
		RunE:  runCacheClean,
	}
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the cache location, size and file count",
		RunE:  runCacheInfo,
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		RunE:  runCacheDir,
	}
}

func cacheManager() (*cache.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dir := cfg.GetCacheDir(); dir != "" {
		return cache.NewManager(dir), nil
	}
	return cache.NewDefaultManager()
}

func runCacheClean(*cobra.Command, []string) error {
	manager, err := cacheManager()
	if err != nil {
		return err
	}

	freed, err := manager.Clean()
	if err != nil {
		return err
	}

	logger.Info("cache cleaned", logger.Fields{"freed": humanize.Bytes(uint64(freed))})
	return nil
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	manager, err := cacheManager()
	if err != nil {
		return err
	}

	info, err := manager.GetInfo()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache Directory: %s\n", info.Directory)
	fmt.Fprintf(cmd.OutOrStdout(), "Total Size: %s\n", humanize.Bytes(uint64(info.TotalSize)))
	fmt.Fprintf(cmd.OutOrStdout(), "Files: %d\n", info.Files)
	return nil
}

func runCacheDir(cmd *cobra.Command, _ []string) error {
	manager, err := cacheManager()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), manager.Directory())
	return nil
}
