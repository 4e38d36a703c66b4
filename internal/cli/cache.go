package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/internal/config"
	"github.com/matzehuels/eqgraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reduction cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached reductions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cc.Close()

			clr, ok := cc.(cache.Clearer)
			if !ok {
				printInfo("Cache backend %s cannot be cleared", c.Config.Cache.Backend)
				return nil
			}
			n, err := clr.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", n)
			printDetail("%s", cacheLocation(c.Config))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached reductions are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(cacheLocation(c.Config))
			return nil
		},
	}
}

func cacheLocation(cfg *config.Config) string {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		return fmt.Sprintf("redis://%s/%d (prefix %s)", cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	case config.BackendNone:
		return "(caching disabled)"
	}
	return cfg.Cache.Dir
}
