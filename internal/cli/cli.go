// Package cli implements the eqgraph command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/internal/config"
	"github.com/matzehuels/eqgraph/pkg/buildinfo"
	"github.com/matzehuels/eqgraph/pkg/cache"
	"github.com/matzehuels/eqgraph/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "eqgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "eqgraph reduces labeled graphs to equivalence-class incidence matrices",
		Long: `eqgraph reads a GraphML graph whose nodes carry an Equivalence tag and a
fill color, groups the nodes into equivalence classes and writes a symmetric
0/1 class incidence matrix plus a class color palette for tiling solvers.`,
		Version:           buildinfo.Get().Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/eqgraph/config.toml)")

	root.AddCommand(c.reduceCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.paletteCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup applies --verbose and loads the configuration file.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "backend", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, c.Logger), nil
}

// newCache builds the configured cache backend. An unreachable redis is
// reported and replaced by a null cache so reductions still run.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	if noCache {
		return cache.NewNullCache(), nil
	}

	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.WithPrefix(cfg.Redis.Prefix))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			c.Logger.Warn("redis unavailable, caching disabled", "addr", cfg.Redis.Addr, "err", err)
			_ = rc.Close()
			return cache.NewNullCache(), nil
		}
		return rc, nil
	case config.BackendFile:
		fc, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", cfg.Dir, err)
		}
		return fc, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// ttl returns the configured cache TTL in pipeline terms: zero in the
// config means no expiry.
func (c *CLI) ttl() time.Duration {
	if c.Config.Cache.TTL.Duration == 0 {
		return -1
	}
	return c.Config.Cache.TTL.Duration
}
