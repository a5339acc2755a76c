package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"xscrape-backend/lib/configutil"
	"xscrape-backend/lib/telemetry"
	"xscrape-backend/services/scraper"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:     "xscrape",
	Short:   "xscrape extracts profile metadata and recent posts from public profile pages.",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		_, err := telemetry.SetupFromEnv(cmd.Context(), "xscrape")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("telemetry setup failed", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file; a missing file falls back to the
// built-in defaults instead of failing.
func loadConfig() (scraper.Config, error) {
	cfg, err := configutil.ReadConfig[scraper.Config](configPath)
	if errors.Is(err, os.ErrNotExist) {
		return scraper.DefaultConfig(), nil
	}
	if err != nil {
		return scraper.Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}
	return cfg, nil
}

func newService(ctx context.Context, overrides ...func(*scraper.Config)) (*scraper.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(&cfg)
	}
	slog.DebugContext(ctx, "configuration loaded",
		"browser_mode", cfg.Browser.Mode,
		"cache_backend", cfg.Cache.Backend)
	return scraper.FromConfig(cfg)
}
