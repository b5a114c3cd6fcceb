package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"techflow-engine/internal/config"
	"techflow-engine/internal/logger"
)

type globalFlags struct {
	dataDir string
	cfgFile string
	debug   bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "TechFlow job engine",
	Long:          "Scrapes job boards, classifies and stores listings and distributes accepted jobs to the configured channels.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// .env is optional
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "engine data directory (default $TECHFLOW_DATA_DIR or ./data)")
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default <data-dir>/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(scrapeCommand())
	rootCmd.AddCommand(nextRunCommand())
	rootCmd.AddCommand(keyringCommand())
	rootCmd.AddCommand(configCommand())
}

// resolveDataDir picks the flag, then the environment, then ./data.
func resolveDataDir() (string, error) {
	dir := strings.TrimSpace(flags.dataDir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv("TECHFLOW_DATA_DIR"))
	}
	if dir == "" {
		dir = "data"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return abs, nil
}

// loadConfig bootstraps the user config if needed, applies the environment
// and validates the result.
func loadConfig(dataDir string) (config.Config, []string, error) {
	path := flags.cfgFile
	if path == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("config bootstrap failed: %w", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	config.ApplyEnv(&cfg)
	if flags.dataDir != "" || cfg.App.DataDir == "" {
		cfg.App.DataDir = dataDir
	}
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return config.Config{}, nil, fmt.Errorf("create data dir: %w", err)
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}

	cfg, vr := config.NormalizeAndValidate(cfg)
	if !vr.OK() {
		return config.Config{}, nil, fmt.Errorf("invalid config %s: %w", path, vr)
	}
	return cfg, vr.Warnings, nil
}

func newLogger(cfg config.Config) (logger.Logger, error) {
	return logger.New(cfg.Logging)
}
