package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a scripted chatbot engine",
	Long: `Parley answers chat messages from a scripted dialogue tree, then falls back
to keyword intents once the script is over. The script lives in three JSON or
YAML documents inside the catalog directory.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "", "Catalog directory (default $PARLEY_CATALOG_DIR or .)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup reads the environment, applies the persistent flags on top and
// builds the logger. Logs always go to Stderr.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.CatalogDir, _ = flags.GetString("dir")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger := logging.NewWithFormat(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	return cfg, logger, nil
}

func newLoader(cfg config.Config, logger *slog.Logger) *file.Loader {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(cfg.CatalogDir, name)
	}
	return file.NewLoader(resolve(cfg.DialogueFile), resolve(cfg.GatedFile), resolve(cfg.UngatedFile), file.WithLogger(logger))
}

// engineOptions maps the configuration to engine options shared by every command.
func engineOptions(cfg config.Config, logger *slog.Logger) []parley.Option {
	return []parley.Option{
		parley.WithLoader(newLoader(cfg, logger)),
		parley.WithLogger(logger),
		parley.WithEntryNode(cfg.EntryNode),
		parley.WithFallbackMessage(cfg.FallbackMessage),
		parley.WithGreeting(cfg.Greeting),
		parley.WithDegradedMode(cfg.Degraded),
		parley.WithMaxInputSize(cfg.MaxInputSize),
	}
}
