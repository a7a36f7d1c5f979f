package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/adaptocr/internal/config"
	"github.com/MeKo-Tech/adaptocr/internal/version"
)

// Commands annotated with lenientConfig run even when the configuration does
// not validate, so that it can be inspected or regenerated.
const lenientConfig = "lenient-config"

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration, loaded before any subcommand runs.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "adaptocr",
	Short: "Adaptive OCR for scanned document batches",
	Long: `adaptocr profiles every page image, decides how aggressively to process it,
runs one or two recognition passes through a pool of Tesseract worker processes,
masks detected redaction bars in the extracted text and reports a status for
every image in the batch.

Examples:
  adaptocr run scans/ --recursive --format json --output results.json
  adaptocr run invoice.pdf --pdf-pages 1-3 --trace trace.jsonl
  adaptocr analyze page.png
  adaptocr config init`,
	Version:           version.String(),
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is adaptocr.yaml in ., $HOME, $XDG_CONFIG_HOME/adaptocr, /etc/adaptocr)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	bindFlags(rootCmd.PersistentFlags(), rootFlagKeys)
}

var rootFlagKeys = map[string]string{
	"verbose":   "verbose",
	"log-level": "log_level",
}

// bindFlags binds each flag to its configuration key on the global viper
// instance.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// initConfig loads the configuration and installs the JSON logger. Logs go
// to stderr: stdout carries results, and for workers the wire protocol.
func initConfig(cmd *cobra.Command, _ []string) error {
	configLoader = config.NewLoader()

	var err error
	if cmd.Annotations[lenientConfig] == "true" {
		globalConfig, err = configLoader.LoadWithoutValidation(cfgFile)
	} else {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	setupLogging(cmd.ErrOrStderr(), globalConfig)
	if used := configLoader.GetConfigFileUsed(); used != "" {
		slog.Debug("Loaded configuration", "file", used)
	}
	return nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return globalConfig
}
