package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jchantrell/twmap/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	logLevel   string
	logFormat  string
	dbPath     string
	jobs       int
	verifyData bool
	noProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "twmap",
	Short: "Teeworlds datafile inspection tool",
	Long: `twmap reads Teeworlds datafiles (.map files) and reports on their structure.

Map arguments are local paths or s3://bucket/key URLs. Files are treated as
untrusted: every offset and size in the index is validated before use.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if flags.Changed("database") {
			cfg.Database = dbPath
		}
		if flags.Changed("jobs") {
			cfg.Jobs = jobs
		}
		if flags.Changed("verify-data") {
			cfg.VerifyData = verifyData
		}

		// Flags may have replaced validated values.
		if err := cfg.Validate(); err != nil {
			return err
		}

		setupLogging(cfg.LogLevel, cfg.LogFormat)

		slog.Debug("Configuration",
			"database", cfg.Database,
			"jobs", cfg.Jobs,
			"verify_data", cfg.VerifyData,
			"s3_endpoint", cfg.S3.Endpoint,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

func setupLogging(levelName, format string) {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level: level,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// progressEnabled reports whether a progress bar may be drawn alongside the logs
func progressEnabled() bool {
	return !(noProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is twmap.yaml in home or pwd)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
