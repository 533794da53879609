// Command leadsync classifies social pages, authors extraction schemas and
// runs lead syncs against the lead management backend.
//
// Usage:
//
//	leadsync classify https://www.reddit.com/r/golang/
//	leadsync schema import reddit_search_list.json --actor alice
//	leadsync login --email me@example.com --password ...
//	leadsync sync start --campaign 12 --platform reddit
//	leadsync serve --config leadsync.yaml
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/leadsync/config"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "leadsync",
	Short:             "Cross-platform lead extraction and sync",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to leadsync.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c
	logger = newLogger(c.LogLevel, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("leadsync: fatal", "error", err)
		} else {
			rootCmd.PrintErrln("Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
