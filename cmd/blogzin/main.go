package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/blogzin/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs after the root pre-run.
type app struct {
	configPath string
	envFile    string
	cfg        config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "blogzin",
		Short:        "Blogzin turns random trivia into short blog posts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" || cmd.Name() == "update" {
				return nil
			}
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a dotenv file with API keys")

	root.AddCommand(
		newServeCommand(a),
		newGenerateCommand(a),
		newPostsCommand(a),
		newCategoriesCommand(a),
		newVersionCommand(),
		newUpdateCommand(),
	)
	return root
}

func (a *app) load() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	setupLogger(cfg.Logging)
	return nil
}

// setupLogger installs the default slog logger. Without an explicit format,
// terminals get text and everything else gets JSON.
func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
		if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Blogzin %s (built %s)\n", version, buildTime)
		},
	}
}
