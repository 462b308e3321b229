package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/portalwatch/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portalwatch",
		Short: "Placement portal feed watcher",
		Long: `portalwatch logs into the placement portal, loads the announcement feed,
and stores every post it has not seen before.

Runs stop at the first already-stored post, so repeated runs only
pay for what is new. Stored posts stay pending until marked sent.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// commandContext returns a context bounded by timeout, or just cancellable
// when timeout is zero.
func commandContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("portalwatch %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			password := "(not set)"
			if cfg.Portal.Password != "" {
				password = "********"
			}
			email := cfg.Portal.Email
			if email == "" {
				email = "(not set)"
			}

			t := newTable()
			t.AppendHeader(table.Row{"Section", "Setting", "Value"})
			t.AppendRows([]table.Row{
				{"portal", "url", cfg.Portal.URL},
				{"portal", "email", email},
				{"portal", "password", password},
				{"portal", "success selector", cfg.Portal.SuccessSelector},
				{"portal", "login timeout", cfg.Portal.LoginTimeout},
			})
			t.AppendSeparator()
			remote := cfg.Browser.RemoteURL
			if remote == "" {
				remote = "(local only)"
			}
			t.AppendRows([]table.Row{
				{"browser", "remote url", remote},
				{"browser", "headless", cfg.Browser.Headless},
				{"browser", "stealth", cfg.Browser.Stealth},
				{"browser", "window", fmt.Sprintf("%dx%d", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)},
				{"browser", "startup timeout", cfg.Browser.StartupTimeout},
				{"browser", "fallback timeout", cfg.Browser.FallbackTimeout},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"loader", "settle interval", cfg.Loader.SettleInterval},
				{"loader", "click settle", cfg.Loader.ClickSettle},
				{"loader", "max stall count", cfg.Loader.MaxStallCount},
				{"extractor", "selectors", strings.Join(cfg.Extractor.Selectors, "\n")},
				{"extractor", "min text length", cfg.Extractor.MinTextLength},
			})
			t.AppendSeparator()
			storeTarget := cfg.Storage.Path
			if cfg.Storage.Type == "mongodb" {
				storeTarget = cfg.Storage.URI + "/" + cfg.Storage.Database + "." + cfg.Storage.Collection
			}
			t.AppendRows([]table.Row{
				{"storage", "type", cfg.Storage.Type},
				{"storage", "target", storeTarget},
				{"diagnostics", "dir", cfg.Diagnostics.Dir},
				{"watch", "interval", cfg.Watch.Interval},
				{"metrics", "enabled", cfg.Metrics.Enabled},
				{"metrics", "address", fmt.Sprintf(":%d%s", cfg.Metrics.Port, cfg.Metrics.Path)},
			})
			t.Render()

			if err := config.Validate(cfg); err != nil {
				fmt.Printf("\n⚠️  %v\n", err)
			}
			return nil
		},
	}
}
