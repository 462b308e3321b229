package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/observability"
	"github.com/IshaanNene/portalwatch/internal/scraper"
	"github.com/IshaanNene/portalwatch/internal/snapshot"
	"github.com/IshaanNene/portalwatch/internal/types"
)

var (
	runTimeout    time.Duration
	watchInterval time.Duration
	showPosts     bool
)

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and store new feed posts once",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the run after this long (0 = no limit)")
	cmd.Flags().BoolVar(&showPosts, "show", false, "print the formatted content of new posts")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.RequireCredentials(cfg); err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := commandContext(ctx, runTimeout)
	defer cancel()

	rep := scraper.New(cfg, nil, logger).Run(ctx)
	printReport(rep)
	if !rep.Success {
		return rep.Err
	}
	return nil
}

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run repeatedly on an interval",
		Long:  "Run a scrape immediately and then once per interval until interrupted. Failed runs are logged and retried on the next tick.",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "time between runs (default from config)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.RequireCredentials(cfg); err != nil {
		return err
	}
	if watchInterval > 0 {
		cfg.Watch.Interval = watchInterval
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	s := scraper.New(cfg, metrics, logger)
	logger.Info("watching feed", "interval", cfg.Watch.Interval, "storage", cfg.Storage.Type)

	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	for {
		watchTick(ctx, s, logger)

		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func watchTick(ctx context.Context, s *scraper.Scraper, logger *slog.Logger) {
	rep := s.Run(ctx)
	if !rep.Success {
		if errors.Is(rep.Err, context.Canceled) {
			return
		}
		logger.Warn("run failed, retrying next interval", "error", rep.Err)
		return
	}
	if rep.Stats.Saved > 0 {
		logger.Info("new posts stored", "count", rep.Stats.Saved, "pending", rep.Store.PendingToSend)
	}
}

// replayCmd creates the "replay" subcommand.
func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <snapshot>",
		Short: "Extract and store posts from a saved page",
		Long: `Run extraction and ingestion over a saved feed page instead of a live
session. Accepts .html, .html.br and .html.gz files, such as the snapshots
written to the diagnostics directory on login failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			doc, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			source, _ := doc.CurrentURL(cmd.Context())
			logger.Info("replaying snapshot", "path", args[0], "source", source)

			rep := scraper.New(cfg, nil, logger).Replay(cmd.Context(), doc)
			printReport(rep)
			if !rep.Success {
				return rep.Err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPosts, "show", false, "print the formatted content of new posts")
	return cmd
}

func printReport(rep scraper.Report) {
	status := "✅ Run complete"
	if !rep.Success {
		status = "❌ Run failed"
	}
	fmt.Printf("\n%s in %s\n", status, rep.Duration.Round(time.Millisecond))

	t := newTable()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Blocks processed", rep.Stats.Processed},
		{"New posts saved", rep.Stats.Saved},
		{"Skipped (too short)", rep.Stats.Skipped},
		{"Errored", rep.Stats.Errored},
	})
	if rep.Stats.Halted {
		t.AppendRow(table.Row{"Stopped at known post", fmt.Sprintf("block #%d", rep.Stats.HaltedAt)})
	}
	if rep.Strategy != "" {
		t.AppendRow(table.Row{"Extraction strategy", rep.Strategy})
	}
	if rep.Loader.Iterations > 0 {
		t.AppendRow(table.Row{"Scroll iterations", rep.Loader.Iterations})
		t.AppendRow(table.Row{"See More clicks", rep.Loader.Clicked})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Posts in store", rep.Store.TotalPosts},
		{"Pending to send", rep.Store.PendingToSend},
	})
	t.Render()

	var lerr *types.LoginError
	if errors.As(rep.Err, &lerr) && lerr.Screenshot != "" {
		fmt.Printf("\n   Screenshot: %s\n", lerr.Screenshot)
	}

	if showPosts {
		for i, content := range rep.Stats.NewPosts {
			fmt.Printf("\n--- new post %d ---\n%s\n", i+1, content)
		}
	}
}
