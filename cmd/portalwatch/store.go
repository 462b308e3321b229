package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/portalwatch/internal/storage"
)

var (
	pendingLimit int
	markSent     bool
)

// statsCmd creates the "stats" subcommand.
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			store, err := storage.Open(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			t := newTable()
			t.AppendHeader(table.Row{"Backend", "Total posts", "Pending to send"})
			t.AppendRow(table.Row{store.Name(), st.TotalPosts, st.PendingToSend})
			t.Render()
			return nil
		},
	}
}

// pendingCmd creates the "pending" subcommand.
func pendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List stored posts not yet sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			store, err := storage.Open(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			posts, err := store.Unsent(cmd.Context(), pendingLimit)
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Println("No pending posts.")
				return nil
			}

			t := newTable()
			t.AppendHeader(table.Row{"ID", "Stored", "Author", "Posted", "Title"})
			ids := make([]string, 0, len(posts))
			for _, p := range posts {
				t.AppendRow(table.Row{
					p.ID,
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
					p.Author,
					p.PostedTime,
					shorten(p.Title, 60),
				})
				ids = append(ids, p.ID)
			}
			t.AppendFooter(table.Row{"", "", "", "Total", len(posts)})
			t.Render()

			if markSent {
				if err := store.MarkSent(cmd.Context(), ids...); err != nil {
					return fmt.Errorf("mark sent: %w", err)
				}
				fmt.Printf("\nMarked %d posts as sent.\n", len(ids))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&pendingLimit, "limit", "n", 20, "maximum posts to list (0 = all)")
	cmd.Flags().BoolVar(&markSent, "mark-sent", false, "mark the listed posts as sent")
	return cmd
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
