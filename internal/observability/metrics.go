package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/portalwatch/internal/types"
)

// Metrics tracks operational metrics across runs.
type Metrics struct {
	// Run metrics
	RunsTotal     atomic.Int64
	RunsFailed    atomic.Int64
	LoginFailures atomic.Int64
	LastRunUnix   atomic.Int64

	// Post metrics
	PostsSaved     atomic.Int64
	PostsDuplicate atomic.Int64
	PostsSkipped   atomic.Int64
	PostsErrored   atomic.Int64

	// Loader metrics
	ScrollIterations atomic.Int64
	ExpandClicks     atomic.Int64

	// Store gauges, refreshed after each run
	StoreTotalPosts atomic.Int64
	StorePending    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordOutcome counts one processed block.
func (m *Metrics) RecordOutcome(o types.Outcome) {
	switch o {
	case types.OutcomeSaved:
		m.PostsSaved.Add(1)
	case types.OutcomeDuplicate:
		m.PostsDuplicate.Add(1)
	case types.OutcomeSkipped:
		m.PostsSkipped.Add(1)
	case types.OutcomeError:
		m.PostsErrored.Add(1)
	}
}

// RecordRun counts a finished run and refreshes the store gauges.
func (m *Metrics) RecordRun(success bool, store types.StoreStats, at time.Time) {
	m.RunsTotal.Add(1)
	if !success {
		m.RunsFailed.Add(1)
	}
	m.LastRunUnix.Store(at.Unix())
	m.StoreTotalPosts.Store(store.TotalPosts)
	m.StorePending.Store(store.PendingToSend)
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) collect() []metric {
	return []metric{
		{"portalwatch_runs_total", "Total scrape runs", "counter", m.RunsTotal.Load()},
		{"portalwatch_runs_failed_total", "Total failed scrape runs", "counter", m.RunsFailed.Load()},
		{"portalwatch_login_failures_total", "Total login failures", "counter", m.LoginFailures.Load()},
		{"portalwatch_last_run_timestamp_seconds", "Unix time of the last finished run", "gauge", m.LastRunUnix.Load()},
		{"portalwatch_posts_saved_total", "Total new posts saved", "counter", m.PostsSaved.Load()},
		{"portalwatch_posts_duplicate_total", "Total duplicate posts that halted a run", "counter", m.PostsDuplicate.Load()},
		{"portalwatch_posts_skipped_total", "Total blocks skipped as too short", "counter", m.PostsSkipped.Load()},
		{"portalwatch_posts_errored_total", "Total blocks that failed processing", "counter", m.PostsErrored.Load()},
		{"portalwatch_scroll_iterations_total", "Total scroll iterations", "counter", m.ScrollIterations.Load()},
		{"portalwatch_expand_clicks_total", "Total See More controls clicked", "counter", m.ExpandClicks.Load()},
		{"portalwatch_store_posts", "Posts in the store", "gauge", m.StoreTotalPosts.Load()},
		{"portalwatch_store_pending", "Stored posts not yet sent", "gauge", m.StorePending.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.collect() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Handler returns the metrics and health endpoints.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer serves metrics until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, metric := range m.collect() {
		out[metric.name] = metric.value
	}
	return out
}
