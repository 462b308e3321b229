package observability

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/portalwatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestRecordOutcome(t *testing.T) {
	m := NewMetrics(testLogger)
	for _, o := range []types.Outcome{
		types.OutcomeSaved, types.OutcomeSaved, types.OutcomeSkipped,
		types.OutcomeError, types.OutcomeDuplicate,
	} {
		m.RecordOutcome(o)
	}

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap["portalwatch_posts_saved_total"])
	assert.EqualValues(t, 1, snap["portalwatch_posts_skipped_total"])
	assert.EqualValues(t, 1, snap["portalwatch_posts_errored_total"])
	assert.EqualValues(t, 1, snap["portalwatch_posts_duplicate_total"])
}

func TestRecordRun(t *testing.T) {
	m := NewMetrics(testLogger)
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	m.RecordRun(true, types.StoreStats{TotalPosts: 40, PendingToSend: 3}, at)
	m.RecordRun(false, types.StoreStats{TotalPosts: 41, PendingToSend: 4}, at)

	assert.EqualValues(t, 2, m.RunsTotal.Load())
	assert.EqualValues(t, 1, m.RunsFailed.Load())
	assert.Equal(t, at.Unix(), m.LastRunUnix.Load())
	assert.EqualValues(t, 41, m.StoreTotalPosts.Load())
	assert.EqualValues(t, 4, m.StorePending.Load())
}

func TestServeHTTP(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ExpandClicks.Add(7)

	srv := httptest.NewServer(m.Handler("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "# TYPE portalwatch_expand_clicks_total counter\nportalwatch_expand_clicks_total 7\n")
	assert.Contains(t, string(body), "# TYPE portalwatch_store_pending gauge\n")

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
