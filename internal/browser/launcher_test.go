package browser

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func failing(msg string) StartFunc {
	return func(context.Context) (*Session, error) { return nil, errors.New(msg) }
}

func succeeding() StartFunc {
	return func(context.Context) (*Session, error) { return &Session{}, nil }
}

// hanging ignores its context entirely.
func hanging(release <-chan struct{}) StartFunc {
	return func(context.Context) (*Session, error) {
		<-release
		return nil, errors.New("released")
	}
}

func TestStartFirstSuccessWins(t *testing.T) {
	var calls []string
	track := func(name string, fn StartFunc) StartFunc {
		return func(ctx context.Context) (*Session, error) {
			calls = append(calls, name)
			return fn(ctx)
		}
	}

	s, err := Start(context.Background(), []Attempt{
		{Name: "a", Start: track("a", failing("chrome missing"))},
		{Name: "b", Start: track("b", succeeding())},
		{Name: "c", Start: track("c", succeeding())},
	}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "b", s.Attempt)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestStartTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	started := time.Now()
	s, err := Start(context.Background(), []Attempt{
		{Name: "slow", Timeout: 20 * time.Millisecond, Start: hanging(release)},
		{Name: "fast", Timeout: time.Second, Start: succeeding()},
	}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "fast", s.Attempt)
	assert.Less(t, time.Since(started), time.Second)
}

func TestStartAllFail(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, err := Start(context.Background(), []Attempt{
		{Name: "remote", Start: failing("connection refused")},
		{Name: "system", Timeout: 10 * time.Millisecond, Start: hanging(release)},
	}, testLogger)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoBrowser)
	assert.ErrorIs(t, err, types.ErrStartupTimeout)

	var serr *types.SessionStartupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "remote", serr.Attempt)
	assert.False(t, serr.IsTimeout())
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStartNilSessionIsFailure(t *testing.T) {
	_, err := Start(context.Background(), []Attempt{
		{Name: "broken", Start: func(context.Context) (*Session, error) { return nil, nil }},
	}, testLogger)
	assert.ErrorIs(t, err, types.ErrNoBrowser)
}

func TestStartParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	var second bool
	_, err := Start(ctx, []Attempt{
		{Name: "slow", Timeout: time.Minute, Start: hanging(release)},
		{Name: "never", Start: func(context.Context) (*Session, error) {
			second = true
			return &Session{}, nil
		}},
	}, testLogger)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, types.ErrNoBrowser)
	assert.False(t, second)
}

func TestLauncherAttempts(t *testing.T) {
	cfg := config.DefaultConfig().Browser

	names := func(as []Attempt) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.Name)
		}
		return out
	}

	as := NewLauncher(cfg, testLogger).Attempts()
	assert.Equal(t, []string{AttemptSystem, AttemptManaged}, names(as))
	assert.Equal(t, 30*time.Second, as[0].Timeout)
	assert.Equal(t, 15*time.Second, as[1].Timeout)

	cfg.RemoteURL = "ws://127.0.0.1:9222/devtools/browser/x"
	as = NewLauncher(cfg, testLogger).Attempts()
	assert.Equal(t, []string{AttemptRemote, AttemptSystem, AttemptManaged}, names(as))
	assert.Equal(t, 30*time.Second, as[0].Timeout)
	assert.Equal(t, 15*time.Second, as[1].Timeout)
	assert.Equal(t, 15*time.Second, as[2].Timeout)
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := &Session{}
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
