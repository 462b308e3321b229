// Package browser starts the automated browser session, falling back
// through alternative browser sources when one cannot be started in time.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// Attempt names.
const (
	AttemptRemote  = "remote"
	AttemptSystem  = "system"
	AttemptManaged = "managed"
)

// StartFunc starts a session. It should honor ctx, but Start abandons it
// at the deadline either way.
type StartFunc func(ctx context.Context) (*Session, error)

// Attempt is one entry in the startup fallback chain.
type Attempt struct {
	Name    string
	Timeout time.Duration
	Start   StartFunc
}

// Launcher builds the startup chain from configuration.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	return &Launcher{
		cfg:    cfg,
		logger: logger.With("component", "browser"),
	}
}

// Launch starts a session using the first attempt that succeeds.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	return Start(ctx, l.Attempts(), l.logger)
}

// Attempts returns the fallback chain: a configured remote browser, then a
// locally installed Chrome/Chromium, then Rod's managed download. The first
// attempt gets the startup timeout, later ones the fallback timeout.
func (l *Launcher) Attempts() []Attempt {
	var attempts []Attempt
	if l.cfg.RemoteURL != "" {
		attempts = append(attempts, Attempt{Name: AttemptRemote, Start: l.startRemote})
	}
	attempts = append(attempts,
		Attempt{Name: AttemptSystem, Start: l.startSystem},
		Attempt{Name: AttemptManaged, Start: l.startManaged},
	)

	for i := range attempts {
		if i == 0 {
			attempts[i].Timeout = l.cfg.StartupTimeout
		} else {
			attempts[i].Timeout = l.cfg.FallbackTimeout
		}
	}
	return attempts
}

// Start runs attempts in order, each under its own deadline. A failed or
// timed-out attempt is logged and the next one runs. If every attempt fails
// the returned error wraps types.ErrNoBrowser and each attempt's error.
func Start(ctx context.Context, attempts []Attempt, logger *slog.Logger) (*Session, error) {
	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		started := time.Now()
		s, err := runAttempt(ctx, a)
		if err == nil {
			s.Attempt = a.Name
			logger.Info("browser session started", "attempt", a.Name, "elapsed", time.Since(started))
			return s, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		serr := &types.SessionStartupError{Attempt: a.Name, Err: err}
		logger.Warn("browser startup attempt failed",
			"attempt", a.Name,
			"timeout", serr.IsTimeout(),
			"error", err,
		)
		errs = append(errs, serr)
	}
	return nil, fmt.Errorf("%w: %w", types.ErrNoBrowser, errors.Join(errs...))
}

type attemptResult struct {
	s   *Session
	err error
}

func runAttempt(ctx context.Context, a Attempt) (*Session, error) {
	actx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	ch := make(chan attemptResult, 1)
	go func() {
		s, err := a.Start(actx)
		ch <- attemptResult{s: s, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.s == nil {
			return nil, errors.New("no session returned")
		}
		return r.s, r.err
	case <-actx.Done():
		// Reap a session that finishes after it was abandoned.
		go func() {
			if r := <-ch; r.s != nil {
				_ = r.s.Close()
			}
		}()
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", types.ErrStartupTimeout, a.Timeout)
		}
		return nil, actx.Err()
	}
}

func (l *Launcher) startRemote(ctx context.Context) (*Session, error) {
	b := rod.New().Context(ctx).ControlURL(l.cfg.RemoteURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", l.cfg.RemoteURL, err)
	}
	// The remote browser is not ours to close; only the page is.
	return l.newSession(b.Context(context.Background()), nil, false)
}

func (l *Launcher) startSystem(ctx context.Context) (*Session, error) {
	bin := l.cfg.Bin
	if bin == "" {
		path, ok := launcher.LookPath()
		if !ok {
			return nil, errors.New("no local Chrome or Chromium found")
		}
		bin = path
	}
	return l.startLocal(ctx, bin)
}

func (l *Launcher) startManaged(ctx context.Context) (*Session, error) {
	bin, err := launcher.NewBrowser().Get()
	if err != nil {
		return nil, fmt.Errorf("managed browser: %w", err)
	}
	return l.startLocal(ctx, bin)
}

func (l *Launcher) startLocal(ctx context.Context, bin string) (*Session, error) {
	lnchr := launcher.New().
		Bin(bin).
		Headless(l.cfg.Headless).
		Leakless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", l.cfg.WindowWidth, l.cfg.WindowHeight))

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", bin, err)
	}
	if ctx.Err() != nil {
		lnchr.Kill()
		return nil, ctx.Err()
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		lnchr.Kill()
		return nil, fmt.Errorf("connect: %w", err)
	}
	return l.newSession(b, lnchr, true)
}

// newSession opens the working page with stealth patches, user agent and
// viewport applied.
func (l *Launcher) newSession(b *rod.Browser, lnchr *launcher.Launcher, owned bool) (*Session, error) {
	s := &Session{
		Browser:  b,
		launcher: lnchr,
		owned:    owned,
		logger:   l.logger,
	}

	var (
		page *rod.Page
		err  error
	)
	if l.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.Page = page

	if l.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: l.cfg.UserAgent}); err != nil {
			l.logger.Warn("failed to set user agent", "error", err)
		}
	}
	if l.cfg.WindowWidth > 0 && l.cfg.WindowHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             l.cfg.WindowWidth,
			Height:            l.cfg.WindowHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			l.logger.Warn("failed to set viewport", "error", err)
		}
	}
	return s, nil
}
