// Package scraper runs one complete pass over the portal feed: start a
// browser, log in, load the feed, extract posts and store the new ones.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/browser"
	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/extract"
	"github.com/IshaanNene/portalwatch/internal/loader"
	"github.com/IshaanNene/portalwatch/internal/observability"
	"github.com/IshaanNene/portalwatch/internal/parser"
	"github.com/IshaanNene/portalwatch/internal/pipeline"
	"github.com/IshaanNene/portalwatch/internal/portal"
	"github.com/IshaanNene/portalwatch/internal/storage"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// Session is a started browser session.
type Session interface {
	Driver() automation.Driver
	Close() error
}

// Report is the result of one run.
type Report struct {
	Success  bool
	Stats    types.RunStats
	Store    types.StoreStats
	Loader   loader.Result
	Strategy string
	Duration time.Duration
	Err      error
}

// Scraper wires the run stages together.
type Scraper struct {
	cfg     *config.Config
	rules   *parser.Rules
	metrics *observability.Metrics
	logger  *slog.Logger

	// StartSession and OpenStore acquire the run's resources. New sets
	// them from cfg; tests replace them.
	StartSession func(ctx context.Context) (Session, error)
	OpenStore    func(ctx context.Context) (storage.Store, error)

	// Sleep, if set, replaces the settle waits of login and loading.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scraper. metrics may be nil.
func New(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	s := &Scraper{
		cfg:     cfg,
		rules:   parser.DefaultRules(),
		metrics: metrics,
		logger:  logger.With("component", "scraper"),
	}

	launcher := browser.NewLauncher(cfg.Browser, logger)
	s.StartSession = func(ctx context.Context) (Session, error) {
		sess, err := launcher.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	s.OpenStore = func(ctx context.Context) (storage.Store, error) {
		return storage.Open(ctx, cfg.Storage, logger)
	}
	return s
}

// Run performs one scrape. Resources are released on every exit path and
// failures to release them never change the report. Per-post failures are
// counted in the report but do not fail the run.
func (s *Scraper) Run(ctx context.Context) (rep Report) {
	started := time.Now()
	rep.Stats = types.NewRunStats()

	defer func() {
		if r := recover(); r != nil {
			rep.Success = false
			rep.Err = fmt.Errorf("scrape panicked: %v", r)
		}
		s.finish(&rep, started)
	}()

	store, err := s.OpenStore(ctx)
	if err != nil {
		rep.Err = fmt.Errorf("open store: %w", err)
		return rep
	}
	defer s.release("store", store.Close)

	sess, err := s.StartSession(ctx)
	if err != nil {
		rep.Err = fmt.Errorf("start browser: %w", err)
		return rep
	}
	defer s.release("browser", sess.Close)

	d := sess.Driver()

	auth := portal.NewAuthenticator(s.cfg.Portal, s.cfg.Diagnostics.Dir, s.logger)
	if s.Sleep != nil {
		auth.Sleep = s.Sleep
	}
	if err := auth.Login(ctx, d); err != nil {
		if s.metrics != nil {
			s.metrics.LoginFailures.Add(1)
		}
		rep.Err = err
		return rep
	}

	ld := loader.New(s.cfg.Loader, s.logger)
	if s.Sleep != nil {
		ld.Sleep = s.Sleep
	}
	if s.metrics != nil {
		ld.OnClick = func(loader.ButtonID) { s.metrics.ExpandClicks.Add(1) }
	}
	rep.Loader, err = ld.Load(ctx, d)
	if s.metrics != nil {
		s.metrics.ScrollIterations.Add(int64(rep.Loader.Iterations))
	}
	if err != nil {
		rep.Err = fmt.Errorf("load feed: %w", err)
		return rep
	}

	rep.Err = s.ingest(ctx, d, store, &rep)
	rep.Success = rep.Err == nil
	return rep
}

// Replay runs extraction and ingestion over an already rendered page, such
// as a saved snapshot, without starting a browser or logging in.
func (s *Scraper) Replay(ctx context.Context, page automation.Finder) (rep Report) {
	started := time.Now()
	rep.Stats = types.NewRunStats()
	defer s.finish(&rep, started)

	store, err := s.OpenStore(ctx)
	if err != nil {
		rep.Err = fmt.Errorf("open store: %w", err)
		return rep
	}
	defer s.release("store", store.Close)

	rep.Err = s.ingest(ctx, page, store, &rep)
	rep.Success = rep.Err == nil
	return rep
}

func (s *Scraper) ingest(ctx context.Context, page automation.Finder, store storage.Store, rep *Report) error {
	ex, err := extract.New(s.cfg.Extractor, s.logger).Extract(ctx, page)
	rep.Strategy = ex.Strategy
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(ex.Blocks) == 0 {
		s.logger.Warn("no post blocks found", "strategy", ex.Strategy)
	}

	p := pipeline.New(s.rules, store, s.logger)
	if s.metrics != nil {
		p.OnOutcome = func(ev pipeline.Event) { s.metrics.RecordOutcome(ev.Outcome) }
	}
	rep.Stats, err = p.Process(ctx, ex.Blocks)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		s.logger.Warn("could not read store stats", "error", err)
	} else {
		rep.Store = st
	}
	return nil
}

func (s *Scraper) finish(rep *Report, started time.Time) {
	rep.Duration = time.Since(started)
	if s.metrics != nil {
		s.metrics.RecordRun(rep.Success, rep.Store, time.Now())
	}

	if rep.Success {
		s.logger.Info("scrape completed",
			"processed", rep.Stats.Processed,
			"saved", rep.Stats.Saved,
			"skipped", rep.Stats.Skipped,
			"errored", rep.Stats.Errored,
			"halted", rep.Stats.Halted,
			"total_posts", rep.Store.TotalPosts,
			"pending", rep.Store.PendingToSend,
			"duration", rep.Duration,
		)
		return
	}
	var lerr *types.LoginError
	switch {
	case errors.As(rep.Err, &lerr):
		s.logger.Error("scrape aborted: login failed", "stage", lerr.Stage, "url", lerr.URL, "title", lerr.Title)
	case errors.Is(rep.Err, types.ErrNoBrowser):
		s.logger.Error("scrape aborted: no browser could be started", "error", rep.Err)
	default:
		s.logger.Error("scrape failed", "error", rep.Err)
	}
}

// release closes a resource, logging and discarding any error.
func (s *Scraper) release(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		s.logger.Warn("cleanup failed", "resource", name, "error", err)
	}
}
