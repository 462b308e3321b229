// Package pipeline turns candidate blocks into stored posts, stopping at
// the first post that has been seen before.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/portalwatch/internal/engine"
	"github.com/IshaanNene/portalwatch/internal/parser"
	"github.com/IshaanNene/portalwatch/internal/storage"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// Stage names reported in PostError.
const (
	StageExists = "exists"
	StageSave   = "save"
)

// Store is the slice of storage.Store the pipeline writes through.
type Store interface {
	Exists(ctx context.Context, contentHash string) (bool, error)
	Save(ctx context.Context, post *types.Post) (string, error)
}

// Event describes the outcome of a single block.
type Event struct {
	Index   int
	Outcome types.Outcome
	// Post is nil for skipped blocks.
	Post *types.Post
	Err  error
}

// Pipeline processes candidate blocks sequentially.
type Pipeline struct {
	rules  *parser.Rules
	dedup  *engine.Deduplicator
	store  Store
	logger *slog.Logger

	// OnOutcome, if set, is called once per processed block.
	OnOutcome func(Event)
}

// New creates a Pipeline writing to store.
func New(rules *parser.Rules, store Store, logger *slog.Logger) *Pipeline {
	if rules == nil {
		rules = parser.DefaultRules()
	}
	return &Pipeline{
		rules:  rules,
		dedup:  engine.NewDeduplicator(store),
		store:  store,
		logger: logger.With("component", "pipeline"),
	}
}

// Process runs blocks in order. Processing halts at the first block whose
// content is already stored, or repeats an earlier block of this batch;
// later blocks are never looked at. Per-block failures are recorded and
// processing continues. The returned error is non-nil only if ctx is done.
func (p *Pipeline) Process(ctx context.Context, blocks []types.CandidateBlock) (types.RunStats, error) {
	stats := types.NewRunStats()
	seen := make(map[string]struct{}, len(blocks))

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ev := p.processBlock(ctx, block, seen)
		content := ""
		if ev.Post != nil {
			content = ev.Post.Content
		}
		stats.Record(block.Index, ev.Outcome, content)
		p.report(ev)

		if ev.Outcome == types.OutcomeDuplicate {
			break
		}
	}

	p.logger.Info("ingestion finished",
		"processed", stats.Processed,
		"saved", stats.Saved,
		"skipped", stats.Skipped,
		"errored", stats.Errored,
		"halted", stats.Halted,
	)
	return stats, nil
}

func (p *Pipeline) processBlock(ctx context.Context, block types.CandidateBlock, seen map[string]struct{}) Event {
	ev := Event{Index: block.Index}

	lines := parser.Lines(block.Text)
	if len(lines) < parser.MinMeaningfulLines {
		ev.Outcome = types.OutcomeSkipped
		return ev
	}

	post := p.build(lines)
	ev.Post = post

	// seen holds hashes whose save was attempted earlier in this batch.
	if _, dup := seen[post.ContentHash]; dup {
		ev.Outcome = types.OutcomeDuplicate
		return ev
	}

	exists, err := p.dedup.IsDuplicate(ctx, post.ContentHash)
	if err != nil {
		ev.Outcome = types.OutcomeError
		ev.Err = &types.PostError{Index: block.Index, Stage: StageExists, Err: err}
		return ev
	}
	if exists {
		ev.Outcome = types.OutcomeDuplicate
		return ev
	}
	seen[post.ContentHash] = struct{}{}

	id, err := p.store.Save(ctx, post)
	switch {
	case errors.Is(err, storage.ErrDuplicateHash):
		// Stored concurrently between the existence check and the insert.
		ev.Outcome = types.OutcomeDuplicate
	case err != nil:
		ev.Outcome = types.OutcomeError
		ev.Err = &types.PostError{Index: block.Index, Stage: StageSave, Err: err}
	default:
		post.ID = id
		ev.Outcome = types.OutcomeSaved
	}
	return ev
}

// build parses, formats and hashes the meaningful lines of a block.
func (p *Pipeline) build(lines []string) *types.Post {
	md := p.rules.ParseMetadata(lines)
	content := p.rules.Format(lines)
	return &types.Post{
		Title:       md.Title,
		Content:     content,
		RawContent:  strings.Join(lines, "\n"),
		Author:      md.Author,
		PostedTime:  md.PostedTime,
		ContentHash: engine.ContentHash(content),
	}
}

func (p *Pipeline) report(ev Event) {
	switch ev.Outcome {
	case types.OutcomeSaved:
		p.logger.Info("post saved", "block", ev.Index, "id", ev.Post.ID, "title", preview(ev.Post.Title))
	case types.OutcomeDuplicate:
		p.logger.Info("duplicate post found, stopping", "block", ev.Index, "title", preview(ev.Post.Title))
	case types.OutcomeSkipped:
		p.logger.Debug("block skipped", "block", ev.Index)
	case types.OutcomeError:
		p.logger.Warn("block failed", "block", ev.Index, "error", ev.Err)
	}

	if p.OnOutcome != nil {
		p.OnOutcome(ev)
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}
