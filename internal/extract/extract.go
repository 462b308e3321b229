// Package extract locates post blocks in the rendered feed.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/types"
)

// FallbackStrategy names the generic scan used when every selector misses.
const FallbackStrategy = "generic-fallback"

// Strategy is one selector in the ordered fallback chain.
type Strategy struct {
	Name     string
	Kind     automation.SelectorKind
	Selector string
}

// Strategies builds CSS strategies from selectors, preserving order.
func Strategies(selectors []string) []Strategy {
	out := make([]Strategy, len(selectors))
	for i, sel := range selectors {
		out[i] = Strategy{Name: sel, Kind: automation.SelectorCSS, Selector: sel}
	}
	return out
}

// Extraction is the outcome of one extraction pass.
type Extraction struct {
	Blocks   []types.CandidateBlock
	Strategy string
}

// Extractor finds candidate post blocks.
type Extractor struct {
	strategies        []Strategy
	minTextLength     int
	fallbackScanLimit int
	fallbackMinLength int
	fallbackMaxLength int
	fallbackMaxBlocks int
	logger            *slog.Logger
}

// New creates an Extractor from config.
func New(cfg config.ExtractorConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		strategies:        Strategies(cfg.Selectors),
		minTextLength:     cfg.MinTextLength,
		fallbackScanLimit: cfg.FallbackScanLimit,
		fallbackMinLength: cfg.FallbackMinLength,
		fallbackMaxLength: cfg.FallbackMaxLength,
		fallbackMaxBlocks: cfg.FallbackMaxBlocks,
		logger:            logger.With("component", "extractor"),
	}
}

// Extract runs the strategy chain against f. The first strategy that
// matches any element wins; its elements are kept in document order and
// filtered to those with enough text. If no strategy matches, a generic
// scan over leading divs is used instead. An empty result is not an error.
func (e *Extractor) Extract(ctx context.Context, f automation.Finder) (Extraction, error) {
	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}

		els, err := f.Find(ctx, s.Kind, s.Selector)
		if err != nil {
			e.logger.Warn("strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		if len(els) == 0 {
			e.logger.Debug("strategy matched nothing", "strategy", s.Name)
			continue
		}

		e.logger.Info("strategy matched", "strategy", s.Name, "elements", len(els))
		blocks := e.collect(ctx, els, func(n int) bool { return n > e.minTextLength }, 0)
		return Extraction{Blocks: blocks, Strategy: s.Name}, ctx.Err()
	}

	return e.fallback(ctx, f)
}

func (e *Extractor) fallback(ctx context.Context, f automation.Finder) (Extraction, error) {
	e.logger.Warn("no strategy matched, scanning divs")

	els, err := f.Find(ctx, automation.SelectorCSS, "div")
	if err != nil {
		e.logger.Warn("fallback scan failed", "error", err)
		return Extraction{Strategy: FallbackStrategy}, ctx.Err()
	}
	if len(els) > e.fallbackScanLimit {
		els = els[:e.fallbackScanLimit]
	}

	blocks := e.collect(ctx, els, func(n int) bool {
		return n > e.fallbackMinLength && n < e.fallbackMaxLength
	}, e.fallbackMaxBlocks)
	e.logger.Info("fallback extraction finished", "blocks", len(blocks))
	return Extraction{Blocks: blocks, Strategy: FallbackStrategy}, ctx.Err()
}

// collect reads element text and keeps blocks whose rune length passes
// keep. limit <= 0 means no cap.
func (e *Extractor) collect(ctx context.Context, els []automation.Element, keep func(int) bool, limit int) []types.CandidateBlock {
	var blocks []types.CandidateBlock
	for i, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			e.logger.Warn("read element text failed", "element", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if !keep(utf8.RuneCountInString(text)) {
			continue
		}
		blocks = append(blocks, types.CandidateBlock{Index: len(blocks), Text: text})
		if limit > 0 && len(blocks) >= limit {
			break
		}
	}
	return blocks
}
