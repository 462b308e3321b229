// Package loader drives the feed's scroll container until no more content
// appears, expanding collapsed posts along the way.
package loader

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/config"
)

// ContainerSelector matches candidate scroll containers.
const ContainerSelector = "div[class*='overflow'], div[style*='overflow']"

// Scripts evaluated against the container. Each takes the container as its
// only argument.
const (
	ScrollHeightScript   = `(el) => el.scrollHeight`
	ClientHeightScript   = `(el) => el.clientHeight`
	ScrollTopScript      = `(el) => el.scrollTop`
	ScrollToBottomScript = `(el) => { el.scrollTop = el.scrollHeight; }`
)

const expandLabel = "see more"

// Matcher finds expandable controls. When LabelFilter is set, elements whose
// text does not contain "see more" are discarded before clicking is
// considered.
type Matcher struct {
	Name        string
	Kind        automation.SelectorKind
	Selector    string
	LabelFilter bool
}

// DefaultMatchers returns the expand-control matchers in priority order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{
			Name:     "text",
			Kind:     automation.SelectorXPath,
			Selector: "//button[contains(text(),'See More') or contains(text(),'see more')]",
		},
		{
			Name:        "style",
			Kind:        automation.SelectorCSS,
			Selector:    "button.MuiButton-root.MuiButton-text.MuiButton-textPrimary",
			LabelFilter: true,
		},
		{
			Name:        "class",
			Kind:        automation.SelectorCSS,
			Selector:    "button[class*='MuiButton-root'][class*='!text-xs'][class*='!mt-3']",
			LabelFilter: true,
		},
	}
}

// ButtonID identifies an expand control across iterations. Element handles
// are not stable between queries, so position and label stand in for
// identity.
type ButtonID struct {
	X, Y  int
	Label string
}

// ScrollState is the per-pass loop state.
type ScrollState struct {
	Container     automation.Element
	LastScrollTop int
	StallCount    int
	Clicked       map[ButtonID]struct{}
}

// Result summarizes one loading pass.
type Result struct {
	Iterations     int
	Clicked        int
	ContainerFound bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContentLoader scrolls the feed container and clicks "See More" controls
// until the scroll position stops changing.
type ContentLoader struct {
	settle        time.Duration
	clickSettle   time.Duration
	maxStallCount int
	matchers      []Matcher
	logger        *slog.Logger

	// Sleep is used for all settle waits. Tests replace it.
	Sleep SleepFunc

	// OnClick, if set, is called after each successful expand click.
	OnClick func(id ButtonID)
}

// New creates a ContentLoader from the loader config.
func New(cfg config.LoaderConfig, logger *slog.Logger) *ContentLoader {
	maxStall := cfg.MaxStallCount
	if maxStall < 1 {
		maxStall = 5
	}
	return &ContentLoader{
		settle:        cfg.SettleInterval,
		clickSettle:   cfg.ClickSettle,
		maxStallCount: maxStall,
		matchers:      DefaultMatchers(),
		logger:        logger.With("component", "loader"),
		Sleep:         automation.Sleep,
	}
}

// Load runs one loading pass. A page without a scrollable container is
// treated as fully rendered and returns immediately.
func (l *ContentLoader) Load(ctx context.Context, d automation.Driver) (Result, error) {
	var res Result

	container := l.findContainer(ctx, d)
	if container == nil {
		l.logger.Info("no scrollable container found, assuming feed is rendered")
		return res, ctx.Err()
	}
	res.ContainerFound = true

	state := &ScrollState{
		Container: container,
		Clicked:   make(map[ButtonID]struct{}),
	}

	for state.StallCount < l.maxStallCount {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations++

		if _, err := d.Eval(ctx, ScrollToBottomScript, container); err != nil {
			l.logger.Warn("scroll failed", "iteration", res.Iterations, "error", err)
		}
		if err := l.Sleep(ctx, l.settle); err != nil {
			return res, err
		}

		clicked, err := l.expandOne(ctx, d, state)
		if err != nil {
			return res, err
		}
		if clicked {
			res.Clicked++
			state.StallCount = 0
		}

		top, err := d.Eval(ctx, ScrollTopScript, container)
		if err != nil {
			l.logger.Warn("read scroll position failed", "error", err)
		}
		current := top.Int()
		if current == state.LastScrollTop {
			state.StallCount++
			l.logger.Debug("scroll position unchanged",
				"attempt", state.StallCount, "max", l.maxStallCount)
		} else {
			l.logger.Debug("container scrolled", "from", state.LastScrollTop, "to", current)
			state.StallCount = 0
		}
		state.LastScrollTop = current
	}

	l.logger.Info("content loading finished",
		"iterations", res.Iterations,
		"expanded", res.Clicked,
	)
	return res, nil
}

// findContainer returns the first candidate whose content overflows it.
func (l *ContentLoader) findContainer(ctx context.Context, d automation.Driver) automation.Element {
	candidates, err := d.Find(ctx, automation.SelectorCSS, ContainerSelector)
	if err != nil {
		l.logger.Warn("container lookup failed", "error", err)
		return nil
	}

	for _, el := range candidates {
		sh, err := d.Eval(ctx, ScrollHeightScript, el)
		if err != nil {
			continue
		}
		ch, err := d.Eval(ctx, ClientHeightScript, el)
		if err != nil {
			continue
		}
		if sh.Int() > ch.Int() {
			l.logger.Debug("found scrollable container",
				"scroll_height", sh.Int(), "client_height", ch.Int())
			return el
		}
	}
	return nil
}

type candidate struct {
	el automation.Element
	id ButtonID
}

// expandOne clicks at most one unclicked expand control. The returned error
// is non-nil only when ctx is done.
func (l *ContentLoader) expandOne(ctx context.Context, d automation.Driver, state *ScrollState) (bool, error) {
	for _, c := range l.candidates(ctx, d) {
		if _, done := state.Clicked[c.id]; done {
			continue
		}
		if !strings.Contains(strings.ToLower(c.id.Label), expandLabel) {
			continue
		}
		if ok, err := c.el.Displayed(ctx); err != nil || !ok {
			continue
		}
		if ok, err := c.el.Enabled(ctx); err != nil || !ok {
			continue
		}

		scripted, err := automation.ClickWithFallback(ctx, c.el)
		if err != nil {
			l.logger.Warn("expand click failed", "label", c.id.Label, "error", err)
			continue
		}
		state.Clicked[c.id] = struct{}{}
		l.logger.Debug("expanded post", "label", c.id.Label, "scripted", scripted)
		if l.OnClick != nil {
			l.OnClick(c.id)
		}

		if err := l.Sleep(ctx, l.clickSettle); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, ctx.Err()
}

// candidates runs every matcher and returns the union, de-duplicated by
// ButtonID, in matcher order.
func (l *ContentLoader) candidates(ctx context.Context, d automation.Driver) []candidate {
	var out []candidate
	seen := make(map[ButtonID]struct{})

	for _, m := range l.matchers {
		els, err := d.Find(ctx, m.Kind, m.Selector)
		if err != nil {
			l.logger.Debug("matcher failed", "matcher", m.Name, "error", err)
			continue
		}
		for _, el := range els {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			label := strings.TrimSpace(text)
			if m.LabelFilter && !strings.Contains(strings.ToLower(label), expandLabel) {
				continue
			}
			pos, err := el.Location(ctx)
			if err != nil {
				continue
			}
			id := ButtonID{X: pos.X, Y: pos.Y, Label: label}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, candidate{el: el, id: id})
		}
	}
	return out
}
