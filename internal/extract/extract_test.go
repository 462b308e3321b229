package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/portalwatch/internal/automation"
	"github.com/IshaanNene/portalwatch/internal/config"
	"github.com/IshaanNene/portalwatch/internal/mock"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// finder serves fixed elements per selector and records lookups.
type finder struct {
	results map[string][]*mock.Element
	errs    map[string]error
	asked   []string
}

func (f *finder) Find(_ context.Context, _ automation.SelectorKind, sel string) ([]automation.Element, error) {
	f.asked = append(f.asked, sel)
	if err := f.errs[sel]; err != nil {
		return nil, err
	}
	return mock.Elements(f.results[sel]...), nil
}

func text(n int, fill string) *mock.Element {
	return &mock.Element{Label: strings.Repeat(fill, n)}
}

func newExtractor() *Extractor {
	return New(config.DefaultConfig().Extractor, testLogger)
}

func TestExtractFirstStrategyWins(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div.px-5.pt-6.pb-0": {text(60, "a"), text(70, "b")},
		"div.px-5.pt-5.pb-0": {text(80, "c")},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "div.px-5.pt-6.pb-0", got.Strategy)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, strings.Repeat("a", 60), got.Blocks[0].Text)
	assert.Equal(t, 1, got.Blocks[1].Index)
	assert.Equal(t, []string{"div.px-5.pt-6.pb-0"}, f.asked)
}

func TestExtractFallsThroughToLaterStrategy(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div.px-5": {text(60, "x"), text(61, "y"), text(62, "z")},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "div.px-5", got.Strategy)
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, strings.Repeat("x", 60), got.Blocks[0].Text)
	assert.Equal(t, strings.Repeat("z", 62), got.Blocks[2].Text)
	assert.Equal(t, []string{
		"div.px-5.pt-6.pb-0",
		"div.px-5.pt-5.pb-0",
		"div[class*='px-5'][class*='pt-'][class*='pb-0']",
		"div.px-5",
	}, f.asked)
}

func TestExtractSecondarySelector(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div[class*='px-5']": {text(90, "s")},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "div[class*='px-5']", got.Strategy)
	assert.Len(t, got.Blocks, 1)
}

func TestExtractFiltersShortBlocks(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div.px-5.pt-5.pb-0": {
			text(50, "s"),
			{Label: "   " + strings.Repeat("p", 51) + "   "},
			{TextErr: errors.New("stale element")},
			text(10, "t"),
		},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, strings.Repeat("p", 51), got.Blocks[0].Text)
	assert.Equal(t, 0, got.Blocks[0].Index)
}

func TestExtractMatchedStrategyWinsEvenWhenAllBlocksAreShort(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div.px-5.pt-6.pb-0": {text(20, "s")},
		"div.px-5.pt-5.pb-0": {text(80, "c")},
		"div":                {text(200, "d")},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "div.px-5.pt-6.pb-0", got.Strategy)
	assert.Empty(t, got.Blocks)
	assert.Equal(t, []string{"div.px-5.pt-6.pb-0"}, f.asked)
}

func TestExtractCountsRunes(t *testing.T) {
	// 51 runes, far more bytes.
	f := &finder{results: map[string][]*mock.Element{
		"div.px-5": {text(51, "é")},
		"div":      nil,
	}}
	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, got.Blocks, 1)

	f = &finder{results: map[string][]*mock.Element{"div.px-5": {text(25, "é")}}}
	got, err = newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, got.Blocks)
}

func TestExtractGenericFallbackCaps(t *testing.T) {
	var divs []*mock.Element
	divs = append(divs, text(50, "n"), text(6000, "l"))
	for i := 0; i < 12; i++ {
		divs = append(divs, text(200+i, "q"))
	}
	f := &finder{results: map[string][]*mock.Element{"div": divs}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, FallbackStrategy, got.Strategy)
	require.Len(t, got.Blocks, 10)
	assert.Len(t, got.Blocks[0].Text, 200)
	assert.Len(t, got.Blocks[9].Text, 209)
	for i, b := range got.Blocks {
		assert.Equal(t, i, b.Index)
	}
}

func TestExtractGenericFallbackScanLimit(t *testing.T) {
	var divs []*mock.Element
	for i := 0; i < 50; i++ {
		divs = append(divs, text(10, "x"))
	}
	divs = append(divs, text(300, "late"))
	f := &finder{results: map[string][]*mock.Element{"div": divs}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, got.Blocks)
}

func TestExtractBoundsAreExclusive(t *testing.T) {
	f := &finder{results: map[string][]*mock.Element{
		"div": {text(100, "a"), text(5000, "b"), text(101, "c"), text(4999, "d")},
	}}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 2)
	assert.Len(t, got.Blocks[0].Text, 101)
	assert.Len(t, got.Blocks[1].Text, 4999)
}

func TestExtractStrategyErrorMovesOn(t *testing.T) {
	f := &finder{
		results: map[string][]*mock.Element{"div.px-5.pt-5.pb-0": {text(60, "k")}},
		errs:    map[string]error{"div.px-5.pt-6.pb-0": errors.New("invalid selector")},
	}

	got, err := newExtractor().Extract(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "div.px-5.pt-5.pb-0", got.Strategy)
	assert.Len(t, got.Blocks, 1)
}

func TestExtractNothingAnywhere(t *testing.T) {
	got, err := newExtractor().Extract(context.Background(), &finder{})
	require.NoError(t, err)
	assert.Equal(t, FallbackStrategy, got.Strategy)
	assert.Empty(t, got.Blocks)
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newExtractor().Extract(ctx, &finder{})
	assert.ErrorIs(t, err, context.Canceled)
}
