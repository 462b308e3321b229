package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type existsFunc func(ctx context.Context, hash string) (bool, error)

func (f existsFunc) Exists(ctx context.Context, hash string) (bool, error) { return f(ctx, hash) }

func TestContentHashDeterministic(t *testing.T) {
	content := "## Hiring drive for 2025 graduates\n**Eligibility:**\n🔗 https://example.com"

	first := ContentHash(content)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, ContentHash(content))
	}
	assert.Len(t, first, 64)
}

func TestContentHashDistinguishesContent(t *testing.T) {
	assert.NotEqual(t, ContentHash("a\nb"), ContentHash("a\nb "))
	assert.NotEqual(t, ContentHash(""), ContentHash("\n"))
}

func TestContentHashKnownValue(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", ContentHash("abc"))
}

func TestDeduplicator(t *testing.T) {
	stored := ContentHash("seen")
	d := NewDeduplicator(existsFunc(func(_ context.Context, h string) (bool, error) {
		return h == stored, nil
	}))

	dup, err := d.IsDuplicate(context.Background(), stored)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(context.Background(), ContentHash("unseen"))
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDeduplicatorWrapsStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	d := NewDeduplicator(existsFunc(func(context.Context, string) (bool, error) {
		return false, boom
	}))

	_, err := d.IsDuplicate(context.Background(), ContentHash("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
