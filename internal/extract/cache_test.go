package extract

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/graphoracle/internal/lang"
)

const cachedSource = `def foo(parameter):
    return parameter

def bar(parameter):
    return foo(parameter)
`

func TestCacheHitReturnsCopy(t *testing.T) {
	t.Parallel()

	c, err := NewCache(New(), 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Extract(ctx, []byte(cachedSource))
	require.NoError(t, err)
	first.Path = "mutated"
	first.Edges[0].From = "changed"

	second, err := c.Extract(ctx, []byte(cachedSource))
	require.NoError(t, err)
	assert.Empty(t, second.Path)
	assert.Equal(t, []string{"foo", "bar"}, second.Names())
	assert.Equal(t, edge("foo", "bar"), second.Edges[0])

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheErrorsNotCached(t *testing.T) {
	t.Parallel()

	c, err := NewCache(New(), 8)
	require.NoError(t, err)

	for range 2 {
		_, err := c.Extract(context.Background(), []byte("def broken(:\n"))
		assert.ErrorIs(t, err, lang.ErrUnparseable)
	}
	hits, _ := c.Stats()
	assert.Zero(t, hits)
}

func TestCacheConcurrent(t *testing.T) {
	t.Parallel()

	c, err := NewCache(New(), 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := c.Extract(context.Background(), []byte(cachedSource))
			assert.NoError(t, err)
			assert.Len(t, g.Edges, 1)
		}()
	}
	wg.Wait()

	hits, misses := c.Stats()
	assert.Equal(t, int64(16), hits+misses)
	assert.GreaterOrEqual(t, misses, int64(1))
}

func TestNewCacheRejectsZeroSize(t *testing.T) {
	t.Parallel()

	_, err := NewCache(New(), 0)
	assert.Error(t, err)
}
