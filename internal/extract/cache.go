package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/phobologic/graphoracle/internal/model"
)

// Cache memoises extraction by source content. Concurrent requests for the
// same source share a single parse. Every caller gets its own copy of the
// graph.
type Cache struct {
	x     *Extractor
	lru   *lru.Cache[[sha256.Size]byte, *model.CallGraph]
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps x with an LRU of the given size.
func NewCache(x *Extractor, size int) (*Cache, error) {
	c, err := lru.New[[sha256.Size]byte, *model.CallGraph](size)
	if err != nil {
		return nil, fmt.Errorf("extract cache: %w", err)
	}
	return &Cache{x: x, lru: c}, nil
}

// Extract returns the graph of source, parsing it only on a miss. Errors are
// not cached.
func (c *Cache) Extract(ctx context.Context, source []byte) (*model.CallGraph, error) {
	key := sha256.Sum256(source)
	if g, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return g.Clone(), nil
	}

	// fn only runs in the goroutine that performs the parse.
	parsed := false
	v, err, _ := c.group.Do(string(key[:]), func() (any, error) {
		parsed = true
		g, err := c.x.Extract(ctx, source)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, g)
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	if parsed {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	return v.(*model.CallGraph).Clone(), nil
}

// Stats reports cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
