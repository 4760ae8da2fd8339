package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/krfin/pkg/models"
)

// ErrUnavailable is recorded when the directory could not be loaded.
var ErrUnavailable = errors.New("directory unavailable")

// Loader fetches the listed entities of one market.
type Loader interface {
	Load(ctx context.Context, market models.Market) ([]models.DirectoryEntry, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, market models.Market) ([]models.DirectoryEntry, error)

func (f LoaderFunc) Load(ctx context.Context, market models.Market) ([]models.DirectoryEntry, error) {
	return f(ctx, market)
}

// Cache owns the directory of one session. The first Get loads every
// configured market concurrently and merges them in configured order;
// later calls reuse the result until Reset. A failed load is not cached.
type Cache struct {
	loader  Loader
	markets []models.Market
	logger  zerolog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	dir     *Directory
	lastErr error
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache creates an empty cache. markets defaults to ALL.
func NewCache(loader Loader, markets []models.Market, opts ...CacheOption) *Cache {
	if len(markets) == 0 {
		markets = []models.Market{models.MarketAll}
	}
	c := &Cache{
		loader:  loader,
		markets: append([]models.Market(nil), markets...),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the session directory, loading it on first use. Concurrent
// callers share a single load. On upstream failure it returns an empty
// directory and records the error, available through Err.
func (c *Cache) Get(ctx context.Context) *Directory {
	c.mu.RLock()
	dir := c.dir
	c.mu.RUnlock()
	if dir != nil {
		return dir
	}

	v, _, _ := c.group.Do("directory", func() (any, error) {
		c.mu.RLock()
		cached := c.dir
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		loaded, err := c.load(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.lastErr = err
			c.logger.Warn().Err(err).Msg("directory load failed; resolving against an empty directory")
			return Empty(), nil
		}
		c.dir = loaded
		c.lastErr = nil
		c.logger.Info().Int("count", loaded.Len()).Msg("directory loaded")
		return loaded, nil
	})
	return v.(*Directory)
}

// Err returns the error of the most recent failed load, or nil.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Peek returns the cached directory without loading it, or nil.
func (c *Cache) Peek() *Directory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// Loaded reports whether a directory is cached.
func (c *Cache) Loaded() bool { return c.Peek() != nil }

// Reset discards the cached directory; the next Get reloads it.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.dir = nil
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Cache) load(ctx context.Context) (*Directory, error) {
	results := make([][]models.DirectoryEntry, len(c.markets))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range c.markets {
		g.Go(func() error {
			entries, err := c.loader.Load(gctx, m)
			if err != nil {
				return fmt.Errorf("load %s: %w", m, err)
			}
			results[i] = entries
			c.logger.Debug().Str("market", string(m)).Int("count", len(entries)).Msg("market loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var merged []models.DirectoryEntry
	for _, r := range results {
		merged = append(merged, r...)
	}
	return New(merged), nil
}
