package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/pubchemscan/internal/model"
)

// CompoundSource performs an uncached lookup. *pubchem.Extractor implements it.
type CompoundSource interface {
	Lookup(ctx context.Context, cid int) (*model.Lookup, error)
}

// Store persists lookups. *database.CompoundDB implements it.
type Store interface {
	GetFreshCompound(ctx context.Context, cid int, maxAge time.Duration) (*model.Lookup, error)
	SaveLookup(ctx context.Context, lookup *model.Lookup) error
}

// CachedExtractor serves lookups from a Store when possible.
type CachedExtractor struct {
	source  CompoundSource
	store   Store
	ttl     time.Duration
	refresh bool
	logger  *slog.Logger
}

// CacheOption configures a CachedExtractor.
type CacheOption func(*CachedExtractor)

// WithStore sets the cache. Without one, every lookup goes to the source.
func WithStore(store Store) CacheOption {
	return func(c *CachedExtractor) {
		c.store = store
	}
}

// WithTTL sets the maximum age of a cached result. Zero accepts any age.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedExtractor) {
		c.ttl = ttl
	}
}

// WithRefresh makes every lookup skip the cache read. Results are still saved.
func WithRefresh(refresh bool) CacheOption {
	return func(c *CachedExtractor) {
		c.refresh = refresh
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedExtractor) {
		c.logger = logger
	}
}

// NewCachedExtractor creates a CachedExtractor over source.
func NewCachedExtractor(source CompoundSource, opts ...CacheOption) *CachedExtractor {
	c := &CachedExtractor{source: source}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Lookup returns the cached result for cid if fresh, otherwise extracts
// and saves it.
func (c *CachedExtractor) Lookup(ctx context.Context, cid int) (*model.Lookup, error) {
	return c.lookup(ctx, cid, c.refresh)
}

// Refresh extracts cid from the source regardless of the cache and saves
// the result.
func (c *CachedExtractor) Refresh(ctx context.Context, cid int) (*model.Lookup, error) {
	return c.lookup(ctx, cid, true)
}

func (c *CachedExtractor) lookup(ctx context.Context, cid int, refresh bool) (*model.Lookup, error) {
	if c.store != nil && !refresh {
		cached, err := c.store.GetFreshCompound(ctx, cid, c.ttl)
		switch {
		case err != nil:
			c.logger.Warn("cache read failed", "cid", cid, "error", err)
		case cached != nil:
			c.logger.Debug("cache hit", "cid", cid, "fetched_at", cached.FetchedAt)
			return cached, nil
		}
	}

	lookup, err := c.source.Lookup(ctx, cid)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.SaveLookup(ctx, lookup); err != nil {
			c.logger.Warn("cache write failed", "cid", cid, "error", err)
		}
	}
	return lookup, nil
}
