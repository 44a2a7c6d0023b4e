package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InfoTTL is how long a cached mint-info document stays valid.
const InfoTTL = time.Hour

// InfoFetcher retrieves a mint's info document from the network.
type InfoFetcher func(ctx context.Context, mintURL string) (json.RawMessage, error)

// InfoCache serves per-mint info documents with a fixed TTL. A miss or an
// expired entry triggers a blocking refresh through the fetcher; concurrent
// refreshes of the same mint are collapsed into one flight. Fetch failures
// propagate to the caller — stale values are never served past the TTL and
// failures are never cached. Entries are refreshed in place, never evicted.
type InfoCache struct {
	store *Store
	fetch InfoFetcher
	clk   clock.Clock
	ttl   time.Duration
	log   *zap.Logger
	group singleflight.Group
}

// InfoCacheOption configures an InfoCache.
type InfoCacheOption func(*InfoCache)

// WithCacheClock substitutes the wall clock, mainly for tests.
func WithCacheClock(clk clock.Clock) InfoCacheOption {
	return func(c *InfoCache) { c.clk = clk }
}

// WithCacheTTL overrides the default TTL.
func WithCacheTTL(ttl time.Duration) InfoCacheOption {
	return func(c *InfoCache) { c.ttl = ttl }
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(log *zap.Logger) InfoCacheOption {
	return func(c *InfoCache) { c.log = log }
}

// NewInfoCache creates a cache that reads and writes through the given store.
func NewInfoCache(store *Store, fetch InfoFetcher, opts ...InfoCacheOption) *InfoCache {
	c := &InfoCache{
		store: store,
		fetch: fetch,
		clk:   clock.New(),
		ttl:   InfoTTL,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the info document for a mint, refreshing it when missing or
// older than the TTL. A successful refresh is written back through the store.
func (c *InfoCache) Get(ctx context.Context, mintURL string) (json.RawMessage, error) {
	if value, ok := c.fresh(mintURL); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(mintURL, func() (interface{}, error) {
		// A concurrent flight may have refreshed the entry while this
		// caller was queued behind the group.
		if value, ok := c.fresh(mintURL); ok {
			return value, nil
		}

		value, err := c.fetch(ctx, mintURL)
		if err != nil {
			return nil, err
		}

		c.store.PutMintInfo(mintURL, value, c.clk.Now())
		if err := c.store.Save(); err != nil {
			// Served from memory regardless; the next save retries.
			c.log.Warn("failed to persist mint info",
				zap.String("mint", mintURL), zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (c *InfoCache) fresh(mintURL string) (json.RawMessage, bool) {
	entry, ok := c.store.MintInfoEntry(mintURL)
	if !ok || c.clk.Now().Sub(entry.FetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.Value, true
}
