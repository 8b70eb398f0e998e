package remote

import (
	"context"
	"sync"
	"time"

	"github.com/glacierpeak/launchcore/internal/domain"
)

// CachedSource memoizes manifest fetches for a TTL. The cache is an
// explicit object the caller owns, with explicit invalidation, not
// process-wide state.
type CachedSource struct {
	mu       sync.Mutex
	inner    domain.Source
	ttl      time.Duration
	manifest *domain.Manifest
	fetched  time.Time

	now func() time.Time
}

func Cached(inner domain.Source, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, ttl: ttl, now: time.Now}
}

func (c *CachedSource) FetchManifest(ctx context.Context) (*domain.Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manifest != nil && c.now().Sub(c.fetched) < c.ttl {
		return c.manifest, nil
	}

	m, err := c.inner.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	c.manifest = m
	c.fetched = c.now()
	return m, nil
}

func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.manifest = nil
	c.mu.Unlock()
}
