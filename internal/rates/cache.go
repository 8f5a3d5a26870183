package rates

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultMinInterval = time.Second
)

// cacheEntry is one cached pair rate.
type cacheEntry struct {
	rate      float64
	fetchedAt time.Time
}

// CachedProvider wraps a Provider with a TTL cache and a minimum interval
// between upstream calls. When the upstream fails or the rate limit is hit,
// a stale cached rate is served rather than an error; ErrUnavailable is
// returned only when there is nothing cached at all.
type CachedProvider struct {
	next        Provider
	ttl         time.Duration
	minInterval time.Duration
	log         *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	entries  map[string]cacheEntry
	lastCall time.Time
}

// NewCachedProvider wraps next with caching. Zero ttl/minInterval select
// defaults (5m, 1s).
func NewCachedProvider(next Provider, ttl, minInterval time.Duration, log *slog.Logger) *CachedProvider {
	if ttl == 0 {
		ttl = defaultTTL
	}
	if minInterval == 0 {
		minInterval = defaultMinInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedProvider{
		next:        next,
		ttl:         ttl,
		minInterval: minInterval,
		log:         log,
		now:         time.Now,
		entries:     make(map[string]cacheEntry),
	}
}

// Convert returns amount converted at a cached rate when fresh, refreshing
// from the upstream provider otherwise.
func (p *CachedProvider) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}
	key := pairKey(from, to)

	p.mu.Lock()
	entry, cached := p.entries[key]
	now := p.now()
	if cached && now.Sub(entry.fetchedAt) < p.ttl {
		p.mu.Unlock()
		return amount * entry.rate, nil
	}
	throttled := now.Sub(p.lastCall) < p.minInterval
	if throttled && cached {
		// Rate-limited: serve the stale value instead of hammering the
		// upstream.
		p.mu.Unlock()
		return amount * entry.rate, nil
	}
	p.lastCall = now
	p.mu.Unlock()

	rate, err := p.next.Convert(ctx, 1, from, to)
	if err != nil {
		if cached {
			p.log.Warn("rate refresh failed, serving stale rate",
				"from", from, "to", to, "age", now.Sub(entry.fetchedAt), "error", err)
			return amount * entry.rate, nil
		}
		return 0, err
	}

	p.mu.Lock()
	p.entries[key] = cacheEntry{rate: rate, fetchedAt: p.now()}
	p.mu.Unlock()

	return amount * rate, nil
}

// Invalidate drops the cached rate for one pair.
func (p *CachedProvider) Invalidate(from, to string) {
	p.mu.Lock()
	delete(p.entries, pairKey(from, to))
	p.mu.Unlock()
}

// InvalidateAll drops every cached rate.
func (p *CachedProvider) InvalidateAll() {
	p.mu.Lock()
	p.entries = make(map[string]cacheEntry)
	p.mu.Unlock()
}

func pairKey(from, to string) string {
	return from + "/" + to
}
