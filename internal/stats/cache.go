package stats

import (
	"sync"
	"time"

	"github.com/whaletracker/engine/internal/domain"
)

// cacheEntry es un snapshot de stats con su momento de cómputo.
type cacheEntry struct {
	stats    domain.WalletStats
	cachedAt time.Time
}

// cache es un TTL map de stats por wallet. La recomputación reemplaza la
// entrada completa, nunca hace merge.
type cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get devuelve la entrada si existe y no expiró.
func (c *cache) get(key string) (domain.WalletStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.cachedAt) >= c.ttl {
		return domain.WalletStats{}, false
	}
	return e.stats, true
}

func (c *cache) set(key string, stats domain.WalletStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{stats: stats, cachedAt: c.now()}
}

// evictExpired purga entradas vencidas. Se llama periódicamente desde el
// aggregator para acotar memoria en procesos de larga vida.
func (c *cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.cachedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
