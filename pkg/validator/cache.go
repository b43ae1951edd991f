package validator

import (
	"sync"
	"time"
)

type cacheEntry struct {
	resolvedAt time.Time
	verdict    Verdict
}

// verdictCache явная таблица hostname -> (resolvedAt, verdict).
// Срок жизни проверяется при каждом чтении, просроченная запись
// приводит к повторному разрешению имени (защита от DNS rebinding).
type verdictCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newVerdictCache(ttl time.Duration) *verdictCache {
	return &verdictCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *verdictCache) get(host string, now time.Time) (Verdict, bool) {
	if c.ttl <= 0 {
		return Verdict{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[host]
	if !ok {
		return Verdict{}, false
	}
	if now.Sub(entry.resolvedAt) >= c.ttl {
		delete(c.entries, host)
		return Verdict{}, false
	}
	return entry.verdict, true
}

func (c *verdictCache) put(host string, verdict Verdict, now time.Time) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[host] = cacheEntry{resolvedAt: now, verdict: verdict}
	c.mu.Unlock()
}

// purge удаляет просроченные записи
func (c *verdictCache) purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for host, entry := range c.entries {
		if now.Sub(entry.resolvedAt) >= c.ttl {
			delete(c.entries, host)
			removed++
		}
	}
	return removed
}

func (c *verdictCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
