// internal/adapters/out/cache/memory_cache.go
package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

type entry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is a process-local cache with the same glob semantics as Redis for
// the key shapes used here (":"-separated, "*" wildcards).
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]entry{}, now: time.Now}
}

func (c *MemoryCache) Remember(
	ctx context.Context,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && (e.expires.IsZero() || c.now().Before(e.expires)) {
		c.mu.Unlock()
		return append([]byte(nil), e.val...), nil
	}
	c.mu.Unlock()

	val, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry{val: append([]byte(nil), val...), expires: exp}
	c.mu.Unlock()
	return val, nil
}

func (c *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
		}
	}
	return nil
}

// Keys lists live keys (tests / debugging).
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
