package fetchcache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"talentscout-engine/internal/domain"
)

// Fetch performs the underlying external call on a cache miss.
type Fetch func(ctx context.Context) ([]byte, error)

// Key identifies one cached external request.
type Key struct {
	Source      domain.Source
	Fingerprint string
}

func (k Key) String() string {
	return string(k.Source) + ":" + k.Fingerprint
}

// Fingerprint derives a stable query fingerprint from its parts.
func Fingerprint(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:16])
}

type entry struct {
	key     string
	payload []byte
	expires time.Time
	elem    *list.Element
}

// Cache is the shared get-or-fetch layer in front of all external calls.
// Concurrent callers for the same key collapse to a single in-flight fetch;
// expired entries are evicted lazily on lookup; total entries are bounded
// by an LRU cap.
type Cache struct {
	ttl time.Duration
	cap int

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used

	group singleflight.Group

	// now is swappable so tests can control the freshness window.
	now func() time.Time
}

func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:     ttl,
		cap:     maxEntries,
		entries: make(map[string]*entry),
		lru:     list.New(),
		now:     time.Now,
	}
}

// GetOrFetch returns the live cached payload for key, or performs exactly
// one fetch for it. A fetch already in flight is joined, not duplicated.
// The fetch itself is detached from the caller's context: a cancelled
// caller stops waiting, but the fetch completes and populates the cache.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch Fetch) ([]byte, error) {
	ks := key.String()

	if b, ok := c.lookup(ks); ok {
		return b, nil
	}

	ch := c.group.DoChan(ks, func() (any, error) {
		// A racing caller may have stored while we queued.
		if b, ok := c.lookup(ks); ok {
			return b, nil
		}
		b, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(ks, b)
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports live entry count (expired entries still pending lazy
// eviction included).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(ks string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[ks]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.lru.Remove(e.elem)
		delete(c.entries, ks)
		return nil, false
	}
	c.lru.MoveToFront(e.elem)
	return e.payload, true
}

func (c *Cache) store(ks string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[ks]; ok {
		c.lru.Remove(old.elem)
		delete(c.entries, ks)
	}

	e := &entry{key: ks, payload: payload, expires: c.now().Add(c.ttl)}
	e.elem = c.lru.PushFront(e)
	c.entries[ks] = e

	for c.cap > 0 && len(c.entries) > c.cap {
		back := c.lru.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(*entry)
		c.lru.Remove(back)
		delete(c.entries, evicted.key)
	}
}
