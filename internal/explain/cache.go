package explain

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"quizforge/internal/store"
)

// cacheKVKey is where the cache mirrors itself in the KV backend, so cached
// explanations survive process restarts.
const cacheKVKey = "ai_explanation_cache"

// Cache limits.
const (
	MaxEntries = 1000
	DefaultTTL = 24 * time.Hour
)

type cacheEntry struct {
	Text     string    `json:"text"`
	CachedAt time.Time `json:"cachedAt"`
}

// cache is an insertion-ordered bounded cache with TTL, mirrored to a KV
// backend after every mutation. The oldest entry goes first when full.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
	ttl     time.Duration
	kv      store.KV
	logger  *slog.Logger
	now     func() time.Time
}

func newCache(kv store.KV, ttl time.Duration, logger *slog.Logger, now func() time.Time) *cache {
	c := &cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		kv:      kv,
		logger:  logger,
		now:     now,
	}
	c.load()
	return c
}

// load restores the mirror, dropping entries that expired while the process
// was down. A corrupt or missing mirror just means a cold cache.
func (c *cache) load() {
	if c.kv == nil {
		return
	}
	raw, ok, err := c.kv.Get(cacheKVKey)
	if err != nil || !ok {
		if err != nil {
			c.logger.Warn("explanation cache unavailable, starting cold", "error", err)
		}
		return
	}

	var stored struct {
		Entries map[string]cacheEntry `json:"entries"`
		Order   []string              `json:"order"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn("explanation cache corrupt, starting cold", "error", err)
		return
	}

	cutoff := c.now().Add(-c.ttl)
	for _, key := range stored.Order {
		e, ok := stored.Entries[key]
		if !ok || e.CachedAt.Before(cutoff) {
			continue
		}
		c.entries[key] = e
		c.order = append(c.order, key)
	}
}

func (c *cache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if e.CachedAt.Before(c.now().Add(-c.ttl)) {
		delete(c.entries, key)
		c.dropFromOrder(key)
		return "", false
	}
	return e.Text, true
}

func (c *cache) put(key, text string) {
	c.mu.Lock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{Text: text, CachedAt: c.now()}

	for len(c.order) > MaxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.mu.Unlock()

	c.persist()
}

// dropFromOrder removes one key from the insertion order. Callers hold mu.
func (c *cache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// persist mirrors the cache to KV. Best effort: the in-memory copy stays
// authoritative when the backend rejects the write.
func (c *cache) persist() {
	if c.kv == nil {
		return
	}
	c.mu.Lock()
	payload, err := json.Marshal(struct {
		Entries map[string]cacheEntry `json:"entries"`
		Order   []string              `json:"order"`
	}{c.entries, c.order})
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("encode explanation cache", "error", err)
		return
	}
	if err := c.kv.Set(cacheKVKey, string(payload)); err != nil {
		c.logger.Warn("mirror explanation cache", "error", err)
	}
}

// clear drops all entries, in memory and in the mirror.
func (c *cache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
	if c.kv != nil {
		if err := c.kv.Delete(cacheKVKey); err != nil {
			c.logger.Warn("clear explanation cache mirror", "error", err)
		}
	}
}

func (c *cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// hashKey folds the parts into a short stable cache key.
func hashKey(namespace string, parts ...string) string {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:%x", namespace, h.Sum64())
}
