package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ZaguanLabs/wordweave"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 2000

// DefaultFlushDelay is the debounce window between a mutation and the
// snapshot written to the store.
const DefaultFlushDelay = time.Second

// LRUCache is a bounded, thread-safe word cache with least-recently-used
// eviction. Reads and writes both refresh recency. Mutations schedule a
// debounced snapshot to the configured Store; persistence failures are
// logged and the in-memory state stays authoritative.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element

	store      Store
	flushDelay time.Duration
	timer      *time.Timer
	dirty      bool
	closed     bool
	saveMu     sync.Mutex
	logger     *slog.Logger
}

type lruEntry struct {
	record wordweave.CacheRecord
}

// Option configures an LRUCache.
type Option func(*LRUCache)

// WithStore sets the persistence store.
func WithStore(s Store) Option {
	return func(c *LRUCache) {
		c.store = s
	}
}

// WithFlushDelay sets the persistence debounce window.
func WithFlushDelay(d time.Duration) Option {
	return func(c *LRUCache) {
		c.flushDelay = d
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *LRUCache) {
		c.logger = l
	}
}

// NewLRUCache creates a cache holding at most capacity entries.
// A capacity of 0 or less selects DefaultCapacity.
func NewLRUCache(capacity int, opts ...Option) *LRUCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LRUCache{
		capacity:   capacity,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		flushDelay: DefaultFlushDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "cache")
	return c
}

// Get retrieves an entry and marks it most recently used.
func (c *LRUCache) Get(word, sourceLang, targetLang string) (wordweave.CacheEntry, bool) {
	key := wordweave.CacheKey(word, sourceLang, targetLang)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return wordweave.CacheEntry{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).record.Entry, true
}

// Put stores an entry as the most recently used one. An existing entry for
// the key is removed first; at capacity the least recently used entry is
// evicted.
func (c *LRUCache) Put(word, sourceLang, targetLang string, entry wordweave.CacheEntry) {
	rec := wordweave.CacheRecord{
		Key:        wordweave.CacheKey(word, sourceLang, targetLang),
		Word:       wordweave.NormalizeWord(word),
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Entry:      entry,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.insert(rec)
	c.schedulePersist()
}

// insert must be called with c.mu held.
func (c *LRUCache) insert(rec wordweave.CacheRecord) {
	if el, ok := c.items[rec.Key]; ok {
		c.ll.Remove(el)
		delete(c.items, rec.Key)
	}
	for c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).record.Key)
	}
	c.items[rec.Key] = c.ll.PushFront(&lruEntry{record: rec})
}

// Entries returns a snapshot ordered from least to most recently used.
// It does not change recency.
func (c *LRUCache) Entries() []wordweave.CacheRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *LRUCache) snapshot() []wordweave.CacheRecord {
	out := make([]wordweave.CacheRecord, 0, c.ll.Len())
	for el := c.ll.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*lruEntry).record)
	}
	return out
}

// Len returns the number of entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the maximum number of entries.
func (c *LRUCache) Capacity() int {
	return c.capacity
}

// Clear removes all entries.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.schedulePersist()
}

// schedulePersist must be called with c.mu held.
func (c *LRUCache) schedulePersist() {
	if c.store == nil || c.closed {
		return
	}
	c.dirty = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.flushDelay, c.persist)
		return
	}
	c.timer.Reset(c.flushDelay)
}

func (c *LRUCache) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("cache persistence failed", "error", err)
	}
}

// Load replaces the cache contents with the store's snapshot. Records
// beyond capacity keep the most recent ones.
func (c *LRUCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	records, err := c.store.Load(ctx)
	if err != nil {
		return &wordweave.CacheError{Message: "load failed", Store: storeName(c.store), Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	skipped := 0
	for _, r := range records {
		rec, ok := FromRecord(r)
		if !ok {
			skipped++
			continue
		}
		c.insert(rec)
	}
	if skipped > 0 {
		c.logger.Debug("skipped malformed cache records", "count", skipped)
	}
	return nil
}

// Flush writes a snapshot to the store now.
func (c *LRUCache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	snap := c.snapshot()
	c.dirty = false
	c.mu.Unlock()

	records := make([]Record, len(snap))
	for i, r := range snap {
		records[i] = ToRecord(r)
	}
	if err := c.store.Save(ctx, records); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return &wordweave.CacheError{Message: "save failed", Store: storeName(c.store), Cause: err}
	}
	return nil
}

// Close stops the debounce timer and writes pending changes.
func (c *LRUCache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	dirty := c.dirty
	c.mu.Unlock()

	if !dirty {
		return nil
	}
	return c.Flush(ctx)
}

func storeName(s Store) string {
	switch s.(type) {
	case *MemoryStore:
		return "memory"
	case *FileStore:
		return "file"
	case *RedisStore:
		return "redis"
	case *SQLiteStore:
		return "sqlite"
	default:
		return "custom"
	}
}

var _ wordweave.TranslationCache = (*LRUCache)(nil)
