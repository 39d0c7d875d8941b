package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/imgcache/model"
)

// LRU is a TTL-aware, capacity-bounded LRU store.
type LRU struct {
	cfg Config

	mu        sync.Mutex
	size      int64
	items     map[model.Key]*list.Element
	evictList *list.List

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

type item struct {
	key        model.Key
	value      *model.Entry
	insertedAt time.Time
	lastAccess time.Time
}

type eviction struct {
	key    model.Key
	reason EvictReason
}

// NewLRU creates an LRU store.
func NewLRU(cfg Config) *LRU {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LRU{
		cfg:       cfg,
		items:     make(map[model.Key]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a fresh entry and marks it most recently used.
func (c *LRU) Get(key model.Key) (*model.Entry, bool) {
	now := c.cfg.Now()

	c.mu.Lock()
	ent, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	it := ent.Value.(*item)
	if c.stale(it, now) {
		c.removeElement(ent)
		c.mu.Unlock()
		c.misses.Add(1)
		c.expirations.Add(1)
		c.notify([]eviction{{key: key, reason: EvictExpired}})
		return nil, false
	}

	it.lastAccess = now
	c.evictList.MoveToFront(ent)
	v := it.value
	c.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Peek returns a fresh entry without touching recency or counters.
func (c *LRU) Peek(key model.Key) (*model.Entry, bool) {
	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}
	it := ent.Value.(*item)
	if c.stale(it, now) {
		return nil, false
	}
	return it.value, true
}

// Set inserts or replaces the entry for key.
//
// An entry larger than MaxBytes is not admitted and any previous entry for
// the key is dropped, so readers never see an older version after a Set.
func (c *LRU) Set(key model.Key, e *model.Entry) bool {
	if e == nil {
		return false
	}
	now := c.cfg.Now()
	itemSize := e.Size()

	c.mu.Lock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}

	if c.cfg.MaxBytes > 0 && itemSize > c.cfg.MaxBytes {
		c.mu.Unlock()
		return false
	}

	var evicted []eviction

	// Make room locally first; this also returns memory to the controller.
	for c.overCapacity(itemSize) {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		evicted = append(evicted, c.evict(ent, EvictCapacity, now))
	}

	admitted := true
	if rc := c.cfg.Controller; rc != nil {
		for !rc.TryAcquireMemory(itemSize) {
			ent := c.evictList.Back()
			if ent == nil {
				admitted = false
				break
			}
			evicted = append(evicted, c.evict(ent, EvictMemory, now))
		}
	}

	if admitted {
		element := c.evictList.PushFront(&item{
			key:        key,
			value:      e,
			insertedAt: now,
			lastAccess: now,
		})
		c.items[key] = element
		c.size += itemSize
	}
	c.mu.Unlock()

	c.notify(evicted)
	return admitted
}

// Remove deletes the entry for key.
func (c *LRU) Remove(key model.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(ent)
	return true
}

// RemoveFunc removes entries matching the predicate.
func (c *LRU) RemoveFunc(pred func(model.Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Collect first; removeElement modifies the list.
	var toRemove []*list.Element
	for key, element := range c.items {
		if pred(key) {
			toRemove = append(toRemove, element)
		}
	}

	for _, e := range toRemove {
		c.removeElement(e)
	}
	return len(toRemove)
}

// Clear removes all entries.
func (c *LRU) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	if rc := c.cfg.Controller; rc != nil {
		rc.ReleaseMemory(c.size)
	}
	c.items = make(map[model.Key]*list.Element)
	c.evictList.Init()
	c.size = 0
	return n
}

// Len returns the number of resident entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current size of the store in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns a snapshot of counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	n, size := len(c.items), c.size
	c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
		Len:         n,
		Bytes:       size,
	}
}

func (c *LRU) stale(it *item, now time.Time) bool {
	if c.cfg.TTL > 0 && now.Sub(it.insertedAt) > c.cfg.TTL {
		return true
	}
	if c.cfg.IdleTTL > 0 && now.Sub(it.lastAccess) > c.cfg.IdleTTL {
		return true
	}
	return false
}

func (c *LRU) overCapacity(incoming int64) bool {
	if c.cfg.MaxEntries > 0 && len(c.items)+1 > c.cfg.MaxEntries {
		return true
	}
	if c.cfg.MaxBytes > 0 && c.size+incoming > c.cfg.MaxBytes {
		return true
	}
	return false
}

// evict removes the tail element. A stale victim is reported as expired.
func (c *LRU) evict(e *list.Element, reason EvictReason, now time.Time) eviction {
	it := e.Value.(*item)
	if c.stale(it, now) {
		reason = EvictExpired
	}
	c.removeElement(e)

	if reason == EvictExpired {
		c.expirations.Add(1)
	} else {
		c.evictions.Add(1)
	}
	return eviction{key: it.key, reason: reason}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	it := e.Value.(*item)
	delete(c.items, it.key)
	itemSize := it.value.Size()
	c.size -= itemSize
	if rc := c.cfg.Controller; rc != nil {
		rc.ReleaseMemory(itemSize)
	}
}

func (c *LRU) notify(evicted []eviction) {
	if c.cfg.OnEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.cfg.OnEvict(ev.key, ev.reason)
	}
}
