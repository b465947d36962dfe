// pkg/sdf/mem_cache.go

package sdf

import (
	"sync"
	"time"
)

// per-entry bookkeeping charged on top of the value size
const itemOverhead = 48

type memItem[V any] struct {
	atime time.Time
	value V
	size  int64
}

// memCache holds values by sequence id within a byte budget. When the budget
// is exceeded it repeatedly samples two entries and evicts the one accessed
// least recently.
type memCache[V any] struct {
	sync.Mutex
	capacity int64
	used     int64
	items    map[int64]memItem[V]
	sizeOf   func(V) int64
}

func newMemCache[V any](capacity int64, sizeOf func(V) int64) *memCache[V] {
	return &memCache[V]{
		capacity: capacity,
		items:    make(map[int64]memItem[V]),
		sizeOf:   sizeOf,
	}
}

func (c *memCache[V]) stats() (int64, int64) {
	c.Lock()
	defer c.Unlock()
	return int64(len(c.items)), c.used
}

func (c *memCache[V]) cache(key int64, v V) {
	size := c.sizeOf(v) + itemOverhead
	if c.capacity == 0 || size > c.capacity {
		return
	}
	c.Lock()
	defer c.Unlock()
	if _, ok := c.items[key]; ok {
		return
	}
	c.items[key] = memItem[V]{time.Now(), v, size}
	c.used += size
	if c.used > c.capacity {
		c.cleanup()
	}
}

func (c *memCache[V]) delete(key int64, item memItem[V]) {
	c.used -= item.size
	delete(c.items, key)
}

func (c *memCache[V]) load(key int64) (V, bool) {
	c.Lock()
	defer c.Unlock()
	item, ok := c.items[key]
	if ok {
		item.atime = time.Now()
		c.items[key] = item
	}
	return item.value, ok
}

func (c *memCache[V]) purge() {
	c.Lock()
	defer c.Unlock()
	c.items = make(map[int64]memItem[V])
	c.used = 0
}

// locked
func (c *memCache[V]) cleanup() {
	var cnt int
	var lastKey int64
	var lastValue memItem[V]
	var now = time.Now()
	for c.used > c.capacity && len(c.items) > 0 {
		// for each two random keys, then compare the access time, evict the older one
		for k, v := range c.items {
			if cnt == 0 || lastValue.atime.After(v.atime) {
				lastKey = k
				lastValue = v
			}
			cnt++
			if cnt > 1 || len(c.items) == 1 {
				logger.Tracef("evict sequence %d from cache, age: %s", lastKey, now.Sub(lastValue.atime))
				c.delete(lastKey, lastValue)
				cnt = 0
				if c.used <= c.capacity {
					break
				}
			}
		}
		cnt = 0
	}
}
