package cache

import (
	"sync"
	"weak"

	"asyncimage/internal/codec"
)

type weakHolder struct {
	ptr weak.Pointer[codec.Bitmap]
}

// NewWeakHolder holds bmp without keeping it alive; the garbage collector may reclaim it.
func NewWeakHolder(bmp *codec.Bitmap) Holder {
	return weakHolder{ptr: weak.Make(bmp)}
}

func (h weakHolder) Get() (*codec.Bitmap, bool) {
	bmp := h.ptr.Value()
	return bmp, bmp != nil
}

// MemoryCache maps URLs to holders with no size bound. Entries vanish when
// their holder is reclaimed; the stale mapping is dropped on the next lookup.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]Holder
	newHolder func(*codec.Bitmap) Holder
}

// NewMemoryCache creates a memory cache backed by weak pointers.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithHolder(NewWeakHolder)
}

func NewMemoryCacheWithHolder(newHolder func(*codec.Bitmap) Holder) *MemoryCache {
	return &MemoryCache{
		items:     make(map[string]Holder),
		newHolder: newHolder,
	}
}

func (c *MemoryCache) Lookup(url string) (*codec.Bitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.items[url]
	if !ok {
		return nil, false
	}

	bmp, ok := h.Get()
	if !ok {
		delete(c.items, url)
		return nil, false
	}
	return bmp, true
}

func (c *MemoryCache) Store(url string, bmp *codec.Bitmap) {
	if bmp == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[url] = c.newHolder(bmp)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]Holder)
}
