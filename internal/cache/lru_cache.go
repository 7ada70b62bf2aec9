package cache

import (
	"container/list"
	"sync"

	"asyncimage/internal/codec"
)

type entry struct {
	url    string
	bitmap *codec.Bitmap
}

// LRUCache is a bounded memory tier. Eviction plays the role of memory
// pressure: the least recently used entry is dropped and onEvict is told.
type LRUCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lruList *list.List
	onEvict func(url string)
}

// NewLRUCache creates an LRU memory tier holding at most maxSize bitmaps.
func NewLRUCache(maxSize int, onEvict func(url string)) *LRUCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lruList: list.New(),
		onEvict: onEvict,
	}
}

func (c *LRUCache) Lookup(url string) (*codec.Bitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[url]
	if !ok {
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	return elem.Value.(*entry).bitmap, true
}

func (c *LRUCache) Store(url string, bmp *codec.Bitmap) {
	if bmp == nil {
		return
	}

	c.mu.Lock()
	var evicted string
	defer func() {
		c.mu.Unlock()
		if evicted != "" && c.onEvict != nil {
			c.onEvict(evicted)
		}
	}()

	if elem, ok := c.items[url]; ok {
		elem.Value.(*entry).bitmap = bmp
		c.lruList.MoveToFront(elem)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest != nil {
			evicted = oldest.Value.(*entry).url
			delete(c.items, evicted)
			c.lruList.Remove(oldest)
		}
	}

	elem := c.lruList.PushFront(&entry{url: url, bitmap: bmp})
	c.items[url] = elem
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lruList.Len()
}

func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lruList = list.New()
}
