package cache

import "asyncimage/internal/codec"

// NoopCache is a memory tier that never holds anything.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Lookup(url string) (*codec.Bitmap, bool) {
	return nil, false
}

func (c *NoopCache) Store(url string, bmp *codec.Bitmap) {
}

func (c *NoopCache) Clear() {
}
