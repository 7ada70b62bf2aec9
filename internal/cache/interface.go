package cache

import "asyncimage/internal/codec"

// MemoryTier is the volatile in-process tier consulted before any work is queued.
type MemoryTier interface {
	Lookup(url string) (*codec.Bitmap, bool)
	Store(url string, bmp *codec.Bitmap)
	Clear()
}

// Holder keeps a bitmap that may be reclaimed at any time.
type Holder interface {
	Get() (*codec.Bitmap, bool)
}
