package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// NewMemoryTier creates a memory tier based on the memory cache type
func NewMemoryTier(memoryType string, maxEntries int, log *zap.Logger) (MemoryTier, error) {
	switch memoryType {
	case "weak", "":
		log.Info("Using weak memory cache")
		return NewMemoryCache(), nil
	case "lru":
		log.Info("Using LRU memory cache", zap.Int("max_entries", maxEntries))
		return NewLRUCache(maxEntries, func(url string) {
			log.Debug("Evicted from memory cache", zap.String("url", url))
		}), nil
	case "disabled":
		log.Info("Memory cache disabled")
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unknown memory cache type: %s (supported: weak, lru, disabled)", memoryType)
	}
}
