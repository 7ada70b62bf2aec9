package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CACHE_DIR", "MEMORY_CACHE", "MEMORY_POPULATE", "FETCH_TIMEOUT", "CODEC", "JPEG_QUALITY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "weak", cfg.MemoryCache)
	assert.True(t, cfg.MemoryPopulate)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 90, cfg.JPEGQuality)
	assert.False(t, cfg.UseVips())
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_DIR", "/tmp/cache")
	t.Setenv("MEMORY_CACHE", "lru")
	t.Setenv("MEMORY_POPULATE", "false")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("CODEC", "VIPS")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "lru", cfg.MemoryCache)
	assert.False(t, cfg.MemoryPopulate)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.UseVips())
	assert.Equal(t, 8080, cfg.Port, "unparseable values fall back to the default")
}
