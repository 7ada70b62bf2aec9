package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               int
	CacheDir           string
	MemoryCache        string
	MemoryCacheEntries int
	MemoryPopulate     bool
	FetchTimeout       time.Duration
	Codec              string
	JPEGQuality        int
	VipsMaxCacheMB     int
	VipsConcurrency    int
	LogLevel           string
	LogFormat          string
	WarmupFile         string
	WarmupWorkers      int
	RequestTimeout     time.Duration
	AllowedOrigin      string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnvInt("PORT", 8080),
		CacheDir:           getEnv("CACHE_DIR", filepath.Join(os.TempDir(), "asyncimage")),
		MemoryCache:        getEnv("MEMORY_CACHE", "weak"),
		MemoryCacheEntries: getEnvInt("MEMORY_CACHE_ENTRIES", 256),
		MemoryPopulate:     getEnvBool("MEMORY_POPULATE", true),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		Codec:              getEnv("CODEC", "std"),
		JPEGQuality:        getEnvInt("JPEG_QUALITY", 90),
		VipsMaxCacheMB:     getEnvInt("VIPS_MAX_CACHE_MB", 256),
		VipsConcurrency:    getEnvInt("VIPS_CONCURRENCY", 1),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		WarmupFile:         getEnv("WARMUP_FILE", ""),
		WarmupWorkers:      getEnvInt("WARMUP_WORKERS", 1),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", time.Minute),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", ""),
	}

	return cfg
}

// UseVips reports whether images should go through libvips instead of the Go decoders.
func (c *Config) UseVips() bool {
	return strings.EqualFold(strings.TrimSpace(c.Codec), "vips")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
