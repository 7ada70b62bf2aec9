// Package bootstrap wires a Loader from environment configuration for the binaries.
package bootstrap

import (
	"go.uber.org/zap"

	"asyncimage"
	"asyncimage/internal/cache"
	"asyncimage/internal/callback"
	"asyncimage/internal/codec"
	"asyncimage/internal/codec/vipscodec"
	"asyncimage/internal/config"
)

// OpenLoader builds the codec and memory tier named by cfg and opens a Loader.
// The returned cleanup closes the loader and shuts libvips down if it was started.
func OpenLoader(cfg *config.Config, log *zap.Logger, executor callback.Executor) (*asyncimage.Loader, func(), error) {
	var c codec.Codec
	shutdown := func() {}
	if cfg.UseVips() {
		shutdown = vipscodec.Startup(cfg.VipsMaxCacheMB, cfg.VipsConcurrency, log)
		c = vipscodec.New(cfg.JPEGQuality)
	} else {
		c = codec.NewStd(cfg.JPEGQuality)
	}

	memory, err := cache.NewMemoryTier(cfg.MemoryCache, cfg.MemoryCacheEntries, log)
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	opts := []asyncimage.Option{
		asyncimage.WithLogger(log),
		asyncimage.WithCodec(c),
		asyncimage.WithMemoryTier(memory),
		asyncimage.WithMemoryPopulation(cfg.MemoryPopulate),
		asyncimage.WithFetchTimeout(cfg.FetchTimeout),
	}
	if executor != nil {
		opts = append(opts, asyncimage.WithExecutor(executor))
	}

	loader, err := asyncimage.Open(cfg.CacheDir, opts...)
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	log.Info("Loader configured",
		zap.String("cache_dir", cfg.CacheDir),
		zap.String("codec", cfg.Codec),
		zap.String("memory_cache", cfg.MemoryCache),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
	)

	return loader, func() {
		loader.Close()
		shutdown()
	}, nil
}
