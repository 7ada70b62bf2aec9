// Package resolver layers the disk tier over the network.
package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"asyncimage/internal/cache"
	"asyncimage/internal/codec"
)

type Store interface {
	Read(url string, width, height int) (*codec.Bitmap, error)
	Write(url string, bmp *codec.Bitmap) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*codec.Bitmap, error)
}

// Resolver looks in the disk tier first and falls back to the network,
// committing whatever it fetches.
type Resolver struct {
	store   Store
	fetcher Fetcher
	logger  *zap.Logger
}

func New(store Store, fetcher Fetcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve returns the image for url, sub-sampled toward width×height when
// both are positive. force skips the disk read but still commits the fetch.
func (r *Resolver) Resolve(ctx context.Context, url string, width, height int, force bool) (*codec.Bitmap, error) {
	if !force {
		bmp, err := r.store.Read(url, width, height)
		if err == nil {
			r.logger.Debug("Read from cache", zap.String("url", url))
			return bmp, nil
		}
		if !errors.Is(err, cache.ErrNotCached) {
			r.logger.Warn("Cache read failed, refetching", zap.String("url", url), zap.Error(err))
		}
	}

	netBmp, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Read from net", zap.String("url", url))

	if err := r.store.Write(url, netBmp); err != nil {
		r.logger.Warn("Write image to cache failed", zap.String("url", url), zap.Error(err))
		return netBmp, nil
	}

	// Read back so the result is sampled exactly like a cache hit.
	bmp, err := r.store.Read(url, width, height)
	if err != nil {
		r.logger.Warn("Cache re-read failed, using network bitmap", zap.String("url", url), zap.Error(err))
		return netBmp, nil
	}
	return bmp, nil
}
