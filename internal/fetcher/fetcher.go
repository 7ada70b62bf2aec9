// Package fetcher retrieves and decodes images over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"asyncimage/internal/codec"
)

var (
	ErrInvalidURL = errors.New("invalid image url")
	ErrFetch      = errors.New("fetch failed")
)

// DefaultTimeout bounds a single fetch so a hung remote cannot stall the worker forever.
const DefaultTimeout = 30 * time.Second

type Fetcher struct {
	client  *http.Client
	codec   codec.Codec
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Fetcher. A nil client means http.DefaultClient; a
// non-positive timeout disables the per-fetch deadline.
func New(client *http.Client, c codec.Codec, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:  client,
		codec:   c,
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch performs a single GET of rawURL and decodes the body at full resolution.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*codec.Bitmap, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, rawURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetch, err)
	}

	bmp, err := f.codec.Decode(data, 1)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched image",
		zap.String("url", rawURL),
		zap.Int("bytes", len(data)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return bmp, nil
}
