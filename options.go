package asyncimage

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"asyncimage/internal/cache"
	"asyncimage/internal/callback"
	"asyncimage/internal/codec"
	"asyncimage/internal/fetcher"
)

type options struct {
	logger         *zap.Logger
	codec          codec.Codec
	httpClient     *http.Client
	fetchTimeout   time.Duration
	memory         cache.MemoryTier
	populateMemory bool
	executor       callback.Executor
}

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		fetchTimeout:   fetcher.DefaultTimeout,
		populateMemory: true,
	}
}

// Option configures a Loader.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCodec sets the codec used for decoding and for committing to disk.
// Defaults to the standard library codec at JPEG quality 90.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithFetchTimeout bounds each network fetch. Zero disables the deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

// WithMemoryTier replaces the default weak-pointer memory tier.
func WithMemoryTier(tier cache.MemoryTier) Option {
	return func(o *options) {
		o.memory = tier
	}
}

// WithMemoryPopulation controls whether the worker stores resolved bitmaps in
// the memory tier. On by default.
func WithMemoryPopulation(enabled bool) Option {
	return func(o *options) {
		o.populateMemory = enabled
	}
}

// WithExecutor sets where listeners run. By default the Loader starts its own
// delivery goroutine and stops it on Close.
func WithExecutor(executor callback.Executor) Option {
	return func(o *options) {
		o.executor = executor
	}
}
