package asyncimage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asyncimage/internal/cache"
	"asyncimage/internal/callback"
	"asyncimage/internal/codec"
	"asyncimage/internal/dispatcher"
	"asyncimage/internal/fetcher"
	"asyncimage/internal/resolver"
)

type (
	Bitmap   = codec.Bitmap
	Listener = callback.Listener
)

// LoadOptions narrows a single load. Width and Height request sub-sampling
// when both are positive; Force skips the memory and disk reads.
type LoadOptions struct {
	Width  int
	Height int
	Force  bool
}

func (o LoadOptions) sampled() bool {
	return o.Width > 0 && o.Height > 0
}

// Loader is one image pipeline bound to one cache directory.
type Loader struct {
	store      *cache.FileCache
	memory     cache.MemoryTier
	resolver   *resolver.Resolver
	queue      *dispatcher.Queue
	dispatcher *dispatcher.Dispatcher
	loop       *callback.Loop
	logger     *zap.Logger
	closeOnce  sync.Once
}

// Open creates dir if needed and starts the loader's worker.
func Open(dir string, opts ...Option) (*Loader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = codec.NewStd(codec.DefaultQuality)
	}
	if o.memory == nil {
		o.memory = cache.NewMemoryCache()
	}

	if err := cache.CheckDigest(); err != nil {
		o.logger.Warn("URL fingerprints degraded, every image shares one cache file",
			zap.String("file", cache.DefaultFingerprint),
			zap.Error(err),
		)
	}

	store, err := cache.NewFileCache(dir, o.codec)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		store:  store,
		memory: o.memory,
		queue:  dispatcher.NewQueue(),
		logger: o.logger,
	}

	executor := o.executor
	if executor == nil {
		l.loop = callback.NewLoop(o.logger)
		executor = l.loop
	}

	f := fetcher.New(o.httpClient, o.codec, o.fetchTimeout, o.logger)
	l.resolver = resolver.New(store, f, o.logger)

	var memoryStore dispatcher.MemoryStore
	if o.populateMemory {
		memoryStore = o.memory
	}
	l.dispatcher = dispatcher.New(l.queue, l.resolver, callback.NewBridge(executor, o.logger), memoryStore, o.logger)
	l.dispatcher.Start()

	o.logger.Info("Image loader opened", zap.String("cache_dir", dir))
	return l, nil
}

// Close stops the worker and waits for it to exit. Requests still queued are
// abandoned: their listeners are never called. Results already handed to the
// default executor are still delivered. A listener may call Close; it then
// returns without waiting and the worker exits once the listener returns.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		l.dispatcher.Stop()
		if l.loop != nil {
			l.loop.Close()
		}
		if pending := l.queue.Len(); pending > 0 {
			l.logger.Info("Image loader closed with pending requests", zap.Int("pending", pending))
		}
	})
}

// Load delivers the image at url to listener exactly once. A memory-tier hit
// calls listener before Load returns; anything else is queued.
func (l *Loader) Load(url string, listener Listener) {
	l.LoadWithOptions(url, LoadOptions{}, listener)
}

// LoadWithOptions is Load with sub-sampling and force-refresh controls.
// While a URL is queued, further loads for it only add their listener; the
// first request's options are the ones used. The memory tier holds only
// full-resolution bitmaps, so sized loads always go through the queue.
func (l *Loader) LoadWithOptions(url string, opts LoadOptions, listener Listener) {
	if !opts.Force && !opts.sampled() {
		if bmp, ok := l.memory.Lookup(url); ok {
			l.logger.Debug("Read image from memory", zap.String("url", url))
			if listener != nil {
				listener(url, bmp)
			}
			return
		}
	}

	req := &dispatcher.Request{
		ID:     uuid.NewString(),
		URL:    url,
		Width:  opts.Width,
		Height: opts.Height,
		Force:  opts.Force,
	}
	if listener != nil {
		req.Listeners = []Listener{listener}
	}

	if !l.queue.Enqueue(req) {
		l.logger.Debug("Joined queued request", zap.String("url", url))
	}
}

// Resolve runs the disk and network tiers synchronously on the calling
// goroutine, bypassing the queue and the memory tier. It is not serialized
// with the worker; concurrent commits of one URL are safe because disk writes
// are atomic renames.
func (l *Loader) Resolve(ctx context.Context, url string, opts LoadOptions) (*Bitmap, error) {
	return l.resolver.Resolve(ctx, url, opts.Width, opts.Height, opts.Force)
}

// Dir returns the disk tier directory.
func (l *Loader) Dir() string {
	return l.store.Dir()
}

// Path returns the cache file used for url.
func (l *Loader) Path(url string) string {
	return l.store.Path(url)
}

// Cached reports whether the disk tier holds url.
func (l *Loader) Cached(url string) bool {
	return l.store.Has(url)
}

// Pending reports how many requests are queued and not yet picked up by the worker.
func (l *Loader) Pending() int {
	return l.queue.Len()
}

// Clear empties the memory tier and deletes every file in the disk tier.
func (l *Loader) Clear() error {
	l.memory.Clear()
	return l.store.Clear()
}
