// Package warmup pre-fills the disk tier from a list of URLs.
package warmup

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"asyncimage"
)

type Loader interface {
	Cached(url string) bool
	Resolve(ctx context.Context, url string, opts asyncimage.LoadOptions) (*asyncimage.Bitmap, error)
}

// Run resolves every URL listed in path that is not cached yet, workerLimit at
// a time. Failures are logged and skipped. It returns how many URLs were fetched.
func Run(ctx context.Context, path string, workerLimit int, loader Loader, log *zap.Logger) (int, error) {
	urls, err := ReadURLList(path)
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, nil
	}

	log.Info("Starting cache warmup", zap.Int("urls", len(urls)))

	// Worker pool size configured via env (defaults to 1)
	if workerLimit <= 0 {
		workerLimit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit)

	var fetched atomic.Int32
	for _, u := range urls {
		if loader.Cached(u) {
			continue
		}
		g.Go(func() error {
			if _, err := loader.Resolve(gctx, u, asyncimage.LoadOptions{}); err != nil {
				log.Debug("Warmup failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			fetched.Add(1)
			return nil
		})
	}

	g.Wait()
	log.Info("Cache warmup completed", zap.Int32("fetched", fetched.Load()))
	return int(fetched.Load()), ctx.Err()
}

// ReadURLList reads one URL per line, skipping blanks and # comments.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}
