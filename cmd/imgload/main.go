package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"asyncimage"
	"asyncimage/internal/bootstrap"
	"asyncimage/internal/config"
	"asyncimage/internal/logger"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		opts     asyncimage.LoadOptions
		cacheDir string
		wait     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "imgload [flags] URL...",
		Short: "Load images through the async memory/disk/network cache",
		Long: `imgload queues every URL on one loader, waits for each listener to fire
and prints the decoded size together with the cache file backing it.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cacheDir != "" {
				cfg.CacheDir = cacheDir
			}
			return run(cmd, cfg, opts, wait, args)
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 0, "target width for sub-sampling (requires --height)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "target height for sub-sampling (requires --width)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip the memory and disk tiers and refetch")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory, overriding CACHE_DIR")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "how long to wait for all listeners")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, opts asyncimage.LoadOptions, wait time.Duration, urls []string) error {
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	loader, cleanup, err := bootstrap.OpenLoader(cfg, log, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	var wg sync.WaitGroup
	failed := 0

	for _, u := range urls {
		wg.Add(1)
		loader.LoadWithOptions(u, opts, func(url string, bmp *asyncimage.Bitmap) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if bmp == nil {
				failed++
				fmt.Fprintf(out, "%s\tfailed\n", url)
				return
			}
			fmt.Fprintf(out, "%s\t%dx%d\t%s\n", url, bmp.Width(), bmp.Height(), loader.Path(url))
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
		log.Warn("Gave up waiting for listeners", zap.Duration("wait", wait), zap.Int("pending", loader.Pending()))
		return fmt.Errorf("timed out after %s", wait)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed to load", failed, len(urls))
	}
	return nil
}
