package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"asyncimage/internal/bootstrap"
	"asyncimage/internal/codec"
	"asyncimage/internal/config"
	httphandlers "asyncimage/internal/http"
	"asyncimage/internal/logger"
	"asyncimage/internal/warmup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	loader, cleanup, err := bootstrap.OpenLoader(cfg, log, nil)
	if err != nil {
		log.Fatal("Failed to open image loader", zap.Error(err))
	}
	defer cleanup()

	log.Info("Starting image cache server",
		zap.Int("port", cfg.Port),
		zap.String("cache_dir", cfg.CacheDir),
	)

	handlers := httphandlers.New(cfg, log, loader, codec.NewStd(cfg.JPEGQuality))

	mux := http.NewServeMux()

	mux.HandleFunc("/api/image", handlers.HandleImage)
	mux.HandleFunc("/api/cache", handlers.HandleCache)
	mux.HandleFunc("/healthz", handlers.HandleHealthz)

	handler := handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(mux))

	warmupCtx, cancelWarmup := context.WithCancel(context.Background())
	defer cancelWarmup()
	if cfg.WarmupFile != "" {
		go func() {
			if _, err := warmup.Run(warmupCtx, cfg.WarmupFile, cfg.WarmupWorkers, loader, log); err != nil {
				log.Warn("Cache warmup stopped", zap.String("path", cfg.WarmupFile), zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancelWarmup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
