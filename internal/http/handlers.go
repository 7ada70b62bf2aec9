package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asyncimage"
	"asyncimage/internal/cache"
	"asyncimage/internal/codec"
	"asyncimage/internal/config"
)

type Handlers struct {
	config *config.Config
	logger *zap.Logger
	loader *asyncimage.Loader
	codec  codec.Codec
}

func New(config *config.Config, logger *zap.Logger, loader *asyncimage.Loader, c codec.Codec) *Handlers {
	return &Handlers{
		config: config,
		logger: logger,
		loader: loader,
		codec:  c,
	}
}

func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		ip := h.extractIP(r)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapped.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("ip", ip),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigin := h.config.AllowedOrigin
		if allowedOrigin == "" {
			allowedOrigin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleImage serves GET /api/image?url=...&width=&height=&force= by running
// the request through the loader's queue and waiting for its listener.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	imageURL := strings.TrimSpace(query.Get("url"))
	if imageURL == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	opts, err := parseLoadOptions(query.Get("width"), query.Get("height"), query.Get("force"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := make(chan *asyncimage.Bitmap, 1)
	h.loader.LoadWithOptions(imageURL, opts, func(_ string, bmp *asyncimage.Bitmap) {
		result <- bmp
	})

	timer := time.NewTimer(h.config.RequestTimeout)
	defer timer.Stop()

	var bmp *asyncimage.Bitmap
	select {
	case bmp = <-result:
	case <-r.Context().Done():
		return
	case <-timer.C:
		http.Error(w, "Timed out waiting for image", http.StatusGatewayTimeout)
		return
	}

	if bmp == nil {
		http.Error(w, "Failed to load image", http.StatusBadGateway)
		return
	}

	data, err := h.codec.Encode(bmp)
	if err != nil {
		h.logger.Error("Failed to encode image", zap.String("url", imageURL), zap.Error(err))
		http.Error(w, "Failed to encode image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", `"`+cache.Fingerprint(imageURL)+`"`)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Image-Size", fmt.Sprintf("%dx%d", bmp.Width(), bmp.Height()))

	// HEAD request doesn't send body
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Write(data)
}

// HandleCache serves GET /api/cache?url=... with the disk-tier entry for a URL,
// and DELETE /api/cache to empty both tiers.
func (h *Handlers) HandleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		imageURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if imageURL == "" {
			http.Error(w, "Missing url parameter", http.StatusBadRequest)
			return
		}

		response := map[string]interface{}{
			"url":         imageURL,
			"fingerprint": cache.Fingerprint(imageURL),
			"path":        h.loader.Path(imageURL),
			"cached":      h.loader.Cached(imageURL),
			"pending":     h.loader.Pending(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	case http.MethodDelete:
		if err := h.loader.Clear(); err != nil {
			h.logger.Error("Failed to clear cache", zap.Error(err))
			http.Error(w, "Failed to clear cache", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func parseLoadOptions(width, height, force string) (asyncimage.LoadOptions, error) {
	var opts asyncimage.LoadOptions
	var err error

	if width != "" {
		if opts.Width, err = strconv.Atoi(width); err != nil {
			return opts, fmt.Errorf("invalid width")
		}
	}
	if height != "" {
		if opts.Height, err = strconv.Atoi(height); err != nil {
			return opts, fmt.Errorf("invalid height")
		}
	}
	if force != "" {
		if opts.Force, err = strconv.ParseBool(force); err != nil {
			return opts, fmt.Errorf("invalid force flag")
		}
	}
	return opts, nil
}

// Not for real production use due to potential spoofing
func (h *Handlers) extractIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip != "" {
		return strings.Split(ip, ":")[0]
	}

	addr := r.RemoteAddr
	if addr != "" {
		return strings.Split(addr, ":")[0]
	}

	return "unknown"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
