// Package vipscodec decodes and encodes bitmaps through libvips.
package vipscodec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"asyncimage/internal/codec"
)

// Startup initializes libvips and routes its warnings into log.
// The returned function shuts libvips down.
func Startup(maxCacheMB, concurrency int, log *zap.Logger) func() {
	vipsConfig := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      maxCacheMB * 1024 * 1024,
		MaxCacheFiles:    0, // the loader keeps its own disk tier
		MaxCacheSize:     0,
		ReportLeaks:      false,
		CacheTrace:       false,
		VectorEnabled:    true,
	}

	vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
		if level >= vips.LogLevelError {
			log.Error("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		} else if level >= vips.LogLevelWarning {
			log.Warn("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		}
	}, vips.LogLevelError)

	vips.Startup(vipsConfig)

	log.Info("VIPS initialized",
		zap.Int("max_cache_mb", maxCacheMB),
		zap.Int("concurrency", concurrency),
	)

	return vips.Shutdown
}

// Codec implements codec.Codec with libvips. Pixels cross the cgo boundary as PNG.
type Codec struct {
	quality int
}

func New(quality int) *Codec {
	if quality <= 0 || quality > 100 {
		quality = codec.DefaultQuality
	}
	return &Codec{quality: quality}
}

func (c *Codec) Bounds(data []byte) (int, int, error) {
	img, err := vips.NewImageFromBuffer(data, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}
	defer img.Close()

	return img.Width(), img.Height(), nil
}

func (c *Codec) Decode(data []byte, sampleSize int) (*codec.Bitmap, error) {
	img, err := vips.NewImageFromBuffer(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}
	defer img.Close()

	if sampleSize > 1 {
		resizeOpts := vips.DefaultResizeOptions()
		resizeOpts.Kernel = vips.KernelLanczos3
		if err := img.Resize(1/float64(sampleSize), resizeOpts); err != nil {
			return nil, fmt.Errorf("failed to resize: %w", err)
		}
	}

	out, err := img.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}

	pixels, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}

	format := "unknown"
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = name
	}

	return &codec.Bitmap{Image: pixels, Format: format}, nil
}

func (c *Codec) Encode(bmp *codec.Bitmap) ([]byte, error) {
	if bmp == nil || bmp.Image == nil {
		return nil, fmt.Errorf("nil bitmap")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, bmp.Image); err != nil {
		return nil, fmt.Errorf("failed to stage pixels: %w", err)
	}

	img, err := vips.NewImageFromBuffer(buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged pixels: %w", err)
	}
	defer img.Close()

	jpegOpts := vips.DefaultJpegsaveBufferOptions()
	jpegOpts.Q = c.quality
	jpegOpts.Interlace = false

	data, err := img.JpegsaveBuffer(jpegOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}
	return data, nil
}
