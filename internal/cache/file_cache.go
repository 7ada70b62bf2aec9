package cache

import (
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"go.uber.org/multierr"

	"asyncimage/internal/codec"
)

// DefaultFingerprint is the file name every URL collapses to when SHA-256 is unavailable.
const DefaultFingerprint = "DEFAULT"

// Fingerprint maps a URL to its cache file name: the lowercase hex SHA-256 of
// the URL bytes. The format is fixed so separate processes can share a directory.
func Fingerprint(url string) string {
	if !digest.SHA256.Available() {
		return DefaultFingerprint
	}
	return digest.SHA256.FromString(url).Encoded()
}

// CheckDigest reports ErrDigestUnavailable when Fingerprint would degrade to a single slot.
func CheckDigest() error {
	if !digest.SHA256.Available() {
		return ErrDigestUnavailable
	}
	return nil
}

// FileCache is the disk tier.
// Structure: {cacheDir}/{Fingerprint(url)}
//
// There is no locking across instances; writes are atomic so the last writer wins.
type FileCache struct {
	cacheDir string
	codec    codec.Codec
}

func NewFileCache(cacheDir string, c codec.Codec) (*FileCache, error) {
	if cacheDir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{
		cacheDir: cacheDir,
		codec:    c,
	}, nil
}

func (c *FileCache) Dir() string {
	return c.cacheDir
}

// Path returns the file that holds the cached image for url.
func (c *FileCache) Path(url string) string {
	return filepath.Join(c.cacheDir, Fingerprint(url))
}

// Has checks whether a file exists for url without reading it.
func (c *FileCache) Has(url string) bool {
	info, err := os.Stat(c.Path(url))
	return err == nil && info.Mode().IsRegular()
}

// Write encodes bmp and replaces any file already stored for url.
func (c *FileCache) Write(url string, bmp *codec.Bitmap) error {
	data, err := c.codec.Encode(bmp)
	if err != nil {
		return err
	}

	filePath := c.Path(url)
	tmpPath := filepath.Join(c.cacheDir, "."+filepath.Base(filePath)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit cache file: %w", err)
	}

	return nil
}

// Read decodes the file stored for url. When width and height are both
// positive the image is sub-sampled by the largest power of two that keeps it
// at or above that size.
func (c *FileCache) Read(url string, width, height int) (*codec.Bitmap, error) {
	data, err := os.ReadFile(c.Path(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotCached, url)
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	sampleSize := 1
	if width > 0 && height > 0 {
		w, h, err := c.codec.Bounds(data)
		if err != nil {
			return nil, err
		}
		sampleSize = codec.SampleSize(w, h, width, height)
	}

	return c.codec.Decode(data, sampleSize)
}

// Clear removes every cached file but keeps the directory, which other
// instances may be using.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	var errs error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.cacheDir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
