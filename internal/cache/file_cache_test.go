package cache

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncimage/internal/codec"
)

func testBitmap(w, h int) *codec.Bitmap {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(y % 256), B: 40, A: 255})
		}
	}
	return &codec.Bitmap{Image: img, Format: "png"}
}

func newTestFileCache(t *testing.T) *FileCache {
	t.Helper()
	fc, err := NewFileCache(filepath.Join(t.TempDir(), "cache"), codec.NewStd(codec.DefaultQuality))
	require.NoError(t, err)
	return fc
}

func TestFingerprint(t *testing.T) {
	require.NoError(t, CheckDigest())

	url := "http://x/img.png"
	assert.Equal(t, Fingerprint(url), Fingerprint(url))
	assert.Equal(t, "dc3f84c47506827c21025f6e156cf7f004b1a594633694110e111fc3354867fc", Fingerprint(url))
	assert.NotEqual(t, Fingerprint(url), Fingerprint("http://x/img2.png"))
	assert.Len(t, Fingerprint(""), 64)
}

func TestNewFileCacheCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewFileCache(dir, codec.NewStd(0))
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = NewFileCache("", codec.NewStd(0))
	assert.Error(t, err)
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := newTestFileCache(t)
	url := "http://example.com/photo.png"

	assert.False(t, fc.Has(url))
	require.NoError(t, fc.Write(url, testBitmap(120, 80)))
	assert.True(t, fc.Has(url))
	assert.FileExists(t, filepath.Join(fc.Dir(), Fingerprint(url)))

	bmp, err := fc.Read(url, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", bmp.Format)
	assert.Equal(t, 120, bmp.Width())
	assert.Equal(t, 80, bmp.Height())

	entries, err := os.ReadDir(fc.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should have been renamed away")
}

func TestFileCacheReadDownsamples(t *testing.T) {
	fc := newTestFileCache(t)
	url := "http://example.com/big.png"
	require.NoError(t, fc.Write(url, testBitmap(800, 600)))

	small, err := fc.Read(url, 150, 150)
	require.NoError(t, err)
	assert.Equal(t, 200, small.Width())
	assert.Equal(t, 150, small.Height())

	full, err := fc.Read(url, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, 800, full.Width())
	assert.Equal(t, 600, full.Height())

	unset, err := fc.Read(url, 150, 0)
	require.NoError(t, err)
	assert.Equal(t, 800, unset.Width())
}

func TestFileCacheReadMiss(t *testing.T) {
	fc := newTestFileCache(t)

	_, err := fc.Read("http://example.com/missing.png", 0, 0)
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestFileCacheReadCorrupt(t *testing.T) {
	fc := newTestFileCache(t)
	url := "http://example.com/corrupt.png"
	require.NoError(t, os.WriteFile(fc.Path(url), []byte("garbage"), 0644))

	_, err := fc.Read(url, 0, 0)
	assert.ErrorIs(t, err, codec.ErrDecode)
	assert.NotErrorIs(t, err, ErrNotCached)

	_, err = fc.Read(url, 10, 10)
	assert.ErrorIs(t, err, codec.ErrDecode)
}

func TestFileCacheWriteOverwrites(t *testing.T) {
	fc := newTestFileCache(t)
	url := "http://example.com/changing.png"

	require.NoError(t, fc.Write(url, testBitmap(10, 10)))
	require.NoError(t, fc.Write(url, testBitmap(30, 20)))

	bmp, err := fc.Read(url, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, bmp.Width())
}

func TestFileCacheSharedDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileCache(dir, codec.NewStd(0))
	require.NoError(t, err)
	b, err := NewFileCache(dir, codec.NewStd(0))
	require.NoError(t, err)

	url := "http://example.com/shared.png"
	require.NoError(t, a.Write(url, testBitmap(16, 16)))

	bmp, err := b.Read(url, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, bmp.Width())
}

func TestFileCacheClear(t *testing.T) {
	fc := newTestFileCache(t)
	require.NoError(t, fc.Write("http://example.com/1.png", testBitmap(4, 4)))
	require.NoError(t, fc.Write("http://example.com/2.png", testBitmap(4, 4)))

	require.NoError(t, fc.Clear())

	assert.False(t, fc.Has("http://example.com/1.png"))
	assert.False(t, fc.Has("http://example.com/2.png"))
	assert.DirExists(t, fc.Dir())
}
