package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when committing bitmaps to disk.
const DefaultQuality = 90

var ErrDecode = errors.New("not a decodable image")

// Bitmap is a decoded image together with the name of the format it was decoded from.
type Bitmap struct {
	Image  image.Image
	Format string
}

func (b *Bitmap) Width() int {
	return b.Image.Bounds().Dx()
}

func (b *Bitmap) Height() int {
	return b.Image.Bounds().Dy()
}

// Codec turns encoded image bytes into bitmaps and back.
type Codec interface {
	// Bounds reports the dimensions of the encoded image without decoding pixels.
	Bounds(data []byte) (width, height int, err error)
	// Decode decodes data, shrinking each dimension by sampleSize (a power of two, 1 = full size).
	Decode(data []byte, sampleSize int) (*Bitmap, error)
	// Encode serializes the bitmap with a lossy encoding.
	Encode(bmp *Bitmap) ([]byte, error)
}

// SampleSize returns the largest power-of-two factor that keeps both dimensions
// at or above the target. Non-positive targets disable downsampling.
func SampleSize(width, height, targetWidth, targetHeight int) int {
	if targetWidth <= 0 || targetHeight <= 0 {
		return 1
	}

	scale := 1
	for width/2 >= targetWidth && height/2 >= targetHeight {
		width /= 2
		height /= 2
		scale *= 2
	}
	return scale
}

// Std is a Codec built on the image/* decoders and golang.org/x/image.
type Std struct {
	quality int
}

func NewStd(quality int) *Std {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Std{quality: quality}
}

func (c *Std) Bounds(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (c *Std) Decode(data []byte, sampleSize int) (*Bitmap, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if sampleSize > 1 {
		img = shrink(img, sampleSize)
	}

	return &Bitmap{Image: img, Format: format}, nil
}

func (c *Std) Encode(bmp *Bitmap) ([]byte, error) {
	if bmp == nil || bmp.Image == nil {
		return nil, errors.New("nil bitmap")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, bmp.Image, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func shrink(src image.Image, factor int) image.Image {
	b := src.Bounds()
	w := max(b.Dx()/factor, 1)
	h := max(b.Dy()/factor, 1)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
