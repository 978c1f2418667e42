// Package image loads artwork for halftone processing and writes results.
//
// Decoding accepts PNG, JPEG and GIF from the standard library plus BMP,
// TIFF and WebP from golang.org/x/image. Output is always PNG, the only
// format that keeps the knocked-out transparency.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when no registered decoder matches.
	ErrUnsupportedFormat = errors.New("image: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")

	// ErrTooLarge is returned when an image exceeds the pixel limit.
	ErrTooLarge = errors.New("image: too large")
)

// DefaultMaxPixels limits decoded images to 64 megapixels, about 256 MiB
// of RGBA per working copy.
const DefaultMaxPixels = 64 << 20

// Decoder decodes images with a pixel limit checked before the full
// decode allocates anything.
type Decoder struct {
	// MaxPixels is the largest accepted width*height. Zero means
	// DefaultMaxPixels; a negative value disables the check.
	MaxPixels int
}

func (d Decoder) maxPixels() int {
	if d.MaxPixels == 0 {
		return DefaultMaxPixels
	}
	return d.MaxPixels
}

// DecodeBytes decodes an image held in memory and reports its format name.
func (d Decoder) DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyData
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", wrapDecodeErr(err)
	}
	if limit := d.maxPixels(); limit > 0 && cfg.Width*cfg.Height > limit {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, limit)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, wrapDecodeErr(err)
	}
	return img, format, nil
}

// Decode reads all of r and decodes it.
func (d Decoder) Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("image: read: %w", err)
	}
	return d.DecodeBytes(data)
}

// Load decodes the image file at path.
func (d Decoder) Load(path string) (image.Image, string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, "", fmt.Errorf("image: open file: %w", err)
	}
	return d.DecodeBytes(data)
}

// Load decodes the image file at path with the default pixel limit.
func Load(path string) (image.Image, string, error) {
	return Decoder{}.Load(path)
}

func wrapDecodeErr(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return ErrUnsupportedFormat
	}
	return fmt.Errorf("image: decode: %w", err)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("image: encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes img as a PNG file at path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("image: create file: %w", err)
	}

	if err := EncodePNG(f, img); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// Fit returns img unchanged when both sides are at most maxDim, and
// otherwise a Catmull-Rom downscale that keeps the aspect ratio.
// A maxDim <= 0 disables scaling.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	scale := float64(maxDim) / float64(max(w, h))
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
