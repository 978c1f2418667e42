package halftone

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Pixmap is an owned RGBA8 pixel buffer in row-major order with straight
// (non-premultiplied) alpha. Its dimensions never change.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // R, G, B, A per pixel
}

// NewPixmap creates a fully transparent pixmap. Negative dimensions are
// treated as zero.
func NewPixmap(width, height int) *Pixmap {
	width = max(width, 0)
	height = max(height, 0)
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// PixmapFromPix creates a pixmap holding a copy of pix, which is expected to
// contain width*height*4 bytes of straight-alpha RGBA. A short slice leaves
// the remaining pixels transparent; extra bytes are ignored.
func PixmapFromPix(width, height int, pix []uint8) *Pixmap {
	p := NewPixmap(width, height)
	copy(p.data, pix)
	return p
}

// FromImage copies img into a new pixmap. The pixmap origin is img.Bounds().Min.
func FromImage(img image.Image) *Pixmap {
	b := img.Bounds()
	p := NewPixmap(b.Dx(), b.Dy())
	if p.width == 0 || p.height == 0 {
		return p
	}

	// Fast path: NRGBA already has the layout we store.
	if src, ok := img.(*image.NRGBA); ok {
		rowLen := p.width * 4
		for y := range p.height {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(p.data[y*rowLen:(y+1)*rowLen], src.Pix[off:off+rowLen])
		}
		return p
	}

	draw.Copy(p.nrgba(), image.Point{}, img, b, draw.Src, nil)
	return p
}

// Width returns the width in pixels.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height in pixels.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel bytes. Mutating the slice mutates the pixmap.
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// Clone returns a deep copy of p.
func (p *Pixmap) Clone() *Pixmap {
	c := &Pixmap{width: p.width, height: p.height, data: make([]uint8, len(p.data))}
	copy(c.data, p.data)
	return c
}

// Pixel returns the straight-alpha channels at (x, y). Out-of-bounds
// coordinates read as transparent black.
func (p *Pixmap) Pixel(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0, 0, 0, 0
	}
	i := (y*p.width + x) * 4
	return p.data[i], p.data[i+1], p.data[i+2], p.data[i+3]
}

// SetPixel writes one pixel. Out-of-bounds coordinates are ignored.
func (p *Pixmap) SetPixel(x, y int, r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = r
	p.data[i+1] = g
	p.data[i+2] = b
	p.data[i+3] = a
}

// Fill sets every pixel to the same value.
func (p *Pixmap) Fill(r, g, b, a uint8) {
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// ToImage returns a copy of the pixmap as an *image.NRGBA.
func (p *Pixmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// nrgba wraps the pixmap storage without copying.
func (p *Pixmap) nrgba() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.data,
		Stride: p.width * 4,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	r, g, b, a := p.Pixel(x, y)
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
