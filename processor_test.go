package halftone

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"
)

func TestTransform_BlackImageBecomesTransparent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	for _, shape := range []Shape{Circle, Square, Diamond, Line} {
		for _, grid := range []float64{2, 3, 8} {
			s := Settings{BlackThreshold: 30, GridSize: grid, Shape: shape, Intensity: 1.5}
			out := Transform(src, s)
			for i := 3; i < len(out.Data()); i += 4 {
				if out.Data()[i] != 0 {
					t.Fatalf("%v grid %v: pixel %d alpha %d, want 0", shape, grid, i/4, out.Data()[i])
				}
			}
		}
	}
}

func TestTransform_DoesNotModifySource(t *testing.T) {
	src := noisePixmap(32, 32, 11).ToImage()
	orig := bytes.Clone(src.Pix)

	_ = Transform(src, Settings{BlackThreshold: 100, GridSize: 4, Shape: Square, ColorMode: Mono, MonoColor: "#ff00ff", Intensity: 1})

	if !bytes.Equal(orig, src.Pix) {
		t.Error("Transform modified its source")
	}
}

func TestTransform_Deterministic(t *testing.T) {
	src := noisePixmap(70, 50, 5).ToImage()
	s := Settings{BlackThreshold: 45, GridSize: 7, Shape: Diamond, Intensity: 1.2, Invert: true}

	a := Transform(src, s)
	b := Transform(src, s)
	if !bytes.Equal(a.Data(), b.Data()) {
		t.Error("two transforms with the same input differ")
	}
}

// TestTransform_ParallelMatchesSequential verifies that the worker count
// never changes the output, including where neighboring stamps overlap.
func TestTransform_ParallelMatchesSequential(t *testing.T) {
	src := noisePixmap(301, 203, 42).ToImage()

	for _, shape := range []Shape{Circle, Square, Diamond, Line} {
		for _, invert := range []bool{false, true} {
			s := Settings{
				BlackThreshold: 25,
				GridSize:       5,
				Shape:          shape,
				Intensity:      1.5,
				Invert:         invert,
			}
			t.Run(fmt.Sprintf("%v/invert=%v", shape, invert), func(t *testing.T) {
				want := Transform(src, s, WithWorkers(1))
				for _, workers := range []int{2, 3, 8} {
					got := Transform(src, s, WithWorkers(workers))
					if !bytes.Equal(want.Data(), got.Data()) {
						t.Fatalf("workers=%d: output differs from sequential", workers)
					}
				}
			})
		}
	}
}

func TestTransform_EmptyImage(t *testing.T) {
	out := Transform(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultSettings())
	if out.Width() != 0 || out.Height() != 0 {
		t.Errorf("size = %dx%d, want 0x0", out.Width(), out.Height())
	}
}

func TestTransform_KeepsDimensions(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 22, 14))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	out := Transform(src, DefaultSettings())
	if out.Width() != 17 || out.Height() != 9 {
		t.Errorf("size = %dx%d, want 17x9", out.Width(), out.Height())
	}
}

func TestProcessor_StartsFromSourceEveryTime(t *testing.T) {
	src := noisePixmap(90, 80, 9).ToImage()
	pr := NewProcessor(src, WithWorkers(2))
	defer pr.Close()

	first := Settings{BlackThreshold: 30, GridSize: 6, Shape: Circle, Intensity: 1}
	second := Settings{BlackThreshold: 120, GridSize: 3, Shape: Line, ColorMode: Mono, MonoColor: "#00ffff", Intensity: 1.5}

	a := pr.Process(first)
	_ = pr.Process(second)
	again := pr.Process(first)

	if !bytes.Equal(a.Data(), again.Data()) {
		t.Error("re-processing with the same settings gave a different result")
	}
	if want := Transform(src, first); !bytes.Equal(a.Data(), want.Data()) {
		t.Error("Processor result differs from Transform")
	}
}

func TestProcessor_SourceIsPrivate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	pr := NewProcessor(src)
	defer pr.Close()

	src.SetNRGBA(0, 0, color.NRGBA{})
	if r, _, _, _ := pr.Source().Pixel(0, 0); r != 200 {
		t.Error("Processor shares storage with the caller's image")
	}
	if pr.Width() != 2 || pr.Height() != 2 {
		t.Errorf("size = %dx%d, want 2x2", pr.Width(), pr.Height())
	}
}

func TestProcessor_ProcessAfterClose(t *testing.T) {
	src := noisePixmap(100, 100, 1).ToImage()
	pr := NewProcessor(src, WithWorkers(4))
	s := DefaultSettings()
	want := pr.Process(s)

	pr.Close()
	pr.Close()

	if got := pr.Process(s); !bytes.Equal(want.Data(), got.Data()) {
		t.Error("Process after Close differs")
	}
}
