package suggest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/halftone"
)

// ErrNoInk is returned by Heuristic when no pixel would survive the
// background strip.
var ErrNoInk = errors.New("suggest: image has no visible ink")

// Tuning of the heuristic advisor.
const (
	// detailSaturation is the mean neighbor difference treated as maximal detail.
	detailSaturation = 0.15
	// busyDetail marks artwork with fine texture.
	busyDetail = 0.08
	// hardContrast marks artwork with strong light/dark separation.
	hardContrast = 0.3
)

// Heuristic is a local advisor that measures detail and contrast directly
// from the pixels. It serves when no vision model is configured.
type Heuristic struct {
	// BlackThreshold excludes pixels the transform would strip anyway.
	BlackThreshold int
}

// Suggest implements Advisor.
func (h Heuristic) Suggest(ctx context.Context, img image.Image) (Suggestion, error) {
	st, err := measure(ctx, halftone.FromImage(img), h.BlackThreshold)
	if err != nil {
		return Suggestion{}, err
	}

	t := math.Min(st.detail/detailSaturation, 1)
	grid := math.Round(MaxGridSize - t*(MaxGridSize-MinGridSize))

	var (
		shape  halftone.Shape
		reason string
	)
	switch {
	case st.contrast >= hardContrast && st.detail >= busyDetail:
		shape = halftone.Line
		reason = "Arte com textura e contraste fortes: linhas reforçam o estilo vintage/desgastado."
	case st.contrast >= hardContrast:
		shape = halftone.Diamond
		reason = "Áreas grandes com contraste forte: diamantes mantêm as bordas nítidas."
	default:
		shape = halftone.Circle
		reason = "Tons suaves: pontos circulares dão a transição mais uniforme."
	}

	return Suggestion{
		Shape:    shape,
		GridSize: grid,
		Reasoning: fmt.Sprintf("%s Detalhe %.0f%%, contraste %.0f%%, grade de %.0f px.",
			reason, st.detail*100, st.contrast*100, grid),
	}, nil
}

// imageStats summarizes the visible ink of an image. All values are in [0, 1].
type imageStats struct {
	detail   float64 // mean absolute brightness step between opaque neighbors
	contrast float64 // standard deviation of brightness
}

// checkEvery is how many rows measure scans between context checks.
const checkEvery = 64

func measure(ctx context.Context, p *halftone.Pixmap, threshold int) (imageStats, error) {
	w, h := p.Width(), p.Height()
	data := p.Data()

	// level returns the (R+G+B)/3 brightness of pixel i, or -1 if the pixel
	// is transparent or would be stripped.
	level := func(i int) float64 {
		r, g, b, a := data[i], data[i+1], data[i+2], data[i+3]
		if a == 0 || int(max(r, g, b)) <= threshold {
			return -1
		}
		return (float64(r) + float64(g) + float64(b)) / 3
	}

	var (
		sum, sumSq float64
		count      int
		steps      float64
		pairs      int
	)
	for y := range h {
		if y%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return imageStats{}, err
			}
		}
		for x := range w {
			i := (y*w + x) * 4
			l := level(i)
			if l < 0 {
				continue
			}
			sum += l
			sumSq += l * l
			count++

			if x+1 < w {
				if r := level(i + 4); r >= 0 {
					steps += math.Abs(l - r)
					pairs++
				}
			}
			if y+1 < h {
				if d := level(i + w*4); d >= 0 {
					steps += math.Abs(l - d)
					pairs++
				}
			}
		}
	}
	if count == 0 {
		return imageStats{}, ErrNoInk
	}

	mean := sum / float64(count)
	variance := math.Max(0, sumSq/float64(count)-mean*mean)
	st := imageStats{contrast: math.Sqrt(variance) / 255}
	if pairs > 0 {
		st.detail = steps / float64(pairs) / 255
	}
	return st, nil
}
