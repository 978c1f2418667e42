package halftone

import (
	"image"
	"math"
)

// sdfAntialiasWidth controls the smoothstep transition width in pixels for
// curved and rotated stamps.
const sdfAntialiasWidth = 0.7

// diamondScale is the distance of each diamond vertex from the stamp
// center, relative to the stamp size.
const diamondScale = 1.4

// maxExtent bounds stamp rectangles so huge sizes cannot overflow int.
const maxExtent = 1 << 30

// stamp is one planned knockout.
type stamp struct {
	cx, cy float64 // center of the cell
	left   float64 // left edge of the cell, used by Line
	size   float64 // radius or half-extent
}

// lineHeight is the height of a Line stamp: min(cell - 1, 2*size).
func lineHeight(cell int, size float64) float64 {
	return math.Min(float64(cell-1), size*2)
}

// bounds returns the pixel rectangle a stamp can touch, before clipping.
func (st stamp) bounds(shape Shape, cell int) image.Rectangle {
	var x0, y0, x1, y1 float64
	switch shape {
	case Square:
		x0, y0 = st.cx-st.size, st.cy-st.size
		x1, y1 = st.cx+st.size, st.cy+st.size
	case Line:
		h := lineHeight(cell, st.size) / 2
		x0, y0 = st.left, st.cy-h
		x1, y1 = st.left+float64(cell), st.cy+h
	case Diamond:
		r := st.size*diamondScale + sdfAntialiasWidth*math.Sqrt2
		x0, y0, x1, y1 = st.cx-r, st.cy-r, st.cx+r, st.cy+r
	default:
		r := st.size + sdfAntialiasWidth
		x0, y0, x1, y1 = st.cx-r, st.cy-r, st.cx+r, st.cy+r
	}
	return image.Rect(floorInt(x0), floorInt(y0), ceilInt(x1), ceilInt(y1))
}

// fillCoverage writes the coverage of the pixels (x0+i, y) into cov.
// The shape switch runs once per row; the pixel loops are branch-free
// apart from the coverage clamps.
func (st stamp) fillCoverage(shape Shape, cell, x0, y int, cov []float64) {
	fy := float64(y) + 0.5
	switch shape {
	case Circle:
		dy := fy - st.cy
		for i := range cov {
			dx := float64(x0+i) + 0.5 - st.cx
			cov[i] = smoothstepCoverage(math.Hypot(dx, dy) - st.size)
		}
	case Diamond:
		dy := math.Abs(fy - st.cy)
		reach := st.size * diamondScale
		for i := range cov {
			dx := math.Abs(float64(x0+i) + 0.5 - st.cx)
			// |dx|+|dy| = reach is the edge; scaling by 1/sqrt(2) turns the
			// L1 excess into Euclidean distance from that edge.
			cov[i] = smoothstepCoverage((dx + dy - reach) / math.Sqrt2)
		}
	case Square:
		rowCov := spanOverlap(float64(y), st.cy-st.size, st.cy+st.size)
		for i := range cov {
			cov[i] = rowCov * spanOverlap(float64(x0+i), st.cx-st.size, st.cx+st.size)
		}
	case Line:
		h := lineHeight(cell, st.size) / 2
		rowCov := spanOverlap(float64(y), st.cy-h, st.cy+h)
		for i := range cov {
			cov[i] = rowCov * spanOverlap(float64(x0+i), st.left, st.left+float64(cell))
		}
	}
}

// spanOverlap returns the length of [p, p+1) ∩ [lo, hi), in [0, 1].
func spanOverlap(p, lo, hi float64) float64 {
	return math.Max(0, math.Min(p+1, hi)-math.Max(p, lo))
}

// smoothstepCoverage converts a signed distance to an anti-aliased coverage
// value using a Hermite smoothstep.
//
// sdf <= -afwidth => 1.0 (fully inside)
// sdf >= +afwidth => 0.0 (fully outside)
// Otherwise        => smooth transition
func smoothstepCoverage(sdf float64) float64 {
	if sdf >= sdfAntialiasWidth {
		return 0
	}
	if sdf <= -sdfAntialiasWidth {
		return 1
	}
	t := (sdf + sdfAntialiasWidth) / (2 * sdfAntialiasWidth)
	return 1 - (t * t * (3 - 2*t))
}

func floorInt(v float64) int {
	return clampExtent(math.Floor(v))
}

func ceilInt(v float64) int {
	return clampExtent(math.Ceil(v))
}

func clampExtent(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v < -maxExtent:
		return -maxExtent
	case v > maxExtent:
		return maxExtent
	}
	return int(v)
}
