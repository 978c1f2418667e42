package halftone

import (
	"math"

	"github.com/gogpu/halftone/internal/blend"
	"github.com/gogpu/halftone/internal/parallel"
)

// negligibleSize is the stamp size at or below which a cell gets no stamp.
const negligibleSize = 0.1

// Size mapping constants.
const (
	// normalDamping keeps a 0.3 floor so even pure white ink breathes.
	normalDamping = 0.7
	invertBase    = 0.2
	invertGain    = 0.8
	// radiusSpread scales the half cell into the largest base radius.
	radiusSpread = 1.5
)

// SizeFactor maps a normalized cell brightness in [0, 1] to a stamp size
// factor. Without invert darker cells get larger factors; with invert
// brighter ones do.
func SizeFactor(brightness, intensity float64, invert bool) float64 {
	if invert {
		return intensity * (invertBase + brightness*invertGain)
	}
	return intensity * (1 - brightness*normalDamping)
}

// StampSize returns the stamp radius for a cell of the given side whose
// surviving pixels average avg (mean of R, G and B, 0-255). The result is
// never negative.
func StampSize(avg float64, gridSize int, intensity float64, invert bool) float64 {
	maxRadius := float64(gridSize) / 2 * radiusSpread
	return math.Max(0, maxRadius*SizeFactor(avg/255, intensity, invert))
}

// sampleCell returns the sum of (R+G+B)/3 over the pixels with alpha > 0 in
// the cell at (x0, y0), clipped to the pixmap, and how many there were.
func sampleCell(p *Pixmap, x0, y0, cell int) (sum float64, count int) {
	// x0 < width, so these cannot overflow even for huge cells.
	x1 := x0 + min(cell, p.width-x0)
	y1 := y0 + min(cell, p.height-y0)
	for y := y0; y < y1; y++ {
		row := p.data[(y*p.width+x0)*4 : (y*p.width+x1)*4]
		for i := 0; i < len(row); i += 4 {
			if row[i+3] == 0 {
				continue
			}
			sum += (float64(row[i]) + float64(row[i+1]) + float64(row[i+2])) / 3
			count++
		}
	}
	return sum, count
}

// stampRow holds the stamps of one row of cells, in left-to-right order,
// plus the union of the rows they can touch.
type stampRow struct {
	y0, y1 int
	stamps []stamp
	empty  int // cells without surviving ink
	tiny   int // cells whose stamp was negligible
}

// knockoutPlan is the full set of stamps for one pixmap, in row-major order.
type knockoutPlan struct {
	shape Shape
	cell  int
	rows  []stampRow
}

func planKnockout(p *Pixmap, s Settings, pool *parallel.WorkerPool) *knockoutPlan {
	cell := s.cellSize()
	plan := &knockoutPlan{
		shape: s.Shape,
		cell:  cell,
		rows:  make([]stampRow, cellCount(p.height, cell)),
	}
	half := float64(cell) / 2

	// Sampling only reads the stage-1 buffer, so cell rows are independent.
	parallel.ForEachBand(pool, len(plan.rows), func(b parallel.Band) {
		for r := b.Y0; r < b.Y1; r++ {
			y := r * cell
			row := &plan.rows[r]
			row.y0, row.y1 = math.MaxInt, math.MinInt
			for x := 0; x < p.width; x = nextCell(x, cell) {
				sum, count := sampleCell(p, x, y, cell)
				if count == 0 {
					row.empty++
					continue
				}
				size := StampSize(sum/float64(count), cell, s.Intensity, s.Invert)
				if !(size > negligibleSize) {
					row.tiny++
					continue
				}
				st := stamp{cx: float64(x) + half, cy: float64(y) + half, left: float64(x), size: size}
				bb := st.bounds(s.Shape, cell)
				row.y0 = min(row.y0, bb.Min.Y)
				row.y1 = max(row.y1, bb.Max.Y)
				row.stamps = append(row.stamps, st)
			}
		}
	})
	return plan
}

// nextCell advances x by one cell, saturating instead of overflowing.
func nextCell(x, cell int) int {
	if x > math.MaxInt-cell {
		return math.MaxInt
	}
	return x + cell
}

// cellCount returns how many cells of the given side cover n pixels,
// counting a partial last cell.
func cellCount(n, cell int) int {
	c := n / cell
	if n%cell != 0 {
		c++
	}
	return c
}

// stats summarizes a plan for logging.
func (kp *knockoutPlan) stats() (stamps, empty, tiny int) {
	for i := range kp.rows {
		stamps += len(kp.rows[i].stamps)
		empty += kp.rows[i].empty
		tiny += kp.rows[i].tiny
	}
	return stamps, empty, tiny
}

// render applies every stamp of the plan. Each band owns its rows and
// walks the stamps in row-major order, so each pixel sees the same
// sequence of knockouts as a single sequential pass.
func (kp *knockoutPlan) render(p *Pixmap, pool *parallel.WorkerPool) {
	parallel.ForEachBand(pool, p.height, func(b parallel.Band) {
		r := newBandRasterizer(p, b)
		for i := range kp.rows {
			row := &kp.rows[i]
			if len(row.stamps) == 0 || row.y1 <= b.Y0 || row.y0 >= b.Y1 {
				continue
			}
			for _, st := range row.stamps {
				r.draw(kp.shape, kp.cell, st)
			}
		}
	})
}

// bandRasterizer knocks stamps out of the rows of one band.
type bandRasterizer struct {
	p     *Pixmap
	band  parallel.Band
	cov   []float64
	alpha []byte
}

func newBandRasterizer(p *Pixmap, b parallel.Band) *bandRasterizer {
	return &bandRasterizer{
		p:     p,
		band:  b,
		cov:   make([]float64, p.width),
		alpha: make([]byte, p.width),
	}
}

func (r *bandRasterizer) draw(shape Shape, cell int, st stamp) {
	bb := st.bounds(shape, cell)
	x0, x1 := max(bb.Min.X, 0), min(bb.Max.X, r.p.width)
	y0, y1 := max(bb.Min.Y, r.band.Y0), min(bb.Max.Y, r.band.Y1)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	n := x1 - x0
	cov, alpha := r.cov[:n], r.alpha[:n]
	for y := y0; y < y1; y++ {
		st.fillCoverage(shape, cell, x0, y, cov)
		for i, c := range cov {
			alpha[i] = blend.Coverage(c)
		}
		off := (y*r.p.width + x0) * 4
		blend.KnockoutRow(r.p.data[off:off+n*4], alpha)
	}
}

// Knockout runs the second stage in place: it samples each grid cell of the
// already stripped pixmap and erases one brightness-sized stamp per cell
// that still has ink.
func Knockout(p *Pixmap, s Settings) {
	planKnockout(p, s, nil).render(p, nil)
}
