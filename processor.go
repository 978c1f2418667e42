package halftone

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/halftone/internal/parallel"
)

// minParallelPixels is the pixmap area below which workers cost more than
// they save.
const minParallelPixels = 64 * 64

// Transform copies src and runs both stages on the copy. src is never
// modified, and the result always has the dimensions of src.
func Transform(src image.Image, s Settings, opts ...Option) *Pixmap {
	o := applyOptions(opts)
	p := FromImage(src)

	var pool *parallel.WorkerPool
	if o.workers != 1 && p.width*p.height >= minParallelPixels {
		pool = parallel.NewWorkerPool(o.workers)
		defer pool.Close()
	}
	apply(p, s, pool)
	return p
}

// apply runs stage 1 to completion and then stage 2 on the same buffer.
func apply(p *Pixmap, s Settings, pool *parallel.WorkerPool) {
	start := time.Now()
	if c := s.cellSize(); float64(c) != s.GridSize {
		Logger().Debug("halftone: grid size adjusted", "requested", s.GridSize, "used", c)
	}
	if s.ColorMode == Mono {
		if _, ok := ParseHex(s.MonoColor); !ok {
			Logger().Warn("halftone: invalid mono color, using white", "color", s.MonoColor)
		}
	}

	stripBackground(p, s, pool)
	plan := planKnockout(p, s, pool)
	plan.render(p, pool)

	log := Logger()
	if log.Enabled(context.Background(), slog.LevelDebug) {
		stamps, empty, tiny := plan.stats()
		workers := 1
		if pool != nil {
			workers = pool.Workers()
		}
		log.Debug("halftone: transform done",
			"width", p.width,
			"height", p.height,
			"grid", plan.cell,
			"shape", s.Shape,
			"stamps", stamps,
			"empty_cells", empty,
			"tiny_cells", tiny,
			"workers", workers,
			"elapsed", time.Since(start),
		)
	}
}

// Processor renders one source image under changing settings. It keeps a
// private copy of the source and every Process call starts from that copy,
// never from a previous result.
//
// A Processor is safe for concurrent use.
type Processor struct {
	source *Pixmap
	pool   *parallel.WorkerPool
	mu     sync.RWMutex // held shared while rendering, exclusively by Close
	closed bool
}

// NewProcessor copies src and prepares a worker pool for repeated renders.
func NewProcessor(src image.Image, opts ...Option) *Processor {
	o := applyOptions(opts)
	pr := &Processor{source: FromImage(src)}
	if o.workers != 1 && pr.source.width*pr.source.height >= minParallelPixels {
		pr.pool = parallel.NewWorkerPool(o.workers)
	}
	return pr
}

// Width returns the width of the source image.
func (pr *Processor) Width() int { return pr.source.width }

// Height returns the height of the source image.
func (pr *Processor) Height() int { return pr.source.height }

// Source returns a copy of the retained source image.
func (pr *Processor) Source() *Pixmap { return pr.source.Clone() }

// Process renders the source with s into a new pixmap. After Close it still
// works, running on the calling goroutine.
func (pr *Processor) Process(s Settings) *Pixmap {
	p := pr.source.Clone()

	pr.mu.RLock()
	defer pr.mu.RUnlock()

	pool := pr.pool
	if pr.closed {
		pool = nil
	}
	apply(p, s, pool)
	return p
}

// Close releases the worker pool. It waits for renders in progress.
func (pr *Processor) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	if pr.pool != nil {
		pr.pool.Close()
	}
}
