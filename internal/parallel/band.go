package parallel

// Band is a half-open range of rows [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Bands splits height rows into at most n contiguous bands of nearly equal
// size. It returns nil when height <= 0.
func Bands(height, n int) []Band {
	if height <= 0 {
		return nil
	}
	n = min(max(n, 1), height)

	bands := make([]Band, 0, n)
	step, extra := height/n, height%n
	y := 0
	for i := range n {
		h := step
		if i < extra {
			h++
		}
		bands = append(bands, Band{Y0: y, Y1: y + h})
		y += h
	}
	return bands
}

// bandsPerWorker oversubscribes the pool so stealing can even out bands
// whose stamps cost more than others.
const bandsPerWorker = 4

// ForEachBand calls fn once per band covering rows [0, height). With a nil
// pool, or a pool of one worker, fn runs once on the calling goroutine over
// the whole range. Callers must only touch rows inside the band they receive.
func ForEachBand(p *WorkerPool, height int, fn func(b Band)) {
	if height <= 0 {
		return
	}
	if p == nil || p.Workers() < 2 {
		fn(Band{Y0: 0, Y1: height})
		return
	}

	bands := Bands(height, p.Workers()*bandsPerWorker)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b) }
	}
	p.ExecuteAll(work)
}
