package halftone

import "github.com/gogpu/halftone/internal/parallel"

// StripBackground runs the first stage in place: every pixel with alpha > 0
// whose brightest channel is <= s.BlackThreshold becomes fully transparent
// with its RGB left as is. In Mono mode the remaining opaque or partially
// opaque pixels are repainted with the ink color, keeping their alpha.
// Pixels that are already transparent are not touched.
func StripBackground(p *Pixmap, s Settings) {
	stripBackground(p, s, nil)
}

func stripBackground(p *Pixmap, s Settings, pool *parallel.WorkerPool) {
	threshold := s.BlackThreshold
	mono := s.ColorMode == Mono
	var ink RGB8
	if mono {
		ink = s.ink()
	}

	rowLen := p.width * 4
	parallel.ForEachBand(pool, p.height, func(b parallel.Band) {
		stripRows(p.data[b.Y0*rowLen:b.Y1*rowLen], threshold, mono, ink)
	})
}

func stripRows(data []uint8, threshold int, mono bool, ink RGB8) {
	for i := 0; i+3 < len(data); i += 4 {
		if data[i+3] == 0 {
			continue
		}
		if int(max(data[i], data[i+1], data[i+2])) <= threshold {
			data[i+3] = 0
			continue
		}
		if mono {
			data[i+0] = ink.R
			data[i+1] = ink.G
			data[i+2] = ink.B
		}
	}
}
