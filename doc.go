// Package halftone converts RGBA artwork into DTF (direct-to-film) print
// ready halftone images.
//
// # Overview
//
// A transform runs two stages over one owned pixel buffer:
//
//  1. Background strip: every opaque pixel whose brightest channel is at or
//     below Settings.BlackThreshold becomes fully transparent. In Mono color
//     mode the surviving pixels are repainted with a single ink color.
//  2. Knockout: the stripped buffer is divided into square cells. Each cell
//     with surviving ink gets one stamp (circle, square, diamond or
//     horizontal line) whose size follows the mean brightness of the cell.
//     Stamps erase coverage, which opens a breathable mesh in the print.
//
// # Quick Start
//
//	src, _ := png.Decode(f)
//
//	s := halftone.DefaultSettings()
//	s.Shape = halftone.Diamond
//	s.GridSize = 8
//
//	out := halftone.Transform(src, s)
//	_ = png.Encode(w, out)
//
// When the same artwork is rendered repeatedly with different settings, use
// a Processor. It keeps a private copy of the source and starts every call
// from that copy, so results never compound.
//
// # Failure Model
//
// Transforms never fail. Malformed ink colors fall back to white, degenerate
// stamps are skipped and cells hanging over the image edge are clipped.
//
// # Concurrency
//
// Stage 2 plans every stamp first and then rasterizes horizontal bands of
// rows, one band per task. Inside a band stamps are applied in row-major cell
// order, so the output is bit-identical for any worker count.
package halftone
