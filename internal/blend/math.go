// Package blend implements the alpha arithmetic used to knock out coverage.
//
// All values are 8-bit. Division by 255 uses Alvy Ray Smith's shift formula,
// which is exact for every product of two bytes.
//
// References:
//   - Alvy Ray Smith's technical memos: http://alvyray.com/Memos/
//   - W3C Compositing and Blending Level 1, destination-out:
//     https://www.w3.org/TR/compositing-1/#porterduffcompositingoperators_dstout
package blend

// div255 divides x by 255 exactly without using division.
//
// Formula: ((x + 1) + ((x + 1) >> 8)) >> 8
func div255(x uint16) uint16 {
	t := x + 1
	return (t + (t >> 8)) >> 8
}

// mulDiv255 returns floor(a*b/255).
func mulDiv255(a, b byte) byte {
	return byte(div255(uint16(a) * uint16(b)))
}

// inv255 computes 255 - x.
func inv255(x byte) byte {
	return 255 - x
}
