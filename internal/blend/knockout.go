package blend

import "math"

// DestinationOut removes coverage sa from destination alpha da.
//
// Formula: min(Da, Da * (1 - Sa))
//
// The source color never contributes, and the result never exceeds the
// destination, so repeated knockouts can only erase.
func DestinationOut(da, sa byte) byte {
	return min(da, mulDiv255(da, inv255(sa)))
}

// Coverage converts a coverage fraction to a byte, rounding to nearest.
// Values outside [0, 1] and NaN are clamped.
func Coverage(c float64) byte {
	switch {
	case c >= 1:
		return 255
	case c > 0:
		return byte(math.Round(c * 255))
	default:
		return 0
	}
}

// KnockoutRow applies per-pixel coverage to the alpha channel of a row of
// RGBA pixels. cov[i] applies to the pixel starting at row[4*i]. RGB bytes
// are left untouched.
func KnockoutRow(row []byte, cov []byte) {
	n := min(len(row)/4, len(cov))
	for i := range n {
		c := cov[i]
		if c == 0 {
			continue
		}
		a := &row[4*i+3]
		*a = DestinationOut(*a, c)
	}
}
