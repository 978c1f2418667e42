package halftone

import "fmt"

// RGB8 is an 8-bit opaque ink color.
type RGB8 struct {
	R, G, B uint8
}

// White is the ink used when a mono color cannot be parsed.
var White = RGB8{R: 255, G: 255, B: 255}

// ParseHex parses a six digit hex color with an optional leading '#'.
// Digits are case-insensitive. Any other form reports ok == false.
func ParseHex(s string) (c RGB8, ok bool) {
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return RGB8{}, false
	}

	var ch [3]uint8
	for i := range ch {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return RGB8{}, false
		}
		ch[i] = hi<<4 | lo
	}
	return RGB8{R: ch[0], G: ch[1], B: ch[2]}, true
}

// InkColor parses s like ParseHex and falls back to White.
func InkColor(s string) RGB8 {
	if c, ok := ParseHex(s); ok {
		return c
	}
	return White
}

// Hex formats c as "#rrggbb".
func (c RGB8) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
