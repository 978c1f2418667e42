package halftone

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Shape selects the geometry of a knockout stamp.
type Shape uint8

const (
	Circle  Shape = iota // disc of radius size
	Square               // axis-aligned square of half-side size
	Diamond              // rhombus with vertices 1.4*size from the center
	Line                 // horizontal bar across the whole cell
)

var shapeNames = [...]string{
	Circle:  "circle",
	Square:  "square",
	Diamond: "diamond",
	Line:    "line",
}

// shapeAliases maps folded, accent-free names to shapes, including the
// Portuguese labels shown in the editor and returned by the advisor.
var shapeAliases = map[string]Shape{
	"circle":   Circle,
	"circulo":  Circle,
	"dot":      Circle,
	"square":   Square,
	"quadrado": Square,
	"diamond":  Diamond,
	"diamante": Diamond,
	"line":     Line,
	"lines":    Line,
	"linha":    Line,
}

// String returns the canonical lower-case name of s.
func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", s)
}

// ParseShape resolves a shape name. Matching ignores case, surrounding
// space and diacritics, so "Círculo" and "CIRCLE" both yield Circle.
func ParseShape(name string) (Shape, error) {
	if s, ok := shapeAliases[foldName(name)]; ok {
		return s, nil
	}
	return Circle, fmt.Errorf("halftone: unknown shape %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	if int(s) >= len(shapeNames) {
		return nil, fmt.Errorf("halftone: invalid shape %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	v, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ColorMode controls whether surviving ink keeps its colors.
type ColorMode uint8

const (
	Original ColorMode = iota // keep source RGB
	Mono                      // repaint every surviving pixel with MonoColor
)

// String returns "original" or "mono".
func (m ColorMode) String() string {
	switch m {
	case Original:
		return "original"
	case Mono:
		return "mono"
	default:
		return fmt.Sprintf("ColorMode(%d)", m)
	}
}

// ParseColorMode resolves "original" or "mono", ignoring case.
func ParseColorMode(name string) (ColorMode, error) {
	switch foldName(name) {
	case "original":
		return Original, nil
	case "mono", "monochrome":
		return Mono, nil
	}
	return Original, fmt.Errorf("halftone: unknown color mode %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (m ColorMode) MarshalText() ([]byte, error) {
	if m > Mono {
		return nil, fmt.Errorf("halftone: invalid color mode %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ColorMode) UnmarshalText(text []byte) error {
	v, err := ParseColorMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// foldName trims, strips combining marks and case-folds a name.
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		plain = strings.TrimSpace(name)
	}
	return cases.Fold().String(plain)
}

// Limits applied by Settings.Clamp.
const (
	MinGridSize  = 2
	MinIntensity = 0.1
	MaxIntensity = 1.5
)

// Settings is the parameter set of one transform.
type Settings struct {
	// BlackThreshold strips pixels whose brightest channel is <= the value.
	BlackThreshold int `toml:"black_threshold" json:"blackThreshold"`
	// GridSize is the cell side in pixels. It is floored and kept >= 2.
	GridSize float64 `toml:"grid_size" json:"gridSize"`
	// Shape is the stamp geometry.
	Shape Shape `toml:"shape" json:"shape"`
	// ColorMode selects between original colors and a flat ink.
	ColorMode ColorMode `toml:"color_mode" json:"colorMode"`
	// MonoColor is the ink in "#rrggbb" form, used in Mono mode.
	MonoColor string `toml:"mono_color" json:"monoColor"`
	// Intensity scales every stamp.
	Intensity float64 `toml:"intensity" json:"intensity"`
	// Invert makes bright cells receive the larger stamps.
	Invert bool `toml:"invert" json:"invert"`
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		BlackThreshold: 30,
		GridSize:       6,
		Shape:          Circle,
		ColorMode:      Original,
		MonoColor:      "#ffffff",
		Intensity:      1.0,
		Invert:         false,
	}
}

// Clamp returns a copy of s with every field inside its accepted range:
// threshold in [0, 255], grid size floored and >= 2, intensity in
// [0.1, 1.5]. NaN values take the defaults.
func (s Settings) Clamp() Settings {
	def := DefaultSettings()

	s.BlackThreshold = min(max(s.BlackThreshold, 0), 255)
	s.GridSize = float64(s.cellSize())

	switch {
	case math.IsNaN(s.Intensity):
		s.Intensity = def.Intensity
	case s.Intensity < MinIntensity:
		s.Intensity = MinIntensity
	case s.Intensity > MaxIntensity:
		s.Intensity = MaxIntensity
	}

	if s.Shape > Line {
		s.Shape = def.Shape
	}
	if s.ColorMode > Mono {
		s.ColorMode = def.ColorMode
	}
	return s
}

// cellSize is the integer grid size actually used for sampling and stamping.
func (s Settings) cellSize() int {
	g := s.GridSize
	if math.IsNaN(g) || g < MinGridSize {
		return MinGridSize
	}
	if g > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(g))
}

// ink returns the Mono fill color, falling back to white.
func (s Settings) ink() RGB8 {
	return InkColor(s.MonoColor)
}
