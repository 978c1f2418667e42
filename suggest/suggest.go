package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gogpu/halftone"
)

// Grid sizes an advisor may propose.
const (
	MinGridSize = 4
	MaxGridSize = 15
)

// FallbackReasoning is the rationale attached to the default suggestion.
const FallbackReasoning = "Falha na análise, revertendo para padrões."

// ErrNoResponse is returned when an advisor answered with no content.
var ErrNoResponse = errors.New("suggest: empty response")

// Suggestion is a proposed shape and grid size with a human-readable
// rationale. The JSON names follow the vision model's response schema.
type Suggestion struct {
	Shape     halftone.Shape `json:"suggestedShape"`
	GridSize  float64        `json:"suggestedGridSize"`
	Reasoning string         `json:"reasoning"`
}

// Default returns the suggestion used whenever analysis fails.
func Default() Suggestion {
	return Suggestion{
		Shape:     halftone.Circle,
		GridSize:  6,
		Reasoning: FallbackReasoning,
	}
}

// Apply merges the suggestion into s. Only Shape and GridSize change;
// the grid size is rounded and kept within [MinGridSize, MaxGridSize].
func (sg Suggestion) Apply(s halftone.Settings) halftone.Settings {
	s.Shape = sg.Shape
	s.GridSize = clampGrid(sg.GridSize)
	return s
}

func clampGrid(g float64) float64 {
	if math.IsNaN(g) {
		return Default().GridSize
	}
	return math.Min(math.Max(math.Round(g), MinGridSize), MaxGridSize)
}

// Advisor proposes settings for an image.
type Advisor interface {
	Suggest(ctx context.Context, img image.Image) (Suggestion, error)
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, img image.Image) (Suggestion, error)

// Suggest calls f.
func (f AdvisorFunc) Suggest(ctx context.Context, img image.Image) (Suggestion, error) {
	return f(ctx, img)
}

// ParseResponse decodes a vision model answer of the form
//
//	{"suggestedShape": "Diamante", "suggestedGridSize": 8, "reasoning": "..."}
//
// Shape names may be English or Portuguese. All three fields are required.
func ParseResponse(data []byte) (Suggestion, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Suggestion{}, ErrNoResponse
	}

	var raw struct {
		Shape     *string  `json:"suggestedShape"`
		GridSize  *float64 `json:"suggestedGridSize"`
		Reasoning *string  `json:"reasoning"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Suggestion{}, fmt.Errorf("suggest: decode response: %w", err)
	}
	if raw.Shape == nil || raw.GridSize == nil || raw.Reasoning == nil {
		return Suggestion{}, fmt.Errorf("suggest: response missing required fields")
	}

	shape, err := halftone.ParseShape(*raw.Shape)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: %w", err)
	}
	return Suggestion{Shape: shape, GridSize: *raw.GridSize, Reasoning: *raw.Reasoning}, nil
}

// fallback wraps an advisor and replaces every failure with Default.
type fallback struct {
	next Advisor
}

// Fallback returns an advisor that replaces analysis failures, and a nil
// a, with Default(). Failures are logged through halftone.Logger. When ctx
// itself is done, its error is returned instead so callers can stop.
func Fallback(a Advisor) Advisor {
	return fallback{next: a}
}

func (f fallback) Suggest(ctx context.Context, img image.Image) (Suggestion, error) {
	if f.next == nil {
		return Default(), nil
	}
	sg, err := f.next.Suggest(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Suggestion{}, ctxErr
		}
		halftone.Logger().Warn("suggest: analysis failed, using defaults", "err", err)
		return Default(), nil
	}
	return sg, nil
}
