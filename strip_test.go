package halftone

import "testing"

func TestStripBackground(t *testing.T) {
	tests := []struct {
		name     string
		in       [4]uint8
		settings Settings
		want     [4]uint8
	}{
		{
			name:     "dark pixel becomes transparent, RGB kept",
			in:       [4]uint8{20, 30, 10, 255},
			settings: Settings{BlackThreshold: 30},
			want:     [4]uint8{20, 30, 10, 0},
		},
		{
			name:     "threshold is inclusive",
			in:       [4]uint8{30, 30, 30, 200},
			settings: Settings{BlackThreshold: 30},
			want:     [4]uint8{30, 30, 30, 0},
		},
		{
			name:     "one bright channel survives",
			in:       [4]uint8{0, 0, 31, 255},
			settings: Settings{BlackThreshold: 30},
			want:     [4]uint8{0, 0, 31, 255},
		},
		{
			name:     "transparent pixel untouched even in mono",
			in:       [4]uint8{200, 100, 50, 0},
			settings: Settings{BlackThreshold: 30, ColorMode: Mono, MonoColor: "#00ff00"},
			want:     [4]uint8{200, 100, 50, 0},
		},
		{
			name:     "mono recolors survivor and keeps alpha",
			in:       [4]uint8{200, 100, 50, 128},
			settings: Settings{BlackThreshold: 30, ColorMode: Mono, MonoColor: "#00ff00"},
			want:     [4]uint8{0, 255, 0, 128},
		},
		{
			name:     "mono does not recolor stripped pixels",
			in:       [4]uint8{5, 5, 5, 255},
			settings: Settings{BlackThreshold: 30, ColorMode: Mono, MonoColor: "#00ff00"},
			want:     [4]uint8{5, 5, 5, 0},
		},
		{
			name:     "malformed mono color falls back to white",
			in:       [4]uint8{90, 80, 70, 255},
			settings: Settings{BlackThreshold: 30, ColorMode: Mono, MonoColor: "#12"},
			want:     [4]uint8{255, 255, 255, 255},
		},
		{
			name:     "original mode keeps colors",
			in:       [4]uint8{90, 80, 70, 255},
			settings: Settings{BlackThreshold: 30, ColorMode: Original, MonoColor: "#000000"},
			want:     [4]uint8{90, 80, 70, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := PixmapFromPix(1, 1, tt.in[:])
			StripBackground(pm, tt.settings)

			var got [4]uint8
			copy(got[:], pm.Data())
			if got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestStripBackground_Parallel checks that banded stripping matches the
// single-threaded pass.
func TestStripBackground_Parallel(t *testing.T) {
	src := noisePixmap(150, 90, 7)
	s := Settings{BlackThreshold: 60, ColorMode: Mono, MonoColor: "#336699"}

	want := src.Clone()
	StripBackground(want, s)

	got := Transform(src, Settings{BlackThreshold: 60, ColorMode: Mono, MonoColor: "#336699", GridSize: 1 << 20, Intensity: 0}, WithWorkers(4))
	for i := 0; i < len(want.Data()); i++ {
		if want.Data()[i] != got.Data()[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got.Data()[i], want.Data()[i])
		}
	}
}
