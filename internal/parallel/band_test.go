package parallel

import (
	"sync"
	"testing"
)

func TestBands(t *testing.T) {
	tests := []struct {
		name      string
		height, n int
		wantLen   int
	}{
		{"even split", 100, 4, 4},
		{"uneven split", 10, 3, 3},
		{"more bands than rows", 3, 8, 3},
		{"zero bands means one", 7, 0, 1},
		{"empty", 0, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bands := Bands(tt.height, tt.n)
			if len(bands) != tt.wantLen {
				t.Fatalf("len(Bands(%d, %d)) = %d, want %d", tt.height, tt.n, len(bands), tt.wantLen)
			}
			// Bands must tile [0, height) without gaps or overlap.
			y := 0
			for _, b := range bands {
				if b.Y0 != y || b.Y1 <= b.Y0 {
					t.Fatalf("bad band %+v after row %d", b, y)
				}
				y = b.Y1
			}
			if y != max(tt.height, 0) {
				t.Errorf("bands end at %d, want %d", y, tt.height)
			}
		})
	}
}

func TestForEachBand_CoversEveryRowOnce(t *testing.T) {
	const height = 97

	for _, workers := range []int{1, 3, 8} {
		pool := NewWorkerPool(workers)

		var mu sync.Mutex
		seen := make([]int, height)
		ForEachBand(pool, height, func(b Band) {
			mu.Lock()
			defer mu.Unlock()
			for y := b.Y0; y < b.Y1; y++ {
				seen[y]++
			}
		})
		pool.Close()

		for y, n := range seen {
			if n != 1 {
				t.Fatalf("workers=%d: row %d visited %d times", workers, y, n)
			}
		}
	}
}

func TestForEachBand_NilPool(t *testing.T) {
	calls := 0
	ForEachBand(nil, 10, func(b Band) {
		calls++
		if b.Y0 != 0 || b.Y1 != 10 {
			t.Errorf("band = %+v, want [0,10)", b)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
