package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/halftone"
	"github.com/gogpu/halftone/suggest"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { halftone.SetLogger(nil) })

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "in.png")
	if err := os.WriteFile(path, encodePNG(t, gradient(30, 18)), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.png")

	if _, err := execute(t, "process", in, "-o", out, "--shape", "diamond", "--grid", "4", "-j", "2"); err != nil {
		t.Fatalf("process: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	s := halftone.DefaultSettings()
	s.Shape = halftone.Diamond
	s.GridSize = 4
	want := halftone.Transform(gradient(30, 18), s)
	if !bytes.Equal(halftone.FromImage(img).Data(), want.Data()) {
		t.Error("output differs from Transform")
	}
}

func TestProcessCommand_ConfigAndFlags(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.png")
	preset := filepath.Join(dir, "preset.toml")
	doc := "[settings]\nshape = \"square\"\ngrid_size = 9.0\ncolor_mode = \"mono\"\nmono_color = \"#123456\"\n"
	if err := os.WriteFile(preset, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	// --grid overrides the preset; everything else comes from the file.
	if _, err := execute(t, "process", in, "-o", out, "--config", preset, "--grid", "5"); err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	s := halftone.DefaultSettings()
	s.Shape = halftone.Square
	s.GridSize = 5
	s.ColorMode = halftone.Mono
	s.MonoColor = "#123456"
	want := halftone.Transform(gradient(30, 18), s)
	if !bytes.Equal(halftone.FromImage(img).Data(), want.Data()) {
		t.Error("output differs from Transform")
	}
}

func TestProcessCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)

	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"process", filepath.Join(dir, "nope.png")}},
		{"bad shape", []string{"process", in, "--shape", "star"}},
		{"bad mode", []string{"process", in, "--color-mode", "sepia"}},
		{"no args", []string{"process"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	in := writeInput(t, t.TempDir())

	out, err := execute(t, "suggest", in)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	for _, field := range []string{"shape:", "grid size:", "reasoning:"} {
		if !strings.Contains(out, field) {
			t.Errorf("output missing %q:\n%s", field, out)
		}
	}
}

func TestSuggestCommand_Apply(t *testing.T) {
	in := writeInput(t, t.TempDir())

	out, err := execute(t, "suggest", in, "--apply", "--intensity", "1.3")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	cfg, err := DecodeConfig(out)
	if err != nil {
		t.Fatalf("output is not a valid preset: %v\n%s", err, out)
	}
	if g := cfg.Settings.GridSize; g < suggest.MinGridSize || g > suggest.MaxGridSize {
		t.Errorf("grid size %v outside advisor range", g)
	}
	if cfg.Settings.Intensity != 1.3 {
		t.Errorf("intensity = %v, want flag value 1.3", cfg.Settings.Intensity)
	}
}

func TestSuggestCommand_Canceled(t *testing.T) {
	in := writeInput(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := executeContext(t, ctx, "suggest", in); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSuggestCommand_RemoteAdvisor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"suggestedShape": "Quadrado", "suggestedGridSize": 11, "reasoning": "remoto"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := writeInput(t, dir)
	preset := filepath.Join(dir, "preset.toml")
	body := fmt.Sprintf("[advisor]\nurl = %q\ntimeout = \"5s\"\n", srv.URL)
	if err := os.WriteFile(preset, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "suggest", in, "-c", preset)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	for _, want := range []string{"shape:     square", "grid size: 11", "reasoning: remoto"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
