package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/halftone"
)

const appName = "halftone"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
}

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
// The library logger is pointed at the CLI logger before any command runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Halftone turns artwork into DTF print-ready images",
		Long:         `Halftone strips dark backgrounds from artwork and knocks a grid of dots, squares, diamonds or lines out of the remaining ink, producing a breathable PNG for direct-to-film printing.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			halftone.SetLogger(slog.New(c.Logger))
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.AddCommand(c.processCommand())
	root.AddCommand(c.suggestCommand())
	root.AddCommand(c.serveCommand())

	return root
}

// loadConfig returns DefaultConfig or the preset at path.
func loadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// settingsFlags are the per-field overrides shared by process and suggest.
type settingsFlags struct {
	threshold int
	grid      float64
	shape     string
	colorMode string
	monoColor string
	intensity float64
	invert    bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	def := halftone.DefaultSettings()
	fs := cmd.Flags()
	fs.IntVar(&f.threshold, "threshold", def.BlackThreshold, "strip pixels whose brightest channel is at or below this value (0-255)")
	fs.Float64Var(&f.grid, "grid", def.GridSize, "grid cell size in pixels")
	fs.StringVar(&f.shape, "shape", def.Shape.String(), "stamp shape: circle, square, diamond, line")
	fs.StringVar(&f.colorMode, "color-mode", def.ColorMode.String(), "color mode: original, mono")
	fs.StringVar(&f.monoColor, "mono-color", def.MonoColor, "ink color for mono mode (#rrggbb)")
	fs.Float64Var(&f.intensity, "intensity", def.Intensity, "stamp size multiplier (0.1-1.5)")
	fs.BoolVar(&f.invert, "invert", def.Invert, "give bright cells the larger stamps")
}

// apply overrides the fields of s whose flags were set explicitly.
func (f *settingsFlags) apply(cmd *cobra.Command, s halftone.Settings) (halftone.Settings, error) {
	fs := cmd.Flags()
	if fs.Changed("threshold") {
		s.BlackThreshold = f.threshold
	}
	if fs.Changed("grid") {
		s.GridSize = f.grid
	}
	if fs.Changed("shape") {
		shape, err := halftone.ParseShape(f.shape)
		if err != nil {
			return s, err
		}
		s.Shape = shape
	}
	if fs.Changed("color-mode") {
		mode, err := halftone.ParseColorMode(f.colorMode)
		if err != nil {
			return s, err
		}
		s.ColorMode = mode
	}
	if fs.Changed("mono-color") {
		s.MonoColor = f.monoColor
	}
	if fs.Changed("intensity") {
		s.Intensity = f.intensity
	}
	if fs.Changed("invert") {
		s.Invert = f.invert
	}
	return s, nil
}
