package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/halftone"
	imageio "github.com/gogpu/halftone/internal/image"
)

// exportFileName is the name given to exported images when none is chosen.
const exportFileName = "dtf-halftone-export.png"

func (c *CLI) processCommand() *cobra.Command {
	var (
		output     string
		configPath string
		workers    int
		flags      settingsFlags
	)

	cmd := &cobra.Command{
		Use:   "process <image>",
		Short: "Transform an image into a print-ready halftone PNG",
		Long: `Process strips the dark background from an image and knocks the halftone
grid out of the remaining ink. Settings come from the defaults, then the
[settings] table of --config, then individual flags.`,
		Example: `  halftone process art.png -o print.png
  halftone process art.jpg --shape diamond --grid 8 --invert
  halftone process art.png --config preset.toml --color-mode mono --mono-color "#ff0000"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			s, err := flags.apply(cmd, cfg.Settings)
			if err != nil {
				return err
			}
			return runProcess(cmd, args[0], output, s.Clamp(), workers)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", exportFileName, "output PNG file")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML preset file")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "worker goroutines (0 = all CPUs)")
	flags.register(cmd)

	return cmd
}

func runProcess(cmd *cobra.Command, input, output string, s halftone.Settings, workers int) error {
	logger := loggerFromContext(cmd.Context())
	prog := newProgress(logger)

	img, format, err := imageio.Load(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	b := img.Bounds()
	logger.Debug("Decoded input", "file", input, "format", format, "width", b.Dx(), "height", b.Dy())
	logger.Debug("Settings",
		"threshold", s.BlackThreshold,
		"grid", s.GridSize,
		"shape", s.Shape,
		"color_mode", s.ColorMode,
		"mono_color", s.MonoColor,
		"intensity", s.Intensity,
		"invert", s.Invert)

	out := halftone.Transform(img, s, halftone.WithWorkers(workers))
	if err := imageio.SavePNG(output, out); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Wrote %s", output))
	return nil
}
