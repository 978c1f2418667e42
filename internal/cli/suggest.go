package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	imageio "github.com/gogpu/halftone/internal/image"
)

// analysisMaxDim bounds the image handed to an advisor.
const analysisMaxDim = 512

func (c *CLI) suggestCommand() *cobra.Command {
	var (
		apply      bool
		configPath string
		flags      settingsFlags
	)

	cmd := &cobra.Command{
		Use:   "suggest <image>",
		Short: "Suggest a stamp shape and grid size for an image",
		Long: `Suggest analyzes the ink of an image and proposes a shape and grid size.
With --apply the suggestion is merged into the current settings and printed
as a TOML [settings] table that can be saved as a preset.`,
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

			img, _, err := imageio.Load(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			cfg.Settings.BlackThreshold = s.BlackThreshold
			sg, err := cfg.advisor().Suggest(cmd.Context(), imageio.Fit(img, analysisMaxDim))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if apply {
				return writeSettings(w, sg.Apply(s).Clamp())
			}
			fmt.Fprintf(w, "shape:     %s\n", sg.Shape)
			fmt.Fprintf(w, "grid size: %g\n", sg.GridSize)
			fmt.Fprintf(w, "reasoning: %s\n", sg.Reasoning)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "print the merged settings as TOML")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML preset file")
	flags.register(cmd)

	return cmd
}
