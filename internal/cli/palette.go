package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/pkg/palette"
	"github.com/matzehuels/eqgraph/pkg/pipeline"
)

// paletteCommand groups palette utilities.
func (c *CLI) paletteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Generate and inspect palette files",
	}
	cmd.AddCommand(c.paletteHeatmapCommand())
	cmd.AddCommand(c.paletteShowCommand())
	return cmd
}

// paletteHeatmapCommand creates the "palette heatmap" subcommand.
func (c *CLI) paletteHeatmapCommand() *cobra.Command {
	var (
		n      int
		output string
	)

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Write a heat-ramp palette (black → purple → blue → ... → white)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := palette.Heatmap(palette.DefaultHeatStops, n)
			if err != nil {
				return err
			}
			if output == "" {
				return palette.Write(os.Stdout, p)
			}

			var buf bytes.Buffer
			if err := palette.Write(&buf, p); err != nil {
				return err
			}
			if err := pipeline.WriteFile(output, buf.Bytes()); err != nil {
				return err
			}
			printSuccess("Wrote %d colors", len(p))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 70, "number of colors")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// paletteShowCommand creates the "palette show" subcommand.
func (c *CLI) paletteShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <palette>",
		Short: "Print a palette file with color swatches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPalette(args[0])
			if err != nil {
				return err
			}
			for _, i := range p.Indices() {
				printSwatch(i, p[i])
			}
			return nil
		},
	}
}
