package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/palette"
	"github.com/matzehuels/eqgraph/pkg/pipeline"
	"github.com/matzehuels/eqgraph/pkg/solution"
)

type visualizeOpts struct {
	output  string
	cell    int
	index   int
	outline bool
}

// visualizeCommand creates the visualize command for solver output.
func (c *CLI) visualizeCommand() *cobra.Command {
	opts := visualizeOpts{index: -1}

	cmd := &cobra.Command{
		Use:   "visualize <solution> <palette>",
		Short: "Render a solver solution grid as an image",
		Long: `Render a tiling solver's solution grid, coloring each cell with the palette
color of its class index.

The solution file holds "height width" followed by height*width class
indices. Solvers that append successive grids to one file are supported;
--index picks one (0 is the first, -1 the last). The image format follows the
-o extension: .svg (default) or .png.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cell") {
				opts.cell = c.Config.Render.CellSize
			}
			return c.runVisualize(args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, .svg or .png (default <solution>.svg)")
	cmd.Flags().IntVar(&opts.cell, "cell", solution.DefaultCellSize, "cell size in pixels")
	cmd.Flags().IntVar(&opts.index, "index", opts.index, "grid to render when the file holds several (negative counts from the end)")
	cmd.Flags().BoolVar(&opts.outline, "outline", false, "outline each cell (svg only)")

	return cmd
}

func (c *CLI) runVisualize(solPath, palPath string, opts visualizeOpts) error {
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(solPath, filepath.Ext(solPath)) + ".svg"
	}
	ext := strings.ToLower(filepath.Ext(output))
	if ext != ".svg" && ext != ".png" {
		return errors.New(errors.ErrCodeUnsupported, "output format %q: want .svg or .png", ext)
	}

	grids, err := readSolution(solPath)
	if err != nil {
		return err
	}
	idx := opts.index
	if idx < 0 {
		idx += len(grids)
	}
	if idx < 0 || idx >= len(grids) {
		return errors.New(errors.ErrCodeInvalidInput, "grid index %d out of range: %s holds %d grids", opts.index, solPath, len(grids))
	}
	grid := grids[idx]

	pal, err := readPalette(palPath)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded solution", "grids", len(grids), "index", idx, "size", fmt.Sprintf("%dx%d", grid.Height, grid.Width), "colors", len(pal))

	renderOpts := []solution.Option{solution.WithCellSize(opts.cell)}
	if opts.outline {
		renderOpts = append(renderOpts, solution.WithOutline())
	}

	var data []byte
	if ext == ".png" {
		data, err = solution.RenderPNG(grid, pal, renderOpts...)
	} else {
		data, err = solution.RenderSVG(grid, pal, renderOpts...)
	}
	if err != nil {
		return err
	}

	if err := pipeline.WriteFile(output, data); err != nil {
		return err
	}
	printSuccess("Rendered %dx%d grid", grid.Height, grid.Width)
	if len(grids) > 1 {
		printDetail("grid %d of %d", idx+1, len(grids))
	}
	printFile(output)
	return nil
}

func readSolution(path string) ([]*solution.Grid, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "solution file %s", path).WithSubject(path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	grids, err := solution.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(grids) == 0 {
		return nil, errors.New(errors.ErrCodeFormat, "solution file %s holds no grid", path).WithSubject(path)
	}
	return grids, nil
}

func readPalette(path string) (palette.Palette, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "palette file %s", path).WithSubject(path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return palette.Read(f)
}
