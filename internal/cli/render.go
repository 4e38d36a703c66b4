package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/pipeline"
	"github.com/matzehuels/eqgraph/pkg/render/dot"
)

type renderOpts struct {
	output  string
	members bool
	layout  string
	noCache bool
}

// renderCommand creates the render command for the class quotient graph.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <graph.graphml>",
		Short: "Draw the equivalence-class quotient graph",
		Long: `Draw the graph of equivalence classes: one node per class, filled with the
class color, and one edge per incidence. The output format follows the -o
extension: .dot writes Graphviz source, .svg renders it (default <base>.svg).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, .svg or .dot (default <base>.svg)")
	cmd.Flags().BoolVar(&opts.members, "members", false, "list member node IDs in class labels")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "graphviz layout engine (default neato)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}
	ext := strings.ToLower(filepath.Ext(output))
	if ext != ".svg" && ext != ".dot" {
		return errors.New(errors.ErrCodeUnsupported, "output format %q: want .svg or .dot", ext)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Reduce(ctx, pipeline.Options{Input: input, TTL: c.ttl()})
	if err != nil {
		return err
	}

	src := dot.ToDOT(res.Reduction, dot.Options{Members: opts.members, Layout: opts.layout})
	data := []byte(src)
	if ext == ".svg" {
		sp := newSpinner(ctx, "Rendering with graphviz...")
		sp.Start()
		data, err = dot.RenderSVG(ctx, src)
		if err != nil {
			sp.StopWithError("Rendering failed")
			return err
		}
		sp.Stop()
	}

	if err := pipeline.WriteFile(output, data); err != nil {
		return err
	}
	printSuccess("Rendered %d classes", res.Reduction.Size())
	printFile(output)
	return nil
}
