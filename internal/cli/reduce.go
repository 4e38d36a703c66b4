package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/pkg/pipeline"
)

type reduceOpts struct {
	matrixPath  string
	palettePath string
	noCache     bool
	refresh     bool
	classes     bool
}

// reduceCommand creates the reduce command, the main entry point.
func (c *CLI) reduceCommand() *cobra.Command {
	var opts reduceOpts

	cmd := &cobra.Command{
		Use:   "reduce <graph.graphml>",
		Short: "Reduce a graph to a class incidence matrix and palette",
		Long: `Reduce a GraphML graph to its equivalence classes.

Each node's class is its Equivalence tag, or the key's default when the node
has none. A negative tag puts the node in a class of its own, named by its ID.
Classes are numbered in natural order of their keys ("n2" before "n10").

Two files are written next to the input unless -m/-p say otherwise:

  <base>.matrix   class count K, then K rows of 0/1 incidences
  <base>.palette  one "index 0xRRGGBB" line per class

Results are cached by input content; --refresh recomputes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReduce(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.matrixPath, "matrix", "m", "", "matrix output file (default <base>.matrix)")
	cmd.Flags().StringVarP(&opts.palettePath, "palette", "p", "", "palette output file (default <base>.palette)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.classes, "classes", false, "list every class with its color and members")

	return cmd
}

func (c *CLI) runReduce(ctx context.Context, input string, opts reduceOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Reduce(ctx, pipeline.Options{
		Input:   input,
		Refresh: opts.refresh,
		TTL:     c.ttl(),
	})
	if err != nil {
		return err
	}

	defMatrix, defPalette := pipeline.DefaultOutputPaths(input)
	if opts.matrixPath == "" {
		opts.matrixPath = defMatrix
	}
	if opts.palettePath == "" {
		opts.palettePath = defPalette
	}
	if err := pipeline.Write(res, opts.matrixPath, opts.palettePath); err != nil {
		return err
	}
	prog.done("reduce finished", "run", res.RunID)

	printSuccess("Reduced %s", input)
	printStats(res.Reduction.Stats(), res.Cached)
	printFile(opts.matrixPath)
	printFile(opts.palettePath)
	if res.Reduction.Stats().Incidences == 0 {
		printWarning("No incidences: the matrix is all zeros")
	}
	if opts.classes {
		printClasses(res.Reduction)
	}
	return nil
}
