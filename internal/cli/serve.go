package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/eqgraph/internal/metrics"
	"github.com/matzehuels/eqgraph/internal/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reduction over HTTP",
		Long: `Serve the reduction over HTTP until interrupted.

  POST /v1/reduce          GraphML body, JSON reduction
  POST /v1/reduce/matrix   GraphML body, matrix file text
  POST /v1/reduce/palette  GraphML body, palette file text
  POST /v1/render/dot      GraphML body, quotient graph DOT
  GET  /healthz, /version, /metrics

Set [cache] backend = "redis" in the config file to share results between
instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner, c.Logger)
			srv.TTL = c.ttl()
			if c.Config.Server.Metrics && !noMetrics {
				m := metrics.New()
				m.Install()
				srv.Metrics = m.Handler()
			}

			printInfo("Listening on %s", addr)
			printNextStep("Try", "curl --data-binary @graph.graphml http://localhost"+portOf(addr)+"/v1/reduce")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

// portOf returns the ":port" suffix of a listen address.
func portOf(addr string) string {
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[i:]
	}
	return ""
}
