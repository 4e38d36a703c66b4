// Package pipeline runs the load → reduce → write sequence shared by the CLI
// and the HTTP server.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	res, err := runner.Reduce(ctx, pipeline.Options{Input: "net.graphml"})
//	if err != nil {
//	    return err
//	}
//	err = pipeline.Write(res, "net.matrix", "net.palette")
//
// Results are cached by the SHA-256 of the GraphML bytes, so reducing an
// unchanged file is a cache lookup. Cached and fresh results are identical.
package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/reduce"
)

// DefaultTTL is how long a cached reduction stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Default output file extensions.
const (
	MatrixExt  = ".matrix"
	PaletteExt = ".palette"
)

// Options configures a single reduction run.
type Options struct {
	// Input is the GraphML file path. Ignored when Data is set.
	Input string
	// Data is the GraphML document itself, for callers that already hold it.
	Data []byte

	// Refresh bypasses the cache lookup; the fresh result is still stored.
	Refresh bool
	// TTL overrides DefaultTTL. Negative disables expiry.
	TTL time.Duration

	Logger *log.Logger
}

// ValidateAndSetDefaults checks that an input is present and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Data == nil && o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no input: set a file path or document data")
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if o.TTL < 0 {
		o.TTL = 0
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	DocHash   string
	Reduction *reduce.Reduction
	Cached    bool
	Stats     Stats
}

// Stats records stage timings.
type Stats struct {
	LoadTime   time.Duration
	ReduceTime time.Duration
}

// DefaultOutputPaths returns the matrix and palette paths next to input:
// "dir/net.graphml" gives "dir/net.matrix" and "dir/net.palette".
func DefaultOutputPaths(input string) (matrixPath, palettePath string) {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + MatrixExt, base + PaletteExt
}
