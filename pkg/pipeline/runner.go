package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/eqgraph/pkg/cache"
	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/graphml"
	"github.com/matzehuels/eqgraph/pkg/observability"
	"github.com/matzehuels/eqgraph/pkg/reduce"
)

const cacheKeyType = "reduction"

// Runner executes reductions with caching. It holds no per-run state, so
// one Runner may serve concurrent callers.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching; a nil logger
// uses log.Default().
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Reduce loads the document named by opts and reduces it, consulting the
// cache first unless opts.Refresh is set.
func (r *Runner) Reduce(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	res := &Result{RunID: uuid.NewString()}
	logger = logger.With("run", res.RunID[:8])

	data, err := readInput(opts)
	if err != nil {
		return nil, err
	}
	res.DocHash = cache.Hash(data)
	key := cache.ReductionKey(res.DocHash)

	if !opts.Refresh {
		if red, ok := r.lookup(ctx, logger, key); ok {
			res.Reduction = red
			res.Cached = true
			logger.Debug("cache hit", "hash", res.DocHash[:12])
			return res, nil
		}
	}

	hooks := observability.Pipeline()
	source := opts.Input
	if source == "" {
		source = "<data>"
	}

	hooks.OnLoadStart(ctx, source)
	start := time.Now()
	doc, err := graphml.Read(bytes.NewReader(data))
	res.Stats.LoadTime = time.Since(start)
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, 0, res.Stats.LoadTime, err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, source, len(doc.Nodes), len(doc.Edges), res.Stats.LoadTime, nil)
	logger.Debug("loaded graph",
		"nodes", len(doc.Nodes),
		"edges", len(doc.Edges),
		"duration", res.Stats.LoadTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hooks.OnReduceStart(ctx, len(doc.Nodes))
	start = time.Now()
	red, err := reduce.Reduce(doc)
	res.Stats.ReduceTime = time.Since(start)
	if err != nil {
		hooks.OnReduceComplete(ctx, 0, res.Stats.ReduceTime, err)
		return nil, err
	}
	res.Reduction = red
	hooks.OnReduceComplete(ctx, len(red.Classes), res.Stats.ReduceTime, nil)

	st := red.Stats()
	logger.Info("reduced graph",
		"nodes", st.Nodes,
		"classes", st.Classes,
		"incidences", st.Incidences,
		"duration", res.Stats.ReduceTime)

	r.store(ctx, logger, key, red, opts.TTL)
	return res, nil
}

func readInput(opts Options) ([]byte, error) {
	if opts.Data != nil {
		return opts.Data, nil
	}
	data, err := os.ReadFile(opts.Input)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph file %s", opts.Input).WithSubject(opts.Input)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.Input, err)
	}
	return data, nil
}

// lookup returns a cached reduction. Backend and decode failures are logged
// and treated as misses.
func (r *Runner) lookup(ctx context.Context, logger *log.Logger, key string) (*reduce.Reduction, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	red, err := reduce.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("discarding corrupt cache entry", "err", err)
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return red, true
}

func (r *Runner) store(ctx context.Context, logger *log.Logger, key string, red *reduce.Reduction, ttl time.Duration) {
	var buf bytes.Buffer
	if err := reduce.Encode(&buf, red); err != nil {
		logger.Warn("encode for cache failed", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, buf.Bytes(), ttl); err != nil {
		logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, buf.Len())
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
