package style

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vstyle/css"
)

type cacheKey struct {
	id  string
	css string
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Rewriter transforms component styles and memoizes results. It is safe for
// concurrent use.
type Rewriter struct {
	log    *zap.Logger
	parser *css.Parser
	opts   Options
	minify MinifyOptions

	cache  *lru.Cache[cacheKey, Result]
	flight singleflight.Group

	hits, misses, evictions atomic.Uint64
}

// New creates Rewriter. Autoprefix options are validated here so
// misconfiguration is reported before the first transform.
func New(log *zap.Logger, opts Options) (*Rewriter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create transform cache: %w", err)
	}
	if !opts.Autoprefix.Disable {
		if _, err := Autoprefix(opts.Autoprefix); err != nil {
			return nil, err
		}
	}
	return &Rewriter{
		log:    log.Named("style"),
		parser: css.NewParser(log),
		opts:   opts,
		minify: defaultMinify.merged(opts.Minify),
		cache:  cache,
	}, nil
}

// Transform returns CSS of component id, scoped to the component when
// scoped is true. Results are cached by (id, css) pair, failures are not.
func (r *Rewriter) Transform(ctx context.Context, id, source string, scoped bool) (Result, error) {
	key := cacheKey{id: id, css: source}
	if res, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		return res, nil
	}

	v, err, _ := r.flight.Do(flightKey(key), func() (any, error) {
		if res, ok := r.cache.Get(key); ok {
			r.hits.Add(1)
			return res, nil
		}
		r.misses.Add(1)

		output, err := r.run(ctx, id, source, scoped)
		if err != nil {
			return Result{}, err
		}
		res := Result{Output: output, Kind: KindStyle}
		if r.cache.Add(key, res) {
			r.evictions.Add(1)
		}
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Stats returns current cache counters.
func (r *Rewriter) Stats() Stats {
	return Stats{
		Hits:      r.hits.Load(),
		Misses:    r.misses.Load(),
		Evictions: r.evictions.Load(),
	}
}

// Len returns number of cached results.
func (r *Rewriter) Len() int {
	return r.cache.Len()
}

func flightKey(key cacheKey) string {
	return strconv.Itoa(len(key.id)) + ":" + key.id + key.css
}

// pipeline builds list of steps for a single transform.
func (r *Rewriter) pipeline(id string, scoped bool) ([]Plugin, error) {
	var steps []Plugin
	if r.opts.Custom != nil {
		steps = append(steps, r.opts.Custom.plugins()...)
	}
	if scoped {
		steps = append(steps, Scope(id))
	}
	if !r.opts.Autoprefix.Disable {
		p, err := Autoprefix(r.opts.Autoprefix)
		if err != nil {
			return nil, err
		}
		steps = append(steps, p)
	}
	if r.opts.Production {
		steps = append(steps, Minify(r.minify))
	}
	return steps, nil
}

func (r *Rewriter) run(ctx context.Context, id, source string, scoped bool) (string, error) {
	steps, err := r.pipeline(id, scoped)
	if err != nil {
		return "", err
	}

	from := id
	if r.opts.Custom != nil {
		if f := r.opts.Custom.options().From; f != "" {
			from = f
		}
	}

	start := time.Now()
	st := newStage(r.parser, from, source)
	for _, p := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := p.Process(ctx, st); err != nil {
			return "", fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	out, err := st.Text()
	if err != nil {
		return "", err
	}
	r.log.Debug("Transformed",
		zap.String("id", id),
		zap.Bool("scoped", scoped),
		zap.Int("steps", len(steps)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
