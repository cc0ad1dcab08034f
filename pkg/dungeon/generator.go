package dungeon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/scene"
)

var (
	// ErrNoUsableModules is returned when the catalog has nothing placeable.
	ErrNoUsableModules = errors.New("dungeon: catalog has no usable modules")
	// ErrNoLayout is returned when every start module was exhausted.
	ErrNoLayout = errors.New("dungeon: no layout satisfies the constraints")
	// ErrInvalidBudget is returned for a module budget below one.
	ErrInvalidBudget = errors.New("dungeon: module budget must be at least 1")
)

// Options tunes the search.
type Options struct {
	// DepthFirst and Random are the roll thresholds of the connector
	// policy. Rolls at or above Random pick the most constrained connector.
	DepthFirst float64
	Random     float64
	// AcceptStarved treats running out of open connectors before the
	// budget is reached as success.
	AcceptStarved bool

	Logger  *slog.Logger
	Metrics *Metrics
}

// Option configures a Generator.
type Option func(*Options)

// WithLogger sets the generator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics publishes generation counters to m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithAcceptStarved accepts layouts that close before the budget is reached.
func WithAcceptStarved(accept bool) Option {
	return func(o *Options) { o.AcceptStarved = accept }
}

// WithThresholds sets the connector policy thresholds. Values are clamped
// to [0, 1] and random is raised to at least depthFirst.
func WithThresholds(depthFirst, random float64) Option {
	return func(o *Options) {
		o.DepthFirst = clamp01(depthFirst)
		o.Random = max(clamp01(random), o.DepthFirst)
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// Generator assembles dungeons from catalog entries. It remembers the last
// successful solution; a Generator must not be used concurrently.
type Generator struct {
	opts Options
	last *Solution
}

// New returns a generator with the default policy.
func New(opts ...Option) *Generator {
	o := Options{
		DepthFirst: DefaultDepthFirst,
		Random:     DefaultRandom,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Generator{opts: o}
}

// Generate grows a layout of up to maxModules modules from cat into
// container, which should be empty. On success the modules stay in the
// container and the solution is returned and remembered. On failure the
// container is left as it was and the remembered solution is cleared.
func (g *Generator) Generate(cat *catalog.Catalog, maxModules int, container scene.Adapter, seed int64) (*Solution, error) {
	if maxModules < 1 {
		g.last = nil
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, maxModules)
	}
	var entries []*catalog.ModuleType
	if cat != nil {
		entries = cat.Usable()
	}
	if len(entries) == 0 {
		g.last = nil
		g.opts.Logger.Warn("no usable modules in catalog")
		return nil, ErrNoUsableModules
	}

	s := &search{
		rng:     rand.New(rand.NewSource(seed)),
		adapter: container,
		oracle:  NewOracle(container),
		entries: entries,
		budget:  maxModules,
		seed:    seed,
		opts:    g.opts,
		logger:  g.opts.Logger,
	}

	start := time.Now()
	ok := s.run()
	elapsed := time.Since(start)
	g.opts.Metrics.observe(s.stats, ok, elapsed)

	if !ok {
		g.last = nil
		g.opts.Logger.Warn("generation failed",
			"seed", seed,
			"budget", maxModules,
			"starts", s.stats.StartsTried,
			"backtracks", s.stats.Backtracks,
			"duration", elapsed,
		)
		return nil, fmt.Errorf("%w: seed %d, budget %d", ErrNoLayout, seed, maxModules)
	}

	sol := s.capture()
	g.last = sol
	g.opts.Logger.Info("generation complete",
		"seed", seed,
		"modules", sol.Len(),
		"loops", s.stats.LoopClosures,
		"backtracks", s.stats.Backtracks,
		"duration", elapsed,
	)
	return sol, nil
}

// Last returns the most recent successful solution, or nil.
func (g *Generator) Last() *Solution {
	return g.last
}

// HasSolution reports whether a solution is remembered.
func (g *Generator) HasSolution() bool {
	return g.last != nil
}
