package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/config"
	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/engine"
	"github.com/chazu/warren/pkg/export"
	"github.com/chazu/warren/pkg/graph"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/chazu/warren/pkg/kernel/analytic"
	"github.com/chazu/warren/pkg/kernel/sdfx"
	"github.com/chazu/warren/pkg/scene"
	"github.com/chazu/warren/pkg/store"
	"github.com/chazu/warren/pkg/tessellate"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoStore is returned by run archive operations when store.path is unset.
var ErrNoStore = errors.New("no run archive configured (set store.path)")

// App wires the catalog engine, geometry kernel, generator and run archive
// behind the CLI commands.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	kernel   kernel.Kernel
	engine   *engine.Engine
	registry *prometheus.Registry
	metrics  *dungeon.Metrics
	store    *store.Store

	mu         sync.Mutex
	generation uint64
	last       *dungeon.Solution
}

// CatalogResult is the outcome of loading a catalog.
type CatalogResult struct {
	Catalog  *catalog.Catalog
	Errors   []engine.EvalError
	Problems []catalog.Problem
}

// Result is the outcome of one generation.
type Result struct {
	Seed     int64
	Solution *dungeon.Solution
	Warnings []graph.ValidationError
	RunID    string
	Elapsed  time.Duration
}

// NewApp builds an App from cfg. A nil logger discards output.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	switch cfg.Kernel {
	case config.KernelSdfx:
		a.kernel = sdfx.New()
	default:
		a.kernel = analytic.New()
	}
	a.engine = engine.NewEngine(a.kernel)

	m, err := dungeon.NewMetrics(a.registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	a.metrics = m

	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path, logger)
		if err != nil {
			return nil, err
		}
		a.store = s
	}
	return a, nil
}

// Close releases the run archive.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Kernel returns the geometry kernel the app builds modules with.
func (a *App) Kernel() kernel.Kernel {
	return a.kernel
}

// Last returns the most recent solution produced by Generate, or nil.
func (a *App) Last() *dungeon.Solution {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// HasSolution reports whether Generate has produced a solution.
func (a *App) HasSolution() bool {
	return a.Last() != nil
}

// EvaluateCatalog runs catalog DSL source. Evaluation errors are returned in
// the result; the error return is reserved for fatal failures.
func (a *App) EvaluateCatalog(source string) (CatalogResult, error) {
	res, err := a.engine.EvaluateFull(source)
	if err != nil {
		a.logger.Error("catalog evaluation failed", "error", err)
		return CatalogResult{}, err
	}
	return CatalogResult{Catalog: res.Catalog, Errors: res.Errors, Problems: res.Problems}, nil
}

// LoadCatalog reads a catalog from a DSL file (.lisp, .wl) or a TOML or
// YAML manifest.
func (a *App) LoadCatalog(path string) (CatalogResult, error) {
	if path == "" {
		return CatalogResult{}, errors.New("no catalog given (set catalog or pass --catalog)")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".wl":
		source, err := os.ReadFile(path)
		if err != nil {
			return CatalogResult{}, fmt.Errorf("read catalog: %w", err)
		}
		res, err := a.EvaluateCatalog(string(source))
		if err != nil {
			return CatalogResult{}, fmt.Errorf("%s: %w", path, err)
		}
		a.logger.Debug("catalog evaluated", "path", path, "errors", len(res.Errors))
		return res, nil
	}

	format, err := catalog.FormatFromPath(path)
	if err != nil {
		return CatalogResult{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return CatalogResult{}, fmt.Errorf("read catalog: %w", err)
	}
	defer f.Close()

	c, err := catalog.DecodeManifest(f, format, a.kernel)
	if err != nil {
		return CatalogResult{}, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("catalog decoded", "path", path, "modules", c.Len())
	return CatalogResult{Catalog: c, Problems: c.Validate()}, nil
}

// seed returns the configured seed, or a clock-derived one.
func (a *App) seed() int64 {
	if a.cfg.RandomSeed {
		return time.Now().UnixNano()
	}
	return a.cfg.Seed
}

type generateResult struct {
	sol *dungeon.Solution
	err error
}

// Generate assembles a dungeon from cat into a fresh scene, checks the
// layout graph and writes every configured output.
func (a *App) Generate(ctx context.Context, cat *catalog.Catalog, catalogName string) (*Result, error) {
	seed := a.seed()
	a.logger.Info("generating",
		"seed", seed,
		"catalog", catalogName,
		"max_modules", a.cfg.MaxModules,
	)

	start := time.Now()
	sol, err := a.generateWithTimeout(ctx, cat, seed)
	if err != nil {
		return nil, err
	}
	res := &Result{Seed: seed, Solution: sol, Elapsed: time.Since(start)}

	check := graph.ValidateAll(graph.FromSolution(sol), a.cfg.MaxModules)
	if !check.OK() {
		return nil, fmt.Errorf("generated layout failed validation: %w", errors.Join(asErrors(check.Errors)...))
	}
	res.Warnings = check.Warnings

	if err := a.writeOutputs(ctx, res, catalogName); err != nil {
		return res, err
	}
	return res, nil
}

// generateWithTimeout runs the generator on its own goroutine under the
// configured deadline. A newer call supersedes an older one still running;
// the older result is discarded.
func (a *App) generateWithTimeout(ctx context.Context, cat *catalog.Catalog, seed int64) (*dungeon.Solution, error) {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	// Each run gets its own generator and scene so an abandoned run cannot
	// race with a newer one.
	g := dungeon.New(
		dungeon.WithLogger(a.logger),
		dungeon.WithMetrics(a.metrics),
		dungeon.WithAcceptStarved(a.cfg.AcceptStarved),
		dungeon.WithThresholds(a.cfg.Heuristics.DepthFirst, a.cfg.Heuristics.Random),
	)
	container := scene.New(a.kernel, scene.WithLogger(a.logger))

	ch := make(chan generateResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- generateResult{err: fmt.Errorf("panic during generation: %v", r)}
			}
		}()
		sol, err := g.Generate(cat, a.cfg.MaxModules, container, seed)
		ch <- generateResult{sol: sol, err: err}
	}()

	select {
	case res := <-ch:
		a.mu.Lock()
		defer a.mu.Unlock()
		if gen != a.generation {
			return nil, errors.New("generation superseded by newer request")
		}
		if res.err != nil {
			a.last = nil
			return nil, res.err
		}
		a.last = res.sol
		return res.sol, nil

	case <-ctx.Done():
		a.mu.Lock()
		if gen == a.generation {
			a.last = nil
		}
		a.mu.Unlock()
		a.logger.Warn("generation abandoned", "seed", seed, "error", ctx.Err())
		return nil, fmt.Errorf("generation abandoned: %w", ctx.Err())
	}
}

func (a *App) writeOutputs(ctx context.Context, res *Result, catalogName string) error {
	out := a.cfg.Output
	if out.Path != "" {
		if err := writeFile(out.Path, func(w io.Writer) error {
			return export.Encode(w, export.NewDocument(res.Solution), out.Format)
		}); err != nil {
			return fmt.Errorf("write layout: %w", err)
		}
		a.logger.Info("wrote layout", "path", out.Path, "format", out.Format)
	}

	if out.STL != "" {
		meshes, err := tessellate.Tessellate(res.Solution, a.kernel)
		if err != nil {
			return fmt.Errorf("tessellate: %w", err)
		}
		if err := writeFile(out.STL, func(w io.Writer) error {
			return export.WriteSTL(w, meshes)
		}); err != nil {
			return fmt.Errorf("write stl: %w", err)
		}
		a.logger.Info("wrote mesh", "path", out.STL, "meshes", len(meshes))
	}

	if a.store != nil {
		id, err := a.store.Save(ctx, catalogName, res.Solution)
		if err != nil {
			return err
		}
		res.RunID = id
	}

	if a.cfg.Metrics.File != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Metrics.File, a.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// Check validates a solution against cat: the layout graph, then the
// geometry rebuilt in a scratch scene.
func (a *App) Check(sol *dungeon.Solution) (graph.ValidationResult, error) {
	result := graph.ValidateAll(graph.FromSolution(sol), sol.Budget)
	if !result.OK() {
		return result, nil
	}
	if err := dungeon.Verify(sol, scene.New(a.kernel, scene.WithLogger(a.logger))); err != nil {
		return result, err
	}
	return result, nil
}

// LoadSolution reads a layout from a document file, or from the run archive
// when ref is not an existing file, and resolves it against cat.
func (a *App) LoadSolution(ctx context.Context, ref string, cat *catalog.Catalog) (*dungeon.Solution, error) {
	var doc *export.Document
	if _, err := os.Stat(ref); err == nil {
		f, err := os.Open(ref)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if doc, err = export.Decode(f, export.FormatFromPath(ref)); err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
	} else {
		if a.store == nil {
			return nil, fmt.Errorf("%s: no such file and %w", ref, ErrNoStore)
		}
		run, err := a.store.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		doc = run.Document
	}
	return doc.Resolve(cat)
}

// Runs lists archived runs, newest first.
func (a *App) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.store.List(ctx, limit)
}

// DeleteRun removes an archived run.
func (a *App) DeleteRun(ctx context.Context, id string) error {
	if a.store == nil {
		return ErrNoStore
	}
	return a.store.Delete(ctx, id)
}

// writeFile creates path and its parent directories and hands the file to fn.
func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func asErrors(findings []graph.ValidationError) []error {
	errs := make([]error, len(findings))
	for i, f := range findings {
		errs[i] = f
	}
	return errs
}
