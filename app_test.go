package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/config"
	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/tessellate"
)

// newTestApp builds an App on the analytic kernel with a fixed seed.
func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.RandomSeed = false
	cfg.Seed = 42
	cfg.MaxModules = 12
	cfg.Timeout = 30 * time.Second
	if mutate != nil {
		mutate(cfg)
	}
	app, err := NewApp(cfg, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func loadCatalog(t *testing.T, app *App, path string) *catalog.Catalog {
	t.Helper()
	res, err := app.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog(%s) error = %v", path, err)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	return res.Catalog
}

// TestE2ECryptExample exercises the full pipeline: DSL source → engine →
// catalog → generator → layout checks.
func TestE2ECryptExample(t *testing.T) {
	app := newTestApp(t, nil)

	res, err := app.LoadCatalog("examples/crypt.lisp")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected eval errors: %v", res.Errors)
	}
	for _, p := range res.Problems {
		if p.Severity == catalog.SeverityError {
			t.Errorf("catalog problem: %v", p)
		}
	}

	expected := map[string]bool{"hall": false, "long-hall": false, "room": false, "corner": false, "chamber": false}
	for _, m := range res.Catalog.Entries() {
		if _, ok := expected[m.Name]; !ok {
			t.Errorf("unexpected module %q", m.Name)
			continue
		}
		expected[m.Name] = true
	}
	for name, found := range expected {
		if !found {
			t.Errorf("missing module %q", name)
		}
	}

	gen, err := app.Generate(context.Background(), res.Catalog, "crypt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Seed != 42 {
		t.Errorf("seed = %d, want 42", gen.Seed)
	}
	if gen.Solution.Len() != 12 {
		t.Errorf("placements = %d, want 12", gen.Solution.Len())
	}
	if !app.HasSolution() || app.Last() != gen.Solution {
		t.Error("app should remember the generated solution")
	}

	result, err := app.Check(gen.Solution)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.OK() {
		t.Errorf("generated layout has errors: %v", result.Errors)
	}
}

// TestE2ECorridorsManifest generates from a declarative TOML catalog.
func TestE2ECorridorsManifest(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.Seed = 7
		c.MaxModules = 8
	})
	cat := loadCatalog(t, app, "examples/corridors.toml")
	if cat.Len() != 3 {
		t.Fatalf("modules = %d, want 3", cat.Len())
	}
	end, _ := cat.Lookup("cap")
	if !end.Terminal() {
		t.Error("cap should be terminal")
	}

	gen, err := app.Generate(context.Background(), cat, "corridors")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.Solution.Len() != 8 {
		t.Errorf("placements = %d, want 8", gen.Solution.Len())
	}
	if gen.RunID != "" {
		t.Errorf("RunID = %q without a store", gen.RunID)
	}
}

// TestE2EOutputs checks every configured output of a generation.
func TestE2EOutputs(t *testing.T) {
	dir := t.TempDir()
	layout := filepath.Join(dir, "out", "layout.yaml")
	stl := filepath.Join(dir, "out", "layout.stl")
	metrics := filepath.Join(dir, "warren.prom")

	app := newTestApp(t, func(c *config.Config) {
		c.MaxModules = 6
		c.Output.Path = layout
		c.Output.Format = "yaml"
		c.Output.STL = stl
		c.Store.Path = filepath.Join(dir, "runs.db")
		c.Metrics.File = metrics
	})
	cat := loadCatalog(t, app, "examples/corridors.toml")
	ctx := context.Background()

	gen, err := app.Generate(ctx, cat, "corridors")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// STL: 84 header bytes plus 50 per triangle.
	meshes, err := tessellate.Tessellate(gen.Solution, app.Kernel())
	if err != nil {
		t.Fatalf("Tessellate() error = %v", err)
	}
	tris := tessellate.Merge(meshes).TriangleCount()
	info, err := os.Stat(stl)
	if err != nil {
		t.Fatalf("stl not written: %v", err)
	}
	if want := int64(84 + 50*tris); info.Size() != want {
		t.Errorf("stl size = %d, want %d", info.Size(), want)
	}

	prom, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	if !strings.Contains(string(prom), "warren_generations_total") {
		t.Errorf("metrics textfile missing generation counter:\n%s", prom)
	}

	fromFile, err := app.LoadSolution(ctx, layout, cat)
	if err != nil {
		t.Fatalf("LoadSolution(file) error = %v", err)
	}
	if gen.RunID == "" {
		t.Fatal("expected a run ID from the archive")
	}
	fromStore, err := app.LoadSolution(ctx, gen.RunID, cat)
	if err != nil {
		t.Fatalf("LoadSolution(run) error = %v", err)
	}
	for _, sol := range []*dungeon.Solution{fromFile, fromStore} {
		if sol.Len() != gen.Solution.Len() || sol.Seed != gen.Seed {
			t.Errorf("loaded %d modules seed %d, want %d seed %d", sol.Len(), sol.Seed, gen.Solution.Len(), gen.Seed)
		}
		if _, err := app.Check(sol); err != nil {
			t.Errorf("Check(loaded) error = %v", err)
		}
	}

	runs, err := app.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != gen.RunID || runs[0].Catalog != "corridors" {
		t.Fatalf("runs = %+v", runs)
	}
	if err := app.DeleteRun(ctx, gen.RunID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if runs, _ := app.Runs(ctx, 0); len(runs) != 0 {
		t.Errorf("runs after delete = %d", len(runs))
	}
}

// TestE2EEmptySource ensures an empty catalog is reported as unusable.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t, nil)
	res, err := app.EvaluateCatalog("")
	if err != nil {
		t.Fatalf("EvaluateCatalog() error = %v", err)
	}
	if len(res.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", res.Errors)
	}
	if res.Catalog.Len() != 0 {
		t.Errorf("expected 0 modules, got %d", res.Catalog.Len())
	}

	_, err = app.Generate(context.Background(), res.Catalog, "empty")
	if !errors.Is(err, dungeon.ErrNoUsableModules) {
		t.Errorf("Generate() error = %v, want ErrNoUsableModules", err)
	}
	if app.HasSolution() {
		t.Error("no solution expected")
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t, nil)
	res, err := app.EvaluateCatalog(`(defmodule "hall"`)
	if err != nil {
		t.Fatalf("EvaluateCatalog() error = %v", err)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if res.Catalog != nil {
		t.Error("no catalog expected on error")
	}
}
