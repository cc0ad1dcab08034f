package dungeon

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/prometheus/client_golang/prometheus"
)

func TestGenerateCorridor(t *testing.T) {
	sc := newScene()
	cat := catalogOf(hall(sc.Kernel(), true))

	g := New()
	sol, err := g.Generate(cat, 3, sc, 7)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sol.Len() != 3 || sc.Len() != 3 {
		t.Fatalf("placed %d modules (scene %d), want 3", sol.Len(), sc.Len())
	}
	if g.Last() != sol || !g.HasSolution() {
		t.Error("generator did not remember the solution")
	}
	if sol.Placements[0].Parent != -1 || sol.Placements[0].Attach != -1 {
		t.Errorf("start placement = %+v, want no parent", sol.Placements[0])
	}
	for i, p := range sol.Placements {
		if p.Index != i || p.ModuleName != "hall" {
			t.Errorf("placement %d = %+v", i, p)
		}
		if i > 0 && (p.Parent < 0 || p.Parent >= i) {
			t.Errorf("placement %d has parent %d", i, p.Parent)
		}
		if math.Abs(p.Pose.Position.X) > 1e-9 || math.Abs(p.Pose.Position.Y) > 1e-9 {
			t.Errorf("placement %d left the corridor axis: %v", i, p.Pose.Position)
		}
	}
	if len(sol.Joins) != 2 || len(sol.Loops()) != 0 {
		t.Errorf("joins = %+v, want two attachments", sol.Joins)
	}
	if len(sol.Open) != 2 {
		t.Errorf("open connectors = %+v, want the two corridor ends", sol.Open)
	}
	if err := Verify(sol, newScene()); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	k := newScene().Kernel()
	tests := []struct {
		name    string
		cat     *catalog.Catalog
		budget  int
		wantErr error
	}{
		{"zero budget", catalogOf(hall(k, false)), 0, ErrInvalidBudget},
		{"nil catalog", nil, 3, ErrNoUsableModules},
		{"empty catalog", catalog.New(), 3, ErrNoUsableModules},
		{"no geometry", catalogOf(&catalog.ModuleType{Name: "air", Weight: 1}), 3, ErrNoUsableModules},
		{"self blocking", catalogOf(blob(k)), 2, ErrNoLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newScene()
			g := New()
			_, err := g.Generate(tt.cat, tt.budget, sc, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if sc.Len() != 0 {
				t.Errorf("failed generation left %d instances", sc.Len())
			}
			if g.HasSolution() {
				t.Error("failed generation left a solution")
			}
		})
	}
}

func TestGenerateFailureClearsLast(t *testing.T) {
	k := newScene().Kernel()
	g := New()
	if _, err := g.Generate(catalogOf(hall(k, true)), 2, newScene(), 3); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := g.Generate(catalogOf(blob(k)), 2, newScene(), 3); err == nil {
		t.Fatal("expected failure")
	}
	if g.Last() != nil {
		t.Error("Last() should be nil after a failed generation")
	}
}

func TestGenerateBudgetOfOne(t *testing.T) {
	sc := newScene()
	sol, err := New().Generate(catalogOf(blob(sc.Kernel())), 1, sc, 9)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sol.Len() != 1 || len(sol.Open) != 1 {
		t.Errorf("got %d placements and %d open connectors, want 1 and 1", sol.Len(), len(sol.Open))
	}
}

func TestGenerateStarved(t *testing.T) {
	k := newScene().Kernel()
	room := &catalog.ModuleType{Name: "room", Weight: 1, Visuals: []kernel.Solid{k.Box(4, 3, 4)}}

	if _, err := New().Generate(catalogOf(room), 5, newScene(), 1); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("Generate() error = %v, want ErrNoLayout", err)
	}

	sc := newScene()
	sol, err := New(WithAcceptStarved(true)).Generate(catalogOf(room), 5, sc, 1)
	if err != nil {
		t.Fatalf("Generate() with AcceptStarved error = %v", err)
	}
	if sol.Len() != 1 || sc.Len() != 1 {
		t.Errorf("placed %d modules, want 1", sol.Len())
	}
	if sol.Stats.Starved == 0 {
		t.Error("Stats.Starved should count the starved frontier")
	}
}

// A lone single-connector module never starves on its own: a second copy
// docks onto the first door, and only then does the frontier run dry.
func TestGenerateLoneDeadEnd(t *testing.T) {
	k := newScene().Kernel()
	cell := &catalog.ModuleType{
		Name:       "cell",
		Weight:     1,
		Visuals:    []kernel.Solid{k.Box(1, 1, 1)},
		Connectors: []catalog.ConnectorSpec{{Name: "door", Frame: frame(geom.V(0, 0, 0.5), geom.Forward)}},
	}

	if _, err := New().Generate(catalogOf(cell), 5, newScene(), 1); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("Generate() error = %v, want ErrNoLayout", err)
	}

	sc := newScene()
	sol, err := New(WithAcceptStarved(true)).Generate(catalogOf(cell), 5, sc, 1)
	if err != nil {
		t.Fatalf("Generate() with AcceptStarved error = %v", err)
	}
	if sol.Len() != 2 || sc.Len() != 2 {
		t.Errorf("placed %d modules (scene %d), want 2", sol.Len(), sc.Len())
	}
	if len(sol.Open) != 0 {
		t.Errorf("open connectors = %d, want 0", len(sol.Open))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	k := newScene().Kernel()
	cat := catalogOf(hall(k, true), tee(k), capModule(k))

	run := func() *Solution {
		sol, err := New().Generate(cat, 8, newScene(), 42)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		return sol
	}
	a, b := run(), run()
	if a.Len() != 8 || b.Len() != 8 {
		t.Fatalf("placed %d and %d modules, want 8", a.Len(), b.Len())
	}
	for i := range a.Placements {
		pa, pb := a.Placements[i], b.Placements[i]
		if pa.ModuleName != pb.ModuleName || !pa.Pose.ApproxEqual(pb.Pose, 1e-12) {
			t.Errorf("placement %d differs: %+v vs %+v", i, pa, pb)
		}
	}
	if a.Stats != b.Stats {
		t.Errorf("stats differ: %+v vs %+v", a.Stats, b.Stats)
	}
	if err := Verify(a, newScene()); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerifyDetectsOverlap(t *testing.T) {
	k := newScene().Kernel()
	h := hall(k, true)
	sol := &Solution{
		Budget: 2,
		Placements: []Placement{
			{Index: 0, Module: h, ModuleName: "hall", Pose: at(0, 0, 0), Parent: -1, Attach: -1},
			{Index: 1, Module: h, ModuleName: "hall", Pose: at(0, 0, 1), Parent: 0},
		},
	}
	sc := newScene()
	if err := Verify(sol, sc); !errors.Is(err, ErrInvalidSolution) {
		t.Errorf("Verify() error = %v, want ErrInvalidSolution", err)
	}
	if sc.Len() != 0 {
		t.Errorf("Verify left %d instances behind", sc.Len())
	}

	sol.Budget = 1
	if err := Verify(sol, sc); !errors.Is(err, ErrInvalidSolution) {
		t.Errorf("Verify() over budget error = %v", err)
	}
	if err := Verify(&Solution{}, sc); !errors.Is(err, ErrInvalidSolution) {
		t.Errorf("Verify() empty error = %v", err)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	k := newScene().Kernel()
	g := New(WithMetrics(m))

	if _, err := g.Generate(catalogOf(hall(k, true)), 4, newScene(), 5); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	_, _ = g.Generate(catalogOf(blob(k)), 3, newScene(), 5)

	if got := gathered(t, reg, "warren_generations_total", "success"); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
	if got := gathered(t, reg, "warren_generations_total", "failure"); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := gathered(t, reg, "warren_placements_total", ""); got < 3 {
		t.Errorf("placements = %v, want at least 3", got)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("registering twice should fail")
	}

	var nilMetrics *Metrics
	nilMetrics.observe(Stats{}, true, 0)
}

func TestWithThresholds(t *testing.T) {
	g := New(WithThresholds(1.5, 0.2))
	if g.opts.DepthFirst != 1 || g.opts.Random != 1 {
		t.Errorf("thresholds = %v/%v, want 1/1", g.opts.DepthFirst, g.opts.Random)
	}
	g = New(WithThresholds(0.5, 0.7))
	if g.opts.DepthFirst != 0.5 || g.opts.Random != 0.7 {
		t.Errorf("thresholds = %v/%v, want 0.5/0.7", g.opts.DepthFirst, g.opts.Random)
	}
}

// gathered sums the counter samples of the named family, restricted to
// samples carrying label value when it is non-empty.
func gathered(t *testing.T, reg *prometheus.Registry, name, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := value == ""
			for _, l := range m.GetLabel() {
				if l.GetValue() == value {
					match = true
				}
			}
			if match {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}
