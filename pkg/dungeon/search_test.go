package dungeon

import (
	"testing"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
)

func blob(k kernel.Kernel) *catalog.ModuleType {
	// The only opening sits at the centre, so a second blob always lands
	// inside the first.
	return &catalog.ModuleType{
		Name:       "blob",
		Weight:     1,
		Visuals:    []kernel.Solid{k.Box(2, 2, 2)},
		Connectors: []catalog.ConnectorSpec{{Frame: frame(geom.Zero, geom.Forward)}},
	}
}

func TestViableEntriesIsPure(t *testing.T) {
	sc := newScene()
	k := sc.Kernel()
	entries := []*catalog.ModuleType{hall(k, true), blob(k), capModule(k)}
	s := newSearch(sc, entries, 5)
	root := place(s, entries[0], geom.Identity(), nil, -1)
	s.frontier.Push(connectorsOf(root)...)

	target := s.frontier.Last().Frame(sc)
	first := ViableEntries(sc, s.oracle, s.handles(), target, entries)
	second := ViableEntries(sc, s.oracle, s.handles(), target, entries)

	if len(first) != 2 || first[0].Name != "hall" || first[1].Name != "cap" {
		t.Fatalf("ViableEntries() = %v, want [hall cap]", names(first))
	}
	if len(second) != len(first) {
		t.Errorf("second call = %v, want %v", names(second), names(first))
	}
	if sc.Len() != 1 {
		t.Errorf("scene holds %d instances after viability checks, want 1", sc.Len())
	}
}

func TestTrialSkipsModulesWithoutConnectors(t *testing.T) {
	sc := newScene()
	room := &catalog.ModuleType{Name: "room", Weight: 1, Visuals: []kernel.Solid{sc.Kernel().Box(1, 1, 1)}}
	if _, _, ok := trial(sc, NewOracle(sc), nil, room, frame(geom.Zero, geom.Forward)); ok {
		t.Error("trial() placed a module with no connectors")
	}
	if sc.Len() != 0 {
		t.Errorf("scene holds %d instances, want 0", sc.Len())
	}
}

func TestPickWeighted(t *testing.T) {
	s := newSearch(newScene(), nil, 1)
	mk := func(ws ...float64) []*catalog.ModuleType {
		out := make([]*catalog.ModuleType, len(ws))
		for i, w := range ws {
			out[i] = &catalog.ModuleType{Name: string(rune('a' + i)), Weight: w}
		}
		return out
	}

	tests := []struct {
		name  string
		pool  []*catalog.ModuleType
		check func(counts []int) bool
	}{
		{"zero weight never drawn", mk(0, 1, 0), func(c []int) bool { return c[0] == 0 && c[2] == 0 }},
		{"negative treated as zero", mk(-5, 2), func(c []int) bool { return c[0] == 0 }},
		{"all zero is uniform", mk(0, 0, 0), func(c []int) bool { return c[0] > 0 && c[1] > 0 && c[2] > 0 }},
		{"heavier drawn more", mk(1, 9), func(c []int) bool { return c[1] > c[0] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := make([]int, len(tt.pool))
			for i := 0; i < 600; i++ {
				counts[s.pickWeighted(tt.pool)]++
			}
			if !tt.check(counts) {
				t.Errorf("unexpected draw counts %v", counts)
			}
		})
	}
}

func TestGrowthPool(t *testing.T) {
	k := newScene().Kernel()
	h, c := hall(k, false), capModule(k)
	if got := growthPool([]*catalog.ModuleType{c, h}); len(got) != 1 || got[0] != h {
		t.Errorf("growthPool() = %v, want [hall]", names(got))
	}
	if got := growthPool([]*catalog.ModuleType{c}); len(got) != 1 || got[0] != c {
		t.Errorf("growthPool() = %v, want [cap]", names(got))
	}
	if got := growthPool(nil); len(got) != 0 {
		t.Errorf("growthPool(nil) = %v, want empty", names(got))
	}
}

func TestSelectConnector(t *testing.T) {
	sc := newScene()
	k := sc.Kernel()
	entries := []*catalog.ModuleType{hall(k, true)}
	s := newSearch(sc, entries, 5)

	root := place(s, entries[0], geom.Identity(), nil, -1)
	s.frontier.Push(connectorsOf(root)...)
	// Block the north end.
	place(s, blob(k), at(0, 0, 2.5), root, 0)

	s.opts = Options{DepthFirst: 1, Random: 1}
	if got := s.selectConnector(); got != s.frontier.Last() {
		t.Errorf("depth-first policy picked %+v, want the last connector", got)
	}

	s.opts = Options{DepthFirst: 0, Random: 0}
	got := s.selectConnector()
	if got.Owner != root || got.Index != 0 {
		t.Errorf("most-constrained policy picked connector %d, want the blocked north end", got.Index)
	}
	if len(s.viable(got)) != 0 {
		t.Errorf("blocked connector should have no viable entries, got %v", names(s.viable(got)))
	}
}

func TestExpandRestoresStateOnFailure(t *testing.T) {
	sc := newScene()
	entries := []*catalog.ModuleType{blob(sc.Kernel())}
	s := newSearch(sc, entries, 2)
	root := place(s, entries[0], geom.Identity(), nil, -1)
	s.frontier.Push(connectorsOf(root)...)

	if s.expand() {
		t.Fatal("expand() succeeded with a self-blocking module")
	}
	if len(s.placed) != 1 || s.frontier.Len() != 1 || len(s.joins) != 0 || sc.Len() != 1 {
		t.Errorf("state changed: placed %d, frontier %d, joins %d, scene %d",
			len(s.placed), s.frontier.Len(), len(s.joins), sc.Len())
	}
	if s.stats.DeadEnds != 1 {
		t.Errorf("DeadEnds = %d, want 1", s.stats.DeadEnds)
	}
}

func names(ms []*catalog.ModuleType) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
