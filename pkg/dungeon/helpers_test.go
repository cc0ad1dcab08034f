package dungeon

import (
	"io"
	"log/slog"
	"math/rand"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/chazu/warren/pkg/kernel/analytic"
	"github.com/chazu/warren/pkg/scene"
)

func frame(pos, fwd geom.Vec) geom.Frame {
	return geom.Frame{Position: pos, Forward: fwd, Up: geom.Up}
}

// hall is a 1x1x2 corridor open at both ends.
func hall(k kernel.Kernel, colliders bool) *catalog.ModuleType {
	box := k.Box(1, 1, 2)
	m := &catalog.ModuleType{
		Name:    "hall",
		Weight:  1,
		Visuals: []kernel.Solid{box},
		Connectors: []catalog.ConnectorSpec{
			{Name: "north", Frame: frame(geom.V(0, 0, 1), geom.Forward)},
			{Name: "south", Frame: frame(geom.V(0, 0, -1), geom.V(0, 0, -1))},
		},
	}
	if colliders {
		m.Colliders = []kernel.Solid{box}
	}
	return m
}

// tee is a 3x1x1 junction with three openings.
func tee(k kernel.Kernel) *catalog.ModuleType {
	box := k.Box(3, 1, 1)
	return &catalog.ModuleType{
		Name:      "tee",
		Weight:    0.5,
		Visuals:   []kernel.Solid{box},
		Colliders: []kernel.Solid{box},
		Connectors: []catalog.ConnectorSpec{
			{Name: "stem", Frame: frame(geom.V(0, 0, -0.5), geom.V(0, 0, -1))},
			{Name: "east", Frame: frame(geom.V(1.5, 0, 0), geom.Right)},
			{Name: "west", Frame: frame(geom.V(-1.5, 0, 0), geom.V(-1, 0, 0))},
		},
	}
}

// cap closes a branch.
func capModule(k kernel.Kernel) *catalog.ModuleType {
	return &catalog.ModuleType{
		Name:       "cap",
		Weight:     1,
		Visuals:    []kernel.Solid{k.Box(1, 1, 0.5)},
		Connectors: []catalog.ConnectorSpec{{Name: "door", Frame: frame(geom.V(0, 0, -0.25), geom.V(0, 0, -1))}},
	}
}

// stub is a small cube with openings front and back.
func stub(k kernel.Kernel) *catalog.ModuleType {
	return &catalog.ModuleType{
		Name:    "stub",
		Weight:  1,
		Visuals: []kernel.Solid{k.Box(0.2, 0.2, 0.2)},
		Connectors: []catalog.ConnectorSpec{
			{Name: "front", Frame: frame(geom.V(0, 0, 0.1), geom.Forward)},
			{Name: "back", Frame: frame(geom.V(0, 0, -0.1), geom.V(0, 0, -1))},
		},
	}
}

func catalogOf(ms ...*catalog.ModuleType) *catalog.Catalog {
	c := catalog.New()
	for _, m := range ms {
		c.MustAdd(m)
	}
	return c
}

func newScene() *scene.Scene {
	return scene.New(analytic.New())
}

func newSearch(a scene.Adapter, entries []*catalog.ModuleType, budget int) *search {
	return &search{
		rng:     rand.New(rand.NewSource(1)),
		adapter: a,
		oracle:  NewOracle(a),
		entries: entries,
		budget:  budget,
		opts:    Options{DepthFirst: DefaultDepthFirst, Random: DefaultRandom},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// place adds an instance of m at p to s as a child of parent.
func place(s *search, m *catalog.ModuleType, p geom.Pose, parent *Instance, attach int) *Instance {
	h, err := s.adapter.Instantiate(m)
	if err != nil {
		panic(err)
	}
	if err := s.adapter.SetPose(h, p); err != nil {
		panic(err)
	}
	inst := &Instance{Handle: h, Module: m, Index: len(s.placed), Parent: parent, Attach: attach}
	if parent != nil {
		parent.Children = append(parent.Children, inst)
	}
	s.placed = append(s.placed, inst)
	return inst
}
