package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/chazu/warren/pkg/kernel/analytic"
	"github.com/chazu/warren/pkg/scene"
)

func generated(t *testing.T, k kernel.Kernel, budget int) *dungeon.Solution {
	t.Helper()
	cat := catalog.New().MustAdd(&catalog.ModuleType{
		Name:    "hall",
		Weight:  1,
		Visuals: []kernel.Solid{k.Box(1, 1, 2)},
		Connectors: []catalog.ConnectorSpec{
			{Frame: geom.Frame{Position: geom.V(0, 0, 1), Forward: geom.Forward, Up: geom.Up}},
			{Frame: geom.Frame{Position: geom.V(0, 0, -1), Forward: geom.V(0, 0, -1), Up: geom.Up}},
		},
	})
	sol, err := dungeon.New().Generate(cat, budget, scene.New(k), 2)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return sol
}

func TestPlay(t *testing.T) {
	k := analytic.New()
	sol := generated(t, k, 4)
	sc := scene.New(k)
	// Leftovers from an earlier playback are cleared first.
	_, _ = sc.Instantiate(sol.Placements[0].Module)

	var steps []Step
	start := time.Now()
	err := Play(context.Background(), sol, sc, 0, func(s Step) { steps = append(steps, s) })
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 3*MinDelay {
		t.Errorf("Play() took %v, want at least %v", elapsed, 3*MinDelay)
	}
	if sc.Len() != 4 || len(steps) != 4 {
		t.Fatalf("scene has %d instances after %d steps, want 4", sc.Len(), len(steps))
	}
	for i, s := range steps {
		if s.Index != i || s.Total != 4 {
			t.Errorf("step %d = %+v", i, s)
		}
		if !sc.Pose(s.Handle).ApproxEqual(sol.Placements[i].Pose, 1e-12) {
			t.Errorf("step %d pose = %v, want %v", i, sc.Pose(s.Handle), sol.Placements[i].Pose)
		}
	}
}

func TestPlayCancelled(t *testing.T) {
	k := analytic.New()
	sol := generated(t, k, 5)
	sc := scene.New(k)

	ctx, cancel := context.WithCancel(context.Background())
	err := Play(ctx, sol, sc, time.Hour, func(s Step) {
		if s.Index == 0 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Play() error = %v, want context.Canceled", err)
	}
	if sc.Len() != 1 {
		t.Errorf("scene has %d instances, want the one placed before cancel", sc.Len())
	}
}

func TestPlayErrors(t *testing.T) {
	k := analytic.New()
	sc := scene.New(k)
	if err := Play(context.Background(), nil, sc, 0, nil); !errors.Is(err, ErrNoSolution) {
		t.Errorf("Play(nil) error = %v, want ErrNoSolution", err)
	}

	sol := generated(t, k, 2)
	sol.Placements[1].Module = nil
	if err := Play(context.Background(), sol, sc, 0, nil); err == nil {
		t.Error("expected an error for an unresolved placement")
	}
}
