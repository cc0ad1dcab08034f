// Package replay rebuilds a generated layout in a container one placement
// at a time, so a viewer can watch the dungeon being assembled.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/scene"
)

// MinDelay is the shortest pause between steps.
const MinDelay = 10 * time.Millisecond

// ErrNoSolution is returned when there is nothing to play.
var ErrNoSolution = errors.New("replay: no solution to play")

// Step describes one placement that was just instantiated.
type Step struct {
	Index     int
	Total     int
	Placement dungeon.Placement
	Handle    scene.Handle
}

// Play clears container and instantiates the placements of sol in order,
// pausing delay between steps. onStep, if non-nil, runs after each
// placement. When ctx is cancelled Play stops and returns ctx.Err(),
// leaving the placements made so far in the container.
func Play(ctx context.Context, sol *dungeon.Solution, container scene.Container, delay time.Duration, onStep func(Step)) error {
	if sol == nil || len(sol.Placements) == 0 {
		return ErrNoSolution
	}
	if delay < MinDelay {
		delay = MinDelay
	}
	container.Clear()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i, p := range sol.Placements {
		if i > 0 {
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if p.Module == nil {
			return fmt.Errorf("replay: placement %d (%s) has no module type", i, p.ModuleName)
		}
		h, err := container.Instantiate(p.Module)
		if err != nil {
			return fmt.Errorf("replay: placement %d: %w", i, err)
		}
		if err := container.SetPose(h, p.Pose); err != nil {
			return fmt.Errorf("replay: placement %d: %w", i, err)
		}
		if onStep != nil {
			onStep(Step{Index: i, Total: len(sol.Placements), Placement: p, Handle: h})
		}
	}
	return nil
}
