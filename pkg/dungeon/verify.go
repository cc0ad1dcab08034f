package dungeon

import (
	"errors"
	"fmt"

	"github.com/chazu/warren/pkg/scene"
)

// ErrInvalidSolution wraps every problem Verify finds.
var ErrInvalidSolution = errors.New("dungeon: invalid solution")

// Verify rebuilds sol in container and checks that it respects its budget
// and that no two placements overlap. Instances it creates are destroyed
// before it returns.
func Verify(sol *Solution, container scene.Adapter) error {
	if sol == nil || len(sol.Placements) == 0 {
		return fmt.Errorf("%w: no placements", ErrInvalidSolution)
	}
	if sol.Budget > 0 && len(sol.Placements) > sol.Budget {
		return fmt.Errorf("%w: %d placements exceed budget %d", ErrInvalidSolution, len(sol.Placements), sol.Budget)
	}

	handles := make([]scene.Handle, 0, len(sol.Placements))
	defer func() {
		for _, h := range handles {
			_ = container.Destroy(h)
		}
	}()
	for i, p := range sol.Placements {
		if p.Module == nil {
			return fmt.Errorf("%w: placement %d has no module type", ErrInvalidSolution, i)
		}
		h, err := container.Instantiate(p.Module)
		if err != nil {
			return fmt.Errorf("%w: placement %d: %v", ErrInvalidSolution, i, err)
		}
		handles = append(handles, h)
		if err := container.SetPose(h, p.Pose); err != nil {
			return fmt.Errorf("%w: placement %d: %v", ErrInvalidSolution, i, err)
		}
	}

	o := NewOracle(container)
	for i := range handles {
		for j := i + 1; j < len(handles); j++ {
			if o.TestOverlap(handles[i], handles[j]) {
				return fmt.Errorf("%w: placements %d (%s) and %d (%s) overlap",
					ErrInvalidSolution, i, sol.Placements[i].ModuleName, j, sol.Placements[j].ModuleName)
			}
		}
	}
	return nil
}
