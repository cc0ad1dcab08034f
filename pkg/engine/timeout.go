package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/warren/pkg/catalog"
)

// EvalTimeout bounds how long one catalog script may run.
const EvalTimeout = 5 * time.Second

// evalResult carries a finished catalog evaluation back to Evaluate.
type evalResult struct {
	catalog *catalog.Catalog
	errors  []EvalError
	err     error
}

// waitWithTimeout blocks until the sandbox goroutine delivers its catalog or
// EvalTimeout elapses. A catalog built for generation gen is dropped when a
// later Evaluate call has bumped currentGen in the meantime, so a slow
// script never replaces the modules of a newer one.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*catalog.Catalog, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		stale := gen != *currentGen
		mu.Unlock()
		if stale {
			return nil, nil, fmt.Errorf("catalog evaluation superseded by newer request")
		}
		return res.catalog, res.errors, res.err

	case <-timer.C:
		// The sandbox keeps running; its catalog is discarded on arrival.
		return nil, nil, fmt.Errorf("catalog evaluation timed out after %s", EvalTimeout)
	}
}
