package dungeon

import (
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/kernel"
	"github.com/chazu/warren/pkg/scene"
)

// BoundsShrink is subtracted from every bounding box size before a bounds
// test, half from each face, so that faces touching at a shared connector
// do not count as overlap.
const BoundsShrink = 0.01

// Oracle decides whether placed modules overlap. It only reads the adapter.
type Oracle struct {
	adapter scene.Adapter
	shrink  float64
}

// NewOracle returns an oracle over a.
func NewOracle(a scene.Adapter) *Oracle {
	return &Oracle{adapter: a, shrink: BoundsShrink}
}

// Overlaps reports whether candidate overlaps any of placed. The candidate
// itself is skipped if it appears in placed.
func (o *Oracle) Overlaps(candidate scene.Handle, placed []scene.Handle) bool {
	for _, p := range placed {
		if p == candidate {
			continue
		}
		if o.TestOverlap(candidate, p) {
			return true
		}
	}
	return false
}

// TestOverlap applies the overlap policy to a pair of instances.
//
// When both instances have colliders every collider pair is tested exactly.
// A pair overlaps when the kernel reports positive penetration, or when the
// kernel cannot decide and the shrunk collider bounds intersect. Otherwise
// the shrunk visual bounds are compared, and a zero-size bound never
// overlaps anything.
func (o *Oracle) TestOverlap(a, b scene.Handle) bool {
	ca, cb := o.adapter.Colliders(a), o.adapter.Colliders(b)
	if len(ca) > 0 && len(cb) > 0 {
		for _, sa := range ca {
			for _, sb := range cb {
				if o.solidsOverlap(sa, sb) {
					return true
				}
			}
		}
		return false
	}
	return o.boundsOverlap(o.adapter.WorldBounds(a), o.adapter.WorldBounds(b))
}

func (o *Oracle) solidsOverlap(a, b kernel.Solid) bool {
	depth, ok := o.adapter.Penetration(a, b)
	if ok {
		return depth > 0
	}
	return kernel.Bounds(a).Expand(-o.shrink).Intersects(kernel.Bounds(b).Expand(-o.shrink))
}

func (o *Oracle) boundsOverlap(a, b geom.Box) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return a.Expand(-o.shrink).Intersects(b.Expand(-o.shrink))
}
