package dungeon

import (
	"math"

	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Loop closure tolerances. Two open connectors are candidates when they sit
// at nearly the same elevation, close together and roughly facing each
// other.
const (
	LoopElevationTolerance = 0.05
	LoopDistMax            = 0.6
	LoopAlignDotMin        = -0.9
)

// closeLoop looks for a pair of open connectors that can be joined by
// moving one branch of the layout. On success both connectors leave the
// frontier, a loop join is recorded and the returned undo restores all of
// it.
func (s *search) closeLoop() (undo func(), ok bool) {
	open := s.frontier.Items()
	for i := 0; i < len(open); i++ {
		for j := i + 1; j < len(open); j++ {
			if undo, ok := s.tryClose(open[i], open[j]); ok {
				return undo, true
			}
		}
	}
	return nil, false
}

func (s *search) tryClose(a, b *Connector) (func(), bool) {
	fa, fb := a.Frame(s.adapter), b.Frame(s.adapter)
	if !loopCandidate(fa, fb) {
		return nil, false
	}

	mover, anchor := a, b
	branch := detachable(a.Owner, b.Owner)
	if branch == nil {
		mover, anchor = b, a
		branch = detachable(b.Owner, a.Owner)
	}
	if branch == nil {
		return nil, false
	}

	moved := branch.subtree()
	if s.pinned(moved) {
		return nil, false
	}
	saved := make([]geom.Pose, len(moved))
	for i, inst := range moved {
		saved[i] = s.adapter.Pose(inst.Handle)
	}
	restorePoses := func() {
		for i, inst := range moved {
			_ = s.adapter.SetPose(inst.Handle, saved[i])
		}
	}

	// Express the mover connector in world space and find the rigid delta
	// that docks it face to face with the anchor.
	moverWorld := mover.Frame(s.adapter)
	delta := Align(moverWorld, anchor.Frame(s.adapter), FaceToFace)
	for i, inst := range moved {
		if err := s.adapter.SetPose(inst.Handle, delta.Mul(saved[i])); err != nil {
			restorePoses()
			return nil, false
		}
	}

	if s.branchOverlaps(moved) {
		restorePoses()
		return nil, false
	}

	restoreA := s.frontier.Take(a)
	restoreB := s.frontier.Take(b)
	s.joins = append(s.joins, Join{
		Kind:  JoinLoop,
		A:     a.Owner.Index,
		ConnA: a.Index,
		B:     b.Owner.Index,
		ConnB: b.Index,
	})
	flexed := s.flex(branch)
	s.stats.LoopClosures++
	s.logger.Debug("closed loop", "a", a.Owner.Index, "b", b.Owner.Index, "moved", len(moved))

	n := len(s.joins) - 1
	return func() {
		restoreB()
		restoreA()
		restorePoses()
		s.joins = s.joins[:n]
		if flexed >= 0 {
			s.joins[flexed].Flexed = false
		}
		s.stats.LoopClosures--
	}, true
}

// pinned reports whether an earlier loop join ties the branch to a module
// outside it.
func (s *search) pinned(moved []*Instance) bool {
	in := make(map[int]bool, len(moved))
	for _, inst := range moved {
		in[inst.Index] = true
	}
	for _, j := range s.joins {
		if j.Kind == JoinLoop && in[j.A] != in[j.B] {
			return true
		}
	}
	return false
}

// flex marks the attach join of branch as flexed and returns its index, or
// -1 if it was already marked.
func (s *search) flex(branch *Instance) int {
	for i := range s.joins {
		j := &s.joins[i]
		if j.Kind == JoinAttach && j.B == branch.Index {
			if j.Flexed {
				return -1
			}
			j.Flexed = true
			return i
		}
	}
	return -1
}

// branchOverlaps tests every moved instance against the instances that
// stayed put.
func (s *search) branchOverlaps(moved []*Instance) bool {
	inBranch := make(map[*Instance]bool, len(moved))
	for _, inst := range moved {
		inBranch[inst] = true
	}
	var rest []scene.Handle
	for _, inst := range s.placed {
		if !inBranch[inst] {
			rest = append(rest, inst.Handle)
		}
	}
	for _, inst := range moved {
		if s.oracle.Overlaps(inst.Handle, rest) {
			return true
		}
	}
	return false
}

// loopCandidate applies the elevation, distance and facing tolerances.
func loopCandidate(a, b geom.Frame) bool {
	if math.Abs(a.Position.Y-b.Position.Y) > LoopElevationTolerance {
		return false
	}
	if geom.Distance(a.Position, b.Position) > LoopDistMax {
		return false
	}
	return r3.Dot(r3.Unit(a.Forward), r3.Unit(b.Forward)) <= LoopAlignDotMin
}

// detachable returns the topmost ancestor of from (possibly from itself)
// whose subtree does not contain other. It returns nil when from is an
// ancestor of other, since then no branch holding from leaves other behind.
func detachable(from, other *Instance) *Instance {
	if from.isAncestor(other) {
		return nil
	}
	cur := from
	for cur.Parent != nil && !cur.Parent.isAncestor(other) {
		cur = cur.Parent
	}
	return cur
}
