package dungeon

import (
	"log/slog"
	"math/rand"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
	"github.com/chazu/warren/pkg/scene"
)

// search holds the state of one generation. It is discarded afterwards.
type search struct {
	rng     *rand.Rand
	adapter scene.Adapter
	oracle  *Oracle
	entries []*catalog.ModuleType
	budget  int
	seed    int64
	opts    Options
	logger  *slog.Logger
	stats   Stats

	placed   []*Instance
	frontier Frontier
	joins    []Join

	// viable entries per open connector, valid until the next state change
	memo map[*Connector][]*catalog.ModuleType
}

// handles returns the scene handles of the placed instances.
func (s *search) handles() []scene.Handle {
	out := make([]scene.Handle, len(s.placed))
	for i, inst := range s.placed {
		out[i] = inst.Handle
	}
	return out
}

// run tries each usable start module in shuffled order until one grows
// into a complete layout.
func (s *search) run() bool {
	starts := append([]*catalog.ModuleType(nil), s.entries...)
	s.rng.Shuffle(len(starts), func(i, j int) { starts[i], starts[j] = starts[j], starts[i] })

	for _, m := range starts {
		s.reset()
		h, err := s.adapter.Instantiate(m)
		if err != nil {
			s.logger.Debug("start module rejected", "module", m.Name, "error", err)
			continue
		}
		if err := s.adapter.SetPose(h, geom.Identity()); err != nil {
			_ = s.adapter.Destroy(h)
			continue
		}
		root := &Instance{Handle: h, Module: m, Index: 0, Attach: -1}
		s.placed = append(s.placed, root)
		s.frontier.Push(connectorsOf(root)...)
		s.stats.StartsTried++
		s.logger.Debug("trying start module", "module", m.Name, "connectors", m.ConnectorCount())

		if s.expand() {
			return true
		}
	}
	s.reset()
	return false
}

// reset destroys every placed instance and clears the search state.
func (s *search) reset() {
	for i := len(s.placed) - 1; i >= 0; i-- {
		_ = s.adapter.Destroy(s.placed[i].Handle)
	}
	s.placed = s.placed[:0]
	s.frontier = Frontier{}
	s.joins = s.joins[:0]
	s.memo = nil
}

// expand advances the search by one decision and recurses. It returns true
// when the layout is complete; on false the state is exactly what it was
// on entry.
func (s *search) expand() bool {
	s.stats.Steps++
	s.memo = nil

	if len(s.placed) >= s.budget {
		return true
	}
	if s.frontier.Len() == 0 {
		s.stats.Starved++
		return s.opts.AcceptStarved
	}

	// A closure that leads nowhere is undone and the step continues as if
	// no loop had been found.
	if undo, ok := s.closeLoop(); ok {
		if s.expand() {
			return true
		}
		undo()
		s.memo = nil
	}

	target := s.selectConnector()
	viable := s.viable(target)
	if len(viable) == 0 {
		s.stats.DeadEnds++
		return false
	}

	targetFrame := target.Frame(s.adapter)
	restore := s.frontier.Take(target)
	pool := growthPool(viable)
	pool = append([]*catalog.ModuleType(nil), pool...)

	for len(pool) > 0 {
		i := s.pickWeighted(pool)
		m := pool[i]
		pool = append(pool[:i], pool[i+1:]...)

		h, attach, ok := trial(s.adapter, s.oracle, s.handles(), m, targetFrame)
		s.stats.Trials++
		if !ok {
			continue
		}
		inst := s.commit(target, m, h, attach)
		if s.expand() {
			return true
		}
		s.rollback(inst)
		s.memo = nil
	}

	restore()
	return false
}

// commit records a trial instance as placed onto target.
func (s *search) commit(target *Connector, m *catalog.ModuleType, h scene.Handle, attach int) *Instance {
	parent := target.Owner
	inst := &Instance{
		Handle: h,
		Module: m,
		Index:  len(s.placed),
		Parent: parent,
		Attach: attach,
	}
	parent.Children = append(parent.Children, inst)
	s.placed = append(s.placed, inst)

	open := connectorsOf(inst)
	open = append(open[:attach], open[attach+1:]...)
	s.frontier.Push(open...)

	s.joins = append(s.joins, Join{
		Kind:  JoinAttach,
		A:     parent.Index,
		ConnA: target.Index,
		B:     inst.Index,
		ConnB: attach,
	})
	s.stats.Placements++
	s.logger.Debug("placed module", "module", m.Name, "index", inst.Index, "parent", parent.Index)
	return inst
}

// rollback undoes commit for the most recent placement.
func (s *search) rollback(inst *Instance) {
	s.frontier.DropOwner(inst)
	parent := inst.Parent
	parent.Children = parent.Children[:len(parent.Children)-1]
	s.placed = s.placed[:len(s.placed)-1]
	s.joins = s.joins[:len(s.joins)-1]
	_ = s.adapter.Destroy(inst.Handle)
	s.stats.Backtracks++
	s.logger.Debug("backtracked", "module", inst.Module.Name, "index", inst.Index)
}

func connectorsOf(inst *Instance) []*Connector {
	out := make([]*Connector, inst.Module.ConnectorCount())
	for i := range out {
		out[i] = &Connector{Owner: inst, Index: i}
	}
	return out
}
