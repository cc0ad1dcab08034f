package dungeon

import (
	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/geom"
)

// JoinKind distinguishes tree attachments from loop closures.
type JoinKind string

const (
	JoinAttach JoinKind = "attach"
	JoinLoop   JoinKind = "loop"
)

// Placement is one module of a solution.
type Placement struct {
	Index      int                 `json:"index"`
	Module     *catalog.ModuleType `json:"-"`
	ModuleName string              `json:"module"`
	Pose       geom.Pose           `json:"pose"`
	Parent     int                 `json:"parent"` // -1 for the start module
	Attach     int                 `json:"attach"` // connector docked onto the parent
}

// Join records two connectors that were mated, by placement index.
type Join struct {
	Kind  JoinKind `json:"kind"`
	A     int      `json:"a"`
	ConnA int      `json:"conn_a"`
	B     int      `json:"b"`
	ConnB int      `json:"conn_b"`

	// Flexed marks an attach join whose child branch was moved by a loop
	// closure, so its connectors no longer coincide exactly.
	Flexed bool `json:"flexed,omitempty"`
}

// OpenRef names a connector left open in a solution.
type OpenRef struct {
	Placement int `json:"placement"`
	Connector int `json:"connector"`
}

// Stats counts what a generation did.
type Stats struct {
	Steps        int `json:"steps"`
	Trials       int `json:"trials"`
	Placements   int `json:"placements"`
	Backtracks   int `json:"backtracks"`
	DeadEnds     int `json:"dead_ends"`
	Starved      int `json:"starved"`
	LoopClosures int `json:"loop_closures"`
	StartsTried  int `json:"starts_tried"`
}

// Solution is the record of a successful layout: the ordered placements
// with their final poses and the connections between them.
type Solution struct {
	Seed       int64       `json:"seed"`
	Budget     int         `json:"budget"`
	Placements []Placement `json:"placements"`
	Joins      []Join      `json:"joins"`
	Open       []OpenRef   `json:"open"`
	Stats      Stats       `json:"stats"`
}

// Len returns the number of placed modules.
func (s *Solution) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Placements)
}

// Loops returns the loop-closure joins.
func (s *Solution) Loops() []Join {
	var out []Join
	for _, j := range s.Joins {
		if j.Kind == JoinLoop {
			out = append(out, j)
		}
	}
	return out
}

// capture snapshots the search state. Poses are read back from the adapter
// so that loop-closure moves are reflected.
func (s *search) capture() *Solution {
	sol := &Solution{
		Seed:       s.seed,
		Budget:     s.budget,
		Placements: make([]Placement, len(s.placed)),
		Joins:      append([]Join(nil), s.joins...),
		Stats:      s.stats,
	}
	for i, inst := range s.placed {
		parent := -1
		if inst.Parent != nil {
			parent = inst.Parent.Index
		}
		sol.Placements[i] = Placement{
			Index:      inst.Index,
			Module:     inst.Module,
			ModuleName: inst.Module.Name,
			Pose:       s.adapter.Pose(inst.Handle),
			Parent:     parent,
			Attach:     inst.Attach,
		}
	}
	for _, c := range s.frontier.Items() {
		sol.Open = append(sol.Open, OpenRef{Placement: c.Owner.Index, Connector: c.Index})
	}
	return sol
}
