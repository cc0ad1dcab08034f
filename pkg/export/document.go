// Package export writes generated layouts out of the process: solution
// documents in JSON, YAML or TOML, and binary STL meshes.
package export

import (
	"errors"
	"fmt"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DocumentVersion is the schema version written by NewDocument.
const DocumentVersion = 1

// ErrUnknownModule is returned by Resolve for module names missing from the catalog.
var ErrUnknownModule = errors.New("export: module not in catalog")

// Document is the serialisable form of a dungeon.Solution. Module types are
// referenced by name; Resolve binds them back to a catalog.
type Document struct {
	Version    int            `json:"version" yaml:"version" toml:"version"`
	Seed       int64          `json:"seed" yaml:"seed" toml:"seed"`
	Budget     int            `json:"budget" yaml:"budget" toml:"budget"`
	Placements []PlacementDoc `json:"placements" yaml:"placements" toml:"placement"`
	Joins      []JoinDoc      `json:"joins,omitempty" yaml:"joins,omitempty" toml:"join,omitempty"`
	Open       []OpenDoc      `json:"open,omitempty" yaml:"open,omitempty" toml:"open,omitempty"`
	Stats      StatsDoc       `json:"stats" yaml:"stats" toml:"stats"`
}

// PlacementDoc is one placed module. Rotation is a unit quaternion in
// w, x, y, z order.
type PlacementDoc struct {
	Index    int        `json:"index" yaml:"index" toml:"index"`
	Module   string     `json:"module" yaml:"module" toml:"module"`
	Position [3]float64 `json:"position" yaml:"position,flow" toml:"position"`
	Rotation [4]float64 `json:"rotation" yaml:"rotation,flow" toml:"rotation"`
	Parent   int        `json:"parent" yaml:"parent" toml:"parent"`
	Attach   int        `json:"attach" yaml:"attach" toml:"attach"`
}

// JoinDoc records two mated connectors by placement index.
type JoinDoc struct {
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	A      int    `json:"a" yaml:"a" toml:"a"`
	ConnA  int    `json:"conn_a" yaml:"conn_a" toml:"conn_a"`
	B      int    `json:"b" yaml:"b" toml:"b"`
	ConnB  int    `json:"conn_b" yaml:"conn_b" toml:"conn_b"`
	Flexed bool   `json:"flexed,omitempty" yaml:"flexed,omitempty" toml:"flexed,omitempty"`
}

// OpenDoc names a connector left open.
type OpenDoc struct {
	Placement int `json:"placement" yaml:"placement" toml:"placement"`
	Connector int `json:"connector" yaml:"connector" toml:"connector"`
}

// StatsDoc mirrors dungeon.Stats.
type StatsDoc struct {
	Steps        int `json:"steps" yaml:"steps" toml:"steps"`
	Trials       int `json:"trials" yaml:"trials" toml:"trials"`
	Placements   int `json:"placements" yaml:"placements" toml:"placements"`
	Backtracks   int `json:"backtracks" yaml:"backtracks" toml:"backtracks"`
	DeadEnds     int `json:"dead_ends" yaml:"dead_ends" toml:"dead_ends"`
	Starved      int `json:"starved" yaml:"starved" toml:"starved"`
	LoopClosures int `json:"loop_closures" yaml:"loop_closures" toml:"loop_closures"`
	StartsTried  int `json:"starts_tried" yaml:"starts_tried" toml:"starts_tried"`
}

// NewDocument converts sol.
func NewDocument(sol *dungeon.Solution) *Document {
	doc := &Document{Version: DocumentVersion}
	if sol == nil {
		return doc
	}
	doc.Seed, doc.Budget = sol.Seed, sol.Budget
	doc.Stats = StatsDoc(sol.Stats)

	for _, p := range sol.Placements {
		r := p.Pose.Rotation
		doc.Placements = append(doc.Placements, PlacementDoc{
			Index:    p.Index,
			Module:   p.ModuleName,
			Position: [3]float64{p.Pose.Position.X, p.Pose.Position.Y, p.Pose.Position.Z},
			Rotation: [4]float64{r.Real, r.Imag, r.Jmag, r.Kmag},
			Parent:   p.Parent,
			Attach:   p.Attach,
		})
	}
	for _, j := range sol.Joins {
		doc.Joins = append(doc.Joins, JoinDoc{Kind: string(j.Kind), A: j.A, ConnA: j.ConnA, B: j.B, ConnB: j.ConnB, Flexed: j.Flexed})
	}
	for _, o := range sol.Open {
		doc.Open = append(doc.Open, OpenDoc{Placement: o.Placement, Connector: o.Connector})
	}
	return doc
}

// Solution converts the document back without resolving module types.
func (d *Document) Solution() *dungeon.Solution {
	sol := &dungeon.Solution{
		Seed:   d.Seed,
		Budget: d.Budget,
		Stats:  dungeon.Stats(d.Stats),
	}
	for _, p := range d.Placements {
		sol.Placements = append(sol.Placements, dungeon.Placement{
			Index:      p.Index,
			ModuleName: p.Module,
			Pose: geom.Pose{
				Position: geom.V(p.Position[0], p.Position[1], p.Position[2]),
				Rotation: r3.Rotation{Real: p.Rotation[0], Imag: p.Rotation[1], Jmag: p.Rotation[2], Kmag: p.Rotation[3]},
			},
			Parent: p.Parent,
			Attach: p.Attach,
		})
	}
	for _, j := range d.Joins {
		sol.Joins = append(sol.Joins, dungeon.Join{Kind: dungeon.JoinKind(j.Kind), A: j.A, ConnA: j.ConnA, B: j.B, ConnB: j.ConnB, Flexed: j.Flexed})
	}
	for _, o := range d.Open {
		sol.Open = append(sol.Open, dungeon.OpenRef{Placement: o.Placement, Connector: o.Connector})
	}
	return sol
}

// Resolve converts the document back into a solution whose placements
// reference the module types of cat.
func (d *Document) Resolve(cat *catalog.Catalog) (*dungeon.Solution, error) {
	sol := d.Solution()
	for i := range sol.Placements {
		p := &sol.Placements[i]
		m, ok := cat.Lookup(p.ModuleName)
		if !ok {
			return nil, fmt.Errorf("%w: %q (placement %d)", ErrUnknownModule, p.ModuleName, p.Index)
		}
		p.Module = m
	}
	return sol, nil
}
