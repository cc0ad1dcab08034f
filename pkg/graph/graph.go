package graph

import (
	"fmt"
	"strconv"

	"github.com/chazu/warren/pkg/dungeon"
)

// LayoutGraph is the connectivity of one solution. It is never mutated
// after construction by FromSolution.
type LayoutGraph struct {
	Nodes  map[NodeID]*Node `json:"nodes"`
	Order  []NodeID         `json:"order"` // placement order
	Roots  []NodeID         `json:"roots"`
	Edges  []Edge           `json:"edges"`
	Open   []OpenPort       `json:"open"`
	Seed   int64            `json:"seed"`
	Budget int              `json:"budget"`
}

// New creates an empty LayoutGraph.
func New() *LayoutGraph {
	return &LayoutGraph{Nodes: make(map[NodeID]*Node)}
}

// AddNode adds a node in placement order. It does not check for duplicates.
func (g *LayoutGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	g.Order = append(g.Order, n.ID)
}

// AddRoot registers a node ID as a root of the graph.
func (g *LayoutGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// AddEdge records a join.
func (g *LayoutGraph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
}

// Get returns the node with the given ID, or nil.
func (g *LayoutGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// At returns the i'th node in placement order, or nil.
func (g *LayoutGraph) At(i int) *Node {
	if i < 0 || i >= len(g.Order) {
		return nil
	}
	return g.Nodes[g.Order[i]]
}

// MustAt returns the i'th node, or panics.
func (g *LayoutGraph) MustAt(i int) *Node {
	n := g.At(i)
	if n == nil {
		panic(fmt.Sprintf("graph: no node at index %d", i))
	}
	return n
}

// Children returns the child nodes of the given node.
func (g *LayoutGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Loops returns the loop edges.
func (g *LayoutGraph) Loops() []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Kind == EdgeLoop {
			out = append(out, e)
		}
	}
	return out
}

// Degree returns how many edges touch the node.
func (g *LayoutGraph) Degree(id NodeID) int {
	n := 0
	for _, e := range g.Edges {
		if e.A == id {
			n++
		}
		if e.B == id {
			n++
		}
	}
	return n
}

// NodeCount returns the total number of nodes.
func (g *LayoutGraph) NodeCount() int {
	return len(g.Nodes)
}

// FromSolution builds the layout graph of sol. Ports are filled in for
// placements whose module type is resolved.
func FromSolution(sol *dungeon.Solution) *LayoutGraph {
	g := New()
	if sol == nil {
		return g
	}
	g.Seed, g.Budget = sol.Seed, sol.Budget

	ids := make([]NodeID, len(sol.Placements))
	for i, p := range sol.Placements {
		ids[i] = NewNodeID(strconv.FormatInt(sol.Seed, 10), strconv.Itoa(p.Index), p.ModuleName)
	}
	byIndex := func(i int) NodeID {
		if i < 0 || i >= len(ids) {
			return NodeID("missing-" + strconv.Itoa(i))
		}
		return ids[i]
	}

	for i, p := range sol.Placements {
		n := &Node{
			ID:     ids[i],
			Index:  p.Index,
			Module: p.ModuleName,
			Pose:   p.Pose,
			Attach: p.Attach,
		}
		if p.Module != nil {
			for _, c := range p.Module.Connectors {
				f := p.Pose.Frame(c.Frame)
				n.Ports = append(n.Ports, Port{Name: c.Name, Position: f.Position, Forward: f.Forward})
			}
		}
		if p.Parent < 0 {
			g.AddRoot(n.ID)
		} else {
			n.Parent = byIndex(p.Parent)
		}
		g.AddNode(n)
	}
	for _, id := range g.Order {
		n := g.Nodes[id]
		if parent := g.Nodes[n.Parent]; parent != nil {
			parent.Children = append(parent.Children, n.ID)
		}
	}

	for _, j := range sol.Joins {
		kind := EdgeAttach
		if j.Kind == dungeon.JoinLoop {
			kind = EdgeLoop
		}
		g.AddEdge(Edge{Kind: kind, A: byIndex(j.A), PortA: j.ConnA, B: byIndex(j.B), PortB: j.ConnB, Flexed: j.Flexed})
	}
	for _, o := range sol.Open {
		g.Open = append(g.Open, OpenPort{Node: byIndex(o.Placement), Port: o.Connector})
	}
	return g
}
