// Package tessellate walks a generated layout and produces triangle meshes
// using a geometry kernel. One mesh is produced per placed module.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/warren/pkg/catalog"
	"github.com/chazu/warren/pkg/dungeon"
	"github.com/chazu/warren/pkg/graph"
	"github.com/chazu/warren/pkg/kernel"
)

// ErrUnresolved is returned for placements whose module type is unknown.
var ErrUnresolved = errors.New("tessellate: placement module not resolved")

// Tessellate walks the layout tree from the start module and produces one
// mesh per placement, in walk order, through the provided kernel. The
// solution is never mutated.
func Tessellate(sol *dungeon.Solution, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if sol == nil {
		return nil, nil
	}
	g := graph.FromSolution(sol)

	var meshes []*kernel.Mesh
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := walkNode(g, sol, k, root, make(map[graph.NodeID]bool))
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// walkNode meshes n and then recurses into its children.
func walkNode(g *graph.LayoutGraph, sol *dungeon.Solution, k kernel.Kernel, n *graph.Node, seen map[graph.NodeID]bool) ([]*kernel.Mesh, error) {
	if seen[n.ID] {
		return nil, fmt.Errorf("node %s visited twice", n.ID.Short())
	}
	seen[n.ID] = true

	mesh, err := placementMesh(k, sol.Placements[n.Index])
	if err != nil {
		return nil, err
	}
	meshes := []*kernel.Mesh{mesh}
	for _, child := range g.Children(n) {
		collected, err := walkNode(g, sol, k, child, seen)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// placementMesh unions a module's visuals, places them at the placement's
// pose and meshes the result.
func placementMesh(k kernel.Kernel, p dungeon.Placement) (*kernel.Mesh, error) {
	if p.Module == nil {
		return nil, fmt.Errorf("%w: placement %d (%s)", ErrUnresolved, p.Index, p.ModuleName)
	}
	solid := visualSolid(k, p.Module)
	if solid == nil {
		return &kernel.Mesh{Module: p.ModuleName}, nil
	}

	mesh, err := k.ToMesh(k.Place(solid, p.Pose))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for placement %d: %w", p.Index, err)
	}
	mesh.Module = p.ModuleName
	return mesh, nil
}

// visualSolid folds a module's visuals into one solid, or nil.
func visualSolid(k kernel.Kernel, m *catalog.ModuleType) kernel.Solid {
	if len(m.Visuals) == 0 {
		return nil
	}
	s := m.Visuals[0]
	for _, v := range m.Visuals[1:] {
		s = k.Union(s, v)
	}
	return s
}

// Merge concatenates meshes into one. Module names are dropped.
func Merge(meshes []*kernel.Mesh) *kernel.Mesh {
	out := &kernel.Mesh{}
	for _, m := range meshes {
		if m != nil {
			out.Append(m)
		}
	}
	return out
}
